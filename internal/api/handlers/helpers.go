// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Envelope is the uniform success response body.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// RespondData wraps data in the success envelope.
func RespondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Code: status, Message: "OK", Data: data})
}

// RespondMessage wraps a bare message in the success envelope.
func RespondMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Code: status, Message: message, Data: nil})
}

// RespondError sends a {detail} body with the given status.
func RespondError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// DecodeJSON decodes the request body into dest. Returns false if decoding
// fails (error already sent to client).
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, dest *T) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// ParseIntParam extracts an integer URL parameter. Returns 0 and false if
// missing or not a number (error already sent).
func ParseIntParam(w http.ResponseWriter, r *http.Request, name, displayName string) (int, bool) {
	str := strings.TrimSpace(chi.URLParam(r, name))
	if str == "" {
		RespondError(w, http.StatusBadRequest, displayName+" is required")
		return 0, false
	}
	value, err := strconv.Atoi(str)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid "+displayName)
		return 0, false
	}
	return value, true
}

// ParseStringParam extracts a non-empty string URL parameter. Returns ""
// and false if missing (error already sent).
func ParseStringParam(w http.ResponseWriter, r *http.Request, name, displayName string) (string, bool) {
	value := strings.TrimSpace(chi.URLParam(r, name))
	if value == "" {
		RespondError(w, http.StatusBadRequest, displayName+" is required")
		return "", false
	}
	return value, true
}

// ParsePagination reads page/page_size query parameters, applying the given
// defaults and clamping page_size to maxSize.
func ParsePagination(r *http.Request, defaultSize, maxSize int) (page, pageSize int) {
	page = 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}

	pageSize = defaultSize
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 {
		pageSize = v
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}

	return page, pageSize
}

// parseBoolQuery reads an optional boolean query parameter; absent or
// unparseable values return nil.
func parseBoolQuery(r *http.Request, name string) *bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}
