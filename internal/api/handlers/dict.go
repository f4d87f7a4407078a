// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/queqiao-arr/queqiao/internal/models"
)

const (
	dictTypePageSize    = 50
	dictTypeMaxPageSize = 100
	dictItemPageSize    = 50
	dictItemMaxPageSize = 200
)

type DictHandler struct {
	store *models.DictStore
}

func NewDictHandler(store *models.DictStore) *DictHandler {
	return &DictHandler{store: store}
}

// DictTypeRequest creates or patches a dict type; code is immutable after
// creation.
type DictTypeRequest struct {
	Code     *string `json:"code"`
	Name     *string `json:"name"`
	Remark   *string `json:"remark"`
	IsActive *bool   `json:"is_active"`
}

// DictItemRequest creates or patches a dict item; dict_type_code and code
// are immutable after creation.
type DictItemRequest struct {
	DictTypeCode *string          `json:"dict_type_code"`
	Code         *string          `json:"code"`
	Name         *string          `json:"name"`
	Value        *string          `json:"value"`
	SortOrder    *int             `json:"sort_order"`
	ParentID     *int             `json:"parent_id"`
	Remark       *string          `json:"remark"`
	IsActive     *bool            `json:"is_active"`
	ExtraData    *json.RawMessage `json:"extra_data"`
}

type pagedResponse struct {
	Items    any `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func (h *DictHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	page, pageSize := ParsePagination(r, dictTypePageSize, dictTypeMaxPageSize)

	types, total, err := h.store.ListTypes(r.Context(), parseBoolQuery(r, "is_active"), page, pageSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to list dict types")
		RespondError(w, http.StatusInternalServerError, "Failed to list dict types")
		return
	}

	RespondData(w, http.StatusOK, pagedResponse{Items: types, Total: total, Page: page, PageSize: pageSize})
}

func (h *DictHandler) CreateType(w http.ResponseWriter, r *http.Request) {
	var req DictTypeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	dt, err := h.store.CreateType(r.Context(), orDefault(req.Code, ""), orDefault(req.Name, ""), req.Remark, orDefault(req.IsActive, true))
	if err != nil {
		if errors.Is(err, models.ErrDictTypeExists) {
			RespondError(w, http.StatusConflict, "A dict type with this code already exists")
			return
		}
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	RespondData(w, http.StatusCreated, dt)
}

func (h *DictHandler) UpdateType(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIntParam(w, r, "id", "dict type ID")
	if !ok {
		return
	}

	var req DictTypeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	dt, err := h.store.UpdateType(r.Context(), id, models.DictTypePatch{
		Name:     req.Name,
		Remark:   req.Remark,
		IsActive: req.IsActive,
	})
	if err != nil {
		if errors.Is(err, models.ErrDictTypeNotFound) {
			RespondError(w, http.StatusNotFound, "Dict type not found")
			return
		}
		log.Error().Err(err).Int("id", id).Msg("failed to update dict type")
		RespondError(w, http.StatusInternalServerError, "Failed to update dict type")
		return
	}

	RespondData(w, http.StatusOK, dt)
}

// DeleteType removes a type and, via cascade, all of its items.
func (h *DictHandler) DeleteType(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIntParam(w, r, "id", "dict type ID")
	if !ok {
		return
	}

	if err := h.store.DeleteType(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrDictTypeNotFound) {
			RespondError(w, http.StatusNotFound, "Dict type not found")
			return
		}
		log.Error().Err(err).Int("id", id).Msg("failed to delete dict type")
		RespondError(w, http.StatusInternalServerError, "Failed to delete dict type")
		return
	}

	RespondMessage(w, http.StatusOK, "Dict type deleted")
}

// ListItems requires a dict_type_code query parameter and pages through
// that type's items.
func (h *DictHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	dictTypeCode := r.URL.Query().Get("dict_type_code")
	if dictTypeCode == "" {
		RespondError(w, http.StatusBadRequest, "dict_type_code is required")
		return
	}

	var parentID *int
	if raw := r.URL.Query().Get("parent_id"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			RespondError(w, http.StatusBadRequest, "Invalid parent_id")
			return
		}
		parentID = &v
	}
	page, pageSize := ParsePagination(r, dictItemPageSize, dictItemMaxPageSize)

	items, total, err := h.store.ListItems(r.Context(), dictTypeCode, parseBoolQuery(r, "is_active"), parentID, page, pageSize)
	if err != nil {
		log.Error().Err(err).Str("dict_type_code", dictTypeCode).Msg("failed to list dict items")
		RespondError(w, http.StatusInternalServerError, "Failed to list dict items")
		return
	}

	RespondData(w, http.StatusOK, pagedResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
}

func (h *DictHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIntParam(w, r, "id", "dict item ID")
	if !ok {
		return
	}

	item, err := h.store.GetItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrDictItemNotFound) {
			RespondError(w, http.StatusNotFound, "Dict item not found")
			return
		}
		log.Error().Err(err).Int("id", id).Msg("failed to load dict item")
		RespondError(w, http.StatusInternalServerError, "Failed to load dict item")
		return
	}

	RespondData(w, http.StatusOK, item)
}

func (h *DictHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req DictItemRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if orDefault(req.DictTypeCode, "") == "" || orDefault(req.Code, "") == "" || orDefault(req.Name, "") == "" {
		RespondError(w, http.StatusBadRequest, "dict_type_code, code and name are required")
		return
	}

	item, err := h.store.CreateItem(r.Context(), models.DictItemParams{
		DictTypeCode: *req.DictTypeCode,
		Code:         *req.Code,
		Name:         *req.Name,
		Value:        orDefault(req.Value, ""),
		SortOrder:    orDefault(req.SortOrder, 0),
		ParentID:     req.ParentID,
		Remark:       req.Remark,
		IsActive:     orDefault(req.IsActive, true),
		ExtraData:    rawToString(req.ExtraData),
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDictItemExists):
			RespondError(w, http.StatusConflict, "A dict item with this code already exists for this type")
		case errors.Is(err, models.ErrDictTypeNotFound):
			RespondError(w, http.StatusNotFound, "Dict type not found")
		case errors.Is(err, models.ErrInvalidParent):
			RespondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error().Err(err).Msg("failed to create dict item")
			RespondError(w, http.StatusInternalServerError, "Failed to create dict item")
		}
		return
	}

	RespondData(w, http.StatusCreated, item)
}

func (h *DictHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIntParam(w, r, "id", "dict item ID")
	if !ok {
		return
	}

	var req DictItemRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	item, err := h.store.UpdateItem(r.Context(), id, models.DictItemPatch{
		Name:      req.Name,
		Value:     req.Value,
		SortOrder: req.SortOrder,
		ParentID:  req.ParentID,
		Remark:    req.Remark,
		IsActive:  req.IsActive,
		ExtraData: rawToString(req.ExtraData),
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDictItemNotFound):
			RespondError(w, http.StatusNotFound, "Dict item not found")
		case errors.Is(err, models.ErrInvalidParent):
			RespondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error().Err(err).Int("id", id).Msg("failed to update dict item")
			RespondError(w, http.StatusInternalServerError, "Failed to update dict item")
		}
		return
	}

	RespondData(w, http.StatusOK, item)
}

// DeleteItem removes an item and, via cascade, its children.
func (h *DictHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIntParam(w, r, "id", "dict item ID")
	if !ok {
		return
	}

	if err := h.store.DeleteItem(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrDictItemNotFound) {
			RespondError(w, http.StatusNotFound, "Dict item not found")
			return
		}
		log.Error().Err(err).Int("id", id).Msg("failed to delete dict item")
		RespondError(w, http.StatusInternalServerError, "Failed to delete dict item")
		return
	}

	RespondMessage(w, http.StatusOK, "Dict item deleted")
}

// Options serves the active items of one dict type in display order, for
// dropdowns.
func (h *DictHandler) Options(w http.ResponseWriter, r *http.Request) {
	code, ok := ParseStringParam(w, r, "code", "dict type code")
	if !ok {
		return
	}

	if _, err := h.store.GetTypeByCode(r.Context(), code); err != nil {
		if errors.Is(err, models.ErrDictTypeNotFound) {
			RespondError(w, http.StatusNotFound, "Dict type not found")
			return
		}
		log.Error().Err(err).Str("code", code).Msg("failed to load dict type")
		RespondError(w, http.StatusInternalServerError, "Failed to load options")
		return
	}

	options, err := h.store.Options(r.Context(), code, nil)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to load dict options")
		RespondError(w, http.StatusInternalServerError, "Failed to load options")
		return
	}

	RespondData(w, http.StatusOK, options)
}
