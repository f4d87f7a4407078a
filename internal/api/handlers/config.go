// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/queqiao-arr/queqiao/internal/crypto"
	"github.com/queqiao-arr/queqiao/internal/models"
	"github.com/queqiao-arr/queqiao/internal/probes"
)

type ConfigHandler struct {
	services *models.ServiceConfigStore
	kv       *models.ConfigurationStore
	prober   *probes.Prober
}

func NewConfigHandler(services *models.ServiceConfigStore, kv *models.ConfigurationStore, prober *probes.Prober) *ConfigHandler {
	return &ConfigHandler{services: services, kv: kv, prober: prober}
}

// ServiceConfigRequest is the "service" arm of the create union and the
// body of a service config update. On update, absent fields are left
// untouched.
type ServiceConfigRequest struct {
	ServiceName *string          `json:"service_name"`
	ServiceType *string          `json:"service_type"`
	Name        *string          `json:"name"`
	URL         *string          `json:"url"`
	APIKey      *string          `json:"api_key"`
	Username    *string          `json:"username"`
	Password    *string          `json:"password"`
	ExtraConfig *json.RawMessage `json:"extra_config"`
	IsActive    *bool            `json:"is_active"`
}

// KVConfigRequest is the "kv" arm of the create union and the body of a KV
// update.
type KVConfigRequest struct {
	Key         *string `json:"key"`
	Value       *string `json:"value"`
	Description *string `json:"description"`
	IsEncrypted *bool   `json:"is_encrypted"`
	IsActive    *bool   `json:"is_active"`
}

func rawToString(raw *json.RawMessage) *string {
	if raw == nil {
		return nil
	}
	s := string(*raw)
	return &s
}

func orDefault[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// List returns both config kinds side by side, narrowed by the
// service_name, keys, and is_active query parameters.
func (h *ConfigHandler) List(w http.ResponseWriter, r *http.Request) {
	isActive := parseBoolQuery(r, "is_active")

	serviceConfigs, err := h.services.List(r.Context(), models.ServiceConfigFilter{
		ServiceName: r.URL.Query().Get("service_name"),
		IsActive:    isActive,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to list service configs")
		RespondError(w, http.StatusInternalServerError, "Failed to list configurations")
		return
	}

	var keys []string
	if raw := r.URL.Query().Get("keys"); raw != "" {
		keys = strings.Split(raw, ",")
	}
	kvConfigs, err := h.kv.List(r.Context(), models.ConfigurationFilter{Keys: keys, IsActive: isActive})
	if err != nil {
		log.Error().Err(err).Msg("failed to list kv configs")
		RespondError(w, http.StatusInternalServerError, "Failed to list configurations")
		return
	}

	RespondData(w, http.StatusOK, map[string]any{
		"services":       serviceConfigs,
		"configurations": kvConfigs,
	})
}

// Create dispatches on the request's type tag: "service" or "kv".
func (h *ConfigHandler) Create(w http.ResponseWriter, r *http.Request) {
	var probe struct {
		Type string `json:"type"`
	}
	body, err := decodeRaw(r)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch probe.Type {
	case "service":
		h.createService(w, r, body)
	case "kv":
		h.createKV(w, r, body)
	default:
		RespondError(w, http.StatusBadRequest, `type must be "service" or "kv"`)
	}
}

func decodeRaw(r *http.Request) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (h *ConfigHandler) createService(w http.ResponseWriter, r *http.Request, body json.RawMessage) {
	var req ServiceConfigRequest
	if err := json.Unmarshal(body, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg, err := h.services.Create(r.Context(), models.ServiceConfigParams{
		ServiceName: orDefault(req.ServiceName, ""),
		ServiceType: orDefault(req.ServiceType, ""),
		Name:        orDefault(req.Name, ""),
		URL:         orDefault(req.URL, ""),
		APIKey:      req.APIKey,
		Username:    req.Username,
		Password:    req.Password,
		ExtraConfig: rawToString(req.ExtraConfig),
		IsActive:    orDefault(req.IsActive, true),
	})
	if err != nil {
		if errors.Is(err, models.ErrServiceConfigExists) {
			RespondError(w, http.StatusConflict, "A config with this service and name already exists")
			return
		}
		log.Debug().Err(err).Msg("service config creation rejected")
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	RespondData(w, http.StatusCreated, cfg)
}

func (h *ConfigHandler) createKV(w http.ResponseWriter, r *http.Request, body json.RawMessage) {
	var req KVConfigRequest
	if err := json.Unmarshal(body, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if orDefault(req.Key, "") == "" {
		RespondError(w, http.StatusBadRequest, "key is required")
		return
	}

	cfg, err := h.kv.Create(r.Context(), models.ConfigurationParams{
		Key:         *req.Key,
		Value:       req.Value,
		Description: req.Description,
		IsEncrypted: orDefault(req.IsEncrypted, false),
		IsActive:    orDefault(req.IsActive, true),
	})
	if err != nil {
		if errors.Is(err, models.ErrConfigurationExists) {
			RespondError(w, http.StatusConflict, "A config with this key already exists")
			return
		}
		log.Debug().Err(err).Msg("kv config creation rejected")
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	RespondData(w, http.StatusCreated, cfg)
}

func (h *ConfigHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIntParam(w, r, "id", "config ID")
	if !ok {
		return
	}

	var req ServiceConfigRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	cfg, err := h.services.Update(r.Context(), id, models.ServiceConfigPatch{
		ServiceName: req.ServiceName,
		ServiceType: req.ServiceType,
		Name:        req.Name,
		URL:         req.URL,
		APIKey:      req.APIKey,
		Username:    req.Username,
		Password:    req.Password,
		ExtraConfig: rawToString(req.ExtraConfig),
		IsActive:    req.IsActive,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrServiceConfigNotFound):
			RespondError(w, http.StatusNotFound, "Config not found")
		case errors.Is(err, models.ErrServiceConfigExists):
			RespondError(w, http.StatusConflict, "A config with this service and name already exists")
		default:
			log.Debug().Err(err).Int("id", id).Msg("service config update rejected")
			RespondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	RespondData(w, http.StatusOK, cfg)
}

func (h *ConfigHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIntParam(w, r, "id", "config ID")
	if !ok {
		return
	}

	if err := h.services.Delete(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrServiceConfigNotFound) {
			RespondError(w, http.StatusNotFound, "Config not found")
			return
		}
		log.Error().Err(err).Int("id", id).Msg("failed to delete service config")
		RespondError(w, http.StatusInternalServerError, "Failed to delete config")
		return
	}

	RespondMessage(w, http.StatusOK, "Config deleted")
}

func (h *ConfigHandler) UpdateKV(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIntParam(w, r, "id", "config ID")
	if !ok {
		return
	}

	var req KVConfigRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	cfg, err := h.kv.Update(r.Context(), id, models.ConfigurationPatch{
		Key:         req.Key,
		Value:       req.Value,
		Description: req.Description,
		IsEncrypted: req.IsEncrypted,
		IsActive:    req.IsActive,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConfigurationNotFound):
			RespondError(w, http.StatusNotFound, "Config not found")
		case errors.Is(err, models.ErrConfigurationExists):
			RespondError(w, http.StatusConflict, "A config with this key already exists")
		case errors.Is(err, models.ErrEncryptionToggleWithoutValue):
			RespondError(w, http.StatusBadRequest, "Changing is_encrypted requires supplying a new value")
		default:
			log.Debug().Err(err).Int("id", id).Msg("kv config update rejected")
			RespondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	RespondData(w, http.StatusOK, cfg)
}

func (h *ConfigHandler) DeleteKV(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIntParam(w, r, "id", "config ID")
	if !ok {
		return
	}

	if err := h.kv.Delete(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrConfigurationNotFound) {
			RespondError(w, http.StatusNotFound, "Config not found")
			return
		}
		log.Error().Err(err).Int("id", id).Msg("failed to delete kv config")
		RespondError(w, http.StatusInternalServerError, "Failed to delete config")
		return
	}

	RespondMessage(w, http.StatusOK, "Config deleted")
}

// TestConnectionRequest probes a service either from inline fields
// (mode "by_body") or from a stored config (mode "by_id").
type TestConnectionRequest struct {
	Mode        string            `json:"mode"`
	ServiceName string            `json:"service_name"`
	URL         string            `json:"url"`
	APIKey      string            `json:"api_key"`
	Proxy       map[string]string `json:"proxy"`
	ID          int               `json:"id"`
}

// proxyFromMap picks a single outbound proxy URL from a {http, https,
// socks5} request map.
func proxyFromMap(proxy map[string]string) string {
	for _, key := range []string{"http", "https", "socks5"} {
		if proxy[key] != "" {
			return proxy[key]
		}
	}
	return ""
}

// TestConnection probes sonarr, prowlarr, or tmdb. An unreachable target is
// a normal ok:false result, never an error status.
func (h *ConfigHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req TestConnectionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	target := probes.Target{
		ServiceName: req.ServiceName,
		URL:         req.URL,
		APIKey:      req.APIKey,
	}

	switch req.Mode {
	case "", "by_body":
		// Inline fields as given.
	case "by_id":
		cfg, err := h.services.Get(r.Context(), req.ID)
		if err != nil {
			if errors.Is(err, models.ErrServiceConfigNotFound) {
				RespondError(w, http.StatusNotFound, "Config not found")
				return
			}
			log.Error().Err(err).Int("id", req.ID).Msg("failed to load config for probe")
			RespondError(w, http.StatusInternalServerError, "Failed to load config")
			return
		}

		apiKey, err := h.services.DecryptedAPIKey(cfg)
		if err != nil {
			if errors.Is(err, crypto.ErrDecryptionFailed) {
				RespondError(w, http.StatusBadRequest, "Stored credential could not be decrypted")
				return
			}
			log.Error().Err(err).Int("id", req.ID).Msg("failed to decrypt stored api key")
			RespondError(w, http.StatusInternalServerError, "Failed to load config")
			return
		}

		target = probes.Target{ServiceName: cfg.ServiceName, URL: cfg.URL, APIKey: apiKey}
	default:
		RespondError(w, http.StatusBadRequest, `mode must be "by_body" or "by_id"`)
		return
	}

	if target.ProxyURL = proxyFromMap(req.Proxy); target.ProxyURL == "" {
		target.ProxyURL = probes.ResolveActiveProxy(r.Context(), h.services)
	}

	RespondData(w, http.StatusOK, h.prober.Check(r.Context(), target))
}

// TestProxyRequest probes an arbitrary URL through a proxy. All fields are
// optional: the target defaults server-side, the proxy falls back to the
// active proxy config, and the timeout to the prober default.
type TestProxyRequest struct {
	URL       string            `json:"url"`
	Proxy     map[string]string `json:"proxy"`
	TimeoutMS int               `json:"timeout_ms"`
}

func (h *ConfigHandler) TestProxy(w http.ResponseWriter, r *http.Request) {
	var req TestProxyRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if req.TimeoutMS != 0 && (req.TimeoutMS < 1000 || req.TimeoutMS > 30000) {
		RespondError(w, http.StatusBadRequest, "timeout_ms must be between 1000 and 30000")
		return
	}

	proxyURL := proxyFromMap(req.Proxy)
	if proxyURL == "" {
		proxyURL = probes.ResolveActiveProxy(r.Context(), h.services)
	}

	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	RespondData(w, http.StatusOK, h.prober.CheckProxy(r.Context(), req.URL, proxyURL, timeout))
}
