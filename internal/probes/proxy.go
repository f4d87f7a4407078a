// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package probes

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/queqiao-arr/queqiao/internal/models"
)

// ResolveActiveProxy returns the outbound proxy URL from the first active
// proxy ServiceConfig, or empty when none is usable. Preference order within
// extra_config is http, https, socks5; a bare config falls back to its url
// field when that looks like a proxy URL. Resolution failures only disable
// proxying, they never fail the caller.
func ResolveActiveProxy(ctx context.Context, store *models.ServiceConfigStore) string {
	configs, err := store.List(ctx, models.ServiceConfigFilter{
		ServiceName: "proxy",
		IsActive:    boolPtr(true),
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to load active proxy config")
		return ""
	}
	if len(configs) == 0 {
		return ""
	}

	cfg := configs[0]

	var extra struct {
		HTTP   string `json:"http"`
		HTTPS  string `json:"https"`
		SOCKS5 string `json:"socks5"`
	}
	if cfg.ExtraConfig != nil {
		if err := json.Unmarshal([]byte(*cfg.ExtraConfig), &extra); err != nil {
			log.Warn().Err(err).Int("id", cfg.ID).Msg("proxy extra_config is not valid JSON")
		}
	}

	for _, candidate := range []string{extra.HTTP, extra.HTTPS, extra.SOCKS5} {
		if candidate != "" {
			return candidate
		}
	}

	if strings.Contains(cfg.URL, "://") {
		return cfg.URL
	}

	return ""
}

func boolPtr(v bool) *bool {
	return &v
}
