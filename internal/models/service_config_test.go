// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServiceConfigStore(t *testing.T) *ServiceConfigStore {
	t.Helper()
	return NewServiceConfigStore(newTestDB(t), newTestEncryptor(t))
}

func TestServiceConfigStore_Create(t *testing.T) {
	t.Parallel()

	store := newServiceConfigStore(t)
	ctx := context.Background()

	cfg, err := store.Create(ctx, ServiceConfigParams{
		ServiceName: "sonarr",
		ServiceType: "api",
		Name:        "main",
		URL:         "http://sonarr:8989",
		APIKey:      ptr("1234567890abcdef"),
		IsActive:    true,
	})
	require.NoError(t, err)
	assert.NotZero(t, cfg.ID)

	// Stored form is ciphertext, display form is masked.
	require.NotNil(t, cfg.APIKeyEncrypted)
	assert.NotEqual(t, "1234567890abcdef", *cfg.APIKeyEncrypted)
	assert.Equal(t, "1234********cdef", cfg.APIKeyMasked)
}

func TestServiceConfigStore_Create_Validation(t *testing.T) {
	t.Parallel()

	store := newServiceConfigStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, ServiceConfigParams{ServiceName: "radarr", ServiceType: "api", Name: "x", URL: "http://x"})
	assert.ErrorIs(t, err, ErrUnknownServiceName)

	_, err = store.Create(ctx, ServiceConfigParams{ServiceName: "sonarr", ServiceType: "torrent", Name: "x", URL: "http://x"})
	assert.ErrorIs(t, err, ErrUnknownServiceType)

	_, err = store.Create(ctx, ServiceConfigParams{ServiceName: "sonarr", ServiceType: "api", Name: " ", URL: "http://x"})
	assert.Error(t, err)
}

func TestServiceConfigStore_Create_Duplicate(t *testing.T) {
	t.Parallel()

	store := newServiceConfigStore(t)
	ctx := context.Background()

	params := ServiceConfigParams{ServiceName: "prowlarr", ServiceType: "api", Name: "main", URL: "http://prowlarr:9696"}
	_, err := store.Create(ctx, params)
	require.NoError(t, err)

	_, err = store.Create(ctx, params)
	assert.ErrorIs(t, err, ErrServiceConfigExists)

	// Same name under a different service is fine.
	params.ServiceName = "sonarr"
	_, err = store.Create(ctx, params)
	assert.NoError(t, err)
}

func TestServiceConfigStore_List(t *testing.T) {
	t.Parallel()

	store := newServiceConfigStore(t)
	ctx := context.Background()

	for _, p := range []ServiceConfigParams{
		{ServiceName: "sonarr", ServiceType: "api", Name: "main", URL: "http://a", IsActive: true},
		{ServiceName: "sonarr", ServiceType: "api", Name: "backup", URL: "http://b", IsActive: false},
		{ServiceName: "tmdb", ServiceType: "metadata", Name: "main", URL: "http://c", IsActive: true},
	} {
		_, err := store.Create(ctx, p)
		require.NoError(t, err)
	}

	all, err := store.List(ctx, ServiceConfigFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	sonarr, err := store.List(ctx, ServiceConfigFilter{ServiceName: "sonarr"})
	require.NoError(t, err)
	assert.Len(t, sonarr, 2)

	active, err := store.List(ctx, ServiceConfigFilter{ServiceName: "sonarr", IsActive: ptr(true)})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "main", active[0].Name)
}

func TestServiceConfigStore_Update(t *testing.T) {
	t.Parallel()

	store := newServiceConfigStore(t)
	ctx := context.Background()

	cfg, err := store.Create(ctx, ServiceConfigParams{
		ServiceName: "sonarr",
		ServiceType: "api",
		Name:        "main",
		URL:         "http://old",
		APIKey:      ptr("original-api-key"),
		IsActive:    true,
	})
	require.NoError(t, err)

	// A patch that omits the api key must leave the ciphertext untouched.
	updated, err := store.Update(ctx, cfg.ID, ServiceConfigPatch{URL: ptr("http://new")})
	require.NoError(t, err)
	assert.Equal(t, "http://new", updated.URL)
	assert.Equal(t, *cfg.APIKeyEncrypted, *updated.APIKeyEncrypted)

	plaintext, err := store.DecryptedAPIKey(updated)
	require.NoError(t, err)
	assert.Equal(t, "original-api-key", plaintext)

	// A patch that carries one re-encrypts.
	updated, err = store.Update(ctx, cfg.ID, ServiceConfigPatch{APIKey: ptr("replacement-key")})
	require.NoError(t, err)
	assert.NotEqual(t, *cfg.APIKeyEncrypted, *updated.APIKeyEncrypted)

	plaintext, err = store.DecryptedAPIKey(updated)
	require.NoError(t, err)
	assert.Equal(t, "replacement-key", plaintext)
}

func TestServiceConfigStore_Update_DuplicateName(t *testing.T) {
	t.Parallel()

	store := newServiceConfigStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, ServiceConfigParams{ServiceName: "sonarr", ServiceType: "api", Name: "main", URL: "http://a"})
	require.NoError(t, err)
	second, err := store.Create(ctx, ServiceConfigParams{ServiceName: "sonarr", ServiceType: "api", Name: "backup", URL: "http://b"})
	require.NoError(t, err)

	_, err = store.Update(ctx, second.ID, ServiceConfigPatch{Name: ptr("main")})
	assert.ErrorIs(t, err, ErrServiceConfigExists)

	// Renaming to its own current name is not a conflict.
	_, err = store.Update(ctx, second.ID, ServiceConfigPatch{Name: ptr("backup")})
	assert.NoError(t, err)
}

func TestServiceConfigStore_Delete(t *testing.T) {
	t.Parallel()

	store := newServiceConfigStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Delete(ctx, 999), ErrServiceConfigNotFound)

	cfg, err := store.Create(ctx, ServiceConfigParams{ServiceName: "tmdb", ServiceType: "metadata", Name: "main", URL: "http://t"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, cfg.ID))

	_, err = store.Get(ctx, cfg.ID)
	assert.ErrorIs(t, err, ErrServiceConfigNotFound)
}

func TestServiceConfig_MarshalJSON(t *testing.T) {
	t.Parallel()

	store := newServiceConfigStore(t)
	ctx := context.Background()

	cfg, err := store.Create(ctx, ServiceConfigParams{
		ServiceName: "proxy",
		ServiceType: "proxy",
		Name:        "main",
		URL:         "http://proxy:8080",
		APIKey:      ptr("1234567890abcdef"),
		Password:    ptr("hunter2"),
		Username:    ptr("user"),
		ExtraConfig: ptr(`{"http":"http://proxy:8080"}`),
		IsActive:    true,
	})
	require.NoError(t, err)

	body, err := json.Marshal(cfg)
	require.NoError(t, err)

	// No plaintext or ciphertext secret may appear in the response shape.
	assert.NotContains(t, string(body), "1234567890abcdef")
	assert.NotContains(t, string(body), "hunter2")
	assert.NotContains(t, string(body), "password")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "1234********cdef", decoded["api_key_masked"])
	assert.Equal(t, map[string]any{"http": "http://proxy:8080"}, decoded["extra_config"])
}

func TestServiceConfigStore_MaskedKeySurvivesBadCiphertext(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	store := NewServiceConfigStore(db, newTestEncryptor(t))
	ctx := context.Background()

	cfg, err := store.Create(ctx, ServiceConfigParams{ServiceName: "sonarr", ServiceType: "api", Name: "main", URL: "http://a", APIKey: ptr("secret-key")})
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `UPDATE service_configs SET api_key = 'not-a-ciphertext' WHERE id = ?`, cfg.ID)
	require.NoError(t, err)

	// Listing must not fail; the key just shows fully hidden.
	got, err := store.Get(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("*", 8), got.APIKeyMasked)
}
