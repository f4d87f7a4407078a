// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfigurationStore(t *testing.T) *ConfigurationStore {
	t.Helper()
	return NewConfigurationStore(newTestDB(t), newTestEncryptor(t))
}

func TestConfigurationStore_Create(t *testing.T) {
	t.Parallel()

	store := newConfigurationStore(t)
	ctx := context.Background()

	cfg, err := store.Create(ctx, ConfigurationParams{
		Key:      "site.title",
		Value:    ptr("Queqiao"),
		IsActive: true,
	})
	require.NoError(t, err)
	assert.NotZero(t, cfg.ID)
	require.NotNil(t, cfg.Value)
	assert.Equal(t, "Queqiao", *cfg.Value)

	_, err = store.Create(ctx, ConfigurationParams{Key: "site.title"})
	assert.ErrorIs(t, err, ErrConfigurationExists)
}

func TestConfigurationStore_Create_Encrypted(t *testing.T) {
	t.Parallel()

	store := newConfigurationStore(t)
	ctx := context.Background()

	cfg, err := store.Create(ctx, ConfigurationParams{
		Key:         "tmdb.token",
		Value:       ptr("super-secret-token"),
		IsEncrypted: true,
		IsActive:    true,
	})
	require.NoError(t, err)

	require.NotNil(t, cfg.Value)
	assert.NotEqual(t, "super-secret-token", *cfg.Value)

	plaintext, err := store.DecryptedValue(cfg)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-token", plaintext)
}

func TestConfigurationStore_List(t *testing.T) {
	t.Parallel()

	store := newConfigurationStore(t)
	ctx := context.Background()

	for _, p := range []ConfigurationParams{
		{Key: "a", Value: ptr("1"), IsActive: true},
		{Key: "b", Value: ptr("2"), IsActive: false},
		{Key: "c", Value: ptr("3"), IsActive: true},
	} {
		_, err := store.Create(ctx, p)
		require.NoError(t, err)
	}

	all, err := store.List(ctx, ConfigurationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	keyed, err := store.List(ctx, ConfigurationFilter{Keys: []string{"a", "c"}})
	require.NoError(t, err)
	assert.Len(t, keyed, 2)

	active, err := store.List(ctx, ConfigurationFilter{IsActive: ptr(true)})
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestConfigurationStore_Update(t *testing.T) {
	t.Parallel()

	store := newConfigurationStore(t)
	ctx := context.Background()

	cfg, err := store.Create(ctx, ConfigurationParams{Key: "feature.flag", Value: ptr("off"), IsActive: true})
	require.NoError(t, err)

	updated, err := store.Update(ctx, cfg.ID, ConfigurationPatch{Value: ptr("on")})
	require.NoError(t, err)
	assert.Equal(t, "on", *updated.Value)

	// Renaming onto an existing key conflicts.
	_, err = store.Create(ctx, ConfigurationParams{Key: "other"})
	require.NoError(t, err)
	_, err = store.Update(ctx, cfg.ID, ConfigurationPatch{Key: ptr("other")})
	assert.ErrorIs(t, err, ErrConfigurationExists)
}

func TestConfigurationStore_Update_EncryptionToggle(t *testing.T) {
	t.Parallel()

	store := newConfigurationStore(t)
	ctx := context.Background()

	cfg, err := store.Create(ctx, ConfigurationParams{Key: "webhook.secret", Value: ptr("plain"), IsActive: true})
	require.NoError(t, err)

	// Flipping the flag without a replacement value would leave the stored
	// encoding out of step with the flag.
	_, err = store.Update(ctx, cfg.ID, ConfigurationPatch{IsEncrypted: ptr(true)})
	assert.ErrorIs(t, err, ErrEncryptionToggleWithoutValue)

	// With a value the toggle goes through and the value lands encrypted.
	updated, err := store.Update(ctx, cfg.ID, ConfigurationPatch{IsEncrypted: ptr(true), Value: ptr("fresh-secret")})
	require.NoError(t, err)
	assert.True(t, updated.IsEncrypted)
	assert.NotEqual(t, "fresh-secret", *updated.Value)

	plaintext, err := store.DecryptedValue(updated)
	require.NoError(t, err)
	assert.Equal(t, "fresh-secret", plaintext)
}

func TestConfigurationStore_Delete(t *testing.T) {
	t.Parallel()

	store := newConfigurationStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Delete(ctx, 999), ErrConfigurationNotFound)

	cfg, err := store.Create(ctx, ConfigurationParams{Key: "doomed"})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, cfg.ID))

	_, err = store.GetByKey(ctx, "doomed")
	assert.ErrorIs(t, err, ErrConfigurationNotFound)
}

func TestConfiguration_MarshalJSON(t *testing.T) {
	t.Parallel()

	store := newConfigurationStore(t)
	ctx := context.Background()

	plain, err := store.Create(ctx, ConfigurationParams{Key: "plain", Value: ptr("visible"), IsActive: true})
	require.NoError(t, err)
	encrypted, err := store.Create(ctx, ConfigurationParams{Key: "secret", Value: ptr("hidden"), IsEncrypted: true, IsActive: true})
	require.NoError(t, err)

	body, err := json.Marshal(plain)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "visible", decoded["value"])
	assert.NotContains(t, decoded, "has_value")

	body, err = json.Marshal(encrypted)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "hidden")
	decoded = map[string]any{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, true, decoded["has_value"])
	assert.NotContains(t, decoded, "value")
}
