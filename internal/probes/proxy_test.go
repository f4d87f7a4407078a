// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package probes

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queqiao-arr/queqiao/internal/crypto"
	"github.com/queqiao-arr/queqiao/internal/database"
	"github.com/queqiao-arr/queqiao/internal/models"
)

func newProxyStore(t *testing.T) *models.ServiceConfigStore {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	enc, err := crypto.NewEncryptorFromSecret("probe-test-secret", "")
	require.NoError(t, err)

	return models.NewServiceConfigStore(db, enc)
}

func strPtr(s string) *string { return &s }

func TestResolveActiveProxy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("no proxy configured", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, ResolveActiveProxy(ctx, newProxyStore(t)))
	})

	t.Run("extra_config http wins", func(t *testing.T) {
		t.Parallel()
		store := newProxyStore(t)

		_, err := store.Create(ctx, models.ServiceConfigParams{
			ServiceName: "proxy",
			ServiceType: "proxy",
			Name:        "main",
			URL:         "http://fallback:8080",
			ExtraConfig: strPtr(`{"http":"http://proxy-http:3128","https":"http://proxy-https:3128"}`),
			IsActive:    true,
		})
		require.NoError(t, err)

		assert.Equal(t, "http://proxy-http:3128", ResolveActiveProxy(ctx, store))
	})

	t.Run("socks5 fallback", func(t *testing.T) {
		t.Parallel()
		store := newProxyStore(t)

		_, err := store.Create(ctx, models.ServiceConfigParams{
			ServiceName: "proxy",
			ServiceType: "proxy",
			Name:        "main",
			URL:         "not-a-url",
			ExtraConfig: strPtr(`{"socks5":"socks5://proxy:1080"}`),
			IsActive:    true,
		})
		require.NoError(t, err)

		assert.Equal(t, "socks5://proxy:1080", ResolveActiveProxy(ctx, store))
	})

	t.Run("url fallback", func(t *testing.T) {
		t.Parallel()
		store := newProxyStore(t)

		_, err := store.Create(ctx, models.ServiceConfigParams{
			ServiceName: "proxy",
			ServiceType: "proxy",
			Name:        "main",
			URL:         "http://proxy:8080",
			IsActive:    true,
		})
		require.NoError(t, err)

		assert.Equal(t, "http://proxy:8080", ResolveActiveProxy(ctx, store))
	})

	t.Run("inactive proxies are ignored", func(t *testing.T) {
		t.Parallel()
		store := newProxyStore(t)

		_, err := store.Create(ctx, models.ServiceConfigParams{
			ServiceName: "proxy",
			ServiceType: "proxy",
			Name:        "off",
			URL:         "http://proxy:8080",
			IsActive:    false,
		})
		require.NoError(t, err)

		assert.Empty(t, ResolveActiveProxy(ctx, store))
	})
}
