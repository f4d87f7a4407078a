// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/queqiao-arr/queqiao/internal/crypto"
	"github.com/queqiao-arr/queqiao/internal/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	return db
}

func newTestEncryptor(t *testing.T) *crypto.Encryptor {
	t.Helper()

	enc, err := crypto.NewEncryptorFromSecret("models-test-secret", "")
	require.NoError(t, err)

	return enc
}

func ptr[T any](v T) *T {
	return &v
}
