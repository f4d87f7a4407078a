// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore_Create(t *testing.T) {
	t.Parallel()

	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	user, err := store.Create(ctx, "admin", "hashed", ptr("admin@example.com"), true)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "admin", user.Username)
	assert.Equal(t, "hashed", user.HashedPassword)
	assert.True(t, user.IsSuperuser)
	assert.True(t, user.IsActive)

	_, err = store.Create(ctx, "admin", "other", nil, false)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestUserStore_GetByUsername(t *testing.T) {
	t.Parallel()

	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.GetByUsername(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	created, err := store.Create(ctx, "alice", "hashed", nil, false)
	require.NoError(t, err)

	got, err := store.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Nil(t, got.Email)
}

func TestUserStore_UpdatePassword(t *testing.T) {
	t.Parallel()

	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	assert.ErrorIs(t, store.UpdatePassword(ctx, "missing", "new-hash"), ErrUserNotFound)

	_, err := store.Create(ctx, "alice", "old-hash", nil, false)
	require.NoError(t, err)

	require.NoError(t, store.UpdatePassword(ctx, "alice", "new-hash"))

	got, err := store.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.HashedPassword)
}

func TestUserStore_Count(t *testing.T) {
	t.Parallel()

	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = store.Create(ctx, "admin", "hashed", nil, true)
	require.NoError(t, err)

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUserStore_Delete(t *testing.T) {
	t.Parallel()

	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	assert.ErrorIs(t, store.Delete(ctx, "missing"), ErrUserNotFound)

	_, err := store.Create(ctx, "bob", "hashed", nil, false)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "bob"))

	_, err = store.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
