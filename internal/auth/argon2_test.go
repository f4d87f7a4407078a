// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
	}{
		{name: "simple password", password: "password123"},
		{name: "empty password", password: ""},
		{name: "long password", password: strings.Repeat("a", 1000)},
		{name: "unicode password", password: "пароль密码🔐"},
		{name: "special characters", password: "!@#$%^&*()_+-=[]{}|;':\",./<>?`~"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash, err := HashPassword(tt.password)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(hash, "$argon2id$v="))
			assert.Len(t, strings.Split(hash, "$"), 6)

			ok, err := VerifyPassword(tt.password, hash)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = VerifyPassword(tt.password+"x", hash)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestHashPassword_SaltIsRandom(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		hash, err := HashPassword("same-password")
		require.NoError(t, err)
		assert.False(t, seen[hash], "same hash produced twice (salt reuse)")
		seen[hash] = true
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "not enough parts", hash: "$argon2id$v=19$salt$hash"},
		{name: "wrong algorithm", hash: "$bcrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"},
		{name: "unparseable version", hash: "$argon2id$19$m=65536,t=3,p=2$c2FsdA$aGFzaA"},
		{name: "bad parameters", hash: "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{name: "bad base64 salt", hash: "$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA"},
		{name: "bad base64 key", hash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$!!!"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Malformed hashes verify false with an error, never panic.
			ok, err := VerifyPassword("password", tt.hash)
			require.Error(t, err)
			assert.False(t, ok)
		})
	}
}

func TestVerifyPassword_UnsupportedVersion(t *testing.T) {
	t.Parallel()

	_, err := VerifyPassword("password", "$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$aGFzaA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported argon2 version")
}

func TestDecodeHash_RecoversParams(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("test-password")
	require.NoError(t, err)

	params, salt, key, err := decodeHash(hash)
	require.NoError(t, err)

	defaults := DefaultArgon2Params()
	assert.Equal(t, defaults.Memory, params.Memory)
	assert.Equal(t, defaults.Iterations, params.Iterations)
	assert.Equal(t, defaults.Parallelism, params.Parallelism)
	assert.Len(t, salt, int(defaults.SaltLength))
	assert.Len(t, key, int(defaults.KeyLength))
}
