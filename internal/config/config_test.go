// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	configPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return configPath
}

const minimalConfig = `
host = "localhost"
port = 7879
jwtSecret = "test-jwt-secret"
encryptionSecret = "test-encryption-secret"
logLevel = "INFO"
`

func TestFirstRunGeneratesConfigWithSecrets(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := New(configPath)
	require.NoError(t, err)

	// The generated file exists and parses with usable secrets.
	_, err = os.Stat(configPath)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Config.JWTSecret)
	assert.NotEmpty(t, cfg.Config.EncryptionSecret)
	assert.NotEqual(t, cfg.Config.JWTSecret, cfg.Config.EncryptionSecret)
	assert.Equal(t, 7879, cfg.Config.Port)
	assert.Equal(t, 1440, cfg.Config.TokenExpiryMinutes)

	// A second process generates nothing and reads the same secrets.
	again, err := New(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Config.JWTSecret, again.Config.JWTSecret)
	assert.Equal(t, cfg.Config.EncryptionSecret, again.Config.EncryptionSecret)
}

func TestConfigFileValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, tmpDir, `
host = "127.0.0.1"
port = 9000
jwtSecret = "file-jwt"
encryptionSecret = "file-enc"
tokenExpiryMinutes = 60
logLevel = "DEBUG"
allowedOrigins = ["https://app.example.com"]
probeTimeoutSeconds = 10
`)

	cfg, err := New(configPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Config.Host)
	assert.Equal(t, 9000, cfg.Config.Port)
	assert.Equal(t, "file-jwt", cfg.Config.JWTSecret)
	assert.Equal(t, 60, cfg.Config.TokenExpiryMinutes)
	assert.Equal(t, "DEBUG", cfg.Config.LogLevel)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Config.AllowedOrigins)
	assert.Equal(t, 10, cfg.Config.ProbeTimeoutSeconds)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, cfg *AppConfig)
	}{
		{
			name:    "database path",
			envVars: map[string]string{"QUEQIAO__DATABASE_PATH": "/var/db/queqiao/queqiao.db"},
			check: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, "/var/db/queqiao/queqiao.db", cfg.GetDatabasePath())
			},
		},
		{
			name:    "jwt secret",
			envVars: map[string]string{"QUEQIAO__JWT_SECRET": "env-jwt"},
			check: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, "env-jwt", cfg.Config.JWTSecret)
			},
		},
		{
			name:    "log level",
			envVars: map[string]string{"QUEQIAO__LOG_LEVEL": "TRACE"},
			check: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, "TRACE", cfg.Config.LogLevel)
			},
		},
		{
			name:    "port",
			envVars: map[string]string{"QUEQIAO__PORT": "8181"},
			check: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, 8181, cfg.Config.Port)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			configPath := writeConfig(t, t.TempDir(), minimalConfig)
			cfg, err := New(configPath)
			require.NoError(t, err)

			tt.check(t, cfg)
		})
	}
}

func TestDatabasePathDefaultsNextToConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, tmpDir, minimalConfig)

	cfg, err := New(configPath)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpDir, "queqiao.db"), cfg.GetDatabasePath())
}

func TestConfigPathCanBeDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, minimalConfig)

	cfg, err := New(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), cfg.GetConfigPath())
	assert.Equal(t, "localhost", cfg.Config.Host)
}

func TestInvalidConfigRejected(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing jwt secret",
			content: `
host = "localhost"
port = 7879
jwtSecret = ""
encryptionSecret = "x"
`,
		},
		{
			name: "bad port",
			content: `
host = "localhost"
port = 99999
jwtSecret = "x"
encryptionSecret = "x"
`,
		},
		{
			name: "negative token expiry",
			content: `
host = "localhost"
port = 7879
jwtSecret = "x"
encryptionSecret = "x"
tokenExpiryMinutes = -5
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, t.TempDir(), tt.content)
			_, err := New(configPath)
			assert.Error(t, err)
		})
	}
}
