// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package domain holds the configuration model and small shared helpers
// that both the API layer and the stores depend on.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Config represents the application configuration
type Config struct {
	Version string

	Host string `toml:"host" mapstructure:"host"`
	Port int    `toml:"port" mapstructure:"port"`

	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`

	DatabasePath string `toml:"databasePath" mapstructure:"databasePath"`

	// JWTSecret signs bearer tokens. Generated on first run when absent.
	JWTSecret string `toml:"jwtSecret" mapstructure:"jwtSecret"`
	// TokenExpiryMinutes is the lifetime of issued bearer tokens.
	TokenExpiryMinutes int `toml:"tokenExpiryMinutes" mapstructure:"tokenExpiryMinutes"`

	// EncryptionSecret is the master secret for credential encryption at
	// rest. Generated on first run when absent. Changing it makes every
	// stored ciphertext undecryptable.
	EncryptionSecret string `toml:"encryptionSecret" mapstructure:"encryptionSecret"`
	// EncryptionSalt feeds the key derivation. A compiled-in default is
	// used when empty so existing deployments keep their derived key.
	EncryptionSalt string `toml:"encryptionSalt" mapstructure:"encryptionSalt"`

	AllowedOrigins []string `toml:"allowedOrigins" mapstructure:"allowedOrigins"`

	// ProbeTimeoutSeconds bounds outbound connectivity checks.
	ProbeTimeoutSeconds int `toml:"probeTimeoutSeconds" mapstructure:"probeTimeoutSeconds"`
}

// Validate checks the parts of the configuration the process cannot run
// without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("jwtSecret is required")
	}
	if strings.TrimSpace(c.EncryptionSecret) == "" {
		return errors.New("encryptionSecret is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.TokenExpiryMinutes <= 0 {
		return errors.New("tokenExpiryMinutes must be positive")
	}
	return nil
}
