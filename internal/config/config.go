// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads the application configuration from a TOML file and
// QUEQIAO__ prefixed environment variables, generating a default config
// file with fresh secrets on first run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/queqiao-arr/queqiao/internal/crypto"
	"github.com/queqiao-arr/queqiao/internal/domain"
)

const envPrefix = "QUEQIAO__"

// AppConfig wraps the parsed configuration together with the location it
// was loaded from.
type AppConfig struct {
	Config *domain.Config

	viper      *viper.Viper
	configPath string
}

// New loads the configuration. configPath may point at a config.toml, at a
// directory containing one, or be empty to use the default location; a
// missing file is created with generated secrets.
func New(configPath string) (*AppConfig, error) {
	c := &AppConfig{
		Config: &domain.Config{},
		viper:  viper.New(),
	}

	c.setDefaults()

	if err := c.load(configPath); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *AppConfig) setDefaults() {
	c.viper.SetDefault("host", "0.0.0.0")
	c.viper.SetDefault("port", 7879)
	c.viper.SetDefault("logLevel", "INFO")
	c.viper.SetDefault("logPath", "")
	c.viper.SetDefault("logMaxSize", 50)
	c.viper.SetDefault("logMaxBackups", 3)
	c.viper.SetDefault("databasePath", "")
	c.viper.SetDefault("jwtSecret", "")
	c.viper.SetDefault("tokenExpiryMinutes", 1440)
	c.viper.SetDefault("encryptionSecret", "")
	c.viper.SetDefault("encryptionSalt", "")
	c.viper.SetDefault("allowedOrigins", []string{"*"})
	c.viper.SetDefault("probeTimeoutSeconds", 5)
}

func (c *AppConfig) load(configPath string) error {
	c.viper.SetConfigType("toml")

	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil && info.IsDir() {
			configPath = filepath.Join(configPath, "config.toml")
		}
	} else {
		configPath = filepath.Join(getDefaultConfigDir(), "config.toml")
	}
	c.configPath = configPath

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := c.writeDefaultConfig(configPath); err != nil {
			return err
		}
		log.Info().Str("path", configPath).Msg("created default config file")
	}

	c.viper.SetConfigFile(configPath)

	// QUEQIAO__PORT overrides port, QUEQIAO__DATABASE_PATH overrides
	// databasePath, and so on. Viper joins prefix and key with a single
	// underscore, hence the trailing one here.
	c.viper.SetEnvPrefix(strings.TrimSuffix(envPrefix, "_"))
	c.viper.AutomaticEnv()
	c.bindEnvAliases()

	if err := c.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := c.viper.Unmarshal(c.Config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	return c.Config.Validate()
}

// bindEnvAliases maps SNAKE_CASE environment names onto the camelCase
// config keys, which AutomaticEnv alone cannot do.
func (c *AppConfig) bindEnvAliases() {
	aliases := map[string]string{
		"logLevel":            "LOG_LEVEL",
		"logPath":             "LOG_PATH",
		"logMaxSize":          "LOG_MAX_SIZE",
		"logMaxBackups":       "LOG_MAX_BACKUPS",
		"databasePath":        "DATABASE_PATH",
		"jwtSecret":           "JWT_SECRET",
		"tokenExpiryMinutes":  "TOKEN_EXPIRY_MINUTES",
		"encryptionSecret":    "ENCRYPTION_SECRET",
		"encryptionSalt":      "ENCRYPTION_SALT",
		"allowedOrigins":      "ALLOWED_ORIGINS",
		"probeTimeoutSeconds": "PROBE_TIMEOUT_SECONDS",
	}
	for key, env := range aliases {
		_ = c.viper.BindEnv(key, envPrefix+env)
	}
}

// getDefaultConfigDir honors XDG_CONFIG_HOME (Docker mounts /config there)
// and falls back to ~/.config/queqiao.
func getDefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		if filepath.Base(xdg) == "config" && filepath.Dir(xdg) == "/" {
			return xdg
		}
		return filepath.Join(xdg, "queqiao")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "queqiao")
}

func (c *AppConfig) writeDefaultConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	jwtSecret, err := crypto.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	encryptionSecret, err := crypto.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("failed to generate encryption secret: %w", err)
	}

	content := fmt.Sprintf(`# config.toml - Auto-generated on first run

# Hostname / IP the API listens on
host = "0.0.0.0"

# Port the API listens on
port = 7879

# Log level
# Default: "INFO"
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
logLevel = "INFO"

# Log file path
# If not defined, logs to stdout
# Optional
#logPath = "log/queqiao.log"

# Maximum log file size in megabytes before rotation
# Default: 50
#logMaxSize = 50

# Number of rotated log files to retain (0 keeps all)
# Default: 3
#logMaxBackups = 3

# Database file path
# If not defined, the database lives next to this config file
# Optional
#databasePath = "queqiao.db"

# Secret used to sign bearer tokens
# Do not share
jwtSecret = "%s"

# Bearer token lifetime in minutes
# Default: 1440 (24 hours)
tokenExpiryMinutes = 1440

# Master secret for credential encryption at rest
# Changing it makes every stored credential undecryptable
encryptionSecret = "%s"

# Allowed CORS origins
allowedOrigins = ["*"]

# Timeout in seconds for outbound connectivity checks
# Default: 5
probeTimeoutSeconds = 5
`, jwtSecret, encryptionSecret)

	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the path of the loaded config file.
func (c *AppConfig) GetConfigPath() string {
	return c.configPath
}

// GetDatabasePath returns the configured database path, defaulting to a
// queqiao.db next to the config file.
func (c *AppConfig) GetDatabasePath() string {
	if c.Config.DatabasePath != "" {
		return c.Config.DatabasePath
	}
	return filepath.Join(filepath.Dir(c.configPath), "queqiao.db")
}
