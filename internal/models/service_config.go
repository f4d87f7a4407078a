// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/queqiao-arr/queqiao/internal/crypto"
	"github.com/queqiao-arr/queqiao/internal/dbinterface"
	"github.com/queqiao-arr/queqiao/internal/domain"
)

var (
	ErrServiceConfigNotFound = errors.New("service config not found")
	// ErrServiceConfigExists signals a duplicate (service_name, name) pair.
	ErrServiceConfigExists = errors.New("service config with this name already exists")
	ErrUnknownServiceName  = errors.New("unknown service name")
	ErrUnknownServiceType  = errors.New("unknown service type")
)

// ServiceNames are the third-party services a ServiceConfig may target.
var ServiceNames = []string{"sonarr", "prowlarr", "proxy", "tmdb"}

// ServiceTypes classify how a configured service is consumed.
var ServiceTypes = []string{"api", "proxy", "metadata"}

// ServiceConfig holds the connection settings for one external service.
// api_key and password are stored as ciphertext only; the plaintext exists
// in memory for the duration of a call.
type ServiceConfig struct {
	ID                int
	ServiceName       string
	ServiceType       string
	Name              string
	URL               string
	APIKeyEncrypted   *string
	Username          *string
	PasswordEncrypted *string
	ExtraConfig       *string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// APIKeyMasked is the display form of the api key, filled by the store
	// when loading. Never persisted.
	APIKeyMasked string
}

// MarshalJSON renders the API response shape: the api key appears only in
// masked form and the password not at all.
func (c ServiceConfig) MarshalJSON() ([]byte, error) {
	var extra json.RawMessage
	if c.ExtraConfig != nil && json.Valid([]byte(*c.ExtraConfig)) {
		extra = json.RawMessage(*c.ExtraConfig)
	}

	return json.Marshal(&struct {
		ID           int             `json:"id"`
		ServiceName  string          `json:"service_name"`
		ServiceType  string          `json:"service_type"`
		Name         string          `json:"name"`
		URL          string          `json:"url"`
		APIKeyMasked string          `json:"api_key_masked,omitempty"`
		Username     *string         `json:"username,omitempty"`
		ExtraConfig  json.RawMessage `json:"extra_config,omitempty"`
		IsActive     bool            `json:"is_active"`
		CreatedAt    time.Time       `json:"created_at"`
		UpdatedAt    time.Time       `json:"updated_at"`
	}{
		ID:           c.ID,
		ServiceName:  c.ServiceName,
		ServiceType:  c.ServiceType,
		Name:         c.Name,
		URL:          c.URL,
		APIKeyMasked: c.APIKeyMasked,
		Username:     c.Username,
		ExtraConfig:  extra,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	})
}

// ServiceConfigParams carries the plaintext input for creating a config.
type ServiceConfigParams struct {
	ServiceName string
	ServiceType string
	Name        string
	URL         string
	APIKey      *string
	Username    *string
	Password    *string
	ExtraConfig *string
	IsActive    bool
}

// ServiceConfigPatch is a merge-patch: nil fields are left untouched.
// APIKey and Password, when set, are re-encrypted before storage.
type ServiceConfigPatch struct {
	ServiceName *string
	ServiceType *string
	Name        *string
	URL         *string
	APIKey      *string
	Username    *string
	Password    *string
	ExtraConfig *string
	IsActive    *bool
}

// ServiceConfigFilter narrows List results.
type ServiceConfigFilter struct {
	ServiceName string
	IsActive    *bool
}

type ServiceConfigStore struct {
	db        dbinterface.Querier
	encryptor *crypto.Encryptor
}

func NewServiceConfigStore(db dbinterface.Querier, encryptor *crypto.Encryptor) *ServiceConfigStore {
	return &ServiceConfigStore{db: db, encryptor: encryptor}
}

const serviceConfigColumns = `id, service_name, service_type, name, url, api_key, username, password, extra_config, is_active, created_at, updated_at`

func (s *ServiceConfigStore) scan(scanner interface{ Scan(...any) error }) (*ServiceConfig, error) {
	cfg := &ServiceConfig{}
	err := scanner.Scan(
		&cfg.ID,
		&cfg.ServiceName,
		&cfg.ServiceType,
		&cfg.Name,
		&cfg.URL,
		&cfg.APIKeyEncrypted,
		&cfg.Username,
		&cfg.PasswordEncrypted,
		&cfg.ExtraConfig,
		&cfg.IsActive,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cfg.APIKeyMasked = s.maskedAPIKey(cfg)
	return cfg, nil
}

// maskedAPIKey produces the display form of the stored api key. A row whose
// ciphertext no longer decrypts still lists; its key shows fully hidden.
func (s *ServiceConfigStore) maskedAPIKey(cfg *ServiceConfig) string {
	if cfg.APIKeyEncrypted == nil || *cfg.APIKeyEncrypted == "" {
		return ""
	}

	plaintext, err := s.encryptor.Decrypt(*cfg.APIKeyEncrypted)
	if err != nil {
		log.Warn().Err(err).Int("id", cfg.ID).Str("service", cfg.ServiceName).Msg("stored api key failed to decrypt for display")
		return "********"
	}

	return domain.MaskSecret(plaintext)
}

func validateServiceIdentity(serviceName, serviceType string) error {
	if !slices.Contains(ServiceNames, serviceName) {
		return fmt.Errorf("%w: %q", ErrUnknownServiceName, serviceName)
	}
	if !slices.Contains(ServiceTypes, serviceType) {
		return fmt.Errorf("%w: %q", ErrUnknownServiceType, serviceType)
	}
	return nil
}

func (s *ServiceConfigStore) isDuplicate(ctx context.Context, serviceName, name string, excludeID int) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM service_configs WHERE service_name = ? AND name = ? AND id != ?
	`, serviceName, name, excludeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *ServiceConfigStore) encryptOptional(value *string) (*string, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	ciphertext, err := s.encryptor.Encrypt(*value)
	if err != nil {
		return nil, err
	}
	return &ciphertext, nil
}

func (s *ServiceConfigStore) Create(ctx context.Context, params ServiceConfigParams) (*ServiceConfig, error) {
	if err := validateServiceIdentity(params.ServiceName, params.ServiceType); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, errors.New("name is required")
	}
	if strings.TrimSpace(params.URL) == "" {
		return nil, errors.New("url is required")
	}

	if dup, err := s.isDuplicate(ctx, params.ServiceName, params.Name, 0); err != nil {
		return nil, err
	} else if dup {
		return nil, ErrServiceConfigExists
	}

	apiKey, err := s.encryptOptional(params.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt api key: %w", err)
	}
	password, err := s.encryptOptional(params.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt password: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO service_configs (service_name, service_type, name, url, api_key, username, password, extra_config, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+serviceConfigColumns,
		params.ServiceName, params.ServiceType, params.Name, params.URL,
		apiKey, params.Username, password, params.ExtraConfig, params.IsActive,
	)

	cfg, err := s.scan(row)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrServiceConfigExists
		}
		return nil, fmt.Errorf("failed to create service config: %w", err)
	}

	return cfg, nil
}

func (s *ServiceConfigStore) Get(ctx context.Context, id int) (*ServiceConfig, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+serviceConfigColumns+` FROM service_configs WHERE id = ?`, id)

	cfg, err := s.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServiceConfigNotFound
		}
		return nil, err
	}

	return cfg, nil
}

func (s *ServiceConfigStore) List(ctx context.Context, filter ServiceConfigFilter) ([]*ServiceConfig, error) {
	query := `SELECT ` + serviceConfigColumns + ` FROM service_configs WHERE 1=1`
	var args []any

	if filter.ServiceName != "" {
		query += ` AND service_name = ?`
		args = append(args, filter.ServiceName)
	}
	if filter.IsActive != nil {
		query += ` AND is_active = ?`
		args = append(args, *filter.IsActive)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*ServiceConfig
	for rows.Next() {
		cfg, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}

	return configs, rows.Err()
}

func (s *ServiceConfigStore) Update(ctx context.Context, id int, patch ServiceConfigPatch) (*ServiceConfig, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	serviceName := current.ServiceName
	if patch.ServiceName != nil {
		serviceName = *patch.ServiceName
	}
	serviceType := current.ServiceType
	if patch.ServiceType != nil {
		serviceType = *patch.ServiceType
	}
	if err := validateServiceIdentity(serviceName, serviceType); err != nil {
		return nil, err
	}

	name := current.Name
	if patch.Name != nil {
		name = *patch.Name
	}

	if serviceName != current.ServiceName || name != current.Name {
		if dup, err := s.isDuplicate(ctx, serviceName, name, id); err != nil {
			return nil, err
		} else if dup {
			return nil, ErrServiceConfigExists
		}
	}

	url := current.URL
	if patch.URL != nil {
		url = *patch.URL
	}

	username := current.Username
	if patch.Username != nil {
		username = patch.Username
	}
	extraConfig := current.ExtraConfig
	if patch.ExtraConfig != nil {
		extraConfig = patch.ExtraConfig
	}
	isActive := current.IsActive
	if patch.IsActive != nil {
		isActive = *patch.IsActive
	}

	// Secrets are re-encrypted only when the patch carries a new value.
	apiKey := current.APIKeyEncrypted
	if patch.APIKey != nil {
		if apiKey, err = s.encryptOptional(patch.APIKey); err != nil {
			return nil, fmt.Errorf("failed to encrypt api key: %w", err)
		}
	}
	password := current.PasswordEncrypted
	if patch.Password != nil {
		if password, err = s.encryptOptional(patch.Password); err != nil {
			return nil, fmt.Errorf("failed to encrypt password: %w", err)
		}
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE service_configs
		SET service_name = ?, service_type = ?, name = ?, url = ?, api_key = ?,
		    username = ?, password = ?, extra_config = ?, is_active = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING `+serviceConfigColumns,
		serviceName, serviceType, name, url, apiKey,
		username, password, extraConfig, isActive, id,
	)

	cfg, err := s.scan(row)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrServiceConfigExists
		}
		return nil, fmt.Errorf("failed to update service config: %w", err)
	}

	return cfg, nil
}

func (s *ServiceConfigStore) Delete(ctx context.Context, id int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM service_configs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrServiceConfigNotFound
	}

	return nil
}

// DecryptedAPIKey returns the plaintext api key, empty when none is stored.
// A ciphertext that fails authentication surfaces crypto.ErrDecryptionFailed.
func (s *ServiceConfigStore) DecryptedAPIKey(cfg *ServiceConfig) (string, error) {
	if cfg.APIKeyEncrypted == nil {
		return "", nil
	}
	return s.encryptor.Decrypt(*cfg.APIKeyEncrypted)
}

// DecryptedPassword returns the plaintext password, empty when none is stored.
func (s *ServiceConfigStore) DecryptedPassword(cfg *ServiceConfig) (string, error) {
	if cfg.PasswordEncrypted == nil {
		return "", nil
	}
	return s.encryptor.Decrypt(*cfg.PasswordEncrypted)
}
