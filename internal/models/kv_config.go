// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/queqiao-arr/queqiao/internal/crypto"
	"github.com/queqiao-arr/queqiao/internal/dbinterface"
)

var (
	ErrConfigurationNotFound = errors.New("configuration not found")
	// ErrConfigurationExists signals a duplicate key.
	ErrConfigurationExists = errors.New("configuration key already exists")
	// ErrEncryptionToggleWithoutValue rejects flipping is_encrypted without
	// supplying a new value: the flag would then disagree with how the
	// stored value is actually encoded.
	ErrEncryptionToggleWithoutValue = errors.New("changing is_encrypted requires a new value")
)

// Configuration is a free-form key-value setting. When IsEncrypted is set
// the stored value is ciphertext and API responses expose only whether a
// value is present.
type Configuration struct {
	ID          int
	Key         string
	Value       *string
	Description *string
	IsEncrypted bool
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MarshalJSON hides encrypted values behind a has_value flag.
func (c Configuration) MarshalJSON() ([]byte, error) {
	out := struct {
		ID          int       `json:"id"`
		Key         string    `json:"key"`
		Value       *string   `json:"value,omitempty"`
		HasValue    *bool     `json:"has_value,omitempty"`
		Description *string   `json:"description,omitempty"`
		IsEncrypted bool      `json:"is_encrypted"`
		IsActive    bool      `json:"is_active"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}{
		ID:          c.ID,
		Key:         c.Key,
		Description: c.Description,
		IsEncrypted: c.IsEncrypted,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}

	if c.IsEncrypted {
		hasValue := c.Value != nil && *c.Value != ""
		out.HasValue = &hasValue
	} else {
		out.Value = c.Value
	}

	return json.Marshal(&out)
}

// ConfigurationParams carries the plaintext input for creating a KV entry.
type ConfigurationParams struct {
	Key         string
	Value       *string
	Description *string
	IsEncrypted bool
	IsActive    bool
}

// ConfigurationPatch is a merge-patch: nil fields are left untouched.
type ConfigurationPatch struct {
	Key         *string
	Value       *string
	Description *string
	IsEncrypted *bool
	IsActive    *bool
}

// ConfigurationFilter narrows List results.
type ConfigurationFilter struct {
	Keys     []string
	IsActive *bool
}

type ConfigurationStore struct {
	db        dbinterface.Querier
	encryptor *crypto.Encryptor
}

func NewConfigurationStore(db dbinterface.Querier, encryptor *crypto.Encryptor) *ConfigurationStore {
	return &ConfigurationStore{db: db, encryptor: encryptor}
}

const configurationColumns = `id, key, value, description, is_encrypted, is_active, created_at, updated_at`

func scanConfiguration(scanner interface{ Scan(...any) error }) (*Configuration, error) {
	cfg := &Configuration{}
	err := scanner.Scan(
		&cfg.ID,
		&cfg.Key,
		&cfg.Value,
		&cfg.Description,
		&cfg.IsEncrypted,
		&cfg.IsActive,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *ConfigurationStore) isDuplicateKey(ctx context.Context, key string, excludeID int) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM configurations WHERE key = ? AND id != ?`, key, excludeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// storedValue encrypts the plaintext when the entry is flagged encrypted.
// Absent and empty values are stored as given.
func (s *ConfigurationStore) storedValue(value *string, isEncrypted bool) (*string, error) {
	if value == nil || *value == "" || !isEncrypted {
		return value, nil
	}
	ciphertext, err := s.encryptor.Encrypt(*value)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt value: %w", err)
	}
	return &ciphertext, nil
}

func (s *ConfigurationStore) Create(ctx context.Context, params ConfigurationParams) (*Configuration, error) {
	if strings.TrimSpace(params.Key) == "" {
		return nil, errors.New("key is required")
	}

	if dup, err := s.isDuplicateKey(ctx, params.Key, 0); err != nil {
		return nil, err
	} else if dup {
		return nil, ErrConfigurationExists
	}

	value, err := s.storedValue(params.Value, params.IsEncrypted)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO configurations (key, value, description, is_encrypted, is_active)
		VALUES (?, ?, ?, ?, ?)
		RETURNING `+configurationColumns,
		params.Key, value, params.Description, params.IsEncrypted, params.IsActive,
	)

	cfg, err := scanConfiguration(row)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrConfigurationExists
		}
		return nil, fmt.Errorf("failed to create configuration: %w", err)
	}

	return cfg, nil
}

func (s *ConfigurationStore) Get(ctx context.Context, id int) (*Configuration, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+configurationColumns+` FROM configurations WHERE id = ?`, id)

	cfg, err := scanConfiguration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConfigurationNotFound
		}
		return nil, err
	}

	return cfg, nil
}

func (s *ConfigurationStore) GetByKey(ctx context.Context, key string) (*Configuration, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+configurationColumns+` FROM configurations WHERE key = ?`, key)

	cfg, err := scanConfiguration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConfigurationNotFound
		}
		return nil, err
	}

	return cfg, nil
}

func (s *ConfigurationStore) List(ctx context.Context, filter ConfigurationFilter) ([]*Configuration, error) {
	query := `SELECT ` + configurationColumns + ` FROM configurations WHERE 1=1`
	var args []any

	if len(filter.Keys) > 0 {
		query += ` AND key IN (?` + strings.Repeat(", ?", len(filter.Keys)-1) + `)`
		for _, key := range filter.Keys {
			args = append(args, key)
		}
	}
	if filter.IsActive != nil {
		query += ` AND is_active = ?`
		args = append(args, *filter.IsActive)
	}
	query += ` ORDER BY key`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*Configuration
	for rows.Next() {
		cfg, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}

	return configs, rows.Err()
}

func (s *ConfigurationStore) Update(ctx context.Context, id int, patch ConfigurationPatch) (*Configuration, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	isEncrypted := current.IsEncrypted
	if patch.IsEncrypted != nil {
		isEncrypted = *patch.IsEncrypted
	}

	// Flipping the flag without a fresh value would leave the stored bytes
	// encoded under the old regime while the flag claims otherwise.
	if isEncrypted != current.IsEncrypted && patch.Value == nil {
		return nil, ErrEncryptionToggleWithoutValue
	}

	key := current.Key
	if patch.Key != nil {
		key = *patch.Key
	}
	if key != current.Key {
		if dup, err := s.isDuplicateKey(ctx, key, id); err != nil {
			return nil, err
		} else if dup {
			return nil, ErrConfigurationExists
		}
	}

	value := current.Value
	if patch.Value != nil {
		if value, err = s.storedValue(patch.Value, isEncrypted); err != nil {
			return nil, err
		}
	}

	description := current.Description
	if patch.Description != nil {
		description = patch.Description
	}
	isActive := current.IsActive
	if patch.IsActive != nil {
		isActive = *patch.IsActive
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE configurations
		SET key = ?, value = ?, description = ?, is_encrypted = ?, is_active = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING `+configurationColumns,
		key, value, description, isEncrypted, isActive, id,
	)

	cfg, err := scanConfiguration(row)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrConfigurationExists
		}
		return nil, fmt.Errorf("failed to update configuration: %w", err)
	}

	return cfg, nil
}

func (s *ConfigurationStore) Delete(ctx context.Context, id int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM configurations WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConfigurationNotFound
	}

	return nil
}

// DecryptedValue returns the plaintext value of an entry, decrypting when
// the entry is flagged encrypted.
func (s *ConfigurationStore) DecryptedValue(cfg *Configuration) (string, error) {
	if cfg.Value == nil {
		return "", nil
	}
	if !cfg.IsEncrypted {
		return *cfg.Value, nil
	}
	return s.encryptor.Decrypt(*cfg.Value)
}
