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

	"github.com/queqiao-arr/queqiao/internal/dbinterface"
)

var (
	ErrDictTypeNotFound = errors.New("dict type not found")
	ErrDictTypeExists   = errors.New("dict type code already exists")
	ErrDictItemNotFound = errors.New("dict item not found")
	// ErrDictItemExists signals a duplicate (dict_type_code, code) pair.
	ErrDictItemExists = errors.New("dict item code already exists for this type")
	// ErrInvalidParent covers a missing parent, a parent from another dict
	// type, and an item naming itself as parent.
	ErrInvalidParent = errors.New("invalid parent item")
)

// DictType is a named category of dictionary options, e.g. "language".
type DictType struct {
	ID        int       `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Remark    *string   `json:"remark,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DictItem is one option within a DictType. Items may nest one level via
// ParentID; parent and child always share the same dict type.
type DictItem struct {
	ID           int       `json:"id"`
	DictTypeCode string    `json:"dict_type_code"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Value        string    `json:"value"`
	SortOrder    int       `json:"sort_order"`
	ParentID     *int      `json:"parent_id,omitempty"`
	Remark       *string   `json:"remark,omitempty"`
	IsActive     bool      `json:"is_active"`
	ExtraData    *string   `json:"extra_data,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DictOption is the trimmed item shape served to dropdowns.
type DictOption struct {
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Value     string          `json:"value"`
	ExtraData json.RawMessage `json:"extra_data,omitempty"`
}

// DictTypePatch is a merge-patch for a type; the code is immutable.
type DictTypePatch struct {
	Name     *string
	Remark   *string
	IsActive *bool
}

// DictItemParams carries the input for creating an item.
type DictItemParams struct {
	DictTypeCode string
	Code         string
	Name         string
	Value        string
	SortOrder    int
	ParentID     *int
	Remark       *string
	IsActive     bool
	ExtraData    *string
}

// DictItemPatch is a merge-patch for an item; type and code are immutable.
type DictItemPatch struct {
	Name      *string
	Value     *string
	SortOrder *int
	ParentID  *int
	Remark    *string
	IsActive  *bool
	ExtraData *string
}

type DictStore struct {
	db dbinterface.Querier
}

func NewDictStore(db dbinterface.Querier) *DictStore {
	return &DictStore{db: db}
}

const dictTypeColumns = `id, code, name, remark, is_active, created_at, updated_at`

func scanDictType(scanner interface{ Scan(...any) error }) (*DictType, error) {
	dt := &DictType{}
	err := scanner.Scan(&dt.ID, &dt.Code, &dt.Name, &dt.Remark, &dt.IsActive, &dt.CreatedAt, &dt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return dt, nil
}

const dictItemColumns = `id, dict_type_code, code, name, value, sort_order, parent_id, remark, is_active, extra_data, created_at, updated_at`

func scanDictItem(scanner interface{ Scan(...any) error }) (*DictItem, error) {
	item := &DictItem{}
	err := scanner.Scan(
		&item.ID,
		&item.DictTypeCode,
		&item.Code,
		&item.Name,
		&item.Value,
		&item.SortOrder,
		&item.ParentID,
		&item.Remark,
		&item.IsActive,
		&item.ExtraData,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ---- dict types ----

func (s *DictStore) CreateType(ctx context.Context, code, name string, remark *string, isActive bool) (*DictType, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(name) == "" {
		return nil, errors.New("code and name are required")
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO dict_types (code, name, remark, is_active)
		VALUES (?, ?, ?, ?)
		RETURNING `+dictTypeColumns,
		code, name, remark, isActive,
	)

	dt, err := scanDictType(row)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrDictTypeExists
		}
		return nil, fmt.Errorf("failed to create dict type: %w", err)
	}

	return dt, nil
}

func (s *DictStore) GetType(ctx context.Context, id int) (*DictType, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+dictTypeColumns+` FROM dict_types WHERE id = ?`, id)

	dt, err := scanDictType(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDictTypeNotFound
		}
		return nil, err
	}

	return dt, nil
}

func (s *DictStore) GetTypeByCode(ctx context.Context, code string) (*DictType, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+dictTypeColumns+` FROM dict_types WHERE code = ?`, code)

	dt, err := scanDictType(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDictTypeNotFound
		}
		return nil, err
	}

	return dt, nil
}

// ListTypes returns one page of dict types plus the unpaged total.
func (s *DictStore) ListTypes(ctx context.Context, isActive *bool, page, pageSize int) ([]*DictType, int, error) {
	where := ` WHERE 1=1`
	var args []any
	if isActive != nil {
		where += ` AND is_active = ?`
		args = append(args, *isActive)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dict_types`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + dictTypeColumns + ` FROM dict_types` + where + ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var types []*DictType
	for rows.Next() {
		dt, err := scanDictType(rows)
		if err != nil {
			return nil, 0, err
		}
		types = append(types, dt)
	}

	return types, total, rows.Err()
}

func (s *DictStore) UpdateType(ctx context.Context, id int, patch DictTypePatch) (*DictType, error) {
	current, err := s.GetType(ctx, id)
	if err != nil {
		return nil, err
	}

	name := current.Name
	if patch.Name != nil {
		name = *patch.Name
	}
	remark := current.Remark
	if patch.Remark != nil {
		remark = patch.Remark
	}
	isActive := current.IsActive
	if patch.IsActive != nil {
		isActive = *patch.IsActive
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE dict_types
		SET name = ?, remark = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING `+dictTypeColumns,
		name, remark, isActive, id,
	)

	return scanDictType(row)
}

// DeleteType removes a type; the schema cascades the delete to its items.
func (s *DictStore) DeleteType(ctx context.Context, id int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM dict_types WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDictTypeNotFound
	}

	return nil
}

// ---- dict items ----

// validateParent enforces that a parent item exists, belongs to the same
// dict type, and is not the item itself.
func (s *DictStore) validateParent(ctx context.Context, parentID int, dictTypeCode string, selfID int) error {
	if selfID != 0 && parentID == selfID {
		return fmt.Errorf("%w: item cannot be its own parent", ErrInvalidParent)
	}

	parent, err := s.GetItem(ctx, parentID)
	if err != nil {
		if errors.Is(err, ErrDictItemNotFound) {
			return fmt.Errorf("%w: parent %d does not exist", ErrInvalidParent, parentID)
		}
		return err
	}
	if parent.DictTypeCode != dictTypeCode {
		return fmt.Errorf("%w: parent belongs to dict type %q", ErrInvalidParent, parent.DictTypeCode)
	}

	return nil
}

func (s *DictStore) CreateItem(ctx context.Context, params DictItemParams) (*DictItem, error) {
	if _, err := s.GetTypeByCode(ctx, params.DictTypeCode); err != nil {
		return nil, err
	}

	if params.ParentID != nil {
		if err := s.validateParent(ctx, *params.ParentID, params.DictTypeCode, 0); err != nil {
			return nil, err
		}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO dict_items (dict_type_code, code, name, value, sort_order, parent_id, remark, is_active, extra_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+dictItemColumns,
		params.DictTypeCode, params.Code, params.Name, params.Value,
		params.SortOrder, params.ParentID, params.Remark, params.IsActive, params.ExtraData,
	)

	item, err := scanDictItem(row)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrDictItemExists
		}
		if isForeignKeyConstraintError(err) {
			return nil, ErrDictTypeNotFound
		}
		return nil, fmt.Errorf("failed to create dict item: %w", err)
	}

	return item, nil
}

func (s *DictStore) GetItem(ctx context.Context, id int) (*DictItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+dictItemColumns+` FROM dict_items WHERE id = ?`, id)

	item, err := scanDictItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDictItemNotFound
		}
		return nil, err
	}

	return item, nil
}

// ListItems returns one page of items for a dict type plus the unpaged total.
func (s *DictStore) ListItems(ctx context.Context, dictTypeCode string, isActive *bool, parentID *int, page, pageSize int) ([]*DictItem, int, error) {
	where := ` WHERE dict_type_code = ?`
	args := []any{dictTypeCode}
	if isActive != nil {
		where += ` AND is_active = ?`
		args = append(args, *isActive)
	}
	if parentID != nil {
		where += ` AND parent_id = ?`
		args = append(args, *parentID)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dict_items`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + dictItemColumns + ` FROM dict_items` + where + ` ORDER BY sort_order, id LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*DictItem
	for rows.Next() {
		item, err := scanDictItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}

	return items, total, rows.Err()
}

func (s *DictStore) UpdateItem(ctx context.Context, id int, patch DictItemPatch) (*DictItem, error) {
	current, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	parentID := current.ParentID
	if patch.ParentID != nil {
		if err := s.validateParent(ctx, *patch.ParentID, current.DictTypeCode, id); err != nil {
			return nil, err
		}
		parentID = patch.ParentID
	}

	name := current.Name
	if patch.Name != nil {
		name = *patch.Name
	}
	value := current.Value
	if patch.Value != nil {
		value = *patch.Value
	}
	sortOrder := current.SortOrder
	if patch.SortOrder != nil {
		sortOrder = *patch.SortOrder
	}
	remark := current.Remark
	if patch.Remark != nil {
		remark = patch.Remark
	}
	isActive := current.IsActive
	if patch.IsActive != nil {
		isActive = *patch.IsActive
	}
	extraData := current.ExtraData
	if patch.ExtraData != nil {
		extraData = patch.ExtraData
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE dict_items
		SET name = ?, value = ?, sort_order = ?, parent_id = ?, remark = ?,
		    is_active = ?, extra_data = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING `+dictItemColumns,
		name, value, sortOrder, parentID, remark, isActive, extraData, id,
	)

	return scanDictItem(row)
}

// DeleteItem removes an item; the schema cascades the delete to children.
func (s *DictStore) DeleteItem(ctx context.Context, id int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM dict_items WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDictItemNotFound
	}

	return nil
}

// Options returns the active items of a dict type in display order,
// trimmed to the fields a dropdown needs.
func (s *DictStore) Options(ctx context.Context, dictTypeCode string, parentID *int) ([]DictOption, error) {
	query := `SELECT code, name, value, extra_data FROM dict_items WHERE dict_type_code = ? AND is_active = 1`
	args := []any{dictTypeCode}
	if parentID != nil {
		query += ` AND parent_id = ?`
		args = append(args, *parentID)
	}
	query += ` ORDER BY sort_order, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	options := []DictOption{}
	for rows.Next() {
		var opt DictOption
		var extraData *string
		if err := rows.Scan(&opt.Code, &opt.Name, &opt.Value, &extraData); err != nil {
			return nil, err
		}
		if extraData != nil && json.Valid([]byte(*extraData)) {
			opt.ExtraData = json.RawMessage(*extraData)
		}
		options = append(options, opt)
	}

	return options, rows.Err()
}
