package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reginald-chapple/gembook/internal/models"
)

const itemColumns = `id, name, booking_kind, price_per_unit, min_units, max_units,
	time_increment_minutes, max_concurrent, is_active, created_at, updated_at`

// CreateItem inserts a catalog item and fills in its ID.
func (db *DB) CreateItem(ctx context.Context, item *models.BookableItem) error {
	if !item.Kind.Valid() {
		return fmt.Errorf("create item: unknown booking kind %q", item.Kind)
	}
	item.Normalize()

	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO items (name, booking_kind, price_per_unit, min_units, max_units,
			time_increment_minutes, max_concurrent, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Name, item.Kind, item.PricePerUnit, item.MinUnits, item.MaxUnits,
		item.TimeIncrementMinutes, item.MaxConcurrent, item.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

// GetItem loads a catalog item by ID. Returns ErrNotFound when missing.
func (db *DB) GetItem(ctx context.Context, id int64) (*models.BookableItem, error) {
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	return scanItem(row)
}

// GetActiveItems lists the bookable catalog ordered by name.
func (db *DB) GetActiveItems(ctx context.Context) ([]models.BookableItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query active items: %w", err)
	}
	defer rows.Close()

	var out []models.BookableItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

// UpdateItem rewrites the booking configuration of a catalog item.
func (db *DB) UpdateItem(ctx context.Context, item *models.BookableItem) error {
	item.Normalize()
	res, err := db.ExecContext(ctx, `
		UPDATE items
		SET name = ?, booking_kind = ?, price_per_unit = ?, min_units = ?, max_units = ?,
			time_increment_minutes = ?, max_concurrent = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		item.Name, item.Kind, item.PricePerUnit, item.MinUnits, item.MaxUnits,
		item.TimeIncrementMinutes, item.MaxConcurrent, item.IsActive, time.Now(), item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanItem(row rowScanner) (*models.BookableItem, error) {
	var item models.BookableItem
	err := row.Scan(&item.ID, &item.Name, &item.Kind, &item.PricePerUnit,
		&item.MinUnits, &item.MaxUnits, &item.TimeIncrementMinutes,
		&item.MaxConcurrent, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}
	return &item, nil
}
