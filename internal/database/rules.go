package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reginald-chapple/gembook/internal/models"
)

const ruleDateFormat = "2006-01-02"

// GetDateRule returns the availability override for an item on a date,
// or nil when the date has no rule.
func (db *DB) GetDateRule(ctx context.Context, itemID int64, date time.Time) (*models.DateRule, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, item_id, date, is_available, max_bookings, notes, created_at, updated_at
		FROM availability_rules
		WHERE item_id = ? AND date = ?`,
		itemID, date.Format(ruleDateFormat))

	var r models.DateRule
	var day string
	var notes sql.NullString
	err := row.Scan(&r.ID, &r.ItemID, &day, &r.IsAvailable, &r.MaxBookings,
		&notes, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan date rule: %w", err)
	}
	r.Date, err = time.Parse(ruleDateFormat, day)
	if err != nil {
		return nil, fmt.Errorf("parse rule date %q: %w", day, err)
	}
	r.Notes = notes.String
	return &r, nil
}

// UpsertDateRule creates or replaces the override for (item, date).
func (db *DB) UpsertDateRule(ctx context.Context, rule *models.DateRule) error {
	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO availability_rules (item_id, date, is_available, max_bookings, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id, date) DO UPDATE SET
			is_available = excluded.is_available,
			max_bookings = excluded.max_bookings,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		rule.ItemID, rule.Date.Format(ruleDateFormat), rule.IsAvailable,
		rule.MaxBookings, rule.Notes, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert date rule: %w", err)
	}
	return nil
}

// DeleteDateRule removes the override for (item, date). Deleting a
// missing rule is a no-op.
func (db *DB) DeleteDateRule(ctx context.Context, itemID int64, date time.Time) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM availability_rules WHERE item_id = ? AND date = ?`,
		itemID, date.Format(ruleDateFormat))
	if err != nil {
		return fmt.Errorf("delete date rule: %w", err)
	}
	return nil
}
