package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reginald-chapple/gembook/internal/models"
)

const reservationColumns = `id, item_id, order_id, customer_id, start_at, end_at,
	unit_count, unit_kind, label, price_charged, status, created_at, updated_at, version`

// InsertReservation persists a new reservation and fills in its ID,
// version and timestamps.
func (db *DB) InsertReservation(ctx context.Context, r *models.Reservation) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO reservations (item_id, order_id, customer_id, start_at, end_at,
			unit_count, unit_kind, label, price_charged, status, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		r.ItemID, r.OrderID, r.CustomerID, r.Interval.Start, r.Interval.End,
		r.Interval.UnitCount, r.Interval.UnitKind, r.Interval.Label,
		r.PriceCharged, r.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}
	r.ID = id
	r.Version = 1
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// GetReservation loads a reservation by ID. Returns ErrNotFound when no
// row exists.
func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	return scanReservation(row)
}

// GetReservationByOrderItem returns the reservation recorded for an
// order line, or ErrNotFound. Commits are idempotent per (order, item)
// so at most one row matches.
func (db *DB) GetReservationByOrderItem(ctx context.Context, orderID, itemID int64) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE order_id = ? AND item_id = ?
		ORDER BY id DESC LIMIT 1`, orderID, itemID)
	return scanReservation(row)
}

// GetReservationsByOrder returns every reservation belonging to an
// order, including released and cancelled history.
func (db *DB) GetReservationsByOrder(ctx context.Context, orderID int64) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order reservations: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ActiveReservations returns reserved reservations for the item whose
// intervals overlap the window. Overlap is half-open: rows ending
// exactly at window start are excluded.
func (db *DB) ActiveReservations(ctx context.Context, itemID int64, window models.BookingInterval) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE item_id = ? AND status = ? AND start_at < ? AND end_at > ?
		ORDER BY start_at`,
		itemID, models.StatusReserved, window.End, window.Start)
	if err != nil {
		return nil, fmt.Errorf("query active reservations: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ReservationsBetween returns all reservations regardless of status
// whose intervals overlap [start, end). Used for reporting.
func (db *DB) ReservationsBetween(ctx context.Context, start, end time.Time) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE start_at < ? AND end_at > ?
		ORDER BY start_at, id`, end, start)
	if err != nil {
		return nil, fmt.Errorf("query reservations between: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

// UpdateReservationStatus transitions a reservation with optimistic
// locking. The update only applies when the stored version matches;
// otherwise ErrConcurrentModification is returned and the caller should
// re-read and retry.
func (db *DB) UpdateReservationStatus(ctx context.Context, id, version int64, status string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE reservations
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		status, time.Now(), id, version)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// UpdateReservationTerms rewrites the interval and price of an existing
// reservation. Used when a repeated commit for the same order line
// carries different booking details.
func (db *DB) UpdateReservationTerms(ctx context.Context, r *models.Reservation) error {
	res, err := db.ExecContext(ctx, `
		UPDATE reservations
		SET start_at = ?, end_at = ?, unit_count = ?, unit_kind = ?, label = ?,
			price_charged = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		r.Interval.Start, r.Interval.End, r.Interval.UnitCount, r.Interval.UnitKind,
		r.Interval.Label, r.PriceCharged, time.Now(), r.ID, r.Version)
	if err != nil {
		return fmt.Errorf("update reservation terms: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrConcurrentModification
	}
	r.Version++
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	var customerID sql.NullInt64
	err := row.Scan(&r.ID, &r.ItemID, &r.OrderID, &customerID,
		&r.Interval.Start, &r.Interval.End, &r.Interval.UnitCount,
		&r.Interval.UnitKind, &r.Interval.Label, &r.PriceCharged,
		&r.Status, &r.CreatedAt, &r.UpdatedAt, &r.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan reservation: %w", err)
	}
	if customerID.Valid {
		r.CustomerID = &customerID.Int64
	}
	return &r, nil
}

func collectReservations(rows *sql.Rows) ([]models.Reservation, error) {
	var out []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
