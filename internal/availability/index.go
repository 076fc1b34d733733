// Package availability enforces the double-booking invariant: at most
// max_concurrent reserved bookings of an item may overlap at any instant.
// It is the single place in the system that answers "is this slot free"
// and the single place allowed to insert reserved bookings.
package availability

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reginald-chapple/gembook/internal/booking"
	"github.com/reginald-chapple/gembook/internal/models"
)

// ReservationStore is the persistence collaborator for reservations.
type ReservationStore interface {
	// ActiveReservations returns reservations in the reserved state whose
	// intervals overlap the given window for the item.
	ActiveReservations(ctx context.Context, itemID int64, window models.BookingInterval) ([]models.Reservation, error)
	InsertReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id, version int64, status string) error
}

// RuleStore reads per-date availability rules (closed dates, per-date
// concurrency overrides) maintained by the catalog.
type RuleStore interface {
	GetDateRule(ctx context.Context, itemID int64, date time.Time) (*models.DateRule, error)
}

// DefaultLockWait bounds how long Reserve waits for an item's critical
// section before surfacing a transient busy conflict.
const DefaultLockWait = 3 * time.Second

// Index serializes check-then-insert per item while leaving cross-item
// operations fully parallel.
type Index struct {
	store    ReservationStore
	rules    RuleStore
	lockWait time.Duration
	logger   *zerolog.Logger

	mu    sync.Mutex
	locks map[int64]chan struct{}
}

// NewIndex creates an availability index over the given store. rules may
// be nil when the catalog defines no per-date rules.
func NewIndex(store ReservationStore, rules RuleStore, lockWait time.Duration, logger *zerolog.Logger) *Index {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	return &Index{
		store:    store,
		rules:    rules,
		lockWait: lockWait,
		logger:   logger,
		locks:    make(map[int64]chan struct{}),
	}
}

// IsAvailable reports whether the candidate interval can be booked for
// the item. The read is lock-free and best-effort: callers must not
// treat a positive answer as a hold, Reserve re-validates inside the
// item's critical section.
func (ix *Index) IsAvailable(ctx context.Context, item *models.BookableItem, interval models.BookingInterval, excludeID int64) (bool, error) {
	limit, err := ix.effectiveLimit(ctx, item, interval)
	if err != nil {
		return false, err
	}
	if limit == 0 {
		return false, nil
	}

	existing, err := ix.store.ActiveReservations(ctx, item.ID, interval)
	if err != nil {
		return false, fmt.Errorf("load reservations for item %d: %w", item.ID, err)
	}

	depth := maxOverlapDepth(interval, existing, excludeID)
	return depth < limit, nil
}

// Reserve atomically re-checks availability and inserts the reservation
// in the reserved state. The check-then-insert sequence is a critical
// section per item; concurrent reservations of different items do not
// contend. A lock wait beyond the configured bound returns a busy
// conflict, which is transient and safe to retry.
func (ix *Index) Reserve(ctx context.Context, item *models.BookableItem, r *models.Reservation) error {
	release, err := ix.acquire(ctx, item.ID)
	if err != nil {
		return err
	}
	defer release()

	ok, err := ix.IsAvailable(ctx, item, r.Interval, r.ID)
	if err != nil {
		return err
	}
	if !ok {
		return booking.NewOverlapConflict(item.ID)
	}

	if r.ID != 0 {
		// Existing pending reservation being promoted.
		return ix.promote(ctx, r)
	}

	r.Status = models.StatusReserved
	if err := ix.store.InsertReservation(ctx, r); err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// Release transitions a reservation to released. It is idempotent:
// releasing an already released or cancelled reservation is a no-op.
// History is never physically removed.
func (ix *Index) Release(ctx context.Context, reservationID int64) error {
	r, err := ix.store.GetReservation(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("load reservation %d: %w", reservationID, err)
	}
	if models.IsTerminal(r.Status) {
		return nil
	}
	if err := ix.store.UpdateReservationStatus(ctx, r.ID, r.Version, models.StatusReleased); err != nil {
		return fmt.Errorf("release reservation %d: %w", reservationID, err)
	}
	return nil
}

func (ix *Index) promote(ctx context.Context, r *models.Reservation) error {
	if !models.CanTransition(r.Status, models.StatusReserved) {
		return fmt.Errorf("reservation %d: illegal transition %s -> %s", r.ID, r.Status, models.StatusReserved)
	}
	if r.Status == models.StatusReserved {
		return nil
	}
	if err := ix.store.UpdateReservationStatus(ctx, r.ID, r.Version, models.StatusReserved); err != nil {
		return fmt.Errorf("promote reservation %d: %w", r.ID, err)
	}
	r.Status = models.StatusReserved
	return nil
}

// acquire enters the item's critical section with a bounded wait.
func (ix *Index) acquire(ctx context.Context, itemID int64) (func(), error) {
	ix.mu.Lock()
	lock, ok := ix.locks[itemID]
	if !ok {
		lock = make(chan struct{}, 1)
		ix.locks[itemID] = lock
	}
	ix.mu.Unlock()

	timer := time.NewTimer(ix.lockWait)
	defer timer.Stop()

	select {
	case lock <- struct{}{}:
		return func() { <-lock }, nil
	case <-timer.C:
		ix.logger.Warn().Int64("item_id", itemID).Dur("wait", ix.lockWait).
			Msg("reservation lock wait timed out")
		return nil, booking.NewBusyConflict(itemID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// effectiveLimit resolves the concurrency cap for the interval: the
// item's max_concurrent, tightened by any per-date rule the interval
// touches. A closed date yields zero.
func (ix *Index) effectiveLimit(ctx context.Context, item *models.BookableItem, interval models.BookingInterval) (int, error) {
	limit := item.ConcurrencyLimit()
	if ix.rules == nil {
		return limit, nil
	}
	for _, day := range interval.Days() {
		rule, err := ix.rules.GetDateRule(ctx, item.ID, day)
		if err != nil {
			return 0, fmt.Errorf("load date rule for item %d: %w", item.ID, err)
		}
		if rule == nil {
			continue
		}
		if !rule.IsAvailable {
			return 0, nil
		}
		if rule.MaxBookings > 0 && rule.MaxBookings < limit {
			limit = rule.MaxBookings
		}
	}
	return limit, nil
}

// maxOverlapDepth computes the maximum number of reservations covering
// any single instant of the candidate interval. Half-open semantics: a
// reservation ending exactly when another starts adds no depth.
func maxOverlapDepth(candidate models.BookingInterval, existing []models.Reservation, excludeID int64) int {
	type event struct {
		at    time.Time
		delta int
	}
	var events []event

	for _, r := range existing {
		if excludeID != 0 && r.ID == excludeID {
			continue
		}
		if !r.Interval.Overlaps(candidate) {
			continue
		}
		start := r.Interval.Start
		if start.Before(candidate.Start) {
			start = candidate.Start
		}
		end := r.Interval.End
		if end.After(candidate.End) {
			end = candidate.End
		}
		events = append(events, event{at: start, delta: +1}, event{at: end, delta: -1})
	}
	if len(events) == 0 {
		return 0
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].at.Equal(events[j].at) {
			// Process departures before arrivals so touching intervals
			// do not count as concurrent.
			return events[i].delta < events[j].delta
		}
		return events[i].at.Before(events[j].at)
	})

	depth, maxDepth := 0, 0
	for _, ev := range events {
		depth += ev.delta
		if depth > maxDepth {
			maxDepth = depth
		}
	}
	return maxDepth
}
