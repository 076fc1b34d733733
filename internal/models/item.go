package models

import "time"

// BookingKind selects how a bookable item is reserved and priced.
type BookingKind string

const (
	KindSingleDay BookingKind = "single_day"
	KindMultiDay  BookingKind = "multi_day"
	KindTimeBased BookingKind = "time_based"
)

// UnitKind is the pricing unit of a booking interval.
type UnitKind string

const (
	UnitDay  UnitKind = "day"
	UnitHour UnitKind = "hour"
)

// Unit returns the pricing unit for the booking kind.
func (k BookingKind) Unit() UnitKind {
	if k == KindTimeBased {
		return UnitHour
	}
	return UnitDay
}

// Valid reports whether the kind is one of the supported booking kinds.
func (k BookingKind) Valid() bool {
	switch k {
	case KindSingleDay, KindMultiDay, KindTimeBased:
		return true
	}
	return false
}

// BookableItem is a sellable service definition. It is owned by the
// catalog and read-only to the booking core.
type BookableItem struct {
	ID                   int64       `json:"id"`
	Name                 string      `json:"name"`
	Kind                 BookingKind `json:"booking_kind"`
	PricePerUnit         float64     `json:"price_per_unit"` // per day or per hour, by kind
	MinUnits             float64     `json:"min_units"`
	MaxUnits             float64     `json:"max_units"` // 0 = unbounded
	TimeIncrementMinutes int         `json:"time_increment_minutes"`
	MaxConcurrent        int         `json:"max_concurrent"`
	IsActive             bool        `json:"is_active"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// MinTimeIncrementMinutes is the smallest bookable time step.
const MinTimeIncrementMinutes = 5

// Increment returns the effective rounding step for time-based bookings.
func (i *BookableItem) Increment() time.Duration {
	step := i.TimeIncrementMinutes
	if step < MinTimeIncrementMinutes {
		step = MinTimeIncrementMinutes
	}
	return time.Duration(step) * time.Minute
}

// ConcurrencyLimit returns max_concurrent with the catalog default applied.
func (i *BookableItem) ConcurrencyLimit() int {
	if i.MaxConcurrent < 1 {
		return 1
	}
	return i.MaxConcurrent
}

// Normalize repairs catalog configuration so the core invariants hold:
// min_units >= 1 and, when bounded, max_units >= min_units. It returns
// true when anything was adjusted so the caller can log the anomaly.
func (i *BookableItem) Normalize() bool {
	adjusted := false
	if i.MinUnits < 1 {
		i.MinUnits = 1
		adjusted = true
	}
	if i.MaxUnits > 0 && i.MaxUnits < i.MinUnits {
		i.MaxUnits = i.MinUnits
		adjusted = true
	}
	if i.MaxConcurrent < 1 {
		i.MaxConcurrent = 1
		adjusted = true
	}
	return adjusted
}
