package models

import (
	"fmt"
	"time"
)

// BookingInterval is a normalized, validated time range for one booking
// attempt. Instants are half-open [Start, End) for overlap purposes.
// Intervals are immutable once produced by the parser.
type BookingInterval struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	UnitCount float64   `json:"unit_count"` // e.g. 2.5 hours or 3 days
	UnitKind  UnitKind  `json:"unit_kind"`
	Label     string    `json:"display_label"`
}

// Overlaps reports whether two half-open intervals share an instant.
// Boundary-adjacent intervals (a.End == b.Start) never overlap, so a
// service can be booked back-to-back with zero gap.
func (iv BookingInterval) Overlaps(other BookingInterval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Duration returns End - Start.
func (iv BookingInterval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// IsZero reports whether the interval carries no range.
func (iv BookingInterval) IsZero() bool {
	return iv.Start.IsZero() && iv.End.IsZero()
}

// Days returns every calendar day the interval touches, in the
// interval's own location. Used for per-date availability rules.
func (iv BookingInterval) Days() []time.Time {
	var days []time.Time
	day := time.Date(iv.Start.Year(), iv.Start.Month(), iv.Start.Day(), 0, 0, 0, 0, iv.Start.Location())
	for day.Before(iv.End) {
		days = append(days, day)
		day = day.AddDate(0, 0, 1)
	}
	return days
}

// FormatLabel builds the human-readable receipt label for an interval.
func FormatLabel(kind BookingKind, start, end time.Time, unitCount float64) string {
	switch kind {
	case KindSingleDay:
		return start.Format("January 2, 2006")
	case KindMultiDay:
		return fmt.Sprintf("%s – %s (%.0f days)",
			start.Format("January 2, 2006"), end.Format("January 2, 2006"), unitCount)
	default:
		return fmt.Sprintf("%s, %s – %s (%.2g hours)",
			start.Format("January 2, 2006"), start.Format("15:04"), end.Format("15:04"), unitCount)
	}
}
