package models

import "time"

// DateRule is a catalog-maintained per-date availability override for an
// item: a date can be closed outright or given its own concurrency cap.
type DateRule struct {
	ID          int64     `json:"id"`
	ItemID      int64     `json:"item_id"`
	Date        time.Time `json:"date"`
	IsAvailable bool      `json:"is_available"`
	MaxBookings int       `json:"max_bookings"` // 0 = use the item's max_concurrent
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
