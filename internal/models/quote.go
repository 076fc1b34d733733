package models

import "time"

// Quote is a priced, validated booking offer produced at cart time. The
// storefront stores it verbatim and re-supplies it at checkout; commit
// charges the quoted price without re-pricing.
type Quote struct {
	ID        string          `json:"id"`
	ItemID    int64           `json:"item_id"`
	Interval  BookingInterval `json:"interval"`
	Price     float64         `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}
