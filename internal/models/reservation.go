package models

import "time"

// Reservation states. A reservation is created pending at cart-validation
// time, promoted to reserved when its order commits, and ends released or
// cancelled. Terminal states are final: a new reservation must be created
// instead of reviving an old one.
const (
	StatusPending   = "pending"
	StatusReserved  = "reserved"
	StatusReleased  = "released"
	StatusCancelled = "cancelled"
)

// statusTransitions lists the allowed state changes.
var statusTransitions = map[string][]string{
	StatusPending:  {StatusReserved, StatusReleased, StatusCancelled},
	StatusReserved: {StatusReleased, StatusCancelled},
}

// CanTransition reports whether a reservation may move from one status
// to another. Setting the same status again is allowed so repeated
// commit/release calls stay idempotent.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusReleased || status == StatusCancelled
}

// Reservation is the persisted record of a booking tied to a purchase.
// Reservations are never deleted; status transition is the only mutation
// path and it is performed exclusively by the booking service.
type Reservation struct {
	ID           int64           `json:"id"`
	ItemID       int64           `json:"item_id"`
	OrderID      int64           `json:"order_id"`
	CustomerID   *int64          `json:"customer_id,omitempty"` // nil for guest checkout
	Interval     BookingInterval `json:"interval"`
	PriceCharged float64         `json:"price_charged"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int64           `json:"version"`
}

// Active reports whether the reservation currently blocks availability.
func (r *Reservation) Active() bool {
	return r.Status == StatusReserved
}

// OverlapsWith checks if this reservation's interval overlaps another
// reservation's interval under half-open semantics.
func (r *Reservation) OverlapsWith(other *Reservation) bool {
	return r.Interval.Overlaps(other.Interval)
}
