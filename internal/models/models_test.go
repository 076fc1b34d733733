package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func iv(startHour, endHour int) BookingInterval {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return BookingInterval{
		Start: day.Add(time.Duration(startHour) * time.Hour),
		End:   day.Add(time.Duration(endHour) * time.Hour),
	}
}

func TestBookingInterval_Overlaps(t *testing.T) {
	t.Run("Symmetric", func(t *testing.T) {
		a := iv(9, 12)
		b := iv(11, 14)
		assert.True(t, a.Overlaps(b))
		assert.True(t, b.Overlaps(a))
	})

	t.Run("BoundaryAdjacentNeverOverlaps", func(t *testing.T) {
		a := iv(0, 10)
		b := iv(10, 20)
		assert.False(t, a.Overlaps(b))
		assert.False(t, b.Overlaps(a))
	})

	t.Run("Contained", func(t *testing.T) {
		outer := iv(8, 18)
		inner := iv(10, 11)
		assert.True(t, outer.Overlaps(inner))
		assert.True(t, inner.Overlaps(outer))
	})

	t.Run("Disjoint", func(t *testing.T) {
		assert.False(t, iv(8, 9).Overlaps(iv(15, 16)))
	})
}

func TestBookingInterval_Days(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 3, 23, 59, 59, 0, time.UTC)
	days := BookingInterval{Start: start, End: end}.Days()
	assert.Len(t, days, 3)
	assert.Equal(t, 1, days[0].Day())
	assert.Equal(t, 3, days[2].Day())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusReserved))
	assert.True(t, CanTransition(StatusReserved, StatusReleased))
	assert.True(t, CanTransition(StatusReserved, StatusCancelled))
	assert.True(t, CanTransition(StatusPending, StatusReleased))

	// Terminal states are final.
	assert.False(t, CanTransition(StatusReleased, StatusPending))
	assert.False(t, CanTransition(StatusCancelled, StatusReserved))
	assert.False(t, CanTransition(StatusReleased, StatusReserved))

	// Re-applying the same status is a no-op, not an error.
	assert.True(t, CanTransition(StatusReleased, StatusReleased))
	assert.True(t, CanTransition(StatusReserved, StatusReserved))
}

func TestBookableItem_Normalize(t *testing.T) {
	item := &BookableItem{MinUnits: 0, MaxUnits: 0, MaxConcurrent: 0}
	assert.True(t, item.Normalize())
	assert.Equal(t, 1.0, item.MinUnits)
	assert.Equal(t, 1, item.MaxConcurrent)

	item = &BookableItem{MinUnits: 4, MaxUnits: 2, MaxConcurrent: 3}
	assert.True(t, item.Normalize())
	assert.Equal(t, 4.0, item.MaxUnits)

	item = &BookableItem{MinUnits: 1, MaxUnits: 10, MaxConcurrent: 1}
	assert.False(t, item.Normalize())
}

func TestBookableItem_Increment(t *testing.T) {
	item := &BookableItem{TimeIncrementMinutes: 30}
	assert.Equal(t, 30*time.Minute, item.Increment())

	// Below the floor the minimum step applies.
	item.TimeIncrementMinutes = 1
	assert.Equal(t, 5*time.Minute, item.Increment())

	item.TimeIncrementMinutes = 0
	assert.Equal(t, 5*time.Minute, item.Increment())
}
