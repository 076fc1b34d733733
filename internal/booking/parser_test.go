package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reginald-chapple/gembook/internal/models"
)

func testItem(kind models.BookingKind) *models.BookableItem {
	return &models.BookableItem{
		ID:            1,
		Name:          "Studio Session",
		Kind:          kind,
		PricePerUnit:  20,
		MinUnits:      1,
		MaxUnits:      0,
		MaxConcurrent: 1,
	}
}

func TestParser_SingleDay(t *testing.T) {
	p := NewParser(time.UTC)
	item := testItem(models.KindSingleDay)

	t.Run("SpansFullDay", func(t *testing.T) {
		got, err := p.Parse(item, models.KindSingleDay, RawInput{StartDate: "2025-07-14"})
		require.NoError(t, err)

		assert.Equal(t, time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), got.Start)
		assert.Equal(t, time.Date(2025, 7, 14, 23, 59, 59, 0, time.UTC), got.End)
		assert.Equal(t, 1.0, got.UnitCount)
		assert.Equal(t, models.UnitDay, got.UnitKind)
		assert.NotEmpty(t, got.Label)
	})

	t.Run("TrimsWhitespace", func(t *testing.T) {
		got, err := p.Parse(item, models.KindSingleDay, RawInput{StartDate: "  2025-07-14 "})
		require.NoError(t, err)
		assert.Equal(t, 14, got.Start.Day())
	})

	t.Run("MalformedDate", func(t *testing.T) {
		_, err := p.Parse(item, models.KindSingleDay, RawInput{StartDate: "14/07/2025"})
		ve, ok := IsValidation(err)
		require.True(t, ok)
		assert.Equal(t, CodeMalformedInput, ve.Code)
	})

	t.Run("MissingDate", func(t *testing.T) {
		_, err := p.Parse(item, models.KindSingleDay, RawInput{})
		ve, ok := IsValidation(err)
		require.True(t, ok)
		assert.Equal(t, CodeMalformedInput, ve.Code)
	})
}

func TestParser_MultiDay(t *testing.T) {
	p := NewParser(time.UTC)
	item := testItem(models.KindMultiDay)

	t.Run("InclusiveDayCount", func(t *testing.T) {
		got, err := p.Parse(item, models.KindMultiDay, RawInput{
			StartDate: "2025-07-14",
			EndDate:   "2025-07-18", // start + 4 days
		})
		require.NoError(t, err)
		assert.Equal(t, 5.0, got.UnitCount)
		assert.Equal(t, models.UnitDay, got.UnitKind)
	})

	t.Run("SameDayCountsOne", func(t *testing.T) {
		got, err := p.Parse(item, models.KindMultiDay, RawInput{
			StartDate: "2025-07-14",
			EndDate:   "2025-07-14",
		})
		require.NoError(t, err)
		assert.Equal(t, 1.0, got.UnitCount)
	})

	t.Run("EndBeforeStart", func(t *testing.T) {
		_, err := p.Parse(item, models.KindMultiDay, RawInput{
			StartDate: "2025-07-14",
			EndDate:   "2025-07-10",
		})
		ve, ok := IsValidation(err)
		require.True(t, ok)
		assert.Equal(t, CodeInvalidRange, ve.Code)
	})

	t.Run("BelowMinimum", func(t *testing.T) {
		bounded := testItem(models.KindMultiDay)
		bounded.MinUnits = 3
		_, err := p.Parse(bounded, models.KindMultiDay, RawInput{
			StartDate: "2025-07-14",
			EndDate:   "2025-07-15",
		})
		ve, ok := IsValidation(err)
		require.True(t, ok)
		assert.Equal(t, CodeBelowMinimum, ve.Code)
	})

	t.Run("AboveMaximum", func(t *testing.T) {
		bounded := testItem(models.KindMultiDay)
		bounded.MaxUnits = 3
		_, err := p.Parse(bounded, models.KindMultiDay, RawInput{
			StartDate: "2025-07-14",
			EndDate:   "2025-07-20",
		})
		ve, ok := IsValidation(err)
		require.True(t, ok)
		assert.Equal(t, CodeAboveMaximum, ve.Code)
	})
}

func TestParser_TimeBased(t *testing.T) {
	p := NewParser(time.UTC)

	t.Run("CeilingRoundsToIncrement", func(t *testing.T) {
		item := testItem(models.KindTimeBased)
		item.TimeIncrementMinutes = 30

		got, err := p.Parse(item, models.KindTimeBased, RawInput{
			StartDate: "2025-07-14",
			StartTime: "09:00",
			EndTime:   "10:40", // 1h40m rounds up to 2h
		})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC), got.Start)
		assert.Equal(t, time.Date(2025, 7, 14, 11, 0, 0, 0, time.UTC), got.End)
		assert.Equal(t, 2.0, got.UnitCount)
		assert.Equal(t, models.UnitHour, got.UnitKind)
	})

	t.Run("ExactMultipleUnchanged", func(t *testing.T) {
		item := testItem(models.KindTimeBased)
		item.TimeIncrementMinutes = 30

		got, err := p.Parse(item, models.KindTimeBased, RawInput{
			StartDate: "2025-07-14",
			StartTime: "09:00",
			EndTime:   "10:30",
		})
		require.NoError(t, err)
		assert.Equal(t, 1.5, got.UnitCount)
		assert.Equal(t, time.Date(2025, 7, 14, 10, 30, 0, 0, time.UTC), got.End)
	})

	t.Run("RoundingNeverShortens", func(t *testing.T) {
		item := testItem(models.KindTimeBased)
		for _, inc := range []int{5, 15, 30, 45, 60} {
			item.TimeIncrementMinutes = inc
			got, err := p.Parse(item, models.KindTimeBased, RawInput{
				StartDate: "2025-07-14",
				StartTime: "09:00",
				EndTime:   "10:07",
			})
			require.NoError(t, err)

			raw := 67 * time.Minute
			assert.GreaterOrEqual(t, got.Duration(), raw, "increment %d", inc)
			assert.Zero(t, got.Duration()%item.Increment(), "increment %d", inc)
		}
	})

	t.Run("IncrementFloorIsFiveMinutes", func(t *testing.T) {
		item := testItem(models.KindTimeBased)
		item.TimeIncrementMinutes = 1

		got, err := p.Parse(item, models.KindTimeBased, RawInput{
			StartDate: "2025-07-14",
			StartTime: "09:00",
			EndTime:   "09:02",
		})
		require.NoError(t, err)
		assert.Equal(t, 5*time.Minute, got.Duration())
	})

	t.Run("EndNotAfterStart", func(t *testing.T) {
		item := testItem(models.KindTimeBased)
		for _, end := range []string{"09:00", "08:00"} {
			_, err := p.Parse(item, models.KindTimeBased, RawInput{
				StartDate: "2025-07-14",
				StartTime: "09:00",
				EndTime:   end,
			})
			ve, ok := IsValidation(err)
			require.True(t, ok)
			assert.Equal(t, CodeInvalidRange, ve.Code)
		}
	})

	t.Run("MalformedTime", func(t *testing.T) {
		item := testItem(models.KindTimeBased)
		_, err := p.Parse(item, models.KindTimeBased, RawInput{
			StartDate: "2025-07-14",
			StartTime: "9am",
			EndTime:   "11:00",
		})
		ve, ok := IsValidation(err)
		require.True(t, ok)
		assert.Equal(t, CodeMalformedInput, ve.Code)
	})

	t.Run("HourBoundsAfterRounding", func(t *testing.T) {
		item := testItem(models.KindTimeBased)
		item.TimeIncrementMinutes = 30
		item.MaxUnits = 2

		// 1h50m rounds to 2h which is exactly the maximum: allowed.
		_, err := p.Parse(item, models.KindTimeBased, RawInput{
			StartDate: "2025-07-14",
			StartTime: "09:00",
			EndTime:   "10:50",
		})
		assert.NoError(t, err)

		// 2h10m rounds to 2.5h which exceeds it.
		_, err = p.Parse(item, models.KindTimeBased, RawInput{
			StartDate: "2025-07-14",
			StartTime: "09:00",
			EndTime:   "11:10",
		})
		ve, ok := IsValidation(err)
		require.True(t, ok)
		assert.Equal(t, CodeAboveMaximum, ve.Code)
	})
}

func TestParser_UnsupportedKind(t *testing.T) {
	p := NewParser(time.UTC)
	_, err := p.Parse(testItem(models.KindSingleDay), models.BookingKind("weekly"), RawInput{StartDate: "2025-07-14"})
	ve, ok := IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeUnsupportedType, ve.Code)
}

func TestParser_StoreTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	p := NewParser(loc)
	got, err := p.Parse(testItem(models.KindSingleDay), models.KindSingleDay, RawInput{StartDate: "2025-07-14"})
	require.NoError(t, err)
	assert.Equal(t, loc, got.Start.Location())
}

func TestParser_DaylightSaving(t *testing.T) {
	// Madrid springs forward on 2025-03-30 (23h day) and falls back on
	// 2025-10-26 (25h day). Calendar semantics must hold on both.
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	p := NewParser(loc)

	t.Run("SingleDayEndsOnSameCalendarDay", func(t *testing.T) {
		got, err := p.Parse(testItem(models.KindSingleDay), models.KindSingleDay, RawInput{StartDate: "2025-03-30"})
		require.NoError(t, err)

		assert.Equal(t, time.Date(2025, 3, 30, 0, 0, 0, 0, loc).Unix(), got.Start.Unix())
		assert.Equal(t, 30, got.End.Day())
		assert.Equal(t, 23, got.End.Hour())
		assert.Equal(t, 59, got.End.Minute())
	})

	t.Run("SpringForwardRangeCountsCalendarDays", func(t *testing.T) {
		got, err := p.Parse(testItem(models.KindMultiDay), models.KindMultiDay, RawInput{
			StartDate: "2025-03-28",
			EndDate:   "2025-04-02",
		})
		require.NoError(t, err)
		assert.Equal(t, 6.0, got.UnitCount)
		assert.Equal(t, 2, got.End.Day())
		assert.Equal(t, 23, got.End.Hour())
	})

	t.Run("FallBackRangeCountsCalendarDays", func(t *testing.T) {
		got, err := p.Parse(testItem(models.KindMultiDay), models.KindMultiDay, RawInput{
			StartDate: "2025-10-24",
			EndDate:   "2025-10-28",
		})
		require.NoError(t, err)
		assert.Equal(t, 5.0, got.UnitCount)
	})
}
