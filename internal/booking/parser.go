package booking

import (
	"math"
	"strings"
	"time"

	"github.com/reginald-chapple/gembook/internal/models"
)

const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04"
)

// RawInput carries the raw form fields submitted by the storefront. The
// parser is the only component that reads them; nothing else in the core
// touches request state.
type RawInput struct {
	BookingType string `json:"booking_type"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// Parser turns raw date/time input into a validated BookingInterval in
// the store's configured time zone.
type Parser struct {
	loc *time.Location
}

// NewParser creates a parser. A nil location defaults to UTC.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{loc: loc}
}

// Parse validates raw fields against the item's booking configuration and
// produces a normalized interval. All string fields are trimmed before
// parsing; malformed values fail with a typed validation error, never a
// silent default.
func (p *Parser) Parse(item *models.BookableItem, kind models.BookingKind, raw RawInput) (models.BookingInterval, error) {
	raw.StartDate = strings.TrimSpace(raw.StartDate)
	raw.EndDate = strings.TrimSpace(raw.EndDate)
	raw.StartTime = strings.TrimSpace(raw.StartTime)
	raw.EndTime = strings.TrimSpace(raw.EndTime)

	switch kind {
	case models.KindSingleDay:
		return p.parseSingleDay(raw)
	case models.KindMultiDay:
		return p.parseMultiDay(item, raw)
	case models.KindTimeBased:
		return p.parseTimeBased(item, raw)
	default:
		return models.BookingInterval{}, newValidationError(CodeUnsupportedType, "booking_type",
			"unsupported booking type %q", string(kind))
	}
}

// parseSingleDay books one full calendar day: [D 00:00:00, D 23:59:59].
func (p *Parser) parseSingleDay(raw RawInput) (models.BookingInterval, error) {
	day, err := p.parseDate("start_date", raw.StartDate)
	if err != nil {
		return models.BookingInterval{}, err
	}

	start := day
	end := endOfDay(day)
	return models.BookingInterval{
		Start:     start,
		End:       end,
		UnitCount: 1,
		UnitKind:  models.UnitDay,
		Label:     models.FormatLabel(models.KindSingleDay, start, end, 1),
	}, nil
}

// parseMultiDay books an inclusive day range; unit count is
// (end - start in days) + 1.
func (p *Parser) parseMultiDay(item *models.BookableItem, raw RawInput) (models.BookingInterval, error) {
	startDay, err := p.parseDate("start_date", raw.StartDate)
	if err != nil {
		return models.BookingInterval{}, err
	}
	endDay, err := p.parseDate("end_date", raw.EndDate)
	if err != nil {
		return models.BookingInterval{}, err
	}

	if endDay.Before(startDay) {
		return models.BookingInterval{}, newValidationError(CodeInvalidRange, "end_date",
			"end date must not be before start date")
	}

	days := float64(inclusiveDays(startDay, endDay))
	if err := checkBounds(item, days, "days"); err != nil {
		return models.BookingInterval{}, err
	}

	end := endOfDay(endDay)
	return models.BookingInterval{
		Start:     startDay,
		End:       end,
		UnitCount: days,
		UnitKind:  models.UnitDay,
		Label:     models.FormatLabel(models.KindMultiDay, startDay, endDay, days),
	}, nil
}

// parseTimeBased books a same-day time range. The raw duration is rounded
// up to the next multiple of the item's increment, which may extend the
// booked end past the literal requested time but never under-charges the
// increment.
func (p *Parser) parseTimeBased(item *models.BookableItem, raw RawInput) (models.BookingInterval, error) {
	day, err := p.parseDate("start_date", raw.StartDate)
	if err != nil {
		return models.BookingInterval{}, err
	}
	start, err := p.parseTimeOnDay(day, "start_time", raw.StartTime)
	if err != nil {
		return models.BookingInterval{}, err
	}
	end, err := p.parseTimeOnDay(day, "end_time", raw.EndTime)
	if err != nil {
		return models.BookingInterval{}, err
	}

	if !start.Before(end) {
		return models.BookingInterval{}, newValidationError(CodeInvalidRange, "end_time",
			"end time must be after start time")
	}

	increment := item.Increment()
	rawDur := end.Sub(start)
	steps := int64(math.Ceil(float64(rawDur) / float64(increment)))
	roundedDur := time.Duration(steps) * increment
	end = start.Add(roundedDur)

	hours := roundedDur.Hours()
	if err := checkBounds(item, hours, "hours"); err != nil {
		return models.BookingInterval{}, err
	}

	return models.BookingInterval{
		Start:     start,
		End:       end,
		UnitCount: hours,
		UnitKind:  models.UnitHour,
		Label:     models.FormatLabel(models.KindTimeBased, start, end, hours),
	}, nil
}

// endOfDay returns D 23:59:59 in the day's own location. Calendar
// arithmetic, not duration arithmetic: on a DST transition day adding
// 24h would land on the next calendar day.
func endOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Second)
}

// inclusiveDays counts calendar days in [start, end] by civil date, so
// a DST transition inside the range cannot shorten or stretch the count.
func inclusiveDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s)/(24*time.Hour)) + 1
}

func (p *Parser) parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, newValidationError(CodeMalformedInput, field, "date is required")
	}
	t, err := time.ParseInLocation(dateFormat, value, p.loc)
	if err != nil {
		return time.Time{}, newValidationError(CodeMalformedInput, field,
			"invalid date %q; expected YYYY-MM-DD", value)
	}
	return t, nil
}

func (p *Parser) parseTimeOnDay(day time.Time, field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, newValidationError(CodeMalformedInput, field, "time is required")
	}
	t, err := time.ParseInLocation(timeFormat, value, p.loc)
	if err != nil {
		return time.Time{}, newValidationError(CodeMalformedInput, field,
			"invalid time %q; expected HH:MM", value)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, p.loc), nil
}

// boundsEpsilon absorbs float noise when comparing rounded hour counts
// against configured unit bounds.
const boundsEpsilon = 1e-9

func checkBounds(item *models.BookableItem, units float64, unitName string) error {
	if units < item.MinUnits-boundsEpsilon {
		return newValidationError(CodeBelowMinimum, "",
			"booking of %g %s is below the minimum of %g", units, unitName, item.MinUnits)
	}
	if item.MaxUnits > 0 && units > item.MaxUnits+boundsEpsilon {
		return newValidationError(CodeAboveMaximum, "",
			"booking of %g %s exceeds the maximum of %g", units, unitName, item.MaxUnits)
	}
	return nil
}
