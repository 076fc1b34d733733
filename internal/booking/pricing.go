package booking

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/reginald-chapple/gembook/internal/models"
)

// Volume discount tiers. Thresholds are inclusive and mutually exclusive;
// the highest matching threshold wins.
const (
	tierTwoUnits      = 3.0
	tierTwoMultiplier = 0.95

	tierThreeUnits      = 7.0
	tierThreeMultiplier = 0.90
)

// Pricer computes the monetary amount for a booking interval from the
// item's per-unit rate.
type Pricer struct {
	decimals int
	logger   *zerolog.Logger
}

// NewPricer creates a pricer rounding to the given currency precision
// (commonly 2 decimals).
func NewPricer(decimals int, logger *zerolog.Logger) *Pricer {
	if decimals < 0 {
		decimals = 2
	}
	return &Pricer{decimals: decimals, logger: logger}
}

// Price returns unit_count × price_per_unit with the tier discount
// applied, rounded half-up to the configured precision. A negative
// computed base indicates a catalog misconfiguration: it is clamped to
// zero and logged, never charged or surfaced to the customer.
func (p *Pricer) Price(item *models.BookableItem, interval models.BookingInterval) float64 {
	base := interval.UnitCount * item.PricePerUnit
	if base < 0 {
		p.logger.Warn().
			Int64("item_id", item.ID).
			Float64("price_per_unit", item.PricePerUnit).
			Float64("unit_count", interval.UnitCount).
			Msg("negative price computed; clamping to zero (catalog misconfiguration)")
		return 0
	}

	total := base * discountMultiplier(interval.UnitCount)
	return roundHalfUp(total, p.decimals)
}

func discountMultiplier(unitCount float64) float64 {
	switch {
	case unitCount >= tierThreeUnits:
		return tierThreeMultiplier
	case unitCount >= tierTwoUnits:
		return tierTwoMultiplier
	default:
		return 1.0
	}
}

func roundHalfUp(value float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Floor(value*pow+0.5) / pow
}
