// Package service coordinates the booking lifecycle: quoting at cart
// time, committing reservations when orders are paid, and releasing
// them when orders are cancelled or refunded.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reginald-chapple/gembook/internal/booking"
	"github.com/reginald-chapple/gembook/internal/database"
	"github.com/reginald-chapple/gembook/internal/events"
	"github.com/reginald-chapple/gembook/internal/models"
)

// Repository is the persistence surface the coordinator needs beyond
// what the availability index owns.
type Repository interface {
	GetItem(ctx context.Context, id int64) (*models.BookableItem, error)
	GetReservationByOrderItem(ctx context.Context, orderID, itemID int64) (*models.Reservation, error)
	GetReservationsByOrder(ctx context.Context, orderID int64) ([]models.Reservation, error)
	UpdateReservationTerms(ctx context.Context, r *models.Reservation) error
}

// AvailabilityIndex guards the double-booking invariant. All reserved
// rows enter storage through it.
type AvailabilityIndex interface {
	IsAvailable(ctx context.Context, item *models.BookableItem, interval models.BookingInterval, excludeID int64) (bool, error)
	Reserve(ctx context.Context, item *models.BookableItem, r *models.Reservation) error
	Release(ctx context.Context, reservationID int64) error
}

// QuoteCache stores quotes verbatim between cart and checkout.
type QuoteCache interface {
	Put(ctx context.Context, q *models.Quote) error
	Get(ctx context.Context, id string) (*models.Quote, error)
	Delete(ctx context.Context, id string) error
}

// EventPublisher fans out lifecycle events to interested subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Recorder receives booking instrumentation.
type Recorder interface {
	IncQuote(outcome, kind string)
	IncReservation(status string)
	IncConflict(reason string)
	IncActive()
	DecActive()
	ObserveQuoteDuration(seconds float64)
	ObserveReserveDuration(seconds float64)
}

// ErrItemNotBookable is returned when a quote or commit targets a
// missing or deactivated catalog item.
var ErrItemNotBookable = errors.New("item is not bookable")

// ErrQuoteNotFound is returned when an order line references a quote
// that is no longer in the cache.
var ErrQuoteNotFound = errors.New("quote not found")

// OrderLine is one bookable line of an order status notification.
type OrderLine struct {
	ItemID     int64  `json:"item_id"`
	CustomerID *int64 `json:"customer_id,omitempty"`
	QuoteID    string `json:"quote_id"`
}

// DayAvailability is one date of an availability preview.
type DayAvailability struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
}

// BookingService is the lifecycle coordinator.
type BookingService struct {
	repo      Repository
	avail     AvailabilityIndex
	quotes    QuoteCache
	parser    *booking.Parser
	pricer    *booking.Pricer
	bus       EventPublisher
	metrics   Recorder
	committed map[string]bool
	released  map[string]bool
	logger    *zerolog.Logger
}

// NewBookingService wires the coordinator. committedStatuses and
// releasedStatuses are the order status sets that trigger Commit and
// ReleaseForOrder respectively.
func NewBookingService(
	repo Repository,
	avail AvailabilityIndex,
	quotes QuoteCache,
	parser *booking.Parser,
	pricer *booking.Pricer,
	bus EventPublisher,
	metrics Recorder,
	committedStatuses, releasedStatuses []string,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		repo:      repo,
		avail:     avail,
		quotes:    quotes,
		parser:    parser,
		pricer:    pricer,
		bus:       bus,
		metrics:   metrics,
		committed: statusSet(committedStatuses),
		released:  statusSet(releasedStatuses),
		logger:    logger,
	}
}

func statusSet(statuses []string) map[string]bool {
	set := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return set
}

// ValidateAndQuote parses the raw booking fields, checks availability
// against both stored reservations and the intervals already held in
// the caller's cart, prices the interval and returns a Quote. The quote
// is cached so checkout can re-supply it unchanged.
func (s *BookingService) ValidateAndQuote(ctx context.Context, itemID int64, raw booking.RawInput, cartHeld []models.BookingInterval) (*models.Quote, error) {
	started := time.Now()

	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("item %d: %w", itemID, ErrItemNotBookable)
		}
		return nil, fmt.Errorf("load item %d: %w", itemID, err)
	}
	if !item.IsActive {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrItemNotBookable)
	}

	kind := item.Kind
	if raw.BookingType != "" {
		kind = models.BookingKind(raw.BookingType)
	}

	interval, err := s.parser.Parse(item, kind, raw)
	if err != nil {
		s.metrics.IncQuote("invalid", string(kind))
		return nil, err
	}

	// Intervals already in the cart count toward the concurrency limit
	// even though nothing is persisted for them yet.
	if held := overlappingCount(cartHeld, interval); held+1 > item.ConcurrencyLimit() {
		s.metrics.IncQuote("conflict", string(kind))
		s.metrics.IncConflict(booking.ConflictOverlap)
		return nil, booking.NewOverlapConflict(item.ID)
	}

	ok, err := s.avail.IsAvailable(ctx, item, interval, 0)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if !ok {
		s.metrics.IncQuote("conflict", string(kind))
		s.metrics.IncConflict(booking.ConflictOverlap)
		return nil, booking.NewOverlapConflict(item.ID)
	}

	quote := &models.Quote{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		Interval:  interval,
		Price:     s.pricer.Price(item, interval),
		CreatedAt: time.Now(),
	}

	if s.quotes != nil {
		if err := s.quotes.Put(ctx, quote); err != nil {
			// The quote is still usable when supplied back by the caller.
			s.logger.Warn().Err(err).Str("quote_id", quote.ID).Msg("failed to cache quote")
		}
	}

	s.metrics.IncQuote("ok", string(kind))
	s.metrics.ObserveQuoteDuration(time.Since(started).Seconds())
	return quote, nil
}

// Commit turns a quote into a reserved reservation for an order line.
// It is idempotent per (order_id, item_id): a repeated commit with the
// same terms returns the existing reservation, a repeated commit with
// changed terms re-checks availability and rewrites interval and price.
func (s *BookingService) Commit(ctx context.Context, orderID, itemID int64, customerID *int64, quote *models.Quote) (*models.Reservation, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("item %d: %w", itemID, ErrItemNotBookable)
		}
		return nil, fmt.Errorf("load item %d: %w", itemID, err)
	}

	existing, err := s.repo.GetReservationByOrderItem(ctx, orderID, itemID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("load reservation for order %d item %d: %w", orderID, itemID, err)
	}

	// Terminal history stays untouched; a fresh reservation is created.
	if existing != nil && !models.IsTerminal(existing.Status) {
		return s.recommit(ctx, item, existing, quote)
	}

	r := &models.Reservation{
		ItemID:       item.ID,
		OrderID:      orderID,
		CustomerID:   customerID,
		Interval:     quote.Interval,
		PriceCharged: quote.Price,
	}

	started := time.Now()
	err = s.avail.Reserve(ctx, item, r)
	s.metrics.ObserveReserveDuration(time.Since(started).Seconds())
	if err != nil {
		if ce, ok := booking.IsConflict(err); ok {
			s.metrics.IncConflict(ce.Reason)
			s.publish(events.TypeReservationConflict, r)
		}
		return nil, err
	}

	s.metrics.IncReservation(models.StatusReserved)
	s.metrics.IncActive()
	s.publish(events.TypeReservationReserved, r)
	s.logger.Info().
		Int64("reservation_id", r.ID).
		Int64("order_id", orderID).
		Int64("item_id", item.ID).
		Str("label", r.Interval.Label).
		Msg("reservation committed")
	return r, nil
}

// recommit handles a repeated commit for an order line that already
// holds a live reservation.
func (s *BookingService) recommit(ctx context.Context, item *models.BookableItem, existing *models.Reservation, quote *models.Quote) (*models.Reservation, error) {
	if !sameTerms(existing, quote) {
		ok, err := s.avail.IsAvailable(ctx, item, quote.Interval, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("check availability: %w", err)
		}
		if !ok {
			s.metrics.IncConflict(booking.ConflictOverlap)
			return nil, booking.NewOverlapConflict(item.ID)
		}
		existing.Interval = quote.Interval
		existing.PriceCharged = quote.Price
		if err := s.repo.UpdateReservationTerms(ctx, existing); err != nil {
			return nil, fmt.Errorf("update reservation %d: %w", existing.ID, err)
		}
	}

	if existing.Status != models.StatusReserved {
		started := time.Now()
		err := s.avail.Reserve(ctx, item, existing)
		s.metrics.ObserveReserveDuration(time.Since(started).Seconds())
		if err != nil {
			if ce, ok := booking.IsConflict(err); ok {
				s.metrics.IncConflict(ce.Reason)
			}
			return nil, err
		}
		s.metrics.IncReservation(models.StatusReserved)
		s.metrics.IncActive()
		s.publish(events.TypeReservationReserved, existing)
	}
	return existing, nil
}

// ReleaseForOrder releases every live reservation belonging to an
// order. Calling it for an order with no live reservations is a no-op,
// so webhook redeliveries are harmless.
func (s *BookingService) ReleaseForOrder(ctx context.Context, orderID int64) error {
	reservations, err := s.repo.GetReservationsByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load reservations for order %d: %w", orderID, err)
	}

	for i := range reservations {
		r := &reservations[i]
		if models.IsTerminal(r.Status) {
			continue
		}
		if err := s.avail.Release(ctx, r.ID); err != nil {
			return fmt.Errorf("release reservation %d: %w", r.ID, err)
		}
		r.Status = models.StatusReleased
		s.metrics.IncReservation(models.StatusReleased)
		s.metrics.DecActive()
		s.publish(events.TypeReservationReleased, r)
		s.logger.Info().
			Int64("reservation_id", r.ID).
			Int64("order_id", orderID).
			Msg("reservation released")
	}
	return nil
}

// OrderStatusChanged maps an order status notification onto the
// lifecycle: committed statuses reserve every line, released statuses
// free the whole order, anything else is ignored.
func (s *BookingService) OrderStatusChanged(ctx context.Context, orderID int64, status string, lines []OrderLine) error {
	switch {
	case s.committed[status]:
		for _, line := range lines {
			quote, err := s.lookupQuote(ctx, line.QuoteID)
			if errors.Is(err, ErrQuoteNotFound) {
				// Webhook redeliveries can outlive the quote TTL. A line
				// whose reservation is already live re-commits against the
				// persisted terms instead of the quote.
				quote, err = s.quoteFromReservation(ctx, orderID, line.ItemID)
			}
			if err != nil {
				return fmt.Errorf("order %d item %d: %w", orderID, line.ItemID, err)
			}
			if _, err := s.Commit(ctx, orderID, line.ItemID, line.CustomerID, quote); err != nil {
				return fmt.Errorf("commit order %d item %d: %w", orderID, line.ItemID, err)
			}
			s.dropQuote(ctx, line.QuoteID)
		}
		return nil
	case s.released[status]:
		return s.ReleaseForOrder(ctx, orderID)
	default:
		s.logger.Debug().Int64("order_id", orderID).Str("status", status).
			Msg("order status does not affect reservations")
		return nil
	}
}

// DailyAvailability previews availability per calendar day in
// [start, end]. The read is best-effort: a day shown available can
// still conflict at commit time.
func (s *BookingService) DailyAvailability(ctx context.Context, itemID int64, start, end time.Time) ([]DayAvailability, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("item %d: %w", itemID, ErrItemNotBookable)
		}
		return nil, fmt.Errorf("load item %d: %w", itemID, err)
	}

	var out []DayAvailability
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		interval := models.BookingInterval{Start: dayStart, End: dayStart.Add(24 * time.Hour)}
		ok, err := s.avail.IsAvailable(ctx, item, interval, 0)
		if err != nil {
			return nil, fmt.Errorf("check availability: %w", err)
		}
		out = append(out, DayAvailability{Date: dayStart.Format("2006-01-02"), Available: ok})
	}
	return out, nil
}

func (s *BookingService) lookupQuote(ctx context.Context, quoteID string) (*models.Quote, error) {
	if s.quotes == nil || quoteID == "" {
		return nil, ErrQuoteNotFound
	}
	quote, err := s.quotes.Get(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("lookup quote %s: %w", quoteID, err)
	}
	if quote == nil {
		return nil, ErrQuoteNotFound
	}
	return quote, nil
}

// quoteFromReservation rebuilds commit terms from an order line's live
// reservation. The persisted row carries the agreed interval and price,
// so a redelivered notification needs no cache entry to stay idempotent.
func (s *BookingService) quoteFromReservation(ctx context.Context, orderID, itemID int64) (*models.Quote, error) {
	existing, err := s.repo.GetReservationByOrderItem(ctx, orderID, itemID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("load reservation for order %d item %d: %w", orderID, itemID, err)
	}
	if models.IsTerminal(existing.Status) {
		return nil, ErrQuoteNotFound
	}
	return &models.Quote{
		ItemID:   itemID,
		Interval: existing.Interval,
		Price:    existing.PriceCharged,
	}, nil
}

// dropQuote removes a consumed quote from the cache. Best effort: a
// leftover entry simply expires with its TTL.
func (s *BookingService) dropQuote(ctx context.Context, quoteID string) {
	if s.quotes == nil || quoteID == "" {
		return
	}
	if err := s.quotes.Delete(ctx, quoteID); err != nil {
		s.logger.Warn().Err(err).Str("quote_id", quoteID).Msg("failed to drop consumed quote")
	}
}

func (s *BookingService) publish(eventType string, r *models.Reservation) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, r); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func sameTerms(r *models.Reservation, quote *models.Quote) bool {
	return r.Interval.Start.Equal(quote.Interval.Start) &&
		r.Interval.End.Equal(quote.Interval.End) &&
		r.PriceCharged == quote.Price
}

func overlappingCount(held []models.BookingInterval, candidate models.BookingInterval) int {
	n := 0
	for _, iv := range held {
		if iv.Overlaps(candidate) {
			n++
		}
	}
	return n
}
