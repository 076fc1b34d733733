// Package api exposes the booking engine to the storefront: quoting,
// order status notifications, availability previews and reporting.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/reginald-chapple/gembook/internal/booking"
	"github.com/reginald-chapple/gembook/internal/models"
	"github.com/reginald-chapple/gembook/internal/service"
)

// BookingService is the coordinator surface the API depends on.
type BookingService interface {
	ValidateAndQuote(ctx context.Context, itemID int64, raw booking.RawInput, cartHeld []models.BookingInterval) (*models.Quote, error)
	OrderStatusChanged(ctx context.Context, orderID int64, status string, lines []service.OrderLine) error
	DailyAvailability(ctx context.Context, itemID int64, start, end time.Time) ([]service.DayAvailability, error)
}

// ReportExporter renders the reservations workbook.
type ReportExporter interface {
	ReservationsWorkbook(ctx context.Context, start, end time.Time) ([]byte, error)
}

// HTTPServer serves the storefront-facing booking API.
type HTTPServer struct {
	svc      BookingService
	exporter ReportExporter
	limiter  *rate.Limiter
	loc      *time.Location
	log      *zerolog.Logger
	server   *http.Server
}

// NewHTTPServer builds the API server. The rate limiter covers the
// public quoting and availability endpoints. Date query parameters are
// interpreted in loc, the store timezone reservations are recorded in.
func NewHTTPServer(addr string, svc BookingService, exporter ReportExporter, rps float64, burst int, loc *time.Location, logger *zerolog.Logger) *HTTPServer {
	if loc == nil {
		loc = time.UTC
	}
	s := &HTTPServer{
		svc:      svc,
		exporter: exporter,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		loc:      loc,
		log:      logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/bookings/quote", s.withRateLimit(s.handleQuote))
	mux.HandleFunc("/api/orders/status", s.handleOrderStatus)
	mux.HandleFunc("/api/items/", s.withRateLimit(s.handleItemAvailability))
	mux.HandleFunc("/api/reservations/export", s.handleExport)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleHealth)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until the listener fails or is shut down.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// writeDomainError maps typed booking errors onto HTTP statuses with a
// machine-readable payload.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	if ve, ok := booking.IsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": ve.Msg,
			"code":  ve.Code,
			"field": ve.Field,
		})
		return
	}
	if ce, ok := booking.IsConflict(err); ok {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   "booking conflict",
			"reason":  ce.Reason,
			"item_id": ce.ItemID,
		})
		return
	}
	if errors.Is(err, service.ErrItemNotBookable) {
		writeError(w, http.StatusNotFound, "item not found or not bookable")
		return
	}
	if errors.Is(err, service.ErrQuoteNotFound) {
		writeError(w, http.StatusUnprocessableEntity, "quote expired or unknown; re-quote and retry")
		return
	}
	s.log.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}
