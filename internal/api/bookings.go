package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/reginald-chapple/gembook/internal/booking"
	"github.com/reginald-chapple/gembook/internal/models"
	"github.com/reginald-chapple/gembook/internal/service"
)

// MaxAvailabilityDaysRange bounds the availability preview window.
const MaxAvailabilityDaysRange = 90

// CartInterval is an interval the caller's cart already holds for the
// same item, counted against the concurrency limit when quoting.
type CartInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// QuoteRequest is the request body for POST /api/bookings/quote.
type QuoteRequest struct {
	ItemID      int64          `json:"item_id"`
	BookingType string         `json:"booking_type,omitempty"`
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date,omitempty"`
	StartTime   string         `json:"start_time,omitempty"`
	EndTime     string         `json:"end_time,omitempty"`
	CartHeld    []CartInterval `json:"cart_held,omitempty"`
}

// OrderStatusRequest is the request body for POST /api/orders/status.
type OrderStatusRequest struct {
	OrderID int64               `json:"order_id"`
	Status  string              `json:"status"`
	Lines   []service.OrderLine `json:"lines,omitempty"`
}

// handleQuote validates and prices a booking request.
// POST /api/bookings/quote
func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req QuoteRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ItemID <= 0 {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	held := make([]models.BookingInterval, 0, len(req.CartHeld))
	for _, iv := range req.CartHeld {
		held = append(held, models.BookingInterval{Start: iv.Start, End: iv.End})
	}

	quote, err := s.svc.ValidateAndQuote(r.Context(), req.ItemID, booking.RawInput{
		BookingType: req.BookingType,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}, held)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// handleOrderStatus applies an order status notification to the
// reservation lifecycle. Safe to redeliver.
// POST /api/orders/status
func (s *HTTPServer) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req OrderStatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.OrderID <= 0 || req.Status == "" {
		writeError(w, http.StatusBadRequest, "order_id and status are required")
		return
	}

	if err := s.svc.OrderStatusChanged(r.Context(), req.OrderID, req.Status, req.Lines); err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleItemAvailability returns a per-date availability preview.
// GET /api/items/{id}/availability?start=YYYY-MM-DD&end=YYYY-MM-DD
func (s *HTTPServer) handleItemAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	itemID, ok := parseItemPath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid path; expected /api/items/{id}/availability")
		return
	}

	start, end, err := parseDateRange(s.loc, r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	days, err := s.svc.DailyAvailability(r.Context(), itemID, start, end)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := map[string]any{
		"item_id":      itemID,
		"availability": days,
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExport streams the reservations workbook.
// GET /api/reservations/export?start=YYYY-MM-DD&end=YYYY-MM-DD
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}

	start, end, err := parseDateRange(s.loc, r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.exporter.ReservationsWorkbook(r.Context(), start, end.AddDate(0, 0, 1))
	if err != nil {
		s.log.Error().Err(err).Msg("failed to build reservations export")
		writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	filename := "reservations_" + start.Format("20060102") + "_" + end.Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// parseItemPath extracts the item ID from /api/items/{id}/availability.
func parseItemPath(path string) (int64, bool) {
	const prefix = "/api/items/"
	const suffix = "/availability"
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return 0, false
	}
	idStr := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseDateRange reads the start/end query parameters in the store
// location so the resulting instants line up with stored reservations.
func parseDateRange(loc *time.Location, startStr, endStr string) (start, end time.Time, err error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, errParam("start and end are required")
	}
	start, err = time.ParseInLocation("2006-01-02", startStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, errParam("invalid start; expected YYYY-MM-DD")
	}
	end, err = time.ParseInLocation("2006-01-02", endStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, errParam("invalid end; expected YYYY-MM-DD")
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, errParam("start must be before or equal to end")
	}
	if int(end.Sub(start).Hours()/24) > MaxAvailabilityDaysRange {
		return time.Time{}, time.Time{}, errParam("date range exceeds maximum of 90 days")
	}
	return start, end, nil
}

type errParam string

func (e errParam) Error() string { return string(e) }
