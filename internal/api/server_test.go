package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reginald-chapple/gembook/internal/booking"
	"github.com/reginald-chapple/gembook/internal/models"
	"github.com/reginald-chapple/gembook/internal/service"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) ValidateAndQuote(ctx context.Context, itemID int64, raw booking.RawInput, cartHeld []models.BookingInterval) (*models.Quote, error) {
	args := m.Called(ctx, itemID, raw, cartHeld)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}

func (m *mockService) OrderStatusChanged(ctx context.Context, orderID int64, status string, lines []service.OrderLine) error {
	return m.Called(ctx, orderID, status, lines).Error(0)
}

func (m *mockService) DailyAvailability(ctx context.Context, itemID int64, start, end time.Time) ([]service.DayAvailability, error) {
	args := m.Called(ctx, itemID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.DayAvailability), args.Error(1)
}

type mockExporter struct {
	mock.Mock
}

func (m *mockExporter) ReservationsWorkbook(ctx context.Context, start, end time.Time) ([]byte, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func testServer(svc BookingService, exporter ReportExporter) *HTTPServer {
	logger := zerolog.New(io.Discard)
	return NewHTTPServer(":0", svc, exporter, 100, 100, time.UTC, &logger)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleQuote(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(mockService)
		srv := testServer(svc, nil)

		quote := &models.Quote{ID: "q-1", ItemID: 1, Price: 40}
		svc.On("ValidateAndQuote", mock.Anything, int64(1), mock.Anything, mock.Anything).Return(quote, nil).Once()

		rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/bookings/quote", QuoteRequest{
			ItemID:    1,
			StartDate: "2025-07-14",
			StartTime: "09:00",
			EndTime:   "10:40",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var got models.Quote
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "q-1", got.ID)
		assert.Equal(t, 40.0, got.Price)
	})

	t.Run("ValidationError", func(t *testing.T) {
		svc := new(mockService)
		srv := testServer(svc, nil)
		svc.On("ValidateAndQuote", mock.Anything, int64(1), mock.Anything, mock.Anything).
			Return(nil, &booking.ValidationError{Code: booking.CodeMalformedInput, Field: "start_date", Msg: "date is required"}).Once()

		rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/bookings/quote", QuoteRequest{ItemID: 1})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, booking.CodeMalformedInput, payload["code"])
		assert.Equal(t, "start_date", payload["field"])
	})

	t.Run("Conflict", func(t *testing.T) {
		svc := new(mockService)
		srv := testServer(svc, nil)
		svc.On("ValidateAndQuote", mock.Anything, int64(1), mock.Anything, mock.Anything).
			Return(nil, booking.NewOverlapConflict(1)).Once()

		rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/bookings/quote", QuoteRequest{ItemID: 1, StartDate: "2025-07-14"})
		require.Equal(t, http.StatusConflict, rec.Code)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, booking.ConflictOverlap, payload["reason"])
	})

	t.Run("UnknownItem", func(t *testing.T) {
		svc := new(mockService)
		srv := testServer(svc, nil)
		svc.On("ValidateAndQuote", mock.Anything, int64(9), mock.Anything, mock.Anything).
			Return(nil, service.ErrItemNotBookable).Once()

		rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/bookings/quote", QuoteRequest{ItemID: 9, StartDate: "2025-07-14"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("MissingItemID", func(t *testing.T) {
		svc := new(mockService)
		srv := testServer(svc, nil)
		rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/bookings/quote", QuoteRequest{StartDate: "2025-07-14"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		svc := new(mockService)
		srv := testServer(svc, nil)
		rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/bookings/quote", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleOrderStatus(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(mockService)
		srv := testServer(svc, nil)
		lines := []service.OrderLine{{ItemID: 1, QuoteID: "q-1"}}
		svc.On("OrderStatusChanged", mock.Anything, int64(500), "processing", lines).Return(nil).Once()

		rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/orders/status", OrderStatusRequest{
			OrderID: 500,
			Status:  "processing",
			Lines:   lines,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("MissingFields", func(t *testing.T) {
		svc := new(mockService)
		srv := testServer(svc, nil)
		rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/orders/status", OrderStatusRequest{OrderID: 500})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ExpiredQuote", func(t *testing.T) {
		svc := new(mockService)
		srv := testServer(svc, nil)
		svc.On("OrderStatusChanged", mock.Anything, int64(500), "processing", mock.Anything).
			Return(service.ErrQuoteNotFound).Once()

		rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/orders/status", OrderStatusRequest{
			OrderID: 500,
			Status:  "processing",
			Lines:   []service.OrderLine{{ItemID: 1, QuoteID: "gone"}},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestHandleItemAvailability(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(mockService)
		srv := testServer(svc, nil)
		days := []service.DayAvailability{
			{Date: "2025-07-14", Available: true},
			{Date: "2025-07-15", Available: false},
		}
		svc.On("DailyAvailability", mock.Anything, int64(7), mock.Anything, mock.Anything).Return(days, nil).Once()

		rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/items/7/availability?start=2025-07-14&end=2025-07-15", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var payload struct {
			ItemID       int64                     `json:"item_id"`
			Availability []service.DayAvailability `json:"availability"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, int64(7), payload.ItemID)
		assert.Len(t, payload.Availability, 2)
	})

	t.Run("BadPath", func(t *testing.T) {
		svc := new(mockService)
		srv := testServer(svc, nil)
		rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/items/not-a-number/availability?start=2025-07-14&end=2025-07-15", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("RangeTooLarge", func(t *testing.T) {
		svc := new(mockService)
		srv := testServer(svc, nil)
		rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/items/7/availability?start=2025-01-01&end=2025-12-31", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("DatesParsedInStoreTimezone", func(t *testing.T) {
		loc, err := time.LoadLocation("Europe/Madrid")
		require.NoError(t, err)
		svc := new(mockService)
		logger := zerolog.New(io.Discard)
		srv := NewHTTPServer(":0", svc, nil, 100, 100, loc, &logger)

		var gotStart time.Time
		days := []service.DayAvailability{{Date: "2025-07-14", Available: true}}
		svc.On("DailyAvailability", mock.Anything, int64(7), mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { gotStart = args.Get(2).(time.Time) }).
			Return(days, nil).Once()

		rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/items/7/availability?start=2025-07-14&end=2025-07-14", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		// Store-local midnight, not UTC midnight: stored reservations
		// carry the store offset and compare against these instants.
		assert.True(t, gotStart.Equal(time.Date(2025, 7, 14, 0, 0, 0, 0, loc)))
	})
}

func TestHandleExport(t *testing.T) {
	svc := new(mockService)
	exporter := new(mockExporter)
	srv := testServer(svc, exporter)

	exporter.On("ReservationsWorkbook", mock.Anything, mock.Anything, mock.Anything).
		Return([]byte("workbook-bytes"), nil).Once()

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/reservations/export?start=2025-07-01&end=2025-07-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reservations_20250701_20250731.xlsx")
	assert.Equal(t, "workbook-bytes", rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	svc := new(mockService)
	logger := zerolog.New(io.Discard)
	srv := NewHTTPServer(":0", svc, nil, 1, 1, time.UTC, &logger)

	days := []service.DayAvailability{{Date: "2025-07-14", Available: true}}
	svc.On("DailyAvailability", mock.Anything, int64(7), mock.Anything, mock.Anything).Return(days, nil)

	first := doJSON(t, srv.Handler(), http.MethodGet, "/api/items/7/availability?start=2025-07-14&end=2025-07-14", nil)
	second := doJSON(t, srv.Handler(), http.MethodGet, "/api/items/7/availability?start=2025-07-14&end=2025-07-14", nil)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
