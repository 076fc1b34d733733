// Package report renders reservation data for operators, currently as
// XLSX workbooks.
package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/reginald-chapple/gembook/internal/models"
)

// ReservationSource provides the rows for the export.
type ReservationSource interface {
	ReservationsBetween(ctx context.Context, start, end time.Time) ([]models.Reservation, error)
}

// Exporter builds XLSX workbooks from reservation history.
type Exporter struct {
	source ReservationSource
	logger *zerolog.Logger
}

func NewExporter(source ReservationSource, logger *zerolog.Logger) *Exporter {
	return &Exporter{source: source, logger: logger}
}

var reservationColumns = []string{
	"ID", "Item", "Order", "Customer", "Start", "End",
	"Units", "Unit kind", "Label", "Price", "Status", "Created",
}

// ReservationsWorkbook renders all reservations overlapping [start, end)
// into a single-sheet workbook.
func (e *Exporter) ReservationsWorkbook(ctx context.Context, start, end time.Time) ([]byte, error) {
	reservations, err := e.source.ReservationsBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}

	w := newSheetWriter()
	defer w.Close()

	if err := w.AddSheet("Reservations"); err != nil {
		return nil, err
	}
	if err := w.WriteHeader(reservationColumns); err != nil {
		return nil, err
	}

	for _, r := range reservations {
		customer := ""
		if r.CustomerID != nil {
			customer = fmt.Sprintf("%d", *r.CustomerID)
		}
		row := []interface{}{
			r.ID,
			r.ItemID,
			r.OrderID,
			customer,
			r.Interval.Start.Format("2006-01-02 15:04"),
			r.Interval.End.Format("2006-01-02 15:04"),
			r.Interval.UnitCount,
			string(r.Interval.UnitKind),
			r.Interval.Label,
			r.PriceCharged,
			r.Status,
			r.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := w.WriteRow(row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := w.Save(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	e.logger.Info().Int("rows", len(reservations)).Msg("reservations workbook built")
	return buf.Bytes(), nil
}

// sheetWriter wraps excelize with a cursor-per-sheet writing model.
type sheetWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func newSheetWriter() *sheetWriter {
	return &sheetWriter{file: excelize.NewFile()}
}

// AddSheet adds a new sheet with the given name.
func (w *sheetWriter) AddSheet(name string) error {
	// Excel caps sheet names at 31 chars
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		w.file.SetSheetName("Sheet1", name)
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes bold column headers to the current sheet.
func (w *sheetWriter) WriteHeader(columns []string) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

// WriteRow writes a data row to the current sheet.
func (w *sheetWriter) WriteRow(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

// Save writes the workbook to wr.
func (w *sheetWriter) Save(wr *bytes.Buffer) error {
	return w.file.Write(wr)
}

// Close releases excelize resources.
func (w *sheetWriter) Close() error {
	return w.file.Close()
}
