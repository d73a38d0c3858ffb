// Package report writes the results of an ALPR run as CSV, a text summary
// and charts.
package report

import (
	"encoding/csv"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/swdee/go-alpr"
)

// CSVHeader is the column header of the results CSV file
var CSVHeader = []string{
	"frame_number", "vehicle_id", "vehicle_bbox", "plate_text", "plate_bbox",
	"confidence", "timestamp",
}

// CSVWriter writes results as CSV rows
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSVWriter returns a CSVWriter that writes to w, the header is written
// immediately
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {

	cw := &CSVWriter{
		w: csv.NewWriter(w),
	}

	if err := cw.w.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("error writing CSV header: %w", err)
	}

	return cw, nil
}

// CreateCSV creates the CSV file at path and writes the header
func CreateCSV(path string) (*CSVWriter, error) {

	f, err := os.Create(path)

	if err != nil {
		return nil, fmt.Errorf("error creating CSV file: %w", err)
	}

	cw, err := NewCSVWriter(f)

	if err != nil {
		f.Close()
		return nil, err
	}

	cw.closer = f

	return cw, nil
}

// Write the results as rows
func (c *CSVWriter) Write(results []alpr.Result) error {

	for _, res := range results {
		row := []string{
			strconv.Itoa(res.FrameNumber),
			strconv.Itoa(res.VehicleID),
			FormatRect(res.VehicleBox),
			res.PlateText,
			FormatRect(res.PlateBox),
			strconv.FormatFloat(res.Confidence, 'f', 4, 64),
			res.Timestamp.Format(time.RFC3339Nano),
		}

		if err := c.w.Write(row); err != nil {
			return fmt.Errorf("error writing CSV row: %w", err)
		}
	}

	return nil
}

// Flush writes any buffered rows
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// Close flushes the rows and closes the underlying file if the writer was
// created with CreateCSV
func (c *CSVWriter) Close() error {

	if err := c.Flush(); err != nil {
		return err
	}

	if c.closer != nil {
		return c.closer.Close()
	}

	return nil
}

// FormatRect formats a rectangle as "x1 y1 x2 y2"
func FormatRect(r image.Rectangle) string {
	return fmt.Sprintf("%d %d %d %d", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}
