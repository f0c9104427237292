package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"review-monitor/models"
)

// CSVWriter exports the reviews of a snapshot, one row per review.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	// Write header
	if err := w.Write([]string{
		"business_id", "business_name", "reviewer_name", "rating", "date", "text", "owner_response", "scraped_at",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteSnapshot writes every review of snap. Businesses that failed are
// skipped; they have no reviews.
func (c *CSVWriter) WriteSnapshot(snap *models.Snapshot) (int, error) {
	if snap == nil {
		return 0, nil
	}

	rows := 0
	for _, b := range snap.Businesses {
		for _, r := range b.Reviews {
			row := []string{
				strconv.FormatInt(b.BusinessID, 10),
				b.Name,
				optString(r.ReviewerName),
				optInt(r.Rating),
				optString(r.Date),
				r.Text,
				optString(r.OwnerResponse),
				b.ScrapedAt.Format(time.RFC3339),
			}
			if err := c.writer.Write(row); err != nil {
				return rows, fmt.Errorf("csv: write row: %w", err)
			}
			rows++
		}
	}

	c.writer.Flush()
	return rows, c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
