package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"

	"powersearch/models"
)

var csvHeader = []string{
	"site", "id", "title", "price", "currency", "original_price", "discount_percentage",
	"rating", "review_count", "free_shipping", "in_stock", "url", "image",
}

// CSVWriter writes raw (unreconciled) listings to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, eris.Wrap(err, "csv: create output dir")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: create file %q", path)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, eris.Wrap(err, "csv: write header")
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends one row per listing.
func (c *CSVWriter) WriteRaw(listings []models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		if err := c.writer.Write(listingRow(l)); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func listingRow(l models.Listing) []string {
	return []string{
		l.Site,
		l.ID,
		l.Title,
		formatFloat(l.Price),
		l.Currency,
		formatFloat(l.OriginalPrice),
		formatFloat(l.DiscountPercentage),
		formatFloat(l.Rating),
		formatInt(l.ReviewCount),
		strconv.FormatBool(l.FreeShipping),
		strconv.FormatBool(l.InStock),
		l.URL,
		l.Image,
	}
}

func formatFloat(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func formatInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
