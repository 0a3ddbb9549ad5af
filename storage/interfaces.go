package storage

import (
	"context"
	"time"

	"powersearch/models"
)

// SearchLogEntry is one row of the search audit log.
type SearchLogEntry struct {
	RequestID    string
	Query        string
	Rewritten    string
	Region       string
	Sort         string
	Page         int
	Limit        int
	TotalResults int
	SitesOK      int
	SitesQueried int
	ElapsedMs    int64
	Error        string
	CreatedAt    time.Time
}

// SearchLogWriter is the interface any search log backend must satisfy.
type SearchLogWriter interface {
	Record(ctx context.Context, entry SearchLogEntry) error
	Close() error
}

// RawListingWriter is the interface for exporting unprocessed scraped data.
type RawListingWriter interface {
	WriteRaw(listings []models.Listing) error
	Close() error
}
