package storage

import "hunter-backend/models"

// Store is the persistence interface the run coordinator depends on.
type Store interface {
	// UpsertListings inserts or refreshes listings keyed by source_url and
	// returns how many rows were written.
	UpsertListings(listings []*models.Listing) (int, error)
	// InsertRunRecord appends one crawl-run outcome to the run log.
	InsertRunRecord(rec *models.RunRecord) error
	// ArchiveStale marks listings of the source that have not been seen for
	// the last afterRuns successful runs as removed. Returns rows archived.
	ArchiveStale(source models.Source, afterRuns int) (int64, error)
	Close() error
}

// ListingWriter is the narrow interface for dry-run artifact writers.
type ListingWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}
