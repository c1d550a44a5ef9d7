package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"hunter-backend/models"
	"hunter-backend/utils"
)

// Optional listing columns that older deployments may not have yet. When an
// upsert fails with undefined_column on one of these, the column is dropped
// from the statement and the write retried, so a schema lagging behind the
// code degrades gracefully instead of losing the whole batch.
var optionalColumns = map[string]bool{
	"region":       true,
	"last_seen_at": true,
}

const upsertBatchSize = 50

// PostgresStore persists listings and run records to PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger

	// columns the running database turned out not to have
	missing map[string]bool
}

// NewPostgresStore opens a connection, waits for the database to come up,
// runs schema migrations, and returns a ready-to-use store.
func NewPostgresStore(dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	s := &PostgresStore{db: db, logger: logger, missing: make(map[string]bool)}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id                     SERIAL PRIMARY KEY,
			source                 VARCHAR(32) NOT NULL,
			source_url             TEXT        UNIQUE NOT NULL,
			title                  TEXT        NOT NULL,
			description            TEXT        NOT NULL DEFAULT '',
			price_pln              BIGINT,
			location               TEXT        NOT NULL DEFAULT '',
			city                   TEXT        NOT NULL DEFAULT '',
			region                 TEXT        NOT NULL DEFAULT '',
			auction_date           TIMESTAMPTZ,
			images                 TEXT[]      NOT NULL DEFAULT '{}',
			raw_data               JSONB       NOT NULL DEFAULT '{}',
			created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_seen_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			removed_from_source_at TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_listings_source       ON listings(source);
		CREATE INDEX IF NOT EXISTS idx_listings_city         ON listings(city);
		CREATE INDEX IF NOT EXISTS idx_listings_auction_date ON listings(auction_date);
		CREATE INDEX IF NOT EXISTS idx_listings_price_pln    ON listings(price_pln);

		CREATE TABLE IF NOT EXISTS scrape_runs (
			id                SERIAL PRIMARY KEY,
			source            VARCHAR(32) NOT NULL,
			started_at        TIMESTAMPTZ NOT NULL,
			finished_at       TIMESTAMPTZ NOT NULL,
			listings_found    INT         NOT NULL DEFAULT 0,
			listings_upserted INT         NOT NULL DEFAULT 0,
			status            VARCHAR(16) NOT NULL,
			error_message     TEXT        NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_scrape_runs_source ON scrape_runs(source, started_at DESC);
	`)
	return err
}

// UpsertListings writes listings in batches keyed by source_url. Existing
// rows are refreshed and their last_seen_at stamped; nothing is deleted.
func (s *PostgresStore) UpsertListings(listings []*models.Listing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	written := 0
	for i := 0; i < len(listings); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(listings) {
			end = len(listings)
		}
		n, err := s.upsertBatch(listings[i:end])
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// upsertBatch inserts one batch, retrying with optional columns stripped when
// the database reports them as undefined.
func (s *PostgresStore) upsertBatch(batch []*models.Listing) (int, error) {
	for attempt := 0; attempt <= len(optionalColumns); attempt++ {
		query, args := s.buildUpsert(batch)
		res, err := s.db.Exec(query, args...)
		if err == nil {
			n, _ := res.RowsAffected()
			return int(n), nil
		}

		col, ok := undefinedColumn(err)
		if !ok || !optionalColumns[col] || s.missing[col] {
			return 0, fmt.Errorf("postgres: upsert: %w", err)
		}
		s.missing[col] = true
		s.logger.Warn("Column %q missing in database — retrying upsert without it", col)
	}
	return 0, fmt.Errorf("postgres: upsert: ran out of optional columns to strip")
}

// buildUpsert renders the multi-row INSERT ... ON CONFLICT statement and its
// arguments, honoring the stripped-column set. last_seen_at is the NOW()
// literal rather than a parameter so every conflict refreshes the stamp.
func (s *PostgresStore) buildUpsert(batch []*models.Listing) (string, []interface{}) {
	cols := []string{"source", "source_url", "title", "description", "price_pln",
		"location", "city", "region", "auction_date", "images", "raw_data"}

	kept := cols[:0:0]
	for _, c := range cols {
		if !s.missing[c] {
			kept = append(kept, c)
		}
	}
	withSeen := !s.missing["last_seen_at"]

	rows := make([]string, 0, len(batch))
	args := make([]interface{}, 0, len(batch)*len(kept))
	for _, l := range batch {
		placeholders := make([]string, 0, len(kept)+1)
		for _, c := range kept {
			args = append(args, listingValue(l, c))
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		if withSeen {
			placeholders = append(placeholders, "NOW()")
		}
		rows = append(rows, "("+strings.Join(placeholders, ",")+")")
	}

	insertCols := kept
	if withSeen {
		insertCols = append(append([]string{}, kept...), "last_seen_at")
	}

	updates := make([]string, 0, len(insertCols))
	for _, c := range insertCols {
		if c == "source_url" {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (%s)
		VALUES %s
		ON CONFLICT (source_url) DO UPDATE SET %s
	`, strings.Join(insertCols, ", "), strings.Join(rows, ","), strings.Join(updates, ", "))
	return query, args
}

// listingValue maps one column of one listing to its query argument.
func listingValue(l *models.Listing, col string) interface{} {
	switch col {
	case "source":
		return string(l.Source)
	case "source_url":
		return l.SourceURL
	case "title":
		return l.Title
	case "description":
		return l.Description
	case "price_pln":
		if l.PricePLN == nil {
			return nil
		}
		return *l.PricePLN
	case "location":
		return l.Location
	case "city":
		return l.City
	case "region":
		return l.Region
	case "auction_date":
		if l.AuctionDate == nil {
			return nil
		}
		return l.AuctionDate.UTC()
	case "images":
		return pq.Array(l.Images)
	case "raw_data":
		data, err := json.Marshal(l.RawData)
		if err != nil || l.RawData == nil {
			data = []byte("{}")
		}
		return data
	}
	return nil
}

// undefinedColumn extracts the column name from a 42703 undefined_column
// error.
func undefinedColumn(err error) (string, bool) {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != "42703" {
		return "", false
	}
	// Message shape: column "last_seen_at" of relation "listings" does not exist
	msg := pqErr.Message
	start := strings.Index(msg, `"`)
	if start < 0 {
		return "", false
	}
	rest := msg[start+1:]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// InsertRunRecord appends a crawl-run outcome to scrape_runs.
func (s *PostgresStore) InsertRunRecord(rec *models.RunRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_runs (source, started_at, finished_at, listings_found, listings_upserted, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.Source, rec.StartedAt, rec.FinishedAt, rec.ListingsFound, rec.ListingsUpserted, rec.Status, rec.ErrorMessage)
	if err != nil {
		return fmt.Errorf("postgres: insert run record: %w", err)
	}
	return nil
}

// ArchiveStale marks listings not seen since the Nth most recent successful
// run of the source as removed from the source. Listings keep their row;
// only removed_from_source_at is stamped. Does nothing until the source has
// accumulated afterRuns successful runs.
func (s *PostgresStore) ArchiveStale(source models.Source, afterRuns int) (int64, error) {
	if afterRuns <= 0 {
		return 0, nil
	}
	if s.missing["last_seen_at"] {
		s.logger.Warn("Cannot archive %s listings: last_seen_at column missing", source)
		return 0, nil
	}

	var cutoff time.Time
	err := s.db.QueryRow(`
		SELECT started_at FROM scrape_runs
		WHERE source = $1 AND status = 'success'
		ORDER BY started_at DESC
		OFFSET $2 LIMIT 1
	`, string(source), afterRuns-1).Scan(&cutoff)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: archive cutoff: %w", err)
	}

	res, err := s.db.Exec(`
		UPDATE listings
		SET removed_from_source_at = NOW()
		WHERE source = $1
		  AND removed_from_source_at IS NULL
		  AND last_seen_at < $2
	`, string(source), cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: archive: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
