package models

import "time"

// Source identifies which site a listing was scraped from.
type Source string

const (
	SourceKomornik   Source = "komornik"
	SourceELicytacje Source = "e_licytacje"
	SourceOLX        Source = "olx"
	SourceOtodom     Source = "otodom"
	SourceGratka     Source = "gratka"
	SourceFacebook   Source = "facebook"
	SourceAMW        Source = "amw"
)

// Field limits applied during normalization.
const (
	MaxTitleLen       = 500
	MaxDescriptionLen = 5000
)

// RawFields is the unprocessed output of a per-source extractor, before any
// parsing or validation. Text fields hold whatever the page said.
type RawFields struct {
	SourceURL    string
	Title        string
	Description  string
	PriceText    string
	LocationText string
	DateText     string
	Region       string
	Images       []string
	Extra        map[string]any // source-specific leftovers, kept for audit
}

// Listing is the normalized record shared by all sources and persisted by
// upsert on SourceURL. PricePLN is in grosze (1/100 PLN); AuctionDate, when
// set, is localized to Europe/Warsaw.
type Listing struct {
	Title       string
	Description string
	PricePLN    *int64
	Location    string
	City        string
	Region      string
	Source      Source
	SourceURL   string
	AuctionDate *time.Time
	Images      []string
	RawData     map[string]any
}

// RunRecord mirrors one row of the scrape_runs audit table.
type RunRecord struct {
	Source           string
	StartedAt        time.Time
	FinishedAt       time.Time
	ListingsFound    int
	ListingsUpserted int
	Status           string // "success" or "error"
	ErrorMessage     string
}
