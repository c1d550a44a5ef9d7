package scraper

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"hunter-backend/models"
	"hunter-backend/services"
	"hunter-backend/utils"
)

// Candidate is one item discovered on a list page. URL is its identity:
// either a real detail URL, or a hash-fragment URL for list-only sources
// that pre-extract their fields into Raw.
type Candidate struct {
	URL string
	Raw *models.RawFields
}

// SourceConfig describes how to crawl one site. ParseDetail may be nil for
// sources whose list pages carry all the fields (Raw set on candidates).
type SourceConfig struct {
	Name        models.Source
	MaxPages    int
	MaxListings int // 0 = no cap
	DaysBack    int // 0 = no auction-date cutoff

	ListPageURL   func(page int) string // page is 1-based
	ParseListPage func(doc *goquery.Document) []Candidate
	ParseDetail   func(doc *goquery.Document, url string) models.RawFields
}

// Crawler drives pagination for one source: fetch list page, extract
// candidates, dedup, fetch details, normalize, accumulate. It stops on an
// empty page, the page cap, the listing cap, or the auction-date cutoff.
type Crawler struct {
	cfg        SourceConfig
	fetch      Fetcher
	normalizer *services.Normalizer
	logger     *utils.Logger
	now        func() time.Time
}

// NewCrawler creates a Crawler for the given source.
func NewCrawler(cfg SourceConfig, fetch Fetcher, normalizer *services.Normalizer, logger *utils.Logger) *Crawler {
	return &Crawler{
		cfg:        cfg,
		fetch:      fetch,
		normalizer: normalizer,
		logger:     logger.WithTag(string(cfg.Name)),
		now:        time.Now,
	}
}

// Run crawls the source and returns the accumulated listings. A list-page
// failure ends the crawl early but keeps what was already collected;
// per-item failures only skip that item.
func (c *Crawler) Run() ([]*models.Listing, error) {
	var cutoff time.Time
	if c.cfg.DaysBack > 0 {
		// Relies on the source listing newest-first; see stop below.
		cutoff = c.now().UTC().AddDate(0, 0, -c.cfg.DaysBack)
	}

	var results []*models.Listing
	seen := utils.NewURLSet()

	for page := 1; page <= c.cfg.MaxPages; page++ {
		listURL := c.cfg.ListPageURL(page)
		html, err := c.fetch.Fetch(listURL)
		if err != nil {
			c.logger.Error("List page %d failed: %v", page, err)
			return results, nil
		}
		doc, err := NewDocument(html)
		if err != nil {
			c.logger.Error("List page %d unparseable: %v", page, err)
			return results, nil
		}

		candidates := c.cfg.ParseListPage(doc)
		if len(candidates) == 0 {
			c.logger.Debug("Page %d empty — crawl done", page)
			break
		}
		c.logger.Info("Page %d: %d candidates", page, len(candidates))

		for _, cand := range candidates {
			if cand.URL == "" || !seen.Add(cand.URL) {
				continue
			}

			raw, ok := c.rawFields(cand)
			if !ok {
				continue
			}

			listing, ok := c.normalizer.Normalize(raw, c.cfg.Name)
			if !ok {
				continue
			}

			if !cutoff.IsZero() && listing.AuctionDate != nil && listing.AuctionDate.UTC().Before(cutoff) {
				c.logger.Warn("Auction date %s older than cutoff %s — stopping crawl",
					listing.AuctionDate.Format("2006-01-02"), cutoff.Format("2006-01-02"))
				return results, nil
			}

			results = append(results, listing)

			if c.cfg.MaxListings > 0 && len(results) >= c.cfg.MaxListings {
				c.logger.Info("Listing cap %d reached — stopping crawl", c.cfg.MaxListings)
				return results, nil
			}
		}
	}

	return results, nil
}

// rawFields resolves a candidate into extractor output, fetching the detail
// page when the source requires one.
func (c *Crawler) rawFields(cand Candidate) (models.RawFields, bool) {
	if cand.Raw != nil {
		raw := *cand.Raw
		raw.SourceURL = cand.URL
		return raw, true
	}
	if c.cfg.ParseDetail == nil {
		c.logger.Warn("Candidate %s has no raw fields and no detail parser", cand.URL)
		return models.RawFields{}, false
	}

	html, err := c.fetch.Fetch(cand.URL)
	if err != nil {
		c.logger.Warn("Skip listing %s: %v", cand.URL, err)
		return models.RawFields{}, false
	}
	doc, err := NewDocument(html)
	if err != nil {
		c.logger.Warn("Skip listing %s: unparseable: %v", cand.URL, err)
		return models.RawFields{}, false
	}

	raw := c.cfg.ParseDetail(doc, cand.URL)
	raw.SourceURL = cand.URL
	return raw, true
}

// HashIdentity builds a stable fallback identity for list-only sources with
// no per-item URL: a short content hash over (title, price, auction date)
// attached as a fragment to a canonical base URL. Re-scraping an unchanged
// listing yields the same URL; any change to those fields mints a new one.
func HashIdentity(baseURL, title string, pricePLN *int64, auctionDate *time.Time) string {
	var price int64
	if pricePLN != nil {
		price = *pricePLN
	}
	date := ""
	if auctionDate != nil {
		date = auctionDate.Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", title, price, date)))
	return fmt.Sprintf("%s#%x", baseURL, sum[:8])
}

// ResolveImages resolves image srcs against the page URL and keeps only
// those whose path plausibly denotes an uploaded photo asset.
func ResolveImages(pageURL string, srcs []string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var out []string
	for _, src := range srcs {
		if strings.TrimSpace(src) == "" {
			continue
		}
		ref, err := url.Parse(src)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref).String()
		lower := strings.ToLower(abs)
		if strings.Contains(lower, "upload") || strings.Contains(lower, "image") || strings.Contains(lower, "photo") {
			out = append(out, abs)
		}
	}
	return out
}

// AbsoluteURL resolves href against the page base.
func AbsoluteURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

// TrimQuery drops the query string and fragment so tracking parameters do
// not split one listing into several identities.
func TrimQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}
