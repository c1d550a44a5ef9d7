// Package runner coordinates crawl runs: it wires sources to crawlers,
// persists their output, and records every run's outcome in the run log.
package runner

import (
	"fmt"
	"time"

	"hunter-backend/config"
	"hunter-backend/models"
	"hunter-backend/scraper"
	"hunter-backend/services"
	"hunter-backend/storage"
	"hunter-backend/utils"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of one source's run.
type Result struct {
	Source   models.Source
	Found    int
	Upserted int
	Status   string
	Error    string

	Listings []*models.Listing
}

// Runner executes crawl runs against the configured sources.
type Runner struct {
	cfg        *config.Config
	store      storage.Store
	normalizer *services.Normalizer
	insights   *services.InsightService
	logger     *utils.Logger
	client     scraper.Fetcher
	render     scraper.Fetcher

	now func() time.Time
}

// New creates a Runner. store may be nil only when every run is a dry run.
func New(cfg *config.Config, store storage.Store, logger *utils.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		store:      store,
		normalizer: services.NewNormalizer(logger),
		insights:   services.NewInsightService(logger),
		logger:     logger,
		client:     scraper.NewClient(cfg.RateLimitMs, cfg.MaxRetries, logger),
		now:        time.Now,
	}
}

// Run crawls one source end to end. The returned Result always describes
// what happened; the error is non-nil only for failures the caller cannot
// interpret from the Result alone (unknown source, storage unavailable).
func (r *Runner) Run(source models.Source, dryRun bool) (*Result, error) {
	crawl, err := r.crawlFunc(source)
	if err != nil {
		return nil, err
	}
	return r.execute(source, crawl, dryRun)
}

// RunAll crawls every active source sequentially and prints the summary
// report. A failing source does not stop the others.
func (r *Runner) RunAll(dryRun bool) ([]*Result, error) {
	sources := r.ActiveSources()
	r.logger.Info("Starting run over %d sources: %v", len(sources), sources)

	var results []*Result
	var all []*models.Listing
	for _, source := range sources {
		res, err := r.Run(source, dryRun)
		if err != nil {
			r.logger.Error("Source %s could not run: %v", source, err)
			results = append(results, &Result{Source: source, Status: StatusError, Error: err.Error()})
			continue
		}
		results = append(results, res)
		all = append(all, res.Listings...)
	}

	r.insights.Print(r.insights.Generate(all))
	return results, nil
}

// PersistBatch stores already-normalized listings, applying the same
// error-page guard and run logging as a crawl. The webhook ingest path goes
// through here.
func (r *Runner) PersistBatch(source models.Source, listings []*models.Listing) (*Result, error) {
	if r.store == nil {
		return nil, fmt.Errorf("no store configured")
	}
	startedAt := r.now()
	res := r.persist(source, startedAt, listings)
	return res, nil
}

// Archive marks the source's stale listings as removed from the source.
func (r *Runner) Archive(source models.Source) (int64, error) {
	if r.store == nil {
		return 0, fmt.Errorf("no store configured")
	}
	n, err := r.store.ArchiveStale(source, r.cfg.ArchiveAfterRuns)
	if err != nil {
		return 0, fmt.Errorf("archive %s: %w", source, err)
	}
	if n > 0 {
		r.logger.Info("[%s] Archived %d stale listings", source, n)
	}
	return n, nil
}

// ActiveSources returns the sources a full run covers: SCRAPE_SOURCES when
// set, otherwise the default auction trio. Facebook is excluded — its data
// arrives through the Apify webhook, not by crawling.
func (r *Runner) ActiveSources() []models.Source {
	if len(r.cfg.Sources) > 0 {
		var out []models.Source
		for _, name := range r.cfg.Sources {
			source, err := ParseSource(name)
			if err != nil {
				r.logger.Warn("Ignoring unknown source %q in SCRAPE_SOURCES", name)
				continue
			}
			if source == models.SourceFacebook {
				r.logger.Warn("Ignoring facebook in SCRAPE_SOURCES — it ingests via webhook")
				continue
			}
			out = append(out, source)
		}
		return out
	}
	return []models.Source{models.SourceKomornik, models.SourceELicytacje, models.SourceAMW}
}

// execute drives one crawl and funnels its output through persist.
func (r *Runner) execute(source models.Source, crawl func() ([]*models.Listing, error), dryRun bool) (*Result, error) {
	startedAt := r.now()
	r.logger.Info("[%s] Run started (dry-run: %v)", source, dryRun)

	listings, err := crawl()
	if err != nil {
		res := &Result{
			Source: source,
			Found:  len(listings),
			Status: StatusError,
			Error:  err.Error(),
		}
		r.logger.Error("[%s] Crawl failed: %v", source, err)
		r.logRun(res, startedAt)
		return res, nil
	}

	listings = r.dropErrorPages(source, listings)

	if dryRun {
		return r.dryRunResult(source, listings), nil
	}
	if r.store == nil {
		return nil, fmt.Errorf("no store configured")
	}
	return r.persist(source, startedAt, listings), nil
}

// dropErrorPages filters out listings whose content looks like a scraped
// error page. The normalizer already rejects these; this second pass keeps
// junk out of the database even if an extractor bypasses normalization.
func (r *Runner) dropErrorPages(source models.Source, listings []*models.Listing) []*models.Listing {
	kept := listings[:0:0]
	for _, l := range listings {
		if services.IsLikelyErrorPage(l.Title, l.Description) {
			r.logger.Warn("[%s] Dropping error-page listing: %s", source, l.SourceURL)
			continue
		}
		kept = append(kept, l)
	}
	return kept
}

func (r *Runner) dryRunResult(source models.Source, listings []*models.Listing) *Result {
	r.logger.Info("[%s] Dry run: %d listings, nothing persisted", source, len(listings))
	for i, l := range listings {
		if i >= 3 {
			break
		}
		price := "no price"
		if l.PricePLN != nil {
			price = fmt.Sprintf("%.2f zł", float64(*l.PricePLN)/100)
		}
		r.logger.Info("[%s]   sample: %s | %s | %s", source, l.Title, price, l.SourceURL)
	}

	if r.cfg.CSVOutputPath != "" && len(listings) > 0 {
		if w, err := storage.NewCSVWriter(r.cfg.CSVOutputPath); err != nil {
			r.logger.Warn("[%s] CSV artifact skipped: %v", source, err)
		} else {
			if err := w.Write(listings); err != nil {
				r.logger.Warn("[%s] CSV artifact write failed: %v", source, err)
			}
			_ = w.Close()
			r.logger.Info("[%s] Dry-run CSV written to %s", source, r.cfg.CSVOutputPath)
		}
	}

	return &Result{
		Source:   source,
		Found:    len(listings),
		Status:   StatusSuccess,
		Listings: listings,
	}
}

// persist upserts the batch and records the run. A run with zero listings is
// still a successful run — the source may genuinely have nothing new.
func (r *Runner) persist(source models.Source, startedAt time.Time, listings []*models.Listing) *Result {
	res := &Result{
		Source:   source,
		Found:    len(listings),
		Status:   StatusSuccess,
		Listings: listings,
	}

	if len(listings) > 0 {
		n, err := r.store.UpsertListings(listings)
		if err != nil {
			res.Status = StatusError
			res.Error = err.Error()
			r.logger.Error("[%s] Upsert failed: %v", source, err)
		} else {
			res.Upserted = n
			r.logger.Info("[%s] Upserted %d/%d listings", source, n, len(listings))
		}
	} else {
		r.logger.Info("[%s] Nothing to upsert", source)
	}

	r.logRun(res, startedAt)
	return res
}

// logRun records the run outcome. Run logging is best-effort: a failure to
// write the audit row must not fail a run whose listings are already stored.
func (r *Runner) logRun(res *Result, startedAt time.Time) {
	if r.store == nil {
		return
	}
	rec := &models.RunRecord{
		Source:           string(res.Source),
		StartedAt:        startedAt,
		FinishedAt:       r.now(),
		ListingsFound:    res.Found,
		ListingsUpserted: res.Upserted,
		Status:           res.Status,
		ErrorMessage:     res.Error,
	}
	if err := r.store.InsertRunRecord(rec); err != nil {
		r.logger.Warn("[%s] Run record not written: %v", res.Source, err)
	}
}
