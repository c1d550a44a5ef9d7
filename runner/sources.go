package runner

import (
	"fmt"

	"hunter-backend/models"
	"hunter-backend/scraper"
	"hunter-backend/scraper/amw"
	"hunter-backend/scraper/elicytacje"
	"hunter-backend/scraper/gratka"
	"hunter-backend/scraper/komornik"
	"hunter-backend/scraper/olx"
	"hunter-backend/scraper/otodom"
)

// ParseSource maps a CLI/API source name to its Source value.
func ParseSource(name string) (models.Source, error) {
	switch models.Source(name) {
	case models.SourceKomornik, models.SourceELicytacje, models.SourceOLX,
		models.SourceOtodom, models.SourceGratka, models.SourceFacebook, models.SourceAMW:
		return models.Source(name), nil
	}
	return "", fmt.Errorf("unknown source %q", name)
}

// crawlFunc returns the crawl entry point for one source. Otodom gets the
// browser-backed fetcher; everything else runs over plain HTTP.
func (r *Runner) crawlFunc(source models.Source) (func() ([]*models.Listing, error), error) {
	switch source {
	case models.SourceKomornik:
		return komornik.New(r.cfg, r.client, r.normalizer, r.logger).Run, nil
	case models.SourceELicytacje:
		return elicytacje.New(r.cfg, r.client, r.normalizer, r.logger).Run, nil
	case models.SourceOLX:
		return olx.New(r.cfg, r.client, r.normalizer, r.logger).Run, nil
	case models.SourceGratka:
		return gratka.New(r.cfg, r.client, r.normalizer, r.logger).Run, nil
	case models.SourceAMW:
		return amw.New(r.cfg, r.client, r.normalizer, r.logger).Run, nil
	case models.SourceOtodom:
		return otodom.New(r.cfg, r.renderFetcher(), r.normalizer, r.logger).Run, nil
	case models.SourceFacebook:
		return nil, fmt.Errorf("facebook is ingested via the Apify webhook, not crawled")
	}
	return nil, fmt.Errorf("unknown source %q", source)
}

// renderFetcher lazily builds the shared browser fetcher so runs that never
// touch otodom do not look for a Chrome binary.
func (r *Runner) renderFetcher() scraper.Fetcher {
	if r.render == nil {
		r.render = scraper.NewRenderFetcher(r.cfg.ChromeBin, r.cfg.RateLimitMs, r.cfg.MaxRetries, r.logger)
	}
	return r.render
}
