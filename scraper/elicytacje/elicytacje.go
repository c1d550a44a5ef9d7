// Package elicytacje scrapes court e-auctions from elicytacje.komornik.pl.
package elicytacje

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"hunter-backend/config"
	"hunter-backend/models"
	"hunter-backend/scraper"
	"hunter-backend/services"
	"hunter-backend/utils"
)

const (
	baseURL = "https://elicytacje.komornik.pl"
	// Real estate, sorted newest first — the cutoff policy depends on this
	// ordering.
	listURL = baseURL + "/wyszukiwarka-licytacji?mainCategory=REAL_ESTATE&sort=dateCreated%2CDESC"
)

// New builds the crawler for elicytacje.komornik.pl.
func New(cfg *config.Config, fetch scraper.Fetcher, normalizer *services.Normalizer, logger *utils.Logger) *scraper.Crawler {
	return scraper.NewCrawler(scraper.SourceConfig{
		Name:        models.SourceELicytacje,
		MaxPages:    cfg.MaxPagesAuctions,
		MaxListings: cfg.MaxListings,
		DaysBack:    cfg.DaysBack,
		ListPageURL: func(page int) string {
			if page > 1 {
				return fmt.Sprintf("%s&page=%d", listURL, page)
			}
			return listURL
		},
		ParseListPage: parseListPage,
		ParseDetail:   parseDetail,
	}, fetch, normalizer, logger)
}

// parseListPage collects auction links. Query strings are stripped so one
// auction keeps one identity.
func parseListPage(doc *goquery.Document) []scraper.Candidate {
	var candidates []scraper.Candidate

	doc.Find("a[href*='/licytacje/']").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		fullURL := scraper.TrimQuery(scraper.AbsoluteURL(baseURL, href))
		if !strings.Contains(fullURL, "elicytacje.komornik.pl") || !strings.Contains(fullURL, "/licytacje/") {
			return
		}
		candidates = append(candidates, scraper.Candidate{URL: fullURL})
	})

	return candidates
}

func parseDetail(doc *goquery.Document, url string) models.RawFields {
	var srcs []string
	doc.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			srcs = append(srcs, src)
		}
	})

	return models.RawFields{
		Title:        firstText(doc, "h1", ".title", "[class*='title']", "title"),
		Description:  firstText(doc, ".description", ".content", "[class*='opis']"),
		PriceText:    firstText(doc, "[class*='price']", "[class*='cena']", ".wartosc"),
		LocationText: firstText(doc, "[class*='location']", "[class*='address']", "[class*='sad']"),
		DateText:     firstText(doc, "[class*='date']", "[class*='termin']"),
		Images:       scraper.ResolveImages(url, srcs),
	}
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if text := strings.TrimSpace(s.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}
