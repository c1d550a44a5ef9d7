// Package komornik scrapes bailiff auctions from licytacje.komornik.pl.
package komornik

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
	baseURL = "https://licytacje.komornik.pl"
	// Category 30 = apartments; the other real-estate categories share the
	// same table markup.
	filterURL = baseURL + "/Notice/Filter/30"
)

// New builds the crawler for licytacje.komornik.pl. The list is a plain
// table; the optional region filter matches against the "Miasto
// (Województwo)" column.
func New(cfg *config.Config, fetch scraper.Fetcher, normalizer *services.Normalizer, logger *utils.Logger) *scraper.Crawler {
	region := strings.ToLower(strings.TrimSpace(cfg.KomornikRegion))

	return scraper.NewCrawler(scraper.SourceConfig{
		Name:        models.SourceKomornik,
		MaxPages:    cfg.MaxPagesAuctions,
		MaxListings: cfg.MaxListings,
		DaysBack:    cfg.DaysBack,
		ListPageURL: func(page int) string {
			if page > 1 {
				return fmt.Sprintf("%s?page=%d", filterURL, page)
			}
			return filterURL
		},
		ParseListPage: func(doc *goquery.Document) []scraper.Candidate {
			return parseListPage(doc, region)
		},
		ParseDetail: parseDetail,
	}, fetch, normalizer, logger)
}

// parseListPage extracts detail links from the Notice/Filter table.
// Columns: 0=Lp, 1=photo, 2=date, 3=name, 4=city (voivodeship), 5=price,
// 6=?, 7=details link.
func parseListPage(doc *goquery.Document, region string) []scraper.Candidate {
	var candidates []scraper.Candidate

	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < 8 {
			return
		}

		cityVoivodeship := strings.ToLower(strings.TrimSpace(tds.Eq(4).Text()))
		if region != "" && !strings.Contains(cityVoivodeship, region) {
			return
		}

		href, ok := tds.Eq(7).Find("a[href*='Notice/Details']").Attr("href")
		if !ok || href == "" {
			return
		}
		fullURL := scraper.AbsoluteURL(baseURL, href)
		if !strings.Contains(fullURL, "licytacje.komornik.pl") || !strings.Contains(fullURL, "Details") {
			return
		}

		candidates = append(candidates, scraper.Candidate{URL: fullURL})
	})

	return candidates
}

// parseDetail extracts raw fields from a single auction page. Selectors are
// ordered fallback chains; a missing element just leaves the field empty.
func parseDetail(doc *goquery.Document, url string) models.RawFields {
	var srcs []string
	doc.Find("img[src*='upload'], img[src*='image']").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			srcs = append(srcs, src)
		}
	})

	return models.RawFields{
		Title:        firstText(doc, "h1", ".title", ".auction-title", "[class*='title']"),
		Description:  firstText(doc, ".description", ".content", "[class*='description']", "[class*='content']"),
		PriceText:    firstText(doc, "[class*='price']", "[class*='cena']", ".value"),
		LocationText: firstText(doc, "[class*='location']", "[class*='address']", "[class*='miejsce']"),
		DateText:     firstText(doc, "[class*='date']", "[class*='termin']", "[class*='auction-date']"),
		Images:       scraper.ResolveImages(url, srcs),
	}
}

// firstText returns the trimmed text of the first selector that matches.
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
