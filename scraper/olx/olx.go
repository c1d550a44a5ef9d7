// Package olx scrapes real-estate classifieds from olx.pl.
package olx

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
	baseURL   = "https://www.olx.pl"
	searchURL = baseURL + "/nieruchomosci/"
)

// New builds the crawler for olx.pl classifieds. No auction dates here, so
// the days-back cutoff does not apply.
func New(cfg *config.Config, fetch scraper.Fetcher, normalizer *services.Normalizer, logger *utils.Logger) *scraper.Crawler {
	return scraper.NewCrawler(scraper.SourceConfig{
		Name:        models.SourceOLX,
		MaxPages:    cfg.MaxPagesClassifieds,
		MaxListings: cfg.MaxListings,
		ListPageURL: func(page int) string {
			if page > 1 {
				return fmt.Sprintf("%s?page=%d", searchURL, page)
			}
			return searchURL
		},
		ParseListPage: parseListPage,
		ParseDetail:   parseDetail,
	}, fetch, normalizer, logger)
}

// parseListPage collects offer links. OLX mixes in otodom.pl cross-listings
// which belong to the otodom source; they are skipped here.
func parseListPage(doc *goquery.Document) []scraper.Candidate {
	var candidates []scraper.Candidate

	doc.Find("a[href*='/d/oferta/']").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		fullURL := scraper.TrimQuery(scraper.AbsoluteURL(baseURL, href))
		if strings.Contains(fullURL, "otodom.pl") {
			return
		}
		if !strings.Contains(fullURL, "olx.pl") || !strings.Contains(fullURL, "/d/oferta/") {
			return
		}
		candidates = append(candidates, scraper.Candidate{URL: fullURL})
	})

	return candidates
}

func parseDetail(doc *goquery.Document, url string) models.RawFields {
	var srcs []string
	doc.Find("img[src*='olx'], [data-cy='adPhotos'] img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok {
			src, ok = img.Attr("data-src")
		}
		if ok && src != "" {
			srcs = append(srcs, src)
		}
	})

	return models.RawFields{
		Title:        firstText(doc, "h1", "[data-cy='ad_title']"),
		Description:  firstText(doc, "[data-cy='ad_description']", ".description"),
		PriceText:    firstText(doc, "[data-cy='ad_price']", "[class*='price']"),
		LocationText: firstText(doc, "[data-cy='ad_location']", "[class*='location']"),
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
