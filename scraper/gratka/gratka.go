// Package gratka scrapes real-estate classifieds from gratka.pl.
package gratka

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
	baseURL   = "https://gratka.pl"
	searchURL = baseURL + "/nieruchomosci"
)

// New builds the crawler for gratka.pl classifieds.
func New(cfg *config.Config, fetch scraper.Fetcher, normalizer *services.Normalizer, logger *utils.Logger) *scraper.Crawler {
	return scraper.NewCrawler(scraper.SourceConfig{
		Name:        models.SourceGratka,
		MaxPages:    cfg.MaxPagesClassifieds,
		MaxListings: cfg.MaxListings,
		ListPageURL: func(page int) string {
			if page > 1 {
				return fmt.Sprintf("%s?strona=%d", searchURL, page)
			}
			return searchURL
		},
		ParseListPage: parseListPage,
		ParseDetail:   parseDetail,
	}, fetch, normalizer, logger)
}

func parseListPage(doc *goquery.Document) []scraper.Candidate {
	var candidates []scraper.Candidate

	doc.Find("a[href*='/nieruchomosci/ogloszenie/'], a[href*='/ogloszenie/']").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		fullURL := scraper.AbsoluteURL(baseURL, href)
		if !strings.Contains(fullURL, "gratka.pl") || !strings.Contains(fullURL, "/ogloszenie/") {
			return
		}
		candidates = append(candidates, scraper.Candidate{URL: fullURL})
	})

	return candidates
}

func parseDetail(doc *goquery.Document, url string) models.RawFields {
	var srcs []string
	doc.Find("img[src*='gratka'], .listing__photos img, [class*='gallery'] img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok {
			src, ok = img.Attr("data-src")
		}
		if ok && src != "" {
			srcs = append(srcs, src)
		}
	})

	return models.RawFields{
		Title:        firstText(doc, "h1", ".listing__title", "[class*='title']"),
		Description:  firstText(doc, ".listing__description", "[class*='description']"),
		PriceText:    firstText(doc, "[class*='price']", ".listing__price"),
		LocationText: firstText(doc, "[class*='location']", "[class*='address']", ".listing__location"),
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
