// Package otodom scrapes real-estate classifieds from otodom.pl.
//
// Otodom renders client-side, so this source runs behind a browser-backed
// fetcher. Detail pages embed their data as Next.js __NEXT_DATA__ JSON,
// which is far more stable than the markup; the CSS selectors are only a
// fallback for pages where the blob is missing or malformed.
package otodom

import (
	"encoding/json"
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
	baseURL   = "https://www.otodom.pl"
	searchURL = baseURL + "/pl/wyniki/sprzedaz/mieszkanie/cala-polska"
)

// New builds the crawler for otodom.pl. The fetcher should be a
// scraper.RenderFetcher; plain HTTP gets the empty pre-hydration shell.
func New(cfg *config.Config, fetch scraper.Fetcher, normalizer *services.Normalizer, logger *utils.Logger) *scraper.Crawler {
	return scraper.NewCrawler(scraper.SourceConfig{
		Name:        models.SourceOtodom,
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

func parseListPage(doc *goquery.Document) []scraper.Candidate {
	var candidates []scraper.Candidate

	doc.Find("a[href*='/pl/oferta/']").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		fullURL := scraper.TrimQuery(scraper.AbsoluteURL(baseURL, href))
		if !strings.Contains(fullURL, "otodom.pl") || !strings.Contains(fullURL, "/pl/oferta/") {
			return
		}
		candidates = append(candidates, scraper.Candidate{URL: fullURL})
	})

	return candidates
}

func parseDetail(doc *goquery.Document, url string) models.RawFields {
	if raw, ok := parseNextData(doc); ok {
		return raw
	}

	var srcs []string
	doc.Find("picture img, [data-cy='adPageGallery'] img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok && src != "" {
			srcs = append(srcs, src)
		}
	})

	return models.RawFields{
		Title:        firstText(doc, "h1", "[data-cy='adPageAdTitle']"),
		Description:  firstText(doc, "[data-cy='adPageAdDescription']", "[class*='description']"),
		PriceText:    firstText(doc, "[data-cy='adPageHeaderPrice']", "[class*='price']"),
		LocationText: firstText(doc, "[data-cy='adPageHeaderLocation']", "[class*='address']"),
		Images:       scraper.ResolveImages(url, srcs),
	}
}

// parseNextData extracts listing fields from the embedded Next.js state.
func parseNextData(doc *goquery.Document) (models.RawFields, bool) {
	blob := doc.Find("script#__NEXT_DATA__").First().Text()
	if strings.TrimSpace(blob) == "" {
		return models.RawFields{}, false
	}

	var root map[string]any
	if err := json.Unmarshal([]byte(blob), &root); err != nil {
		return models.RawFields{}, false
	}

	ad, ok := dig(root, "props", "pageProps", "ad")
	if !ok {
		return models.RawFields{}, false
	}

	raw := models.RawFields{
		Title:       localizedString(ad, "title"),
		Description: stripTags(localizedString(ad, "description")),
	}

	if target, ok := dig(ad, "target"); ok {
		if price, ok := target["Price"]; ok {
			raw.PriceText = fmt.Sprintf("%v zł", price)
		}
	}

	if addr, ok := dig(ad, "location", "address"); ok {
		var parts []string
		for _, key := range []string{"street", "city", "province"} {
			if node, ok := dig(addr, key); ok {
				if name, _ := node["name"].(string); name != "" {
					parts = append(parts, name)
				}
			}
		}
		raw.LocationText = strings.Join(parts, ", ")
		if node, ok := dig(addr, "province"); ok {
			raw.Region, _ = node["name"].(string)
		}
	}

	if imgs, ok := ad["images"].([]any); ok {
		for _, item := range imgs {
			if m, ok := item.(map[string]any); ok {
				if u, _ := m["large"].(string); u != "" {
					raw.Images = append(raw.Images, u)
				} else if u, _ := m["medium"].(string); u != "" {
					raw.Images = append(raw.Images, u)
				}
			}
		}
	}

	if raw.Title == "" && raw.PriceText == "" {
		return models.RawFields{}, false
	}
	return raw, true
}

// dig walks nested JSON objects by key path.
func dig(node map[string]any, path ...string) (map[string]any, bool) {
	current := node
	for _, key := range path {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// localizedString reads a field that is either a plain string or a
// {"pl": ..., "en": ...} object. Polish wins.
func localizedString(node map[string]any, key string) string {
	switch v := node[key].(type) {
	case string:
		return v
	case map[string]any:
		if s, _ := v["pl"].(string); s != "" {
			return s
		}
		if s, _ := v["en"].(string); s != "" {
			return s
		}
	}
	return ""
}

// stripTags removes markup from the description blob, which otodom ships as
// HTML inside the JSON.
func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
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
