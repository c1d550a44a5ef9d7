// Package amw scrapes military property agency listings from amw.com.pl.
//
// The search results page carries every field we need, so no detail pages
// are fetched. Cards sometimes link to a detail page; when they do not, the
// listing's identity is a content hash over (title, price, auction date)
// embedded as a fragment on the section base URL.
package amw

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"hunter-backend/config"
	"hunter-backend/models"
	"hunter-backend/scraper"
	"hunter-backend/services"
	"hunter-backend/utils"
)

const (
	BaseURL     = "https://amw.com.pl"
	sectionPath = "/pl/nieruchomosci/nieruchomosci-amw/"
	// Search results, all offers, surface unit fixed to hectares.
	listPath = "/pl/nieruchomosci/nieruchomosci-amw/wyniki-wyszukiwania/search,,city,,zone,,company,,category,,dev_forms,;,useful_area_from,,useful_area_to,,surface_from,,surface_to,,surface_unit,ha,price_from,,price_to,"

	perPageLimit = 50
)

var (
	priceRegexp  = regexp.MustCompile(`(?i)cena\s+wywo[łl]awcza[\s:]*([\d .,]+)\s*(?:PLN|zł)?`)
	// Voivodeship names are single hyphenated words.
	regionRegexp = regexp.MustCompile(`Woj\.?:\s*([^\s,]+)`)
	dateRegexp   = regexp.MustCompile(`(?i)W\s+dniu:\s*[\d.]+\s*r?\s*,?\s*godz\.?\s*[\d:]+`)
)

// New builds the crawler for amw.com.pl search results.
func New(cfg *config.Config, fetch scraper.Fetcher, normalizer *services.Normalizer, logger *utils.Logger) *scraper.Crawler {
	return scraper.NewCrawler(scraper.SourceConfig{
		Name:        models.SourceAMW,
		MaxPages:    cfg.MaxPagesAuctions,
		MaxListings: cfg.MaxListings,
		DaysBack:    cfg.DaysBack,
		ListPageURL: func(page int) string {
			// AMW pages are 0-based.
			return fmt.Sprintf("%s%s,page,%d,limit,%d,sort,estate_asc", BaseURL, listPath, page-1, perPageLimit)
		},
		ParseListPage: func(doc *goquery.Document) []scraper.Candidate {
			return ParseListPage(doc, BaseURL)
		},
	}, fetch, normalizer, logger)
}

// ParseListPage extracts offer cards. Each card is an h2 (location line)
// followed by sibling blocks with area, starting price, voivodeship and
// auction date.
func ParseListPage(doc *goquery.Document, base string) []scraper.Candidate {
	var candidates []scraper.Candidate

	doc.Find("h2").Each(func(_ int, h2 *goquery.Selection) {
		title := strings.TrimSpace(h2.Text())
		if len([]rune(title)) < 3 {
			return
		}
		// Section headers, not offers.
		if strings.HasPrefix(title, "Kategoria") || strings.Contains(title, "Województwo") || strings.Contains(title, "Lista") {
			return
		}

		blockText, detailPath := scanCard(h2)

		priceText := ""
		if m := priceRegexp.FindString(blockText); m != "" {
			priceText = m
		}
		region := ""
		if m := regionRegexp.FindStringSubmatch(blockText); m != nil {
			region = strings.TrimSpace(m[1])
		}
		dateText := dateRegexp.FindString(blockText)

		pricePLN, hasPrice := services.ParsePricePLN(priceText)
		var pricePtr *int64
		if hasPrice {
			pricePtr = &pricePLN
		}
		var datePtr *time.Time
		if dt, ok := services.ParseAuctionDate(dateText); ok {
			datePtr = &dt
		}

		sourceURL := ""
		if detailPath != "" {
			sourceURL = scraper.AbsoluteURL(base, detailPath)
		} else {
			sourceURL = scraper.HashIdentity(base+sectionPath, title, pricePtr, datePtr)
		}

		raw := models.RawFields{
			Title:        "Nieruchomość AMW — " + title,
			Description:  "Powierzchnia / Cena wywoławcza w ofercie AMW. " + truncateRunes(blockText, 1500),
			PriceText:    priceText,
			LocationText: title,
			DateText:     dateText,
			Region:       region,
			Extra: map[string]any{
				"price_raw": priceText,
				"snippet":   truncateRunes(blockText, 500),
			},
		}
		candidates = append(candidates, scraper.Candidate{URL: sourceURL, Raw: &raw})
	})

	return candidates
}

// FindDetailURL returns the card's detail-page path: either the anchor
// wrapping the title h2, or the first detail anchor in the card's sibling
// block. Returns "" when the card has no detail link (search/sort links do
// not count).
func FindDetailURL(h2 *goquery.Selection) string {
	_, path := scanCard(h2)
	return path
}

// scanCard walks the card starting at its title h2: collects the text of
// sibling blocks up to the next card, and looks for a detail link.
func scanCard(h2 *goquery.Selection) (blockText, detailPath string) {
	card := h2
	if parent := h2.Parent(); goquery.NodeName(parent) == "a" {
		card = parent
		if href, ok := parent.Attr("href"); ok && isDetailPath(href) {
			detailPath = href
		}
	}

	var parts []string
	for sib := card.Next(); sib.Length() > 0; sib = sib.Next() {
		if goquery.NodeName(sib) == "h2" || sib.Find("h2").Length() > 0 {
			break
		}
		if text := strings.TrimSpace(sib.Text()); text != "" {
			parts = append(parts, text)
		}
		if detailPath == "" {
			if goquery.NodeName(sib) == "a" {
				if href, ok := sib.Attr("href"); ok && isDetailPath(href) {
					detailPath = href
				}
			}
			sib.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
				if href, ok := a.Attr("href"); ok && isDetailPath(href) {
					detailPath = href
					return false
				}
				return true
			})
		}
	}

	return strings.Join(parts, " "), detailPath
}

// isDetailPath reports whether href points at an individual offer page
// rather than the search machinery.
func isDetailPath(href string) bool {
	if !strings.Contains(href, "/nieruchomosci-amw/") {
		return false
	}
	if strings.Contains(href, "wyniki-wyszukiwania") {
		return false
	}
	slug := href[strings.LastIndex(href, "/")+1:]
	return slug != ""
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
