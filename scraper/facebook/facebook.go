// Package facebook ingests group posts scraped by an Apify actor. The posts
// arrive as a JSON dataset; this package filters them down to property-sale
// posts and shapes them into listings. There is no crawling here — Apify
// already did that.
package facebook

import (
	"encoding/json"
	"fmt"
	"strings"

	"hunter-backend/config"
	"hunter-backend/models"
	"hunter-backend/scraper"
	"hunter-backend/services"
	"hunter-backend/utils"
)

const apifyDatasetURL = "https://api.apify.com/v2/datasets/%s/items?clean=true&format=json&token=%s"

// saleKeywords mark a post as a property-sale post. A post with none of
// these is noise (memes, questions, rentals chatter) and is dropped.
var saleKeywords = []string{
	"sprzedaż", "sprzedam", "sprzedaz",
	"na sprzedaż", "do sprzedania",
	"cena", "zł", "pln",
	"mieszkanie", "dom", "działka", "dzialka", "grunt", "lokal",
	"nieruchomość", "nieruchomosc",
	"licytacja", "przetarg",
	"wynajem", "wynajmę", "wynajme",
}

// Ingester turns an Apify dataset into normalized listings.
type Ingester struct {
	cfg        *config.Config
	fetch      scraper.Fetcher
	normalizer *services.Normalizer
	logger     *utils.Logger
}

// New creates a dataset ingester. The fetcher is the plain HTTP client; the
// Apify API is a JSON endpoint.
func New(cfg *config.Config, fetch scraper.Fetcher, normalizer *services.Normalizer, logger *utils.Logger) *Ingester {
	return &Ingester{
		cfg:        cfg,
		fetch:      fetch,
		normalizer: normalizer,
		logger:     logger.WithTag(string(models.SourceFacebook)),
	}
}

// Run downloads the dataset and returns its sale posts as listings.
func (i *Ingester) Run(datasetID string) ([]*models.Listing, error) {
	if i.cfg.ApifyToken == "" {
		return nil, fmt.Errorf("APIFY_TOKEN is not configured")
	}
	if strings.TrimSpace(datasetID) == "" {
		return nil, fmt.Errorf("empty dataset id")
	}

	body, err := i.fetch.Fetch(fmt.Sprintf(apifyDatasetURL, datasetID, i.cfg.ApifyToken))
	if err != nil {
		return nil, fmt.Errorf("fetch dataset %s: %w", datasetID, err)
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", datasetID, err)
	}
	i.logger.Info("Dataset %s: %d items", datasetID, len(items))

	var listings []*models.Listing
	seen := utils.NewURLSet()
	for _, item := range items {
		raw, ok := ParseItem(item)
		if !ok {
			continue
		}
		if !seen.Add(raw.SourceURL) {
			continue
		}
		if listing, ok := i.normalizer.Normalize(raw, models.SourceFacebook); ok {
			listings = append(listings, listing)
		}
	}

	i.logger.Info("Dataset %s: %d sale posts kept", datasetID, len(listings))
	return listings, nil
}

// ParseItem maps one Apify item to raw fields. Returns false for posts
// without a usable URL or without any sale keyword.
func ParseItem(item map[string]any) (models.RawFields, bool) {
	text := firstString(item, "text", "message", "content", "postText")
	if !IsSalePost(text) {
		return models.RawFields{}, false
	}

	sourceURL := firstString(item, "postUrl", "url", "link", "post_url")
	if strings.TrimSpace(sourceURL) == "" {
		return models.RawFields{}, false
	}

	title := text
	if idx := strings.IndexAny(title, "\n"); idx > 0 {
		title = title[:idx]
	}

	raw := models.RawFields{
		SourceURL:    sourceURL,
		Title:        strings.TrimSpace(title),
		Description:  text,
		PriceText:    text,
		LocationText: firstString(item, "groupTitle", "group_name", "pageName"),
		Images:       itemImages(item),
		Extra:        map[string]any{},
	}
	if author := firstString(item, "user", "author", "profileName"); author != "" {
		raw.Extra["author"] = author
	}
	if posted := firstString(item, "time", "date", "timestamp"); posted != "" {
		raw.Extra["posted_at"] = posted
	}
	return raw, true
}

// IsSalePost reports whether the post text mentions a property sale.
func IsSalePost(text string) bool {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return false
	}
	for _, kw := range saleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func itemImages(item map[string]any) []string {
	var out []string
	appendURL := func(v any) {
		switch img := v.(type) {
		case string:
			if img != "" {
				out = append(out, img)
			}
		case map[string]any:
			for _, key := range []string{"uri", "url", "src"} {
				if u, _ := img[key].(string); u != "" {
					out = append(out, u)
					return
				}
			}
		}
	}

	for _, key := range []string{"attachments", "images", "photos"} {
		if list, ok := item[key].([]any); ok {
			for _, v := range list {
				appendURL(v)
			}
		}
	}
	return out
}

func firstString(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, _ := item[key].(string); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
