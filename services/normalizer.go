package services

import (
	"strings"

	"hunter-backend/models"
	"hunter-backend/utils"
)

// titleFallbacks supplies a display title when a source page had none.
var titleFallbacks = map[models.Source]string{
	models.SourceKomornik:   "Licytacja komornicza",
	models.SourceELicytacje: "Licytacja sądowa",
	models.SourceOLX:        "Oferta OLX",
	models.SourceOtodom:     "Oferta Otodom",
	models.SourceGratka:     "Oferta Gratka",
	models.SourceAMW:        "Nieruchomość AMW",
	models.SourceFacebook:   "Post Facebook",
}

// Normalizer converts raw extracted fields into canonical Listings.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize builds a Listing from raw fields. The second return is false
// when the row must be dropped: no source URL, or the page looks like an
// error/maintenance screen.
func (n *Normalizer) Normalize(raw models.RawFields, source models.Source) (*models.Listing, bool) {
	sourceURL := strings.TrimSpace(raw.SourceURL)
	if sourceURL == "" {
		n.logger.Debug("[normalize] Dropping %s item without source URL (title=%q)", source, raw.Title)
		return nil, false
	}

	title := TruncateTitle(strings.TrimSpace(raw.Title))
	description := TruncateDescription(strings.TrimSpace(raw.Description))

	if IsLikelyErrorPage(title, description) {
		n.logger.Warn("[normalize] Dropping likely error page from %s: %q", source, title)
		return nil, false
	}

	if title == "" {
		title = titleFallbacks[source]
	}

	location := strings.TrimSpace(raw.LocationText)
	if location == "" {
		location = "Polska"
	}

	listing := &models.Listing{
		Title:       title,
		Description: description,
		Location:    location,
		City:        CityFromLocation(location),
		Region:      strings.TrimSpace(raw.Region),
		Source:      source,
		SourceURL:   sourceURL,
		Images:      raw.Images,
		RawData:     rawData(raw),
	}

	if price, ok := ParsePricePLN(raw.PriceText); ok {
		listing.PricePLN = &price
	}
	if dt, ok := ParseAuctionDate(raw.DateText); ok {
		listing.AuctionDate = &dt
	}

	return listing, true
}

// CityFromLocation derives the city as the first comma-separated segment of
// the location, or the whole location when there is no comma.
func CityFromLocation(location string) string {
	if location == "" {
		return "Polska"
	}
	if i := strings.Index(location, ","); i >= 0 {
		if city := strings.TrimSpace(location[:i]); city != "" {
			return city
		}
	}
	return strings.TrimSpace(location)
}

// TruncateTitle caps a free-text title at 500 characters with an ellipsis.
func TruncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= models.MaxTitleLen {
		return s
	}
	return string(runes[:models.MaxTitleLen-1]) + "…"
}

// TruncateDescription caps a description at 5000 characters.
func TruncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= models.MaxDescriptionLen {
		return s
	}
	return string(runes[:models.MaxDescriptionLen])
}

// rawData preserves the extractor output for audit. Never interpreted
// downstream.
func rawData(raw models.RawFields) map[string]any {
	data := map[string]any{
		"url":      raw.SourceURL,
		"title":    raw.Title,
		"price":    raw.PriceText,
		"location": raw.LocationText,
		"date":     raw.DateText,
	}
	if currency := DetectCurrency(raw.PriceText); currency != "PLN" {
		data["currency"] = currency
	}
	for k, v := range raw.Extra {
		data[k] = v
	}
	return data
}
