package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Phrases that mean "no price". A listing advertised this way gets no
// PricePLN at all, even when the text also contains numbers.
var noPricePhrases = []string{
	"zapytaj o cenę",
	"zapytaj o cene",
	"cena do negocjacji",
	"cena do uzgodnienia",
	"na zapytanie",
	"do uzgodnienia",
	"kontakt",
	"ask for price",
	"price on request",
	"negotiable",
	"contact",
}

// priceTokenRegexp locates a Polish-formatted number: digit groups separated
// by spaces or dots, optionally with a comma and exactly two decimals
// (1 234,56 / 1.234,56 / 1234).
var priceTokenRegexp = regexp.MustCompile(`\d[\d .]*,\d{2}|\d[\d .]*`)

// ParsePricePLN parses a Polish price string into grosze (1/100 PLN).
// The second return is false for blank input, "no price" phrases, or text
// without a parseable number.
func ParsePricePLN(text string) (int64, bool) {
	t := cleanPriceText(text)
	if t == "" {
		return 0, false
	}
	for _, phrase := range noPricePhrases {
		if strings.Contains(t, phrase) {
			return 0, false
		}
	}

	token := priceTokenRegexp.FindString(t)
	if token == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(normalizeNumber(token), 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(value * 100)), true
}

// DetectCurrency reports the currency the text quotes. EUR prices are
// detected but NOT converted; callers persist the face value and record the
// currency for audit.
func DetectCurrency(text string) string {
	t := strings.ToLower(text)
	if strings.Contains(t, "eur") || strings.Contains(t, "€") {
		return "EUR"
	}
	return "PLN"
}

func cleanPriceText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeNumber strips grouping separators and converts the decimal comma
// to a point, e.g. "1 234,56" → "1234.56".
func normalizeNumber(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ".", "")
	return strings.ReplaceAll(s, ",", ".")
}
