package services

import "strings"

// Phrases indicating the page served an error/maintenance screen instead of
// a listing. Substring match by intent: false positives on listings that
// mention "error"/"błąd" are rare, and persisting a scraped error page is
// the worse failure.
var errorPagePhrases = []string{
	"brak połączenia z internetem",
	"no internet connection",
	"błąd",
	"error",
	"strona tymczasowo niedostępna",
	"temporarily unavailable",
	"maintenance",
	"przerwa techniczna",
}

// IsLikelyErrorPage reports whether a scraped title/description pair looks
// like an error or maintenance page rather than a real listing. Empty input
// is never flagged.
func IsLikelyErrorPage(title, description string) bool {
	text := strings.TrimSpace(strings.Join(nonEmpty(title, description), " "))
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range errorPagePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
