package services

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	warsawOnce sync.Once
	warsawLoc  *time.Location
)

// Warsaw returns the Europe/Warsaw location all auction dates are
// localized to. Falls back to a fixed CET offset if tzdata is unavailable.
func Warsaw() *time.Location {
	warsawOnce.Do(func() {
		loc, err := time.LoadLocation("Europe/Warsaw")
		if err != nil {
			loc = time.FixedZone("CET", 1*60*60)
		}
		warsawLoc = loc
	})
	return warsawLoc
}

// "24.02.2026r, godz. 10:00" — explicit auction hour.
var godzRegexp = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})\s*r?\.?\s*,?\s*godz\.?\s*(\d{1,2}):(\d{2})`)

// "24.02.2026" alone — auctions without a printed hour start at 10:00.
var bareDateRegexp = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)

// Fixed layouts with an explicit time, tried against the first 19
// characters of the input. Date-only strings fall through to the bare-date
// rule so they pick up the 10:00 default instead of midnight.
var fixedLayouts = []string{
	"2006-01-02 15:04",
	"02.01.2006 15:04",
}

const dateOnlyISO = "2006-01-02"

// ParseAuctionDate parses an auction date string into a Europe/Warsaw
// timestamp. It understands the "d.m.yyyy[r], godz. HH:MM" grammar (hour
// defaults to 10:00 when absent) and a small set of fixed layouts. Invalid
// civil dates (e.g. Feb 30) are rejected.
func ParseAuctionDate(text string) (time.Time, bool) {
	trimmed := trimForLayouts(text)
	if trimmed == "" {
		return time.Time{}, false
	}

	if m := godzRegexp.FindStringSubmatch(text); m != nil {
		return civilDate(m[3], m[2], m[1], m[4], m[5])
	}

	for _, layout := range fixedLayouts {
		if len(trimmed) < len(layout) {
			continue
		}
		if dt, err := time.ParseInLocation(layout, trimmed[:len(layout)], Warsaw()); err == nil {
			return dt, true
		}
	}

	if len(trimmed) >= len(dateOnlyISO) {
		if dt, err := time.ParseInLocation(dateOnlyISO, trimmed[:len(dateOnlyISO)], Warsaw()); err == nil {
			return time.Date(dt.Year(), dt.Month(), dt.Day(), 10, 0, 0, 0, Warsaw()), true
		}
	}

	if m := bareDateRegexp.FindStringSubmatch(text); m != nil {
		return civilDate(m[3], m[2], m[1], "10", "00")
	}

	return time.Time{}, false
}

// civilDate builds a Warsaw timestamp and verifies the components survived,
// since time.Date silently normalizes overflow (Feb 30 → Mar 2).
func civilDate(year, month, day, hour, minute string) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	h, _ := strconv.Atoi(hour)
	mi, _ := strconv.Atoi(minute)

	if mo < 1 || mo > 12 || h > 23 || mi > 59 {
		return time.Time{}, false
	}
	dt := time.Date(y, time.Month(mo), d, h, mi, 0, 0, Warsaw())
	if dt.Year() != y || dt.Month() != time.Month(mo) || dt.Day() != d {
		return time.Time{}, false
	}
	return dt, true
}

// trimForLayouts keeps at most the first 19 characters of the trimmed input,
// enough for "YYYY-MM-DD HH:MM" style values with trailing junk.
func trimForLayouts(s string) string {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) > 19 {
		trimmed = trimmed[:19]
	}
	return trimmed
}
