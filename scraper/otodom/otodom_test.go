package otodom

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

const nextDataPage = `<html><body>
<script id="__NEXT_DATA__" type="application/json">
{
  "props": {"pageProps": {"ad": {
    "title": "Mieszkanie 64 m², Kielce",
    "description": "<p>Słoneczne mieszkanie <b>blisko centrum</b>.</p>",
    "target": {"Price": 520000},
    "location": {"address": {
      "street": {"name": "ul. Sienkiewicza"},
      "city": {"name": "Kielce"},
      "province": {"name": "świętokrzyskie"}
    }},
    "images": [
      {"large": "https://ireland.apollo.olxcdn.com/v1/files/1.jpg"},
      {"medium": "https://ireland.apollo.olxcdn.com/v1/files/2.jpg"}
    ]
  }}}
}
</script>
</body></html>`

func TestParseDetailNextData(t *testing.T) {
	raw := parseDetail(parseHTML(t, nextDataPage), "https://www.otodom.pl/pl/oferta/x-ID1")

	if raw.Title != "Mieszkanie 64 m², Kielce" {
		t.Errorf("Title = %q", raw.Title)
	}
	if strings.Contains(raw.Description, "<") {
		t.Errorf("Description still has markup: %q", raw.Description)
	}
	if !strings.Contains(raw.Description, "blisko centrum") {
		t.Errorf("Description = %q", raw.Description)
	}
	if !strings.Contains(raw.PriceText, "520000") {
		t.Errorf("PriceText = %q", raw.PriceText)
	}
	if raw.LocationText != "ul. Sienkiewicza, Kielce, świętokrzyskie" {
		t.Errorf("LocationText = %q", raw.LocationText)
	}
	if raw.Region != "świętokrzyskie" {
		t.Errorf("Region = %q", raw.Region)
	}
	if len(raw.Images) != 2 {
		t.Errorf("got %d images; want 2", len(raw.Images))
	}
}

func TestParseDetailLocalizedTitle(t *testing.T) {
	page := `<html><body><script id="__NEXT_DATA__" type="application/json">
	{"props":{"pageProps":{"ad":{"title":{"pl":"Dom w Kielcach","en":"House in Kielce"}}}}}
	</script></body></html>`

	raw := parseDetail(parseHTML(t, page), "https://www.otodom.pl/pl/oferta/y-ID2")
	if raw.Title != "Dom w Kielcach" {
		t.Errorf("Title = %q; Polish variant should win", raw.Title)
	}
}

func TestParseDetailFallsBackToSelectors(t *testing.T) {
	page := `<html><body>
		<h1 data-cy="adPageAdTitle">Kawalerka na sprzedaż</h1>
		<div data-cy="adPageAdDescription">Opis oferty.</div>
		<strong data-cy="adPageHeaderPrice">320 000 zł</strong>
		<a data-cy="adPageHeaderLocation">Kraków, małopolskie</a>
	</body></html>`

	raw := parseDetail(parseHTML(t, page), "https://www.otodom.pl/pl/oferta/z-ID3")
	if raw.Title != "Kawalerka na sprzedaż" {
		t.Errorf("Title = %q", raw.Title)
	}
	if raw.PriceText != "320 000 zł" {
		t.Errorf("PriceText = %q", raw.PriceText)
	}
	if raw.LocationText != "Kraków, małopolskie" {
		t.Errorf("LocationText = %q", raw.LocationText)
	}
}

func TestParseListPageFiltersOffers(t *testing.T) {
	page := `<html><body>
		<a href="/pl/oferta/mieszkanie-64m-ID1">oferta</a>
		<a href="/pl/oferta/dom-120m-ID2?tracking=1">oferta</a>
		<a href="/pl/firmy/biuro-x">agencja</a>
		<a href="https://www.olx.pl/d/oferta/cross">cross</a>
	</body></html>`

	candidates := parseListPage(parseHTML(t, page))
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates; want 2", len(candidates))
	}
	if candidates[1].URL != "https://www.otodom.pl/pl/oferta/dom-120m-ID2" {
		t.Errorf("URL = %q; tracking params should be stripped", candidates[1].URL)
	}
}
