package komornik

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const listPage = `<html><body><table>
	<tr><th>Lp</th><th>Foto</th><th>Data</th><th>Nazwa</th><th>Miasto</th><th>Cena</th><th>Typ</th><th>Szczegóły</th></tr>
	<tr>
		<td>1</td><td></td><td>24.02.2026</td><td>Mieszkanie 3-pokojowe</td>
		<td>Kielce (świętokrzyskie)</td><td>250 000 zł</td><td>I licytacja</td>
		<td><a href="/Notice/Details/111?from=list">Szczegóły</a></td>
	</tr>
	<tr>
		<td>2</td><td></td><td>25.02.2026</td><td>Dom jednorodzinny</td>
		<td>Poznań (wielkopolskie)</td><td>800 000 zł</td><td>I licytacja</td>
		<td><a href="/Notice/Details/222">Szczegóły</a></td>
	</tr>
	<tr><td>niepełny wiersz</td></tr>
</table></body></html>`

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestParseListPageAllRegions(t *testing.T) {
	candidates := parseListPage(parseHTML(t, listPage), "")
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates; want 2", len(candidates))
	}
	if want := "https://licytacje.komornik.pl/Notice/Details/111?from=list"; candidates[0].URL != want {
		t.Errorf("URL = %q; want %q (query kept, Details links need it)", candidates[0].URL, want)
	}
}

func TestParseListPageRegionFilter(t *testing.T) {
	candidates := parseListPage(parseHTML(t, listPage), "świętokrzyskie")
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates; want 1 after region filter", len(candidates))
	}
	if !strings.Contains(candidates[0].URL, "Details/111") {
		t.Errorf("wrong row kept: %q", candidates[0].URL)
	}
}

func TestParseDetailSelectors(t *testing.T) {
	doc := parseHTML(t, `<html><body>
		<h1>Licytacja mieszkania</h1>
		<div class="description">Opis nieruchomości.</div>
		<span class="price">250 000,00 zł</span>
		<div class="location">Kielce, ul. Sienkiewicza 1</div>
		<div class="auction-date">24.02.2026r, godz. 10:00</div>
		<img src="/upload/foto1.jpg">
		<img src="/static/logo.png">
	</body></html>`)

	raw := parseDetail(doc, "https://licytacje.komornik.pl/Notice/Details/111")
	if raw.Title != "Licytacja mieszkania" {
		t.Errorf("Title = %q", raw.Title)
	}
	if raw.PriceText != "250 000,00 zł" {
		t.Errorf("PriceText = %q", raw.PriceText)
	}
	if raw.LocationText != "Kielce, ul. Sienkiewicza 1" {
		t.Errorf("LocationText = %q", raw.LocationText)
	}
	if raw.DateText != "24.02.2026r, godz. 10:00" {
		t.Errorf("DateText = %q", raw.DateText)
	}
	if len(raw.Images) != 1 || !strings.HasSuffix(raw.Images[0], "/upload/foto1.jpg") {
		t.Errorf("Images = %v; want only the upload asset", raw.Images)
	}
}
