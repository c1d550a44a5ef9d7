package facebook

import (
	"testing"
)

func TestIsSalePost(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Sprzedam mieszkanie 3-pokojowe w Kielcach, cena 450 000 zł", true},
		{"Dom na sprzedaż, okolice Radomia", true},
		{"Licytacja komornicza działki budowlanej", true},
		{"DZIAŁKA budowlana 1200 m2", true},
		{"Dzień dobry, czy ktoś poleci hydraulika?", false},
		{"", false},
		{"   ", false},
	}

	for _, tt := range tests {
		if got := IsSalePost(tt.text); got != tt.want {
			t.Errorf("IsSalePost(%q) = %v; want %v", tt.text, got, tt.want)
		}
	}
}

func TestParseItemSalePost(t *testing.T) {
	item := map[string]any{
		"text":       "Sprzedam mieszkanie w Kielcach\nCena: 450 000 zł, 3 pokoje",
		"postUrl":    "https://www.facebook.com/groups/123/posts/456",
		"groupTitle": "Nieruchomości Kielce",
		"user":       "Jan Kowalski",
		"attachments": []any{
			map[string]any{"url": "https://scontent.fb.com/photo1.jpg"},
			"https://scontent.fb.com/photo2.jpg",
		},
	}

	raw, ok := ParseItem(item)
	if !ok {
		t.Fatal("sale post should be kept")
	}
	if raw.SourceURL != "https://www.facebook.com/groups/123/posts/456" {
		t.Errorf("SourceURL = %q", raw.SourceURL)
	}
	if raw.Title != "Sprzedam mieszkanie w Kielcach" {
		t.Errorf("Title = %q; want first line of the post", raw.Title)
	}
	if raw.LocationText != "Nieruchomości Kielce" {
		t.Errorf("LocationText = %q", raw.LocationText)
	}
	if len(raw.Images) != 2 {
		t.Errorf("got %d images; want 2", len(raw.Images))
	}
	if raw.Extra["author"] != "Jan Kowalski" {
		t.Errorf("Extra[author] = %v", raw.Extra["author"])
	}
}

func TestParseItemAlternateURLKeys(t *testing.T) {
	item := map[string]any{
		"text": "Sprzedam dom",
		"url":  "https://www.facebook.com/groups/123/posts/789",
	}
	raw, ok := ParseItem(item)
	if !ok || raw.SourceURL != "https://www.facebook.com/groups/123/posts/789" {
		t.Errorf("ParseItem = %q, %v; want url field honored", raw.SourceURL, ok)
	}
}

func TestParseItemDropsNoise(t *testing.T) {
	// Not a sale post.
	if _, ok := ParseItem(map[string]any{
		"text":    "Czy ktoś zna dobrego elektryka?",
		"postUrl": "https://www.facebook.com/groups/123/posts/1",
	}); ok {
		t.Error("non-sale post should be dropped")
	}

	// Sale post without any URL.
	if _, ok := ParseItem(map[string]any{
		"text": "Sprzedam mieszkanie, cena 300 000 zł",
	}); ok {
		t.Error("post without a URL should be dropped")
	}
}
