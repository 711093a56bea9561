package model_test

import (
	"testing"

	"github.com/fernandez-a/Tori-monitor/internal/model"
)

// ── ParseStatus ────────────────────────────────────────────────────────────

func TestParseStatus_ValidValues(t *testing.T) {
	valid := []string{"Added", "Price Changed", "Sold"}
	for _, s := range valid {
		got, err := model.ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseStatus_InvalidValue(t *testing.T) {
	for _, s := range []string{"", "added", "SOLD", "Removed"} {
		if _, err := model.ParseStatus(s); err == nil {
			t.Errorf("ParseStatus(%q) expected error, got nil", s)
		}
	}
}

// ── Filter.Matches ─────────────────────────────────────────────────────────

func TestFilterMatches(t *testing.T) {
	f := model.Filter{MinPrice: 50, MaxPrice: 200, Location: "helsinki"}

	base := model.Listing{
		ID:        "1",
		Location:  "Helsinki",
		Price:     100,
		TradeType: model.TradeTypeForSale,
	}

	cases := []struct {
		name   string
		mutate func(*model.Listing)
		want   bool
	}{
		{"in scope", func(*model.Listing) {}, true},
		{"price at min", func(l *model.Listing) { l.Price = 50 }, true},
		{"price at max", func(l *model.Listing) { l.Price = 200 }, true},
		{"below min", func(l *model.Listing) { l.Price = 49 }, false},
		{"above max", func(l *model.Listing) { l.Price = 201 }, false},
		{"location superset", func(l *model.Listing) { l.Location = "Helsinki, Kallio" }, true},
		{"other city", func(l *model.Listing) { l.Location = "Tampere" }, false},
		{"not for sale", func(l *model.Listing) { l.TradeType = "Ostetaan" }, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			l := base
			c.mutate(&l)
			if got := f.Matches(l); got != c.want {
				t.Errorf("Matches = %v, want %v", got, c.want)
			}
		})
	}
}
