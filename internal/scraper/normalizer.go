package scraper

import (
	"strings"
	"time"

	"github.com/fernandez-a/Tori-monitor/internal/model"
)

// Normalize maps a raw upstream document into a canonical Listing and
// reports whether it passes the filter. Listings that are not for sale,
// fall outside the price range, or whose location does not contain the
// filter substring (case-insensitive) are discarded. Pure, no I/O.
func Normalize(raw RawListing, f model.Filter) (model.Listing, bool) {
	l := model.Listing{
		ID:        strings.TrimSpace(raw.ID),
		Title:     strings.TrimSpace(raw.Heading),
		Location:  raw.Location,
		Price:     raw.Price.Amount,
		Currency:  raw.Price.CurrencyCode,
		URL:       raw.CanonicalURL,
		ImageURLs: raw.ImageURLs,
		PostedAt:  time.UnixMilli(raw.Timestamp),
		TradeType: raw.TradeType,
	}
	if len(l.ImageURLs) == 0 && raw.Image.URL != "" {
		l.ImageURLs = []string{raw.Image.URL}
	}
	if raw.Coordinates != nil {
		l.Coords = &model.Coordinates{Lat: raw.Coordinates.Lat, Lon: raw.Coordinates.Lon}
	}

	if l.ID == "" {
		return model.Listing{}, false
	}
	if !f.Matches(l) {
		return model.Listing{}, false
	}
	return l, true
}

// NormalizeAll applies Normalize over a fetched batch, dropping
// duplicates by id (first occurrence wins).
func NormalizeAll(raws []RawListing, f model.Filter) []model.Listing {
	out := make([]model.Listing, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		l, ok := Normalize(raw, f)
		if !ok {
			continue
		}
		if _, dup := seen[l.ID]; dup {
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out
}
