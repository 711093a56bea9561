// Package model defines shared data structures for the monitor.
package model

import (
	"fmt"
	"strings"
	"time"
)

// TradeTypeForSale is the upstream marker for listings that are actually
// for sale. Only these participate in monitoring.
const TradeTypeForSale = "Myydään"

// Status values mirror the status field stored with each listing record.
// The strings are the same ones written to the database and shown in
// notification titles.
type Status string

const (
	StatusAdded        Status = "Added"
	StatusPriceChanged Status = "Price Changed"
	StatusSold         Status = "Sold"
)

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusAdded, StatusPriceChanged, StatusSold:
		return st, nil
	}
	return "", fmt.Errorf("unknown listing status %q", s)
}

// Coordinates is an optional lat/lon pair attached to a listing.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Listing is a single marketplace ad normalised from the upstream search
// API. Price is in minor currency units.
type Listing struct {
	ID        string
	Title     string
	Location  string
	Price     int
	Currency  string
	URL       string
	ImageURLs []string
	Coords    *Coordinates
	PostedAt  time.Time
	TradeType string
}

// StateRecord is the persisted last-known state of a Listing plus
// notification bookkeeping. OldPrice is set only while status is
// "Price Changed". LastNotified is nil until the first notification for
// the record actually goes out.
type StateRecord struct {
	Listing
	Status       Status
	OldPrice     *int
	LastNotified *time.Time
}

// Filter scopes one monitoring session: price range plus a
// case-insensitive location substring.
type Filter struct {
	MinPrice int
	MaxPrice int
	Location string
}

// Matches reports whether a listing falls inside the filter. Only
// for-sale listings can match.
func (f Filter) Matches(l Listing) bool {
	if l.TradeType != TradeTypeForSale {
		return false
	}
	if l.Price < f.MinPrice || l.Price > f.MaxPrice {
		return false
	}
	return strings.Contains(strings.ToLower(l.Location), strings.ToLower(f.Location))
}

func (f Filter) String() string {
	return fmt.Sprintf("%d-%d @ %q", f.MinPrice, f.MaxPrice, f.Location)
}

// Event is one notification-worthy transition produced by a
// reconciliation pass. OldPrice is set only for price changes.
type Event struct {
	Listing  Listing
	Status   Status
	OldPrice *int
}
