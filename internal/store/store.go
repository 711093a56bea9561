// Package store persists the last observed state of listings.
//
// One row per listing id. Expected schema:
//
//	CREATE TABLE listings (
//	    listing_id    text PRIMARY KEY,
//	    title         text NOT NULL,
//	    location      text NOT NULL,
//	    price         integer NOT NULL,
//	    old_price     integer,
//	    currency      text NOT NULL,
//	    url           text NOT NULL,
//	    image_urls    text[] NOT NULL DEFAULT '{}',
//	    lat           double precision,
//	    lon           double precision,
//	    posted_at     timestamptz NOT NULL,
//	    trade_type    text NOT NULL,
//	    status        text NOT NULL,
//	    last_notified timestamptz
//	);
package store

import (
	"context"
	"time"

	"github.com/fernandez-a/Tori-monitor/internal/model"
)

// Store is the persisted collection of previously observed listings.
//
// The notifiedAt parameter on the write ops carries the notification
// bookkeeping: when non-nil the record's last_notified is set to it in
// the same statement as the status/price change, when nil (suppressed
// notification) last_notified is left untouched. Writing both in one
// statement keeps a record's classification and its suppression window
// atomic.
type Store interface {
	// ListMatching returns every record inside the filter scope,
	// including Sold tombstones whose price is still in range.
	ListMatching(ctx context.Context, f model.Filter) ([]model.StateRecord, error)

	// UpsertAdded inserts a newly observed listing with status Added.
	// If a row already exists (a re-listed id) it is overwritten with
	// the fresh listing, status reset to Added and old_price cleared.
	UpsertAdded(ctx context.Context, l model.Listing, notifiedAt *time.Time) error

	// UpdatePrice records a price change: price, old_price and status
	// move together.
	UpdatePrice(ctx context.Context, id string, newPrice, oldPrice int, notifiedAt *time.Time) error

	// MarkSold tombstones a disappeared listing. The row is kept.
	MarkSold(ctx context.Context, id string, notifiedAt *time.Time) error

	// DeleteAbsent removes every record in the filter scope whose id is
	// not in keep. Used only by the bulk-rebuild sweep; the live path
	// never deletes.
	DeleteAbsent(ctx context.Context, f model.Filter, keep []string) (int64, error)
}
