// Package reconcile computes the stateful diff between the listings the
// marketplace shows now and what the store last recorded.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fernandez-a/Tori-monitor/internal/model"
	"github.com/fernandez-a/Tori-monitor/internal/store"
)

// SuppressionWindow is the minimum time between repeated notifications
// for the same record.
const SuppressionWindow = 10 * time.Minute

// Reconciler classifies fetched listings against stored state into
// Added / Price Changed / Sold transitions and decides, per record,
// whether a notification is due.
type Reconciler struct {
	store store.Store
	now   func() time.Time
}

// New constructs a Reconciler.
func New(st store.Store) *Reconciler {
	return &Reconciler{store: st, now: time.Now}
}

// NewWithClock constructs a Reconciler with an injected clock. Used by
// tests to pin the suppression arithmetic.
func NewWithClock(st store.Store, now func() time.Time) *Reconciler {
	return &Reconciler{store: st, now: now}
}

// Reconcile diffs fetched listings against the records in the filter
// scope, applies the resulting writes, and returns the notification
// events that are due.
//
// Rules:
//   - fetched id with no record, or whose record is a Sold tombstone,
//     is Added (a tombstoned id that reappears is a fresh listing);
//   - fetched id whose stored price differs is Price Changed, with
//     old_price carrying the prior stored value;
//   - stored id absent from the fetched set is Sold, once: records
//     already tombstoned do not re-fire;
//   - a price change on a record notified less than SuppressionWindow
//     ago is written with no event, and last_notified is not advanced;
//   - a suppressed Sold or tombstone-revive is deferred entirely: the
//     status write waits until the window elapses, so the transition
//     re-qualifies on a later pass instead of being swallowed.
//
// A failed write for one record is logged and skipped so it cannot block
// the rest of the cycle. A failed read of the existing records aborts the
// whole pass: without the baseline the diff would misclassify everything.
func (r *Reconciler) Reconcile(ctx context.Context, f model.Filter, fetched []model.Listing) ([]model.Event, error) {
	existing, err := r.store.ListMatching(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load existing records: %w", err)
	}
	byID := make(map[string]model.StateRecord, len(existing))
	for _, rec := range existing {
		byID[rec.ID] = rec
	}

	now := r.now()
	currentIDs := make(map[string]struct{}, len(fetched))
	var events []model.Event

	for _, l := range fetched {
		currentIDs[l.ID] = struct{}{}
		rec, ok := byID[l.ID]

		switch {
		case !ok || rec.Status == model.StatusSold:
			if ok && !r.due(rec.LastNotified, now) {
				// Revive deferred: the tombstone stays until the window
				// elapses, then this branch fires the Added.
				continue
			}
			if err := r.store.UpsertAdded(ctx, l, &now); err != nil {
				log.Printf("[reconcile] insert %s failed: %v — skipping record", l.ID, err)
				continue
			}
			events = append(events, model.Event{Listing: l, Status: model.StatusAdded})

		case rec.Price != l.Price:
			oldPrice := rec.Price
			due := r.due(rec.LastNotified, now)
			if err := r.store.UpdatePrice(ctx, l.ID, l.Price, oldPrice, notifiedAt(due, now)); err != nil {
				log.Printf("[reconcile] price update %s failed: %v — skipping record", l.ID, err)
				continue
			}
			if due {
				events = append(events, model.Event{Listing: l, Status: model.StatusPriceChanged, OldPrice: &oldPrice})
			}
		}
	}

	for id, rec := range byID {
		if _, present := currentIDs[id]; present {
			continue
		}
		if rec.Status == model.StatusSold {
			continue
		}
		if !r.due(rec.LastNotified, now) {
			// Sold deferred: no tombstone yet, so the disappearance
			// re-qualifies on the next pass instead of being swallowed.
			continue
		}
		if err := r.store.MarkSold(ctx, id, &now); err != nil {
			log.Printf("[reconcile] mark sold %s failed: %v — skipping record", id, err)
			continue
		}
		events = append(events, model.Event{Listing: rec.Listing, Status: model.StatusSold})
	}

	return events, nil
}

// due reports whether the suppression window has elapsed.
func (r *Reconciler) due(lastNotified *time.Time, now time.Time) bool {
	return lastNotified == nil || now.Sub(*lastNotified) >= SuppressionWindow
}

func notifiedAt(due bool, now time.Time) *time.Time {
	if !due {
		return nil
	}
	return &now
}
