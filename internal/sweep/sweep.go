// Package sweep runs the bulk-rebuild reconciliation strategy: on its
// own cadence the whole scope is refetched, upserted, and rows absent
// upstream are physically deleted.
//
// This is a deliberately different consistency policy from the live
// monitor, which only tombstones. The sweep rebuilds the collection and
// emits no notifications, so it is meant for a scope that is not being
// actively monitored at the same time.
package sweep

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fernandez-a/Tori-monitor/internal/model"
	"github.com/fernandez-a/Tori-monitor/internal/scraper"
	"github.com/fernandez-a/Tori-monitor/internal/store"
)

// Fetcher retrieves the current raw listing set.
type Fetcher interface {
	Fetch(ctx context.Context) ([]scraper.RawListing, error)
}

// Sweep wraps robfig/cron and manages the rebuild loop.
type Sweep struct {
	cron    *cron.Cron
	fetcher Fetcher
	store   store.Store
	filter  model.Filter
	spec    string
}

// New creates a Sweep rebuilding the given scope every interval.
func New(f Fetcher, st store.Store, scope model.Filter, interval time.Duration) *Sweep {
	return &Sweep{
		cron:    cron.New(cron.WithLogger(cron.DefaultLogger)),
		fetcher: f,
		store:   st,
		filter:  scope,
		spec:    fmt.Sprintf("@every %s", interval),
	}
}

// Start registers the job and starts the scheduler. Also runs one
// rebuild immediately so the collection is populated without waiting for
// the first tick.
func (s *Sweep) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runRebuild(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[sweep] Cron started — spec: %s, scope: %s", s.spec, s.filter)

	go s.runRebuild(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Sweep) Stop() {
	s.cron.Stop()
	log.Println("[sweep] Cron stopped")
}

// runRebuild executes one full rebuild pass.
func (s *Sweep) runRebuild(ctx context.Context) {
	inserted, updated, removed, err := s.Rebuild(ctx)
	if err != nil {
		log.Printf("[sweep] rebuild error: %v — retrying next tick", err)
		return
	}
	log.Printf("[sweep] rebuild done — inserted=%d price_updates=%d removed=%d",
		inserted, updated, removed)
}

// Rebuild fetches the whole scope and makes the store match it:
// unknown ids are inserted, changed prices updated with old_price kept,
// and ids no longer upstream are deleted.
func (s *Sweep) Rebuild(ctx context.Context) (inserted, updated int, removed int64, err error) {
	raws, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("fetch: %w", err)
	}
	listings := scraper.NormalizeAll(raws, s.filter)

	existing, err := s.store.ListMatching(ctx, s.filter)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("load existing records: %w", err)
	}
	byID := make(map[string]model.StateRecord, len(existing))
	for _, rec := range existing {
		byID[rec.ID] = rec
	}

	keep := make([]string, 0, len(listings))
	for _, l := range listings {
		keep = append(keep, l.ID)
		rec, ok := byID[l.ID]
		switch {
		case !ok:
			if err := s.store.UpsertAdded(ctx, l, nil); err != nil {
				log.Printf("[sweep] insert %s failed: %v — skipping record", l.ID, err)
				continue
			}
			inserted++
		case rec.Price != l.Price:
			if err := s.store.UpdatePrice(ctx, l.ID, l.Price, rec.Price, nil); err != nil {
				log.Printf("[sweep] price update %s failed: %v — skipping record", l.ID, err)
				continue
			}
			updated++
		}
	}

	removed, err = s.store.DeleteAbsent(ctx, s.filter, keep)
	if err != nil {
		return inserted, updated, 0, fmt.Errorf("delete absent: %w", err)
	}
	return inserted, updated, removed, nil
}
