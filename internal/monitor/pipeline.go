package monitor

import (
	"context"
	"fmt"
	"log"

	"github.com/fernandez-a/Tori-monitor/internal/model"
	"github.com/fernandez-a/Tori-monitor/internal/notify"
	"github.com/fernandez-a/Tori-monitor/internal/reconcile"
	"github.com/fernandez-a/Tori-monitor/internal/scraper"
)

// Fetcher retrieves the current raw listing set.
type Fetcher interface {
	Fetch(ctx context.Context) ([]scraper.RawListing, error)
}

// Pipeline wires fetch → normalize → reconcile → notify into a
// CycleFunc for the Controller.
type Pipeline struct {
	fetcher    Fetcher
	reconciler *reconcile.Reconciler
	notifier   notify.Notifier
}

// NewPipeline constructs the live-diff cycle.
func NewPipeline(f Fetcher, r *reconcile.Reconciler, n notify.Notifier) *Pipeline {
	return &Pipeline{fetcher: f, reconciler: r, notifier: n}
}

// Run executes one cycle. A fetch error aborts the cycle with no state
// mutation. Cancellation is checked between fetch and reconcile so a
// superseded session never writes. Delivery failures are logged and
// dropped: the suppression state is already written and a retry would
// risk duplicate alerts.
func (p *Pipeline) Run(ctx context.Context, f model.Filter) error {
	raws, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	listings := scraper.NormalizeAll(raws, f)
	events, err := p.reconciler.Reconcile(ctx, f, listings)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	for _, ev := range events {
		if err := p.notifier.Notify(ctx, ev); err != nil {
			log.Printf("[monitor] %s notification for %s failed: %v — dropped", ev.Status, ev.Listing.ID, err)
		}
	}

	log.Printf("[monitor] cycle for %s done — fetched=%d matched=%d events=%d",
		f, len(raws), len(listings), len(events))
	return nil
}
