package monitor_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fernandez-a/Tori-monitor/internal/model"
	"github.com/fernandez-a/Tori-monitor/internal/monitor"
	"github.com/fernandez-a/Tori-monitor/internal/reconcile"
	"github.com/fernandez-a/Tori-monitor/internal/scraper"
	"github.com/fernandez-a/Tori-monitor/internal/store"
)

type fetchFunc func(ctx context.Context) ([]scraper.RawListing, error)

func (f fetchFunc) Fetch(ctx context.Context) ([]scraper.RawListing, error) { return f(ctx) }

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []model.Event
	refuse error
}

func (n *fakeNotifier) Notify(_ context.Context, ev model.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.refuse != nil {
		return n.refuse
	}
	n.sent = append(n.sent, ev)
	return nil
}

func rawListing(id string, price int) scraper.RawListing {
	raw := scraper.RawListing{
		ID:           id,
		Heading:      "artek stool",
		Location:     "Helsinki",
		CanonicalURL: "https://example.test/item/" + id,
		TradeType:    model.TradeTypeForSale,
	}
	raw.Price.Amount = price
	raw.Price.CurrencyCode = "EUR"
	return raw
}

func TestPipeline_FetchThroughNotify(t *testing.T) {
	st := store.NewMock()
	notifier := &fakeNotifier{}
	fetch := fetchFunc(func(context.Context) ([]scraper.RawListing, error) {
		return []scraper.RawListing{rawListing("1", 100), rawListing("2", 9999)}, nil
	})
	p := monitor.NewPipeline(fetch, reconcile.New(st), notifier)

	if err := p.Run(context.Background(), helsinkiFilter); err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}

	if len(notifier.sent) != 1 || notifier.sent[0].Listing.ID != "1" {
		t.Fatalf("notified = %v, want one Added for id 1 (id 2 is out of range)", notifier.sent)
	}
	if st.Len() != 1 {
		t.Errorf("store has %d records, want 1", st.Len())
	}
}

func TestPipeline_FetchErrorAbortsWithoutWrites(t *testing.T) {
	st := store.NewMock()
	fetch := fetchFunc(func(context.Context) ([]scraper.RawListing, error) {
		return nil, errors.New("upstream down")
	})
	p := monitor.NewPipeline(fetch, reconcile.New(st), &fakeNotifier{})

	if err := p.Run(context.Background(), helsinkiFilter); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
	if st.Len() != 0 {
		t.Errorf("store has %d records, want 0", st.Len())
	}
}

func TestPipeline_CancelledDuringFetchNeverWrites(t *testing.T) {
	st := store.NewMock()
	ctx, cancel := context.WithCancel(context.Background())
	fetch := fetchFunc(func(context.Context) ([]scraper.RawListing, error) {
		// The session is superseded while the fetch is in flight.
		cancel()
		return []scraper.RawListing{rawListing("1", 100)}, nil
	})
	p := monitor.NewPipeline(fetch, reconcile.New(st), &fakeNotifier{})

	err := p.Run(ctx, helsinkiFilter)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if st.Len() != 0 {
		t.Errorf("store has %d records, want 0 — superseded cycle must not write", st.Len())
	}
}

func TestPipeline_DeliveryFailureIsDroppedNotFatal(t *testing.T) {
	st := store.NewMock()
	notifier := &fakeNotifier{refuse: errors.New("webhook 500")}
	fetch := fetchFunc(func(context.Context) ([]scraper.RawListing, error) {
		return []scraper.RawListing{rawListing("1", 100)}, nil
	})
	p := monitor.NewPipeline(fetch, reconcile.New(st), notifier)

	if err := p.Run(context.Background(), helsinkiFilter); err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}

	// Suppression state stays written even though delivery failed.
	rec, ok := st.Get("1")
	if !ok || rec.LastNotified == nil {
		t.Errorf("record = %+v — last_notified must survive a dropped delivery", rec)
	}
}
