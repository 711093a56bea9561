package sweep_test

import (
	"context"
	"testing"
	"time"

	"github.com/fernandez-a/Tori-monitor/internal/model"
	"github.com/fernandez-a/Tori-monitor/internal/scraper"
	"github.com/fernandez-a/Tori-monitor/internal/store"
	"github.com/fernandez-a/Tori-monitor/internal/sweep"
)

var scope = model.Filter{MinPrice: 50, MaxPrice: 200, Location: "Helsinki"}

type fetchFunc func(ctx context.Context) ([]scraper.RawListing, error)

func (f fetchFunc) Fetch(ctx context.Context) ([]scraper.RawListing, error) { return f(ctx) }

func rawDoc(id string, price int) scraper.RawListing {
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

func seedRecord(id string, price int) model.StateRecord {
	return model.StateRecord{
		Listing: model.Listing{
			ID:        id,
			Title:     "artek stool",
			Location:  "Helsinki",
			Price:     price,
			Currency:  "EUR",
			TradeType: model.TradeTypeForSale,
		},
		Status: model.StatusAdded,
	}
}

func TestRebuild_MakesStoreMatchUpstream(t *testing.T) {
	st := store.NewMock()
	st.Seed(seedRecord("keep", 100))
	st.Seed(seedRecord("reprice", 100))
	st.Seed(seedRecord("gone", 100))

	fetch := fetchFunc(func(context.Context) ([]scraper.RawListing, error) {
		return []scraper.RawListing{
			rawDoc("keep", 100),
			rawDoc("reprice", 150),
			rawDoc("fresh", 120),
		}, nil
	})
	s := sweep.New(fetch, st, scope, 10*time.Minute)

	inserted, updated, removed, err := s.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild returned unexpected error: %v", err)
	}

	if inserted != 1 || updated != 1 || removed != 1 {
		t.Errorf("inserted=%d updated=%d removed=%d, want 1/1/1", inserted, updated, removed)
	}

	if _, ok := st.Get("gone"); ok {
		t.Error("absent record survived — the sweep hard-deletes, it does not tombstone")
	}
	if _, ok := st.Get("fresh"); !ok {
		t.Error("fresh record not inserted")
	}
	rec, _ := st.Get("reprice")
	if rec.Price != 150 || rec.OldPrice == nil || *rec.OldPrice != 100 {
		t.Errorf("repriced record = %+v, want price 150 old_price 100", rec)
	}
}

func TestRebuild_LeavesOutOfScopeRecordsAlone(t *testing.T) {
	st := store.NewMock()
	outOfScope := seedRecord("espoo", 100)
	outOfScope.Location = "Espoo"
	st.Seed(outOfScope)

	fetch := fetchFunc(func(context.Context) ([]scraper.RawListing, error) {
		return nil, nil
	})
	s := sweep.New(fetch, st, scope, 10*time.Minute)

	if _, _, _, err := s.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild returned unexpected error: %v", err)
	}
	if _, ok := st.Get("espoo"); !ok {
		t.Error("record outside the sweep scope was deleted")
	}
}

func TestRebuild_FetchErrorTouchesNothing(t *testing.T) {
	st := store.NewMock()
	st.Seed(seedRecord("keep", 100))

	fetch := fetchFunc(func(context.Context) ([]scraper.RawListing, error) {
		return nil, context.DeadlineExceeded
	})
	s := sweep.New(fetch, st, scope, 10*time.Minute)

	if _, _, _, err := s.Rebuild(context.Background()); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
	if st.Len() != 1 {
		t.Errorf("store has %d records, want 1 untouched", st.Len())
	}
}
