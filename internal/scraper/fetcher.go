// Package scraper implements listing fetching and normalisation against
// the upstream search API.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const httpTimeout = 15 * time.Second

// Fetcher retrieves all pages of current listings from the upstream
// search endpoint. The first request discovers the total page count from
// metadata.paging.last; the remaining pages are fetched concurrently with
// bounded parallelism. Any page failure fails the whole fetch.
type Fetcher struct {
	searchURL string
	workers   int
	limiter   *rate.Limiter
	client    *http.Client
}

// NewFetcher constructs a fetcher with a shared HTTP client. workers
// bounds page-fetch concurrency; rps bounds the request rate across all
// workers.
func NewFetcher(searchURL string, workers, rps int) *Fetcher {
	if workers < 1 {
		workers = 1
	}
	if rps < 1 {
		rps = 1
	}
	return &Fetcher{
		searchURL: searchURL,
		workers:   workers,
		limiter:   rate.NewLimiter(rate.Limit(rps), rps),
		client:    &http.Client{Timeout: httpTimeout},
	}
}

// searchResponse mirrors the top-level upstream search JSON response.
type searchResponse struct {
	Metadata struct {
		Paging struct {
			Last int `json:"last"`
		} `json:"paging"`
	} `json:"metadata"`
	Docs []RawListing `json:"docs"`
}

// RawListing mirrors a single listing document as returned upstream.
type RawListing struct {
	ID       string `json:"id"`
	Heading  string `json:"heading"`
	Location string `json:"location"`
	Price    struct {
		Amount       int    `json:"amount"`
		CurrencyCode string `json:"currency_code"`
	} `json:"price"`
	Image struct {
		URL string `json:"url"`
	} `json:"image"`
	Timestamp    int64     `json:"timestamp"` // epoch millis
	Coordinates  *RawCoord `json:"coordinates"`
	CanonicalURL string    `json:"canonical_url"`
	ImageURLs    []string  `json:"image_urls"`
	TradeType    string    `json:"trade_type"`
}

// RawCoord mirrors the optional coordinates object.
type RawCoord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Fetch retrieves every page of the current search results and
// concatenates their docs. Page order is preserved so repeated fetches of
// an unchanged result set are stable.
func (f *Fetcher) Fetch(ctx context.Context) ([]RawListing, error) {
	first, err := f.fetchPage(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("page 1: %w", err)
	}

	last := first.Metadata.Paging.Last
	if last <= 1 {
		return first.Docs, nil
	}

	pages := make([][]RawListing, last+1)
	pages[1] = first.Docs

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for page := 2; page <= last; page++ {
		page := page
		g.Go(func() error {
			resp, err := f.fetchPage(gctx, page)
			if err != nil {
				return fmt.Errorf("page %d: %w", page, err)
			}
			mu.Lock()
			pages[page] = resp.Docs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []RawListing
	for page := 1; page <= last; page++ {
		docs = append(docs, pages[page]...)
	}
	return docs, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, page int) (*searchResponse, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s&page=%d", f.searchURL, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned %d: %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return &sr, nil
}
