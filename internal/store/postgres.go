package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fernandez-a/Tori-monitor/internal/model"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const matchClause = `trade_type = $1 AND price BETWEEN $2 AND $3 AND location ILIKE '%' || $4 || '%'`

// ListMatching returns all records in the filter scope.
func (s *Postgres) ListMatching(ctx context.Context, f model.Filter) ([]model.StateRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT listing_id, title, location, price, old_price, currency, url,
		        image_urls, lat, lon, posted_at, trade_type, status, last_notified
		 FROM listings
		 WHERE `+matchClause,
		model.TradeTypeForSale, f.MinPrice, f.MaxPrice, f.Location,
	)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var records []model.StateRecord
	for rows.Next() {
		var r model.StateRecord
		var status string
		var lat, lon *float64
		if err := rows.Scan(
			&r.ID, &r.Title, &r.Location, &r.Price, &r.OldPrice, &r.Currency, &r.URL,
			&r.ImageURLs, &lat, &lon, &r.PostedAt, &r.TradeType, &status, &r.LastNotified,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		st, err := model.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", r.ID, err)
		}
		r.Status = st
		if lat != nil && lon != nil {
			r.Coords = &model.Coordinates{Lat: *lat, Lon: *lon}
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// UpsertAdded inserts or revives a listing with status Added.
func (s *Postgres) UpsertAdded(ctx context.Context, l model.Listing, notifiedAt *time.Time) error {
	var lat, lon *float64
	if l.Coords != nil {
		lat, lon = &l.Coords.Lat, &l.Coords.Lon
	}
	imageURLs := l.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO listings
		   (listing_id, title, location, price, old_price, currency, url,
		    image_urls, lat, lon, posted_at, trade_type, status, last_notified)
		 VALUES ($1, $2, $3, $4, NULL, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (listing_id) DO UPDATE SET
		   title = EXCLUDED.title,
		   location = EXCLUDED.location,
		   price = EXCLUDED.price,
		   old_price = NULL,
		   currency = EXCLUDED.currency,
		   url = EXCLUDED.url,
		   image_urls = EXCLUDED.image_urls,
		   lat = EXCLUDED.lat,
		   lon = EXCLUDED.lon,
		   posted_at = EXCLUDED.posted_at,
		   status = EXCLUDED.status,
		   last_notified = COALESCE($13, listings.last_notified)`,
		l.ID, l.Title, l.Location, l.Price, l.Currency, l.URL,
		imageURLs, lat, lon, l.PostedAt, l.TradeType, string(model.StatusAdded), notifiedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert listing %s: %w", l.ID, err)
	}
	return nil
}

// UpdatePrice records a price change in a single statement.
func (s *Postgres) UpdatePrice(ctx context.Context, id string, newPrice, oldPrice int, notifiedAt *time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE listings
		 SET price = $2, old_price = $3, status = $4,
		     last_notified = COALESCE($5, last_notified)
		 WHERE listing_id = $1`,
		id, newPrice, oldPrice, string(model.StatusPriceChanged), notifiedAt,
	)
	if err != nil {
		return fmt.Errorf("update price for %s: %w", id, err)
	}
	return nil
}

// MarkSold tombstones a disappeared listing.
func (s *Postgres) MarkSold(ctx context.Context, id string, notifiedAt *time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE listings
		 SET status = $2, last_notified = COALESCE($3, last_notified)
		 WHERE listing_id = $1`,
		id, string(model.StatusSold), notifiedAt,
	)
	if err != nil {
		return fmt.Errorf("mark sold %s: %w", id, err)
	}
	return nil
}

// DeleteAbsent removes records in the filter scope that are not in keep.
func (s *Postgres) DeleteAbsent(ctx context.Context, f model.Filter, keep []string) (int64, error) {
	if keep == nil {
		keep = []string{}
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM listings
		 WHERE `+matchClause+` AND NOT (listing_id = ANY($5))`,
		model.TradeTypeForSale, f.MinPrice, f.MaxPrice, f.Location, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("delete absent: %w", err)
	}
	return tag.RowsAffected(), nil
}
