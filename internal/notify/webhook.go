// Package notify delivers listing events to the configured webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
	"unicode"

	"github.com/redis/go-redis/v9"

	"github.com/fernandez-a/Tori-monitor/internal/model"
	"github.com/fernandez-a/Tori-monitor/internal/reconcile"
)

// Notifier is the delivery sink the reconciliation cycle hands its
// events to.
type Notifier interface {
	Notify(ctx context.Context, ev model.Event) error
}

const deliveryTimeout = 10 * time.Second

// Colors shown on the webhook embed, per event kind.
var statusColors = map[model.Status]int{
	model.StatusAdded:        0x28a745,
	model.StatusPriceChanged: 0xffc107,
	model.StatusSold:         0xdc3545,
}

// Webhook posts embed-style messages to a webhook URL. Deliveries are
// at-most-once: a failed POST is the caller's to log and drop, never
// retried, because the suppression state has already been written.
//
// With a Redis client set, a SETNX guard keyed by (listing id, status)
// with the suppression window as TTL stops two processes sharing one
// store from double-posting the same transition.
type Webhook struct {
	url    string
	client *http.Client
	rdb    *redis.Client // optional
}

// NewWebhook constructs a webhook notifier. rdb may be nil.
func NewWebhook(url string, rdb *redis.Client) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: deliveryTimeout},
		rdb:    rdb,
	}
}

type embedImage struct {
	URL string `json:"url"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embed struct {
	Title     string       `json:"title"`
	Color     int          `json:"color"`
	Timestamp string       `json:"timestamp"`
	Image     *embedImage  `json:"image,omitempty"`
	Fields    []embedField `json:"fields"`
}

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds,omitempty"`
}

// Notify formats the event into an embed and delivers it.
func (w *Webhook) Notify(ctx context.Context, ev model.Event) error {
	if w.rdb != nil {
		key := fmt.Sprintf("notified:%s:%s", ev.Listing.ID, ev.Status)
		ok, err := w.rdb.SetNX(ctx, key, 1, reconcile.SuppressionWindow).Result()
		if err != nil {
			// Guard is best effort; the store's last_notified still holds.
			log.Printf("[notify] redis guard error for %s: %v — sending anyway", ev.Listing.ID, err)
		} else if !ok {
			log.Printf("[notify] %s for %s already sent elsewhere — skipping", ev.Status, ev.Listing.ID)
			return nil
		}
	}

	return w.post(ctx, webhookPayload{Embeds: []embed{buildEmbed(ev)}})
}

// SendTest posts a plain test message. Used by the control surface's
// send command.
func (w *Webhook) SendTest(ctx context.Context) error {
	return w.post(ctx, webhookPayload{Content: "Hello from the listing monitor!"})
}

func (w *Webhook) post(ctx context.Context, p webhookPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook POST: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

func buildEmbed(ev model.Event) embed {
	l := ev.Listing

	fields := []embedField{
		{Name: "🏷️ Product", Value: capitalize(l.Title), Inline: true},
		{Name: "🏷️ ID", Value: l.ID, Inline: true},
	}
	if ev.Status == model.StatusPriceChanged && ev.OldPrice != nil {
		fields = append(fields,
			embedField{Name: "💰 Last Price", Value: fmt.Sprintf("%d %s", *ev.OldPrice, l.Currency), Inline: true},
			embedField{Name: "📉 New Price", Value: fmt.Sprintf("%d %s", l.Price, l.Currency), Inline: true},
		)
	} else {
		fields = append(fields,
			embedField{Name: "💰 Price", Value: fmt.Sprintf("%d %s", l.Price, l.Currency), Inline: true},
		)
	}
	fields = append(fields,
		embedField{Name: "📅 Timestamp", Value: l.PostedAt.Format("02-01-2006")},
		embedField{Name: "🛒 Buy Now", Value: fmt.Sprintf("[Click here to buy now!](%s)", l.URL)},
	)

	location := l.Location
	if l.Coords != nil {
		maps := fmt.Sprintf("https://www.google.com/maps/place/%v,%v", l.Coords.Lat, l.Coords.Lon)
		location = fmt.Sprintf("[%s](%s)", l.Location, maps)
	}
	fields = append(fields, embedField{Name: "🌍 Location", Value: location})

	e := embed{
		Title:     fmt.Sprintf("%s:", ev.Status),
		Color:     statusColors[ev.Status],
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Fields:    fields,
	}
	if len(l.ImageURLs) > 0 {
		e.Image = &embedImage{URL: l.ImageURLs[0]}
	}
	return e
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(unicode.ToUpper(r[0])) + string(r[1:])
}
