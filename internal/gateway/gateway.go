// Package gateway is the chat-command control surface: a websocket
// client on the chat gateway that maps incoming commands 1:1 onto
// Controller and Notifier operations.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fernandez-a/Tori-monitor/internal/model"
)

// Commander is the monitoring session control the gateway drives.
type Commander interface {
	Start(f model.Filter) string
	Stop() string
}

// TestSender sends the test message behind the send command.
type TestSender interface {
	SendTest(ctx context.Context) error
}

const (
	reconnectMin = 2 * time.Second
	reconnectMax = time.Minute
)

const helpText = "Available commands:\n" +
	"`!send` - Send a test message to the webhook.\n" +
	"`!start <min_price> <max_price> <location>` - Start monitoring with price range and location.\n" +
	"`!stop` - Stop monitoring.\n" +
	"`!help` - Display this help message."

// Gateway connects to the chat gateway and serves commands until its
// context is cancelled, reconnecting with backoff on connection loss.
type Gateway struct {
	url      string
	token    string
	ctrl     Commander
	notifier TestSender
}

// New constructs a Gateway.
func New(url, token string, ctrl Commander, notifier TestSender) *Gateway {
	return &Gateway{url: url, token: token, ctrl: ctrl, notifier: notifier}
}

// commandFrame is an incoming chat command.
type commandFrame struct {
	Type string   `json:"type"`
	Name string   `json:"name"`
	Args []string `json:"args"`
}

// replyFrame is the human-readable response sent back to the channel.
type replyFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Run dials the gateway and serves commands, reconnecting until ctx is
// cancelled.
func (g *Gateway) Run(ctx context.Context) {
	backoff := reconnectMin
	for {
		if ctx.Err() != nil {
			return
		}

		header := http.Header{}
		if g.token != "" {
			header.Set("Authorization", "Bot "+g.token)
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.url, header)
		if err != nil {
			log.Printf("[gateway] connect failed: %v — retrying in %s", err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, reconnectMax)
			continue
		}

		log.Printf("[gateway] connected to %s", g.url)
		backoff = reconnectMin
		g.serve(ctx, conn)
		conn.Close()
	}
}

// serve reads command frames until the connection drops or ctx ends.
func (g *Gateway) serve(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadJSON when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var cmd commandFrame
		if err := conn.ReadJSON(&cmd); err != nil {
			if ctx.Err() == nil {
				log.Printf("[gateway] read failed: %v — reconnecting", err)
			}
			return
		}
		if cmd.Type != "command" {
			continue
		}

		reply := g.Handle(ctx, cmd.Name, cmd.Args)
		if err := conn.WriteJSON(replyFrame{Type: "reply", Text: reply}); err != nil {
			log.Printf("[gateway] write failed: %v — reconnecting", err)
			return
		}
	}
}

// Handle dispatches a single command and returns the reply text.
func (g *Gateway) Handle(ctx context.Context, name string, args []string) string {
	switch strings.ToLower(name) {
	case "start":
		f, err := parseStartArgs(args)
		if err != nil {
			return fmt.Sprintf("Usage: !start <min_price> <max_price> <location> (%v)", err)
		}
		return g.ctrl.Start(f)

	case "stop":
		return g.ctrl.Stop()

	case "send":
		if err := g.notifier.SendTest(ctx); err != nil {
			return fmt.Sprintf("Failed to send message: %v", err)
		}
		return "Message sent to webhook!"

	case "help":
		return helpText

	default:
		return fmt.Sprintf("Unknown command %q. Try !help.", name)
	}
}

func parseStartArgs(args []string) (model.Filter, error) {
	if len(args) < 3 {
		return model.Filter{}, fmt.Errorf("need 3 arguments, got %d", len(args))
	}
	minPrice, err := strconv.Atoi(args[0])
	if err != nil {
		return model.Filter{}, fmt.Errorf("min_price %q is not a number", args[0])
	}
	maxPrice, err := strconv.Atoi(args[1])
	if err != nil {
		return model.Filter{}, fmt.Errorf("max_price %q is not a number", args[1])
	}
	if maxPrice < minPrice {
		return model.Filter{}, fmt.Errorf("max_price %d is below min_price %d", maxPrice, minPrice)
	}
	location := strings.Join(args[2:], " ")
	return model.Filter{MinPrice: minPrice, MaxPrice: maxPrice, Location: location}, nil
}
