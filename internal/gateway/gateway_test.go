package gateway_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fernandez-a/Tori-monitor/internal/gateway"
	"github.com/fernandez-a/Tori-monitor/internal/model"
)

type fakeCommander struct {
	started []model.Filter
	stops   int
}

func (f *fakeCommander) Start(filter model.Filter) string {
	f.started = append(f.started, filter)
	return "started"
}

func (f *fakeCommander) Stop() string {
	f.stops++
	return "stopped"
}

type fakeSender struct{ err error }

func (f *fakeSender) SendTest(context.Context) error { return f.err }

func newGateway(ctrl *fakeCommander, sender *fakeSender) *gateway.Gateway {
	return gateway.New("ws://gateway.test", "token", ctrl, sender)
}

func TestHandle_StartParsesFilter(t *testing.T) {
	ctrl := &fakeCommander{}
	g := newGateway(ctrl, &fakeSender{})

	reply := g.Handle(context.Background(), "start", []string{"50", "200", "Helsinki"})
	if reply != "started" {
		t.Errorf("reply = %q", reply)
	}
	want := model.Filter{MinPrice: 50, MaxPrice: 200, Location: "Helsinki"}
	if len(ctrl.started) != 1 || ctrl.started[0] != want {
		t.Errorf("started = %v, want %v", ctrl.started, want)
	}
}

func TestHandle_StartJoinsMultiWordLocation(t *testing.T) {
	ctrl := &fakeCommander{}
	g := newGateway(ctrl, &fakeSender{})

	g.Handle(context.Background(), "start", []string{"0", "100", "Itä", "Helsinki"})
	if len(ctrl.started) != 1 || ctrl.started[0].Location != "Itä Helsinki" {
		t.Errorf("started = %v", ctrl.started)
	}
}

func TestHandle_StartRejectsBadArgs(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"too few args", []string{"50", "200"}},
		{"min not a number", []string{"low", "200", "Helsinki"}},
		{"max not a number", []string{"50", "high", "Helsinki"}},
		{"inverted range", []string{"200", "50", "Helsinki"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctrl := &fakeCommander{}
			g := newGateway(ctrl, &fakeSender{})
			reply := g.Handle(context.Background(), "start", c.args)
			if !strings.HasPrefix(reply, "Usage:") {
				t.Errorf("reply = %q, want usage text", reply)
			}
			if len(ctrl.started) != 0 {
				t.Errorf("controller started with bad args: %v", ctrl.started)
			}
		})
	}
}

func TestHandle_Stop(t *testing.T) {
	ctrl := &fakeCommander{}
	g := newGateway(ctrl, &fakeSender{})

	if reply := g.Handle(context.Background(), "stop", nil); reply != "stopped" {
		t.Errorf("reply = %q", reply)
	}
	if ctrl.stops != 1 {
		t.Errorf("stops = %d, want 1", ctrl.stops)
	}
}

func TestHandle_Send(t *testing.T) {
	g := newGateway(&fakeCommander{}, &fakeSender{})
	if reply := g.Handle(context.Background(), "send", nil); reply != "Message sent to webhook!" {
		t.Errorf("reply = %q", reply)
	}

	g = newGateway(&fakeCommander{}, &fakeSender{err: errors.New("503")})
	if reply := g.Handle(context.Background(), "send", nil); !strings.HasPrefix(reply, "Failed to send message") {
		t.Errorf("reply = %q, want failure text", reply)
	}
}

func TestHandle_HelpAndUnknown(t *testing.T) {
	g := newGateway(&fakeCommander{}, &fakeSender{})

	help := g.Handle(context.Background(), "help", nil)
	for _, cmd := range []string{"!start", "!stop", "!send", "!help"} {
		if !strings.Contains(help, cmd) {
			t.Errorf("help text missing %s", cmd)
		}
	}

	if reply := g.Handle(context.Background(), "dance", nil); !strings.Contains(reply, "Unknown command") {
		t.Errorf("reply = %q", reply)
	}
}

func TestHandle_CommandNameCaseInsensitive(t *testing.T) {
	ctrl := &fakeCommander{}
	g := newGateway(ctrl, &fakeSender{})
	g.Handle(context.Background(), "START", []string{"1", "2", "x"})
	if len(ctrl.started) != 1 {
		t.Error("uppercase command not dispatched")
	}
}
