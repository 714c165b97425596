package actionability

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brennhill/fallbackweave/internal/transport"
)

type stepTransport struct {
	responses []predicateSnapshot
	idx       atomic.Int32
}

func (s *stepTransport) Attach(context.Context, transport.Target) error { return nil }
func (s *stepTransport) Detach(context.Context, transport.Target) error { return nil }
func (s *stepTransport) On(transport.Target, string, transport.EventHandler) {}
func (s *stepTransport) Send(ctx context.Context, target transport.Target, method string, params any) (json.RawMessage, error) {
	i := s.idx.Add(1) - 1
	if int(i) >= len(s.responses) {
		i = int32(len(s.responses) - 1)
	}
	return json.Marshal(s.responses[i])
}

func TestWaitSucceedsImmediately(t *testing.T) {
	st := &stepTransport{responses: []predicateSnapshot{
		{Exists: true, TopMost: true, Opacity: 1},
	}}
	w := New(st, Config{PollInterval: time.Millisecond, Timeout: time.Second})
	res := w.Wait(context.Background(), "t1", "#x")
	if !res.Actionable {
		t.Fatalf("expected actionable, got %+v", res)
	}
}

func TestWaitEventuallySucceeds(t *testing.T) {
	st := &stepTransport{responses: []predicateSnapshot{
		{Exists: false},
		{Exists: true, TopMost: false, Opacity: 1},
		{Exists: true, TopMost: true, Opacity: 1},
	}}
	w := New(st, Config{PollInterval: time.Millisecond, Timeout: time.Second})
	res := w.Wait(context.Background(), "t1", "#x")
	if !res.Actionable {
		t.Fatalf("expected eventual success, got %+v", res)
	}
}

func TestWaitTimesOut(t *testing.T) {
	st := &stepTransport{responses: []predicateSnapshot{{Exists: false}}}
	w := New(st, Config{PollInterval: time.Millisecond, Timeout: 20 * time.Millisecond})
	res := w.Wait(context.Background(), "t1", "#x")
	if res.Actionable {
		t.Fatal("expected timeout to leave element non-actionable")
	}
	if res.Reason == "" {
		t.Error("expected a reason on timeout")
	}
}
