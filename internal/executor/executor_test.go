package executor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/brennhill/fallbackweave/internal/actionability"
	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/transport"
)

type recordedCall struct {
	method string
	params any
}

type fakeTransport struct {
	calls       []recordedCall
	actionable  bool
	valueOnRead string
	failMethod  string
}

func (f *fakeTransport) Attach(context.Context, transport.Target) error      { return nil }
func (f *fakeTransport) Detach(context.Context, transport.Target) error      { return nil }
func (f *fakeTransport) On(transport.Target, string, transport.EventHandler) {}

func (f *fakeTransport) Send(ctx context.Context, target transport.Target, method string, params any) (json.RawMessage, error) {
	f.calls = append(f.calls, recordedCall{method, params})
	if f.failMethod != "" && method == f.failMethod {
		return nil, errors.New("boom")
	}
	switch method {
	case "dom.actionability":
		snap := map[string]any{"exists": true, "boxDegenerate": false, "topMost": f.actionable, "opacity": 1.0, "inert": false}
		b, _ := json.Marshal(snap)
		return b, nil
	case "dom.value":
		b, _ := json.Marshal(map[string]string{"value": f.valueOnRead})
		return b, nil
	default:
		return json.RawMessage(`{}`), nil
	}
}

func newExecutor(ft *fakeTransport) *Executor {
	waiter := actionability.New(ft, actionability.Config{PollInterval: time.Millisecond, Timeout: 20 * time.Millisecond})
	return New(ft, waiter, DefaultConfig())
}

func TestExecuteClickDispatchesMouseSequence(t *testing.T) {
	ft := &fakeTransport{actionable: true}
	e := newExecutor(ft)

	action := locator.CapturedAction{ActionID: "a1", EventType: locator.EventClick}
	winner := locator.LocatorStrategy{Type: locator.StrategySelectorUniq, Selector: "#go"}

	err := e.Execute(context.Background(), "t1", action, winner, locator.Point{X: 10, Y: 20}, "node-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var presses int
	for _, c := range ft.calls {
		if c.method == "input.mousePress" {
			presses++
		}
	}
	if presses != 1 {
		t.Errorf("expected exactly 1 mouse press, got %d", presses)
	}
}

func TestExecuteNotActionableFails(t *testing.T) {
	ft := &fakeTransport{actionable: false}
	e := newExecutor(ft)

	action := locator.CapturedAction{ActionID: "a1", EventType: locator.EventClick}
	winner := locator.LocatorStrategy{Type: locator.StrategySelectorUniq, Selector: "#go"}

	err := e.Execute(context.Background(), "t1", action, winner, locator.Point{X: 1, Y: 1}, "")
	if err == nil {
		t.Fatal("expected not_actionable failure")
	}
	var execErr *Error
	if !errors.As(err, &execErr) || execErr.Kind != FailureNotActionable {
		t.Errorf("expected FailureNotActionable, got %v", err)
	}
	if !execErr.Retryable() {
		t.Error("expected not_actionable to be retryable")
	}
}

func TestExecuteTypeTextVerifiesReadback(t *testing.T) {
	ft := &fakeTransport{actionable: true, valueOnRead: "hello"}
	e := newExecutor(ft)

	action := locator.CapturedAction{ActionID: "a1", EventType: locator.EventTypeText, Value: "hello"}
	winner := locator.LocatorStrategy{Type: locator.StrategySelectorUniq, Selector: "#input"}

	err := e.Execute(context.Background(), "t1", action, winner, locator.Point{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var keyPresses int
	for _, c := range ft.calls {
		if c.method == "input.keyPress" {
			keyPresses++
		}
	}
	if keyPresses != len("hello") {
		t.Errorf("expected %d key presses, got %d", len("hello"), keyPresses)
	}
}

func TestExecuteTypeTextReadbackMismatchFails(t *testing.T) {
	ft := &fakeTransport{actionable: true, valueOnRead: "wrong"}
	e := newExecutor(ft)

	action := locator.CapturedAction{ActionID: "a1", EventType: locator.EventTypeText, Value: "hello"}
	winner := locator.LocatorStrategy{Type: locator.StrategySelectorUniq, Selector: "#input"}

	err := e.Execute(context.Background(), "t1", action, winner, locator.Point{}, "")
	if err == nil {
		t.Fatal("expected a dispatch_failed mismatch error")
	}
}

func TestExecuteSelectDispatchesDomSelect(t *testing.T) {
	ft := &fakeTransport{actionable: true}
	e := newExecutor(ft)

	action := locator.CapturedAction{ActionID: "a1", EventType: locator.EventSelect, Value: "opt2"}
	winner := locator.LocatorStrategy{Type: locator.StrategySelectorUniq, Selector: "#dropdown"}

	err := e.Execute(context.Background(), "t1", action, winner, locator.Point{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, c := range ft.calls {
		if c.method == "dom.select" {
			found = true
		}
	}
	if !found {
		t.Error("expected a dom.select call")
	}
}

func TestExecuteDispatchFailurePropagates(t *testing.T) {
	ft := &fakeTransport{actionable: true, failMethod: "input.mousePress"}
	e := newExecutor(ft)

	action := locator.CapturedAction{ActionID: "a1", EventType: locator.EventClick}
	winner := locator.LocatorStrategy{Type: locator.StrategySelectorUniq, Selector: "#go"}

	err := e.Execute(context.Background(), "t1", action, winner, locator.Point{X: 1, Y: 1}, "")
	if err == nil {
		t.Fatal("expected dispatch_failed error")
	}
	var execErr *Error
	if !errors.As(err, &execErr) || execErr.Kind != FailureDispatchFailed {
		t.Errorf("expected FailureDispatchFailed, got %v", err)
	}
}
