package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/transport"
)

type fakeTransport struct {
	failAccessibility bool
}

func (f *fakeTransport) Attach(context.Context, transport.Target) error { return nil }
func (f *fakeTransport) Detach(context.Context, transport.Target) error { return nil }
func (f *fakeTransport) On(transport.Target, string, transport.EventHandler) {}

func (f *fakeTransport) Send(ctx context.Context, target transport.Target, method string, params any) (json.RawMessage, error) {
	if method == "accessibility.tree" {
		if f.failAccessibility {
			return nil, errors.New("tree unavailable")
		}
		return json.RawMessage(`[]`), nil
	}
	return json.RawMessage(`{}`), nil
}

type stubOCR struct {
	err error
}

func (s *stubOCR) Recognize(ctx context.Context, image []byte) ([]locator.OCRResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []locator.OCRResult{{Text: "Submit", Confidence: 90}}, nil
}

func newTestOrchestrator(ft *fakeTransport, ocr transport.OCREngine) *Orchestrator {
	cfg := DefaultConfig()
	return New(ft, ocr, cfg, nil, nil)
}

func TestStartTransitionsIdleToRecording(t *testing.T) {
	o := newTestOrchestrator(&fakeTransport{}, &stubOCR{})
	id, err := o.Start(context.Background(), transport.Target("page-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Error("expected a non-empty session id")
	}
	if o.State() != locator.StateRecording {
		t.Errorf("expected state recording, got %s", o.State())
	}
}

func TestStartTwiceFailsAlreadyRunning(t *testing.T) {
	o := newTestOrchestrator(&fakeTransport{}, &stubOCR{})
	if _, err := o.Start(context.Background(), transport.Target("p")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := o.Start(context.Background(), transport.Target("p"))
	var cmdErr *locator.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Code != locator.CodeAlreadyRunning {
		t.Fatalf("expected already_running, got %v", err)
	}
}

func TestStartWithFailingDomLayerIsFatal(t *testing.T) {
	o := newTestOrchestrator(&fakeTransport{failAccessibility: true}, &stubOCR{})
	_, err := o.Start(context.Background(), transport.Target("p"))
	var cmdErr *locator.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Code != locator.CodeInitFailed {
		t.Fatalf("expected init_failed, got %v", err)
	}
	if o.State() != locator.StateError {
		t.Errorf("expected state error, got %s", o.State())
	}
}

func TestStartWithoutOCRDisablesVisionButSucceeds(t *testing.T) {
	o := newTestOrchestrator(&fakeTransport{}, nil)
	if _, err := o.Start(context.Background(), transport.Target("p")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.GetLayerStatus()["vision"] {
		t.Error("expected vision disabled with no OCR engine")
	}
}

func TestPauseResumeRoundTrip(t *testing.T) {
	o := newTestOrchestrator(&fakeTransport{}, &stubOCR{})
	o.Start(context.Background(), transport.Target("p"))
	if err := o.Pause(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.State() != locator.StatePaused {
		t.Errorf("expected paused, got %s", o.State())
	}
	if err := o.Resume(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.State() != locator.StateRecording {
		t.Errorf("expected recording, got %s", o.State())
	}
}

func TestPauseWhenNotRecordingFailsWrongMode(t *testing.T) {
	o := newTestOrchestrator(&fakeTransport{}, &stubOCR{})
	err := o.Pause()
	var cmdErr *locator.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Code != locator.CodeWrongMode {
		t.Fatalf("expected wrong_mode, got %v", err)
	}
}

func TestStopWhenNotRunningFailsNotRunning(t *testing.T) {
	o := newTestOrchestrator(&fakeTransport{}, &stubOCR{})
	_, err := o.Stop()
	var cmdErr *locator.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Code != locator.CodeNotRunning {
		t.Fatalf("expected not_running, got %v", err)
	}
}

func TestToggleUnknownLayerFailsInvalidArg(t *testing.T) {
	o := newTestOrchestrator(&fakeTransport{}, &stubOCR{})
	o.Start(context.Background(), transport.Target("p"))
	err := o.ToggleLayer("gamma-rays", true)
	var cmdErr *locator.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Code != locator.CodeInvalidArg {
		t.Fatalf("expected invalid_arg, got %v", err)
	}
}

func TestHandleDomEventProducesChainAndBuffersAction(t *testing.T) {
	o := newTestOrchestrator(&fakeTransport{}, &stubOCR{})
	o.Start(context.Background(), transport.Target("p"))

	var delivered locator.CapturedAction
	o.consumer = func(a locator.CapturedAction) { delivered = a }

	ev := DomEvent{
		EventType: locator.EventClick,
		Dom: locator.ElementDescriptor{
			TagName:    "button",
			ID:         "submit-btn",
			ClickPoint: locator.Point{X: 10, Y: 20},
		},
		Now: time.Now(),
	}
	action, err := o.HandleDomEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.ActionID == "" {
		t.Error("expected a generated action id")
	}
	if len(action.FallbackChain.Strategies) == 0 {
		t.Error("expected at least one strategy in the fallback chain")
	}
	if delivered.ActionID != action.ActionID {
		t.Error("expected the consumer to receive the same action")
	}
	if o.GetBufferStats().Count != 1 {
		t.Errorf("expected 1 buffered action, got %d", o.GetBufferStats().Count)
	}
}

func TestHandleDomEventWhenNotRecordingFailsWrongMode(t *testing.T) {
	o := newTestOrchestrator(&fakeTransport{}, &stubOCR{})
	_, err := o.HandleDomEvent(context.Background(), DomEvent{EventType: locator.EventClick})
	var cmdErr *locator.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Code != locator.CodeWrongMode {
		t.Fatalf("expected wrong_mode, got %v", err)
	}
}

func TestStopReturnsBufferedActionsAndAllowsRestart(t *testing.T) {
	o := newTestOrchestrator(&fakeTransport{}, &stubOCR{})
	o.Start(context.Background(), transport.Target("p"))
	ev := DomEvent{
		EventType: locator.EventClick,
		Dom:       locator.ElementDescriptor{TagName: "button", ID: "x", ClickPoint: locator.Point{X: 1, Y: 1}},
		Now:       time.Now(),
	}
	o.HandleDomEvent(context.Background(), ev)

	actions, err := o.Stop()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected 1 drained action, got %d", len(actions))
	}
	if o.State() != locator.StateCompleted {
		t.Errorf("expected completed, got %s", o.State())
	}
	if _, err := o.Start(context.Background(), transport.Target("p")); err != nil {
		t.Errorf("expected session to be restartable after completion: %v", err)
	}
}
