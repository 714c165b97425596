package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/brennhill/fallbackweave/internal/chain"
	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/mousecapture"
	"github.com/brennhill/fallbackweave/internal/networkcapture"
	"github.com/brennhill/fallbackweave/internal/transport"
	"github.com/brennhill/fallbackweave/internal/visioncapture"
)

// DomEvent is one recorded DOM action, already built by the DOM
// Capture Layer (a pure, transport-specific concern outside this
// package — see internal/domcapture) into an ElementDescriptor, handed
// to the orchestrator for evidence fan-out and chain generation.
type DomEvent struct {
	EventType  locator.EventType
	Value      string
	Dom        locator.ElementDescriptor
	ClickPoint locator.Point
	PageURL    string
	Now        time.Time
}

// HandleDomEvent runs the per-action pipeline (spec.md §4.9): snapshot
// the optional layers in parallel (vision bounded by OCRTimeout; the
// mouse and network reads carry no timeout),
// generate and build the fallback chain, append the result to the
// Evidence Buffer (draining once and retrying if it's full), then hand
// the action to the consumer.
func (o *Orchestrator) HandleDomEvent(ctx context.Context, ev DomEvent) (locator.CapturedAction, error) {
	o.mu.Lock()
	if o.state != locator.StateRecording {
		st := o.state
		o.mu.Unlock()
		return locator.CapturedAction{}, &locator.CommandError{Code: locator.CodeWrongMode, Message: "not recording (state " + string(st) + ")"}
	}
	mouse, network, vision, target, buffer := o.mouse, o.network, o.vision, o.target, o.buffer
	o.mu.Unlock()

	mouseEv, networkEv, visionEv := o.snapshotEvidence(ctx, mouse, network, vision, target, ev)

	candidates := chain.Generate(chain.GenerateInput{
		Dom:              ev.Dom,
		Vision:           visionEv,
		Mouse:            mouseEv,
		LiveOCRAvailable: visionEv != nil,
	})
	built := chain.Build(candidates, o.cfg.Chain, ev.Now)

	action := locator.CapturedAction{
		ActionID:        uuid.NewString(),
		Timestamp:       ev.Now,
		EventType:       ev.EventType,
		Value:           ev.Value,
		DomEvidence:     ev.Dom,
		VisionEvidence:  visionEv,
		MouseEvidence:   mouseEv,
		NetworkEvidence: networkEv,
		FallbackChain:   built.Chain,
	}

	if err := buffer.Put(action); err != nil {
		// Buffer full: drain once to the consumer, then retry. A second
		// failure is fatal to this action (spec.md §4.9).
		for _, drained := range buffer.Drain() {
			if o.consumer != nil {
				o.consumer(drained)
			}
		}
		if err := buffer.Put(action); err != nil {
			return locator.CapturedAction{}, err
		}
	}

	if o.consumer != nil {
		o.consumer(action)
	}
	return action, nil
}

// snapshotEvidence fans the three optional layers out concurrently via
// errgroup, the same pattern the Decision Engine uses for parallel
// strategy evaluation. Mouse and network reads are synchronous
// in-memory lookups; vision is a real round-trip (screenshot + OCR)
// bounded by the configured OCR timeout and is best-effort — an error
// or timeout simply omits vision evidence rather than failing the
// action (spec.md §4.9 "vision timeout: vision evidence omitted, chain
// still generates").
func (o *Orchestrator) snapshotEvidence(
	ctx context.Context,
	mouse *mousecapture.Layer,
	network *networkcapture.Layer,
	vision *visioncapture.Layer,
	target transport.Target,
	ev DomEvent,
) (*locator.MouseEvidence, *locator.NetworkEvidence, *locator.VisionEvidence) {
	var mouseEv *locator.MouseEvidence
	var networkEv *locator.NetworkEvidence
	var visionEv *locator.VisionEvidence

	g, gctx := errgroup.WithContext(ctx)

	if mouse != nil {
		g.Go(func() error {
			points, summary := mouse.Consume()
			mouseEv = &locator.MouseEvidence{Trail: points, Summary: summary}
			return nil
		})
	}
	if network != nil {
		g.Go(func() error {
			snap := network.Snapshot(ev.Now)
			networkEv = &snap
			return nil
		})
	}
	if vision != nil {
		g.Go(func() error {
			visCtx, cancel := context.WithTimeout(gctx, o.cfg.OCRTimeout)
			defer cancel()
			result, err := vision.Capture(visCtx, target, ev.PageURL, ev.Dom.BoundingRect, ev.Now)
			if err != nil {
				o.log.Debug("vision snapshot omitted", "error", err)
				return nil
			}
			visionEv = &result
			return nil
		})
	}
	_ = g.Wait() // every goroutine above swallows its own error; Wait only joins them

	return mouseEv, networkEv, visionEv
}

// OnMouseMove feeds a raw page-side mouse-move sample to the Mouse
// Capture Layer, if enabled and the session is recording.
func (o *Orchestrator) OnMouseMove(x, y float64, at time.Time) {
	o.mu.Lock()
	m, recording := o.mouse, o.state == locator.StateRecording
	o.mu.Unlock()
	if m != nil && recording {
		m.OnMouseMove(x, y, at)
	}
}

// OnMouseDown feeds a raw page-side mouse-down sample.
func (o *Orchestrator) OnMouseDown(x, y float64, at time.Time) {
	o.mu.Lock()
	m, recording := o.mouse, o.state == locator.StateRecording
	o.mu.Unlock()
	if m != nil && recording {
		m.OnMouseDown(x, y, at)
	}
}

// OnMouseUp feeds a raw page-side mouse-up sample.
func (o *Orchestrator) OnMouseUp(x, y float64, at time.Time) {
	o.mu.Lock()
	m, recording := o.mouse, o.state == locator.StateRecording
	o.mu.Unlock()
	if m != nil && recording {
		m.OnMouseUp(x, y, at)
	}
}

// OnRequestStart feeds a raw page-side network request-start event.
func (o *Orchestrator) OnRequestStart(id, url, method, reqType string, at time.Time) {
	o.mu.Lock()
	n := o.network
	o.mu.Unlock()
	if n != nil {
		n.OnRequestStart(id, url, method, reqType, at)
	}
}

// OnRequestComplete feeds a raw page-side network request-complete event.
func (o *Orchestrator) OnRequestComplete(id string, status int, at time.Time) {
	o.mu.Lock()
	n := o.network
	o.mu.Unlock()
	if n != nil {
		n.OnRequestComplete(id, status, at)
	}
}

// OnPageLoadState feeds the page's current load state (e.g.
// "loading"/"complete") to the Network Capture Layer.
func (o *Orchestrator) OnPageLoadState(state string, at time.Time) {
	o.mu.Lock()
	n := o.network
	o.mu.Unlock()
	if n != nil {
		n.SetPageLoadState(state, at)
	}
}
