package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/brennhill/fallbackweave/internal/evidence"
	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/mousecapture"
	"github.com/brennhill/fallbackweave/internal/networkcapture"
	"github.com/brennhill/fallbackweave/internal/transport"
	"github.com/brennhill/fallbackweave/internal/visioncapture"

	"github.com/brennhill/fallbackweave/internal/a11y"
)

// Start brings up the capture layers against target and transitions
// the session from idle to recording. DOM (the accessibility view used
// for semantic-locator generation) is critical: a Refresh failure is
// fatal and leaves the session in the error state. Vision is
// non-critical: if no OCR engine was supplied, it is simply marked
// disabled and the session proceeds (spec.md §4.9).
func (o *Orchestrator) Start(ctx context.Context, target transport.Target) (string, error) {
	o.mu.Lock()
	switch o.state {
	case locator.StateIdle, locator.StateCompleted, locator.StateError:
	default:
		st := o.state
		o.mu.Unlock()
		return "", &locator.CommandError{Code: locator.CodeAlreadyRunning, Message: "a session is already " + string(st)}
	}
	o.state = locator.StateInitializing
	o.target = target
	o.sessionID = uuid.NewString()
	o.layerStatus = map[string]bool{
		"vision":  o.cfg.EnableVision,
		"mouse":   o.cfg.EnableMouse,
		"network": o.cfg.EnableNetwork,
	}
	o.mu.Unlock()

	buffer := evidence.New(o.cfg.Buffer, o.onEvict)
	view := a11y.New(o.transport, o.cfg.A11yTTL)

	var mouse *mousecapture.Layer
	if o.cfg.EnableMouse {
		mouse = mousecapture.New(o.cfg.Mouse)
	}
	var network *networkcapture.Layer
	if o.cfg.EnableNetwork {
		network = networkcapture.New(o.cfg.Network)
	}
	var vision *visioncapture.Layer
	visionEnabled := o.cfg.EnableVision && o.ocr != nil
	if visionEnabled {
		vision = visioncapture.New(o.transport, o.ocr, o.cfg.Vision)
	}

	if err := view.Refresh(ctx, target); err != nil {
		o.mu.Lock()
		o.state = locator.StateError
		o.mu.Unlock()
		return "", &locator.CommandError{Code: locator.CodeInitFailed, Message: "dom layer init failed: " + err.Error()}
	}

	o.mu.Lock()
	o.buffer = buffer
	o.a11y = view
	o.mouse = mouse
	o.network = network
	o.vision = vision
	o.layerStatus["vision"] = visionEnabled
	o.state = locator.StateRecording
	sessionID := o.sessionID
	o.mu.Unlock()
	return sessionID, nil
}

// Pause suspends event handling without tearing down any layer.
func (o *Orchestrator) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != locator.StateRecording {
		return &locator.CommandError{Code: locator.CodeWrongMode, Message: "cannot pause from " + string(o.state)}
	}
	o.state = locator.StatePaused
	return nil
}

// Resume returns a paused session to recording.
func (o *Orchestrator) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != locator.StatePaused {
		return &locator.CommandError{Code: locator.CodeWrongMode, Message: "cannot resume from " + string(o.state)}
	}
	o.state = locator.StateRecording
	return nil
}

// Stop finalizes the session and returns every action still held by
// the Evidence Buffer. The session becomes reusable once Stop returns.
func (o *Orchestrator) Stop() ([]locator.CapturedAction, error) {
	o.mu.Lock()
	switch o.state {
	case locator.StateRecording, locator.StatePaused:
	default:
		st := o.state
		o.mu.Unlock()
		return nil, &locator.CommandError{Code: locator.CodeNotRunning, Message: "no active session to stop (state " + string(st) + ")"}
	}
	o.state = locator.StateFinalizing
	buffer := o.buffer
	o.mu.Unlock()

	actions := buffer.Drain()

	o.mu.Lock()
	o.state = locator.StateCompleted
	o.mu.Unlock()
	return actions, nil
}

// ToggleLayer enables or disables one optional capture layer mid-session.
// Re-enabling builds a fresh layer instance with empty history; the DOM
// layer (accessibility view) has no toggle and is rejected as an
// invalid argument.
func (o *Orchestrator) ToggleLayer(name string, enabled bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, known := o.layerStatus[name]; !known {
		return &locator.CommandError{Code: locator.CodeInvalidArg, Message: "unknown layer " + name}
	}

	switch name {
	case "vision":
		if enabled {
			if o.ocr == nil {
				return &locator.CommandError{Code: locator.CodeInvalidArg, Message: "vision layer has no OCR engine configured"}
			}
			o.vision = visioncapture.New(o.transport, o.ocr, o.cfg.Vision)
		} else {
			o.vision = nil
		}
	case "mouse":
		if enabled {
			o.mouse = mousecapture.New(o.cfg.Mouse)
		} else {
			o.mouse = nil
		}
	case "network":
		if enabled {
			o.network = networkcapture.New(o.cfg.Network)
		} else {
			o.network = nil
		}
	}
	o.layerStatus[name] = enabled
	return nil
}
