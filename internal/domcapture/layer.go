package domcapture

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/transport"
)

// Callback is invoked once per coalesced DOM event with the built
// descriptor and capture-time value (spec.md §4.4: "a single callback
// with {eventType, element, descriptor, value?, timestamp}").
type Callback func(target transport.Target, eventType locator.EventType, descriptor locator.ElementDescriptor, value string, ev RawEvent)

// watchedEvents are the events the layer subscribes to in the capture
// phase, per spec.md §4.4.
var watchedEvents = []string{"click", "input", "change", "submit", "keydown"}

// Layer is the DOM Capture Layer (spec.md §4.4). It is always enabled
// (critical per spec.md §4.9) and has no disable switch.
type Layer struct {
	transport transport.Transport
	debouncer *debouncer
	logger    *slog.Logger
	onEvent   Callback
}

// New builds a DOM Capture Layer. debounceWindow<=0 uses DefaultDebounceWindow.
func New(t transport.Transport, debounceWindow time.Duration, logger *slog.Logger, onEvent Callback) *Layer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Layer{
		transport: t,
		debouncer: newDebouncer(debounceWindow),
		logger:    logger,
		onEvent:   onEvent,
	}
}

// Start registers for capture-phase events on target and all same-origin
// frames (the framing/same-origin walk is the transport's page-side
// responsibility; this registers the Go-side handler for every event
// name named in spec.md §4.4).
func (l *Layer) Start(ctx context.Context, target transport.Target) error {
	if err := l.transport.Attach(ctx, target); err != nil {
		return err
	}
	for _, name := range watchedEvents {
		l.transport.On(target, "dom."+name, l.handle)
	}
	return nil
}

func (l *Layer) handle(target transport.Target, payload json.RawMessage) {
	var ev RawEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		l.logger.Warn("dom capture: malformed event payload", "err", err)
		return
	}

	key := string(target) + "|" + ev.Target.TagName + "|" + ev.Target.ID
	if !l.debouncer.allow(key, ev) {
		return
	}

	descriptor := BuildDescriptor(ev)
	value := ExtractedValue(ev)

	if l.onEvent != nil {
		l.onEvent(target, locator.EventType(ev.EventType), descriptor, value, ev)
	}
}
