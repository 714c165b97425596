// Package rodtransport is a concrete Command Transport implementation
// over github.com/go-rod/rod, the one piece of the spec's "opaque
// browser automation channel" (spec.md §1, §4.1) given a real body
// instead of staying a bare interface. Grounded on
// hazyhaar-chrc/domwatch's browser.Manager (Chrome lifecycle via
// rod.Browser) and its CDP-event observer.
package rodtransport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/transport"
)

// Config configures the rod-backed transport.
type Config struct {
	// RemoteURL is the WebSocket URL of an already-running Chrome
	// instance. Empty launches a local headless Chrome via launcher.
	RemoteURL string
	Stealth   bool
	Logger    *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Transport drives one rod.Browser and maps each attached
// transport.Target onto one rod.Page.
type Transport struct {
	cfg     Config
	browser *rod.Browser

	mu      sync.RWMutex
	pages   map[transport.Target]*rod.Page
	cancels map[transport.Target]context.CancelFunc

	handlersMu sync.RWMutex
	handlers   map[transport.Target]map[string][]transport.EventHandler

	corr *transport.Correlator
}

// New launches (or connects to) Chrome and returns a ready Transport.
func New(cfg Config) (*Transport, error) {
	cfg.defaults()

	var controlURL string
	if cfg.RemoteURL != "" {
		controlURL = cfg.RemoteURL
	} else {
		u, err := launcher.New().Headless(true).Launch()
		if err != nil {
			return nil, fmt.Errorf("init_failed: launch chrome: %w", locator.ErrInitFailed)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("init_failed: connect chrome: %w", locator.ErrInitFailed)
	}

	return &Transport{
		cfg:      cfg,
		browser:  browser,
		pages:    make(map[transport.Target]*rod.Page),
		cancels:  make(map[transport.Target]context.CancelFunc),
		handlers: make(map[transport.Target]map[string][]transport.EventHandler),
		corr:     transport.NewCorrelator(),
	}, nil
}

// Attach opens a new page (optionally stealth-patched) and registers it
// under target.
func (t *Transport) Attach(ctx context.Context, target transport.Target) error {
	page, err := t.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("init_failed: open page: %w", locator.ErrInitFailed)
	}
	if t.cfg.Stealth {
		if sp, err := stealth.Page(t.browser); err == nil {
			page = sp
		} else {
			t.cfg.Logger.Warn("stealth page patch failed, continuing unpatched", "target", target, "err", err)
		}
	}

	pctx, cancel := context.WithCancel(context.Background())
	page = page.Context(pctx)

	t.mu.Lock()
	t.pages[target] = page
	t.cancels[target] = cancel
	t.mu.Unlock()

	return nil
}

// Detach closes the page bound to target.
func (t *Transport) Detach(ctx context.Context, target transport.Target) error {
	t.mu.Lock()
	page, ok := t.pages[target]
	cancel := t.cancels[target]
	delete(t.pages, target)
	delete(t.cancels, target)
	t.mu.Unlock()

	if !ok {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	return page.Close()
}

func (t *Transport) page(target transport.Target) (*rod.Page, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	page, ok := t.pages[target]
	if !ok {
		return nil, fmt.Errorf("wrong_mode: target %q not attached", target)
	}
	return page, nil
}

// On registers a callback for out-of-band events. This transport
// subscribes to no browser events and never invokes the registered
// handlers; Send has no method for installing a DOM-mutation binding.
func (t *Transport) On(target transport.Target, event string, handler transport.EventHandler) {
	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()
	if t.handlers[target] == nil {
		t.handlers[target] = make(map[string][]transport.EventHandler)
	}
	t.handlers[target][event] = append(t.handlers[target][event], handler)
}

func (t *Transport) emit(target transport.Target, event string, payload json.RawMessage) {
	t.handlersMu.RLock()
	hs := append([]transport.EventHandler{}, t.handlers[target][event]...)
	t.handlersMu.RUnlock()
	for _, h := range hs {
		h(target, payload)
	}
}

// Send dispatches one command by method name: dom.query (match count),
// dom.box (box center), dom.nodeAtPoint, accessibility.tree,
// page.screenshot, input.mouseMove/mousePress/mouseRelease/keyPress,
// input.scrollIntoView, input.focus, dom.select, dom.clear and
// dom.value. There is no attribute-query, page-metrics or
// dom.actionability method; any other method name returns an
// invalid_arg error.
func (t *Transport) Send(ctx context.Context, target transport.Target, method string, params any) (json.RawMessage, error) {
	page, err := t.page(target)
	if err != nil {
		return nil, err
	}

	switch method {
	case "dom.query":
		return t.domQuery(page, params)
	case "dom.box":
		return t.domBox(page, params)
	case "dom.nodeAtPoint":
		return t.nodeAtPoint(page, params)
	case "accessibility.tree":
		return t.accessibilityTree(ctx, page)
	case "page.screenshot":
		return t.screenshot(page)
	case "input.mouseMove":
		return nil, t.mouseMove(page, params)
	case "input.mousePress":
		return nil, t.mousePress(page, params)
	case "input.mouseRelease":
		return nil, t.mouseRelease(page, params)
	case "input.keyPress":
		return nil, t.keyPress(page, params)
	case "input.scrollIntoView":
		return nil, t.scrollIntoView(page, params)
	case "input.focus":
		return nil, t.focus(page, params)
	case "dom.select":
		return nil, t.selectOption(page, params)
	case "dom.clear":
		return nil, t.clearValue(page, params)
	case "dom.value":
		return t.domValue(page, params)
	default:
		return nil, fmt.Errorf("invalid_arg: unknown method %q", method)
	}
}

type pointParams struct {
	X, Y float64
}

func decodeParams[T any](params any) (T, error) {
	var out T
	b, err := json.Marshal(params)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (t *Transport) domQuery(page *rod.Page, params any) (json.RawMessage, error) {
	type req struct{ Selector string }
	r, err := decodeParams[req](params)
	if err != nil {
		return nil, err
	}
	elements, err := page.Elements(r.Selector)
	if err != nil {
		return json.Marshal(map[string]any{"count": 0})
	}
	return json.Marshal(map[string]any{"count": len(elements)})
}

func (t *Transport) domBox(page *rod.Page, params any) (json.RawMessage, error) {
	type req struct{ Selector string }
	r, err := decodeParams[req](params)
	if err != nil {
		return nil, err
	}
	el, err := page.Element(r.Selector)
	if err != nil {
		return nil, fmt.Errorf("not_found: %w", locator.ErrNotFound)
	}
	box, err := el.Shape()
	if err != nil {
		return nil, fmt.Errorf("not_found: shape unavailable: %w", locator.ErrNotFound)
	}
	cx, cy := 0.0, 0.0
	if len(box.Quads) > 0 {
		q := box.Quads[0]
		minX, maxX, minY, maxY := q[0], q[0], q[1], q[1]
		for i := 0; i < len(q); i += 2 {
			if q[i] < minX {
				minX = q[i]
			}
			if q[i] > maxX {
				maxX = q[i]
			}
			if q[i+1] < minY {
				minY = q[i+1]
			}
			if q[i+1] > maxY {
				maxY = q[i+1]
			}
		}
		cx, cy = (minX+maxX)/2, (minY+maxY)/2
	}
	return json.Marshal(locator.Point{X: cx, Y: cy})
}

func (t *Transport) nodeAtPoint(page *rod.Page, params any) (json.RawMessage, error) {
	p, err := decodeParams[pointParams](params)
	if err != nil {
		return nil, err
	}
	el, err := page.ElementFromPoint(int(p.X), int(p.Y))
	if err != nil {
		return nil, fmt.Errorf("not_found: %w", locator.ErrNotFound)
	}
	desc, err := el.Describe(1, false)
	if err != nil {
		return nil, fmt.Errorf("evaluator_error: describe node: %w", locator.ErrEvaluatorError)
	}
	id, _ := el.Attribute("id")
	class, _ := el.Attribute("class")
	resp := map[string]any{"tagName": desc.LocalName, "nodeId": desc.NodeID}
	if id != nil {
		resp["id"] = *id
	}
	if class != nil {
		resp["class"] = *class
	}
	return json.Marshal(resp)
}

func (t *Transport) accessibilityTree(ctx context.Context, page *rod.Page) (json.RawMessage, error) {
	tree, err := proto.AccessibilityGetFullAXTree{}.Call(page)
	if err != nil {
		return nil, fmt.Errorf("transport_error: accessibility tree: %w", locator.ErrTransport)
	}
	return json.Marshal(tree)
}

func (t *Transport) screenshot(page *rod.Page) (json.RawMessage, error) {
	b, err := page.Screenshot(false, &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng})
	if err != nil {
		return nil, fmt.Errorf("transport_error: screenshot: %w", locator.ErrTransport)
	}
	return json.Marshal(map[string]any{"png": b})
}

func (t *Transport) mouseMove(page *rod.Page, params any) error {
	p, err := decodeParams[pointParams](params)
	if err != nil {
		return err
	}
	return page.Mouse.MoveTo(proto.Point{X: p.X, Y: p.Y})
}

func (t *Transport) mousePress(page *rod.Page, params any) error {
	p, err := decodeParams[pointParams](params)
	if err != nil {
		return err
	}
	if err := page.Mouse.MoveTo(proto.Point{X: p.X, Y: p.Y}); err != nil {
		return err
	}
	return page.Mouse.Down(proto.InputMouseButtonLeft, 1)
}

func (t *Transport) mouseRelease(page *rod.Page, params any) error {
	return page.Mouse.Up(proto.InputMouseButtonLeft, 1)
}

func (t *Transport) keyPress(page *rod.Page, params any) error {
	type req struct{ Rune rune }
	r, err := decodeParams[req](params)
	if err != nil {
		return err
	}
	return page.Keyboard.Type(input.Key(r.Rune))
}

func (t *Transport) scrollIntoView(page *rod.Page, params any) error {
	type req struct{ Selector string }
	r, err := decodeParams[req](params)
	if err != nil {
		return err
	}
	el, err := page.Element(r.Selector)
	if err != nil {
		return fmt.Errorf("not_found: %w", locator.ErrNotFound)
	}
	return el.ScrollIntoView()
}

func (t *Transport) focus(page *rod.Page, params any) error {
	type req struct{ Selector string }
	r, err := decodeParams[req](params)
	if err != nil {
		return err
	}
	el, err := page.Element(r.Selector)
	if err != nil {
		return fmt.Errorf("not_found: %w", locator.ErrNotFound)
	}
	return el.Focus()
}

func (t *Transport) selectOption(page *rod.Page, params any) error {
	type req struct {
		Selector string
		Value    string
	}
	r, err := decodeParams[req](params)
	if err != nil {
		return err
	}
	el, err := page.Element(r.Selector)
	if err != nil {
		return fmt.Errorf("not_found: %w", locator.ErrNotFound)
	}
	if err := el.Select([]string{r.Value}, true, rod.SelectorTypeText); err != nil {
		return fmt.Errorf("dispatch_failed: select option: %w", locator.ErrDispatchFailed)
	}
	return nil
}

func (t *Transport) clearValue(page *rod.Page, params any) error {
	type req struct{ Selector string }
	r, err := decodeParams[req](params)
	if err != nil {
		return err
	}
	el, err := page.Element(r.Selector)
	if err != nil {
		return fmt.Errorf("not_found: %w", locator.ErrNotFound)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("dispatch_failed: select all text: %w", locator.ErrDispatchFailed)
	}
	return el.Input("")
}

func (t *Transport) domValue(page *rod.Page, params any) (json.RawMessage, error) {
	type req struct{ Selector string }
	r, err := decodeParams[req](params)
	if err != nil {
		return nil, err
	}
	el, err := page.Element(r.Selector)
	if err != nil {
		return nil, fmt.Errorf("not_found: %w", locator.ErrNotFound)
	}
	val, err := el.Property("value")
	if err != nil {
		return nil, fmt.Errorf("evaluator_error: read value: %w", locator.ErrEvaluatorError)
	}
	return json.Marshal(map[string]any{"value": val.String()})
}

// Close tears down all attached pages and disconnects the browser.
func (t *Transport) Close() error {
	t.mu.Lock()
	for target, cancel := range t.cancels {
		cancel()
		delete(t.cancels, target)
	}
	t.mu.Unlock()
	return t.browser.Close()
}

