package locator

import "errors"

// Error kinds from spec.md §7. Components wrap these with fmt.Errorf and
// "%w" so callers can errors.Is against the kind while still getting a
// descriptive message.
var (
	ErrNotFound       = errors.New("not_found")
	ErrAmbiguousMatch = errors.New("ambiguous_match")
	ErrNotActionable  = errors.New("not_actionable")
	ErrDispatchFailed = errors.New("dispatch_failed")
	ErrTimeout        = errors.New("timeout")
	ErrInitFailed     = errors.New("init_failed")
	ErrBufferFull     = errors.New("buffer_full")
	ErrEvaluatorError = errors.New("evaluator_error")
	ErrTransport      = errors.New("transport_error")
)
