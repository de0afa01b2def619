// Package responder emits actions onto the outbound queues and
// correlates asynchronous gateway responses with the calls that
// requested them, keyed by echo id.
package responder

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashlock/gatekit/internal/protocol"
)

// Router owns the outbound action queues and the pending-response table.
type Router struct {
	actionQ      chan *protocol.Action
	priorActionQ chan *protocol.Action

	kernelTimeout time.Duration
	snow          *Snowflake
	logger        *slog.Logger

	mu      sync.Mutex
	pending map[string]chan *protocol.ResponsePayload
}

// New constructs a Router over the given outbound queues. kernelTimeout
// bounds how long Throw will wait for a full queue before abandoning.
func New(actionQ, priorActionQ chan *protocol.Action, snow *Snowflake, kernelTimeout time.Duration, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		actionQ:       actionQ,
		priorActionQ:  priorActionQ,
		kernelTimeout: kernelTimeout,
		snow:          snow,
		logger:        logger,
		pending:       make(map[string]chan *protocol.ResponsePayload),
	}
}

// Throw enqueues action without waiting for a response. If the target
// queue is full, Throw waits up to the kernel timeout before abandoning
// with a warning.
func (r *Router) Throw(action *protocol.Action, priority bool) error {
	q := r.actionQ
	if priority {
		q = r.priorActionQ
	}

	select {
	case q <- action:
		return nil
	default:
	}

	timer := time.NewTimer(r.kernelTimeout)
	defer timer.Stop()
	select {
	case q <- action:
		return nil
	case <-timer.C:
		r.logger.Warn("action queue full, abandoning action after kernel timeout",
			"action_type", action.Type, "priority", priority)
		return fmt.Errorf("responder: action queue full, abandoned after %s", r.kernelTimeout)
	}
}

// Wait assigns a fresh echo id to action, registers a pending completion,
// and throws it. The caller reads from the returned channel (closed after
// the first send) to obtain the correlated response; it is the caller's
// responsibility to apply its own timeout.
func (r *Router) Wait(action *protocol.Action, priority bool) (<-chan *protocol.ResponsePayload, error) {
	echoID, err := r.snow.NextEchoID()
	if err != nil {
		return nil, fmt.Errorf("responder: generate echo id: %w", err)
	}
	action.EchoID = echoID

	ch := make(chan *protocol.ResponsePayload, 1)
	r.mu.Lock()
	r.pending[echoID] = ch
	r.mu.Unlock()

	if err := r.Throw(action, priority); err != nil {
		r.mu.Lock()
		delete(r.pending, echoID)
		r.mu.Unlock()
		return nil, err
	}
	return ch, nil
}

// Cancel abandons a pending wait, removing its table entry so a late
// response is discarded rather than resolving a channel nobody reads.
func (r *Router) Cancel(echoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, echoID)
}

// Resolve delivers resp to its matching pending completion, if any.
// Responses with no echo id (unsolicited acks) are dropped silently;
// responses with no matching entry are logged at debug level and
// discarded — both are expected traffic, not errors.
func (r *Router) Resolve(resp *protocol.ResponsePayload) {
	if resp.EchoID == "" {
		return
	}

	r.mu.Lock()
	ch, ok := r.pending[resp.EchoID]
	if ok {
		delete(r.pending, resp.EchoID)
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Debug("discarding unmatched response", "echo_id", resp.EchoID)
		return
	}
	ch <- resp
	close(ch)
}

// RunIntake drains responseQ, resolving each decoded response event
// against the pending table, until ctx-equivalent shutdown is signalled
// by the channel closing.
func (r *Router) RunIntake(responseQ <-chan *protocol.Event) {
	for e := range responseQ {
		if e.Response == nil {
			continue
		}
		r.Resolve(e.Response)
	}
}
