// Package transport manages the websocket duplex connection to the
// message gateway: it decodes inbound frames into protocol.Event values,
// classifies and queues them, and drains two independent outbound action
// queues back onto the wire.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ashlock/gatekit/internal/protocol"
)

// Config controls dial behavior and outbound pacing.
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	Cooldown         time.Duration // sleep after each action send, both queues
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	return c
}

// Classifier decides whether an inbound event should jump the priority
// queue. The gateway has no opinion of its own about command syntax or
// user privilege — it defers entirely to the classifier it's given.
type Classifier func(*protocol.Event) bool

// Gateway owns one websocket connection to the message gateway.
type Gateway struct {
	cfg    Config
	logger *slog.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn
}

// Connect dials the gateway and discards its initial frame (the gateway's
// handshake banner carries no event of interest; the teacher's own
// linker equivalent discards the first recv unconditionally).
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Gateway, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway %s: %w", cfg.URL, err)
	}

	if _, _, err := conn.ReadMessage(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read handshake frame: %w", err)
	}

	logger.Info("gateway connection established", "url", cfg.URL)
	return &Gateway{cfg: cfg, logger: logger, conn: conn}, nil
}

// Close closes the underlying connection.
func (g *Gateway) Close() error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	err := g.conn.Close()
	g.logger.Info("gateway connection closed")
	return err
}

// Queues bundles the channels Run reads from and writes to. EventQ and
// PriorEventQ are the normal and priority inbound event queues; ResponseQ
// receives decoded response-kind events (no post_type) and is drained by
// the responder, never the dispatcher; ActionQ and PriorActionQ are the
// corresponding outbound queues.
type Queues struct {
	EventQ       chan<- *protocol.Event
	PriorEventQ  chan<- *protocol.Event
	ResponseQ    chan<- *protocol.Event
	ActionQ      <-chan *protocol.Action
	PriorActionQ <-chan *protocol.Action
}

// Run drives the three concurrent loops for the lifetime of ctx or until
// the peer closes the connection: one inbound decode loop and two
// independent outbound send loops (normal and priority actions share no
// ordering guarantee between them, matching the gateway's own behavior).
// Run returns when all three loops have exited.
func (g *Gateway) Run(ctx context.Context, classify Classifier, q Queues) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex
	report := func(err error) {
		if err == nil {
			return
		}
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
		cancel()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		report(g.readLoop(ctx, classify, q))
		// The read loop returns on cancellation or when the connection
		// ends; the send loops stop with it.
		cancel()
	}()
	go func() {
		defer wg.Done()
		report(g.sendLoop(ctx, "action", q.ActionQ))
	}()
	go func() {
		defer wg.Done()
		report(g.sendLoop(ctx, "prior_action", q.PriorActionQ))
	}()

	wg.Wait()
	return firstErr
}

// readLoop decodes inbound frames and routes each decoded event to the
// priority queue (if classify says so), the normal queue, or — when the
// normal queue is full — synthesizes a queue_full kernel event and routes
// that to the priority queue instead, dropping the original.
func (g *Gateway) readLoop(ctx context.Context, classify Classifier, q Queues) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, raw, err := g.conn.ReadMessage()
		if err != nil {
			if isNormalClose(err) {
				g.logger.Info("gateway peer closed connection")
				return nil
			}
			return fmt.Errorf("read inbound frame: %w", err)
		}
		if len(raw) == 0 {
			// The gateway occasionally emits empty frames when it fails to
			// encode special characters; skip silently.
			continue
		}

		event, err := protocol.DecodeEvent(string(raw))
		if err != nil {
			g.logger.Error("failed to decode inbound frame", "error", err)
			continue
		}

		if event.Kind == protocol.KindResponse {
			g.tryPut(ctx, q.ResponseQ, event)
			continue
		}

		if classify != nil && classify(event) {
			if !g.tryPut(ctx, q.PriorEventQ, event) {
				g.logger.Warn("shutting down before priority event could be queued, event dropped")
			}
			continue
		}

		select {
		case q.EventQ <- event:
		default:
			full := &protocol.Event{
				Time: time.Now(),
				Kind: protocol.KindKernel,
				Kernel: &protocol.KernelPayload{
					Subtype: protocol.KernelQueueFull,
					Origin:  event,
				},
			}
			g.logger.Warn("event queue full, dropping event and raising queue_full")
			g.tryPut(ctx, q.PriorEventQ, full)
		}
	}
}

// tryPut attempts a blocking send bounded by ctx; it returns false only
// if ctx is cancelled first.
func (g *Gateway) tryPut(ctx context.Context, ch chan<- *protocol.Event, e *protocol.Event) bool {
	select {
	case ch <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

// sendLoop drains one outbound action queue and writes each action to the
// wire, sleeping cooldown between sends. A marshal or write error is
// logged and the loop continues — one bad action must not tear down the
// whole connection.
func (g *Gateway) sendLoop(ctx context.Context, name string, actions <-chan *protocol.Action) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case action, ok := <-actions:
			if !ok {
				return nil
			}
			if err := g.send(action); err != nil {
				if isNormalClose(err) {
					return nil
				}
				g.logger.Error("failed to send action", "loop", name, "error", err)
				continue
			}
			if g.cfg.Cooldown > 0 {
				select {
				case <-time.After(g.cfg.Cooldown):
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

func (g *Gateway) send(action *protocol.Action) error {
	data, err := protocol.EncodeAction(action)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	return g.conn.WriteMessage(websocket.TextMessage, data)
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, websocket.ErrCloseSent)
}
