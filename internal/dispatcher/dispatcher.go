// Package dispatcher consumes inbound events and drives command
// execution: parsing, session acquisition, authorization, cooldown and
// lock enforcement, and the user-visible error taxonomy.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ashlock/gatekit/internal/auth"
	"github.com/ashlock/gatekit/internal/parser"
	"github.com/ashlock/gatekit/internal/protocol"
	"github.com/ashlock/gatekit/internal/registry"
	"github.com/ashlock/gatekit/internal/responder"
	"github.com/ashlock/gatekit/internal/session"
)

// AuditSink records one completed dispatch decision. Defined here rather
// than in terms of internal/audit so the dispatcher stays independent of
// any particular persistence backend; internal/audit's adapter is the
// one implementation wired in by the entry point.
type AuditSink interface {
	Record(entry AuditEntry)
}

// AuditEntry is one completed dispatch decision, handed to an AuditSink.
type AuditEntry struct {
	TraceID   string
	Command   string
	UserID    int64
	Outcome   string
	Detail    string
	LatencyMS int64
}

// Config bundles a Dispatcher's collaborators and tuning parameters.
type Config struct {
	Registry      *registry.Registry
	AuthChecker   *auth.Checker
	NoticeChecker *auth.NoticeChecker
	Parser        *parser.Parser
	Router        *responder.Router
	Fuzzy         FuzzyDict
	TaskTimeout   time.Duration
	Logger        *slog.Logger
	Audit         AuditSink // optional; nil disables dispatch auditing
}

// Dispatcher routes events to command handlers.
type Dispatcher struct {
	reg         *registry.Registry
	authChecker *auth.Checker
	noticeCheck *auth.NoticeChecker
	parser      *parser.Parser
	router      *responder.Router
	fuzzy       FuzzyDict
	taskTimeout time.Duration
	logger      *slog.Logger
	audit       AuditSink

	working atomic.Bool
}

// New constructs a Dispatcher. The working-status flag starts true.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		reg:         cfg.Registry,
		authChecker: cfg.AuthChecker,
		noticeCheck: cfg.NoticeChecker,
		parser:      cfg.Parser,
		router:      cfg.Router,
		fuzzy:       cfg.Fuzzy,
		taskTimeout: cfg.TaskTimeout,
		logger:      logger,
		audit:       cfg.Audit,
	}
	d.working.Store(true)
	return d
}

// SetWorking sets the bot's working-status flag, read without locking
// per spec.md §5 (a plain atomic read suffices, no coordination needed).
func (d *Dispatcher) SetWorking(v bool) { d.working.Store(v) }

// Working reports the current working-status flag.
func (d *Dispatcher) Working() bool { return d.working.Load() }

// Handle processes one inbound event. It never panics or returns an
// error to the caller — the dispatcher is the last line of defense, and
// every failure mode resolves to a logged warning or a user-visible echo.
func (d *Dispatcher) Handle(ctx context.Context, e *protocol.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("recovered from panic while handling event", "panic", r, "event", e.Raw)
		}
	}()

	switch e.Kind {
	case protocol.KindResponse:
		// Transport routes response-kind events directly to the responder;
		// this branch only guards against a caller wiring them here too.
		return
	case protocol.KindKernel:
		d.handleKernel(e)
	case protocol.KindNotice:
		d.handleNotice(ctx, e)
	case protocol.KindMessage:
		d.handleMessage(ctx, e)
	case protocol.KindRequest, protocol.KindMeta:
		// No default behavior.
		return
	default:
		d.logger.Warn("unrecognized event kind, ignoring", "kind", e.Kind)
	}
}

func (d *Dispatcher) handleKernel(e *protocol.Event) {
	if e.Kernel == nil {
		return
	}
	if e.Kernel.Subtype == protocol.KernelQueueFull {
		d.sysEcho(e.Kernel.Origin, "too many tasks, try later")
	}
}

func (d *Dispatcher) handleNotice(ctx context.Context, e *protocol.Event) {
	if e.Notice == nil {
		return
	}
	if e.Notice.IsPoke() && e.Notice.UserID == e.BotID {
		d.executeInvocation(ctx, e, []string{"poke"})
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, e *protocol.Event) {
	if e.Message == nil || e.Message.Text == "" {
		return
	}
	if !(e.Message.IsPrivate() || e.Message.IsGroupNormal()) {
		return
	}

	invocations := d.parser.Parse(e.Message.Text)
	if !isEmptySentinel(invocations) {
		for _, inv := range invocations {
			if len(inv) == 0 {
				continue
			}
			d.executeInvocation(ctx, e, inv)
		}
		return
	}

	d.runFuzzy(ctx, e)
}

func isEmptySentinel(invs [][]string) bool {
	return len(invs) == 1 && len(invs[0]) == 0
}

// runFuzzy scans the keyword dictionary for matches in e's text and
// executes one echo invocation per selected answer.
func (d *Dispatcher) runFuzzy(ctx context.Context, e *protocol.Event) {
	for keyword, rule := range d.fuzzy {
		if !containsKeyword(e.Message.Text, keyword) {
			continue
		}
		if rollProbability() >= rule.Prob {
			continue
		}
		if len(rule.Answers) == 0 {
			continue
		}
		answer := rule.Answers[pickIndex(len(rule.Answers))]
		d.executeInvocation(ctx, e, []string{"echo", answer.render()})
	}
}

// executeInvocation runs one resolved [name, args...] invocation through
// the full dispatch pipeline: resolve, acquire session, authorize,
// enforce cooldown/lock, run under timeout.
func (d *Dispatcher) executeInvocation(ctx context.Context, e *protocol.Event, inv []string) {
	name, ok := d.reg.Resolve(inv[0])
	if !ok {
		return // UnknownCommand: silent drop
	}
	args := inv[1:]

	desc, state, ok := d.reg.Lookup(name)
	if !ok {
		return
	}

	traceID := uuid.New().String()
	logger := d.logger.With("trace_id", traceID, "command", name)
	start := time.Now()

	sess := session.Acquire(e, state.Space, desc.SessionRule, state.Lock())
	if sess == nil {
		d.sysEcho(e, fmt.Sprintf("%s: a session for this conversation is already in progress", name))
		d.recordAudit(traceID, name, e, "busy", "session already in progress", start)
		return
	}
	defer sess.Deactivate()

	if !desc.Bypass && !d.checkAuth(desc.RequiredLvl, e) {
		return // drop silently
	}

	if !d.working.Load() && !desc.IsLifecycle {
		return
	}

	run := func() {
		d.runHandler(ctx, desc, state, sess, args, logger, traceID, start)
	}

	switch {
	case desc.Cooldown > 0:
		lock := state.Lock()
		if !lock.TryLock() {
			d.sysEcho(e, fmt.Sprintf("%s is already running, please wait for it to finish", name))
			d.recordAudit(traceID, name, e, "busy", "already running", start)
			return
		}
		defer lock.Unlock()

		rest := desc.Cooldown - time.Since(state.LastCallLocked())
		if rest > 0 {
			secs := int(math.Ceil(rest.Seconds()))
			d.sysEcho(e, fmt.Sprintf("%s is on cooldown: %d s remaining", name, secs))
			d.recordAudit(traceID, name, e, "cooldown", fmt.Sprintf("%d s remaining", secs), start)
			return
		}
		run()
		state.RecordCallLocked()

	case desc.Lock:
		lock := state.Lock()
		lock.Lock()
		defer lock.Unlock()
		run()

	default:
		run()
	}
}

// runHandler executes desc.Handler under the task timeout, translating
// timeouts and handler errors into the echo-visible error taxonomy.
func (d *Dispatcher) runHandler(ctx context.Context, desc *registry.Descriptor, state *registry.State, sess *session.Session, args []string, logger *slog.Logger, traceID string, start time.Time) {
	callCtx, cancel := context.WithTimeout(ctx, d.taskTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in handler: %v", r)
			}
		}()
		done <- desc.Handler(registry.Context{
			Event: sess.Event(),
			Send: func(a *protocol.Action) {
				if err := d.router.Throw(a, false); err != nil {
					logger.Warn("failed to throw action", "error", err)
				}
			},
			Wait: func(a *protocol.Action) (*protocol.Event, error) {
				return d.waitFor(a)
			},
			Logger:     logger,
			Level:      d.levelOf,
			Working:    d.Working,
			SetWorking: d.SetWorking,
			All:        d.reg.All,
		}, sess, args)
	}()

	select {
	case <-callCtx.Done():
		logger.Warn("handler timed out")
		d.sysEcho(sess.Event(), "timed out, giving up")
		d.recordAudit(traceID, desc.Name, sess.Event(), "timeout", "", start)
	case err := <-done:
		if err != nil {
			logger.Warn("handler returned an error", "error", err)
			d.sysEcho(sess.Event(), err.Error())
			d.recordAudit(traceID, desc.Name, sess.Event(), "error", err.Error(), start)
		} else {
			d.recordAudit(traceID, desc.Name, sess.Event(), "ok", "", start)
		}
	}
}

// recordAudit forwards a completed dispatch decision to the configured
// AuditSink, a no-op when none is configured.
func (d *Dispatcher) recordAudit(traceID, command string, e *protocol.Event, outcome, detail string, start time.Time) {
	if d.audit == nil {
		return
	}
	var userID int64
	if e != nil && e.Message != nil {
		userID = e.Message.Sender.UserID
	}
	d.audit.Record(AuditEntry{
		TraceID:   traceID,
		Command:   command,
		UserID:    userID,
		Outcome:   outcome,
		Detail:    detail,
		LatencyMS: time.Since(start).Milliseconds(),
	})
}

func (d *Dispatcher) waitFor(a *protocol.Action) (*protocol.Event, error) {
	ch, err := d.router.Wait(a, false)
	if err != nil {
		return nil, err
	}
	resp := <-ch
	return &protocol.Event{Kind: protocol.KindResponse, Response: resp}, nil
}

// checkAuth mirrors Executor.py's __cmd_auth_check: message events use
// the message checker, self-pokes use the notice checker against a bare
// user id, anything else is logged as an unexpected event type.
func (d *Dispatcher) checkAuth(required auth.UserLevel, e *protocol.Event) bool {
	switch {
	case e.IsMessage():
		if d.authChecker.Level(e) == auth.Black {
			return false
		}
		return d.authChecker.Check(required, e)
	case e.IsNotice() && e.Notice.IsPoke():
		if d.noticeCheck.Level(e.Notice.UserID) == auth.Black {
			return false
		}
		return d.noticeCheck.Check(required, e.Notice.UserID)
	default:
		d.logger.Error("unexpected event type during auth check", "kind", e.Kind)
		return false
	}
}

// levelOf classifies e's sender for commands that filter their own
// output by level (e.g. help). Non-message events classify as Sys,
// since only an internally-synthesized invocation reaches a handler
// without a message event backing it.
func (d *Dispatcher) levelOf(e *protocol.Event) auth.UserLevel {
	if e == nil || e.Message == nil {
		return auth.Sys
	}
	return d.authChecker.Level(e)
}

// sysEcho sends a plain text reply bypassing authorization — the system
// echo is how error notices reach even a blacklisted user.
func (d *Dispatcher) sysEcho(e *protocol.Event, text string) {
	if e == nil || e.Message == nil {
		return
	}
	action := protocol.SendMsg(
		[]protocol.Segment{protocol.Text(text)},
		e.Message.IsPrivate(),
		e.Message.Sender.UserID,
		e.Message.GroupID,
		e,
	)
	if err := d.router.Throw(action, false); err != nil {
		d.logger.Warn("failed to throw system echo", "error", err)
	}
}
