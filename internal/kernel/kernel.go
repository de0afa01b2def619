// Package kernel owns the queues, the command registry, and the
// long-lived tasks that wire Transport, Dispatcher, and ResponseRouter
// together; it drives orderly startup and graceful teardown.
package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashlock/gatekit/internal/auth"
	"github.com/ashlock/gatekit/internal/dispatcher"
	"github.com/ashlock/gatekit/internal/parser"
	"github.com/ashlock/gatekit/internal/protocol"
	"github.com/ashlock/gatekit/internal/registry"
	"github.com/ashlock/gatekit/internal/responder"
	"github.com/ashlock/gatekit/internal/transport"
)

// Config bundles everything needed to construct a Kernel. The caller is
// responsible for building the registry (preload hooks included) before
// constructing the Kernel.
type Config struct {
	ConnectURL       string
	HandshakeTimeout time.Duration
	Cooldown         time.Duration

	WorkQueueLen     int
	PriorityQueueLen int
	KernelTimeout    time.Duration
	TaskTimeout      time.Duration

	// WorkingTime is the total run duration; ok=false means unbounded
	// (spec.md §9's "working_time <= 0" open question).
	WorkingTime   time.Duration
	WorkingTimeOK bool

	Registry      *registry.Registry
	AuthChecker   *auth.Checker
	NoticeChecker *auth.NoticeChecker
	Parser        *parser.Parser
	Fuzzy         dispatcher.FuzzyDict
	Audit         dispatcher.AuditSink

	SnowflakeDatacenterID int64
	SnowflakeWorkerID     int64

	// StartupTasks run sequentially after Transport opens and before the
	// kernel settles into its run loop (spec.md §4.8 step 8, e.g. fetch
	// bot identity). A failing task aborts startup.
	StartupTasks []func(ctx context.Context, k *Kernel) error

	Logger *slog.Logger
}

// Kernel owns all queues, the command registry, and the shared working
// status; it orchestrates the runtime's entire lifecycle.
type Kernel struct {
	cfg    Config
	logger *slog.Logger

	reg *registry.Registry

	eventQ       chan *protocol.Event
	priorEventQ  chan *protocol.Event
	responseQ    chan *protocol.Event
	actionQ      chan *protocol.Action
	priorActionQ chan *protocol.Action

	gateway *transport.Gateway
	disp    *dispatcher.Dispatcher
	router  *responder.Router

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a Kernel's queues, responder, and dispatcher. It does
// not open the transport connection or spawn any goroutine; call Run for
// that.
func New(cfg Config) (*Kernel, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WorkQueueLen <= 0 {
		return nil, fmt.Errorf("kernel: work_queue_len must be > 0")
	}
	if cfg.PriorityQueueLen <= 0 {
		return nil, fmt.Errorf("kernel: priority_queue_len must be > 0")
	}

	snow, err := responder.NewSnowflake(cfg.SnowflakeDatacenterID, cfg.SnowflakeWorkerID)
	if err != nil {
		return nil, fmt.Errorf("kernel: construct snowflake: %w", err)
	}

	k := &Kernel{
		cfg:    cfg,
		logger: logger,
		reg:    cfg.Registry,
		stopCh: make(chan struct{}),

		eventQ:       make(chan *protocol.Event, cfg.WorkQueueLen),
		priorEventQ:  make(chan *protocol.Event, cfg.PriorityQueueLen),
		responseQ:    make(chan *protocol.Event, cfg.WorkQueueLen),
		actionQ:      make(chan *protocol.Action, cfg.WorkQueueLen*3),
		priorActionQ: make(chan *protocol.Action, cfg.PriorityQueueLen*3),
	}

	k.router = responder.New(k.actionQ, k.priorActionQ, snow, cfg.KernelTimeout, logger.With("component", "responder"))

	k.disp = dispatcher.New(dispatcher.Config{
		Registry:      cfg.Registry,
		AuthChecker:   cfg.AuthChecker,
		NoticeChecker: cfg.NoticeChecker,
		Parser:        cfg.Parser,
		Router:        k.router,
		Fuzzy:         cfg.Fuzzy,
		TaskTimeout:   cfg.TaskTimeout,
		Logger:        logger.With("component", "dispatcher"),
		Audit:         cfg.Audit,
	})

	return k, nil
}

// Dispatcher returns the kernel's dispatcher, chiefly so startup tasks and
// tests can flip working-status or inspect it.
func (k *Kernel) Dispatcher() *dispatcher.Dispatcher { return k.disp }

// Router returns the kernel's response router, for startup tasks that
// need to issue a request/response action (e.g. get_login_info).
func (k *Kernel) Router() *responder.Router { return k.router }

// Registry returns the kernel's command registry.
func (k *Kernel) Registry() *registry.Registry { return k.reg }

// classify decides whether an inbound event should bypass the normal
// queue: priority-prefixed text from an SU-or-above sender (spec.md
// §4.8's priority bypass detection).
func (k *Kernel) classify(e *protocol.Event) bool {
	if e.Message == nil {
		return false
	}
	if !k.cfg.Parser.IsPriority(e.Message.Text) {
		return false
	}
	return k.cfg.AuthChecker.Level(e) >= auth.SU
}

// Run performs the full startup sequence (open transport, spawn loops,
// run startup tasks, wait for completion), then tears everything down on
// return. It blocks until ctx is cancelled, the configured working time
// elapses, or the transport reports a terminal failure.
func (k *Kernel) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gw, err := transport.Connect(ctx, transport.Config{
		URL:              k.cfg.ConnectURL,
		HandshakeTimeout: k.cfg.HandshakeTimeout,
		Cooldown:         k.cfg.Cooldown,
	}, k.logger.With("component", "transport"))
	if err != nil {
		return fmt.Errorf("kernel: connect transport: %w", err)
	}
	k.gateway = gw

	var wg sync.WaitGroup
	runErrCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := k.gateway.Run(ctx, k.classify, transport.Queues{
			EventQ:       k.eventQ,
			PriorEventQ:  k.priorEventQ,
			ResponseQ:    k.responseQ,
			ActionQ:      k.actionQ,
			PriorActionQ: k.priorActionQ,
		})
		// The gateway is the only writer to responseQ; closing it ends
		// RunIntake.
		close(k.responseQ)
		select {
		case runErrCh <- err:
		default:
		}
		cancel()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		k.router.RunIntake(k.responseQ)
	}()

	wg.Add(3)
	go func() { defer wg.Done(); k.drainEvents(ctx, k.eventQ) }()
	go func() { defer wg.Done(); k.drainEvents(ctx, k.priorEventQ) }()
	go func() {
		defer wg.Done()
		<-ctx.Done()
	}()

	for i, task := range k.cfg.StartupTasks {
		if err := task(ctx, k); err != nil {
			k.logger.Error("startup task failed, aborting", "index", i, "error", err)
			cancel()
			k.teardown()
			wg.Wait()
			return fmt.Errorf("kernel: startup task %d: %w", i, err)
		}
	}
	k.logger.Info("kernel started", "connect_url", k.cfg.ConnectURL)

	k.waitForStop(ctx)
	cancel()

	wg.Wait()
	k.teardown()

	select {
	case err := <-runErrCh:
		return err
	default:
		return nil
	}
}

// waitForStop blocks until ctx is cancelled, Stop is called, or (when
// bounded) the configured working time elapses.
func (k *Kernel) waitForStop(ctx context.Context) {
	if !k.cfg.WorkingTimeOK {
		select {
		case <-ctx.Done():
		case <-k.stopCh:
		}
		return
	}

	timer := time.NewTimer(k.cfg.WorkingTime)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-k.stopCh:
	case <-timer.C:
		k.logger.Info("configured working time elapsed, stopping")
	}
}

// Stop trips the kernel's stopping signal, causing Run to begin
// teardown. Safe to call multiple times and from any goroutine.
func (k *Kernel) Stop() {
	k.stopOnce.Do(func() { close(k.stopCh) })
}

// drainEvents feeds one event queue into the dispatcher until ctx is
// cancelled. Response-kind events never appear here (the transport routes
// them straight to responseQ), but Handle tolerates them defensively.
func (k *Kernel) drainEvents(ctx context.Context, q <-chan *protocol.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-q:
			if !ok {
				return
			}
			go k.disp.Handle(ctx, e)
		}
	}
}

// teardown runs each command's dispose hook and closes the transport.
// Called exactly once: after all loops have exited on a normal stop, or,
// when a startup task fails, before waiting for them (closing the
// connection is what unblocks the read loop there).
func (k *Kernel) teardown() {
	k.logger.Info("kernel tearing down")
	for _, desc := range k.reg.All() {
		if desc.Dispose == nil {
			continue
		}
		_, state, ok := k.reg.Lookup(desc.Name)
		if !ok {
			continue
		}
		if err := desc.Dispose(state.Resource); err != nil {
			k.logger.Error("dispose hook failed", "command", desc.Name, "error", err)
		}
	}
	if k.gateway != nil {
		if err := k.gateway.Close(); err != nil {
			k.logger.Error("failed to close transport", "error", err)
		}
	}
}
