// Package registry holds the command table: descriptors attached at
// load time, resolved by name or alias, each carrying its own
// concurrency-control state.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/ashlock/gatekit/internal/auth"
	"github.com/ashlock/gatekit/internal/protocol"
	"github.com/ashlock/gatekit/internal/session"
)

// Handler is a command implementation. ctx bundles the invoking event and
// the send/wait facilities; it carries no cancellation signal, so a
// handler that overruns the task timeout keeps running after the
// dispatcher has stopped waiting for it. args is the invocation's argument
// list (name excluded); sess is the acquired session for this call.
type Handler func(ctx Context, sess *session.Session, args []string) error

// Context is threaded through a handler invocation, bundling the
// facilities a command needs without exposing kernel internals.
type Context struct {
	Event  *protocol.Event
	Send   func(action *protocol.Action)
	Wait   func(action *protocol.Action) (*protocol.Event, error)
	Logger interface {
		Error(msg string, args ...any)
		Info(msg string, args ...any)
	}

	// Level classifies the invoking event's sender, for commands (e.g.
	// help) that filter their own output by authorization level.
	Level func(*protocol.Event) auth.UserLevel

	// Working and SetWorking expose the dispatcher's working-status
	// flag to the lifecycle command.
	Working    func() bool
	SetWorking func(bool)

	// All lists every registered command descriptor, for the help command.
	All func() []*Descriptor
}

// Descriptor is a command's immutable registration record.
type Descriptor struct {
	Name        string
	Aliases     []string
	RequiredLvl auth.UserLevel
	Lock        bool
	Cooldown    time.Duration
	Preload     func() (any, error)
	Dispose     func(any) error
	Comment     string
	Params      string
	SessionRule session.Rule
	Handler     Handler

	// IsLifecycle exempts this command from the not-working-status drop:
	// it runs even while the bot is paused, so an operator can resume it.
	IsLifecycle bool

	// Bypass skips authorization entirely — the "system echo" class of
	// command spec.md §7 uses internally for error notices, also exposed
	// as a directly-callable command.
	Bypass bool
}

// State is one command's mutable runtime state: its session space, its
// mutex, its preloaded resource, and its last successful call time.
type State struct {
	mu       sync.Mutex
	Space    *session.Space
	Resource any
	lastCall time.Time
}

// Lock returns the command's dedicated mutex, guarding its session space
// and last-call timestamp per spec.
func (s *State) Lock() *sync.Mutex { return &s.mu }

// LastCall returns the timestamp of the command's last successful run.
func (s *State) LastCall() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCall
}

// RecordCall stamps the command's last-call time to now.
func (s *State) RecordCall() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCall = time.Now()
}

// LastCallLocked returns the command's last-call timestamp without
// acquiring the mutex. The caller must already hold the mutex returned
// by Lock() — this is for callers (e.g. the cooldown path) that take
// the lock themselves and must not re-enter it.
func (s *State) LastCallLocked() time.Time {
	return s.lastCall
}

// RecordCallLocked stamps the command's last-call time to now without
// acquiring the mutex. The caller must already hold the mutex returned
// by Lock().
func (s *State) RecordCallLocked() {
	s.lastCall = time.Now()
}

// entry bundles a descriptor with its runtime state.
type entry struct {
	desc  *Descriptor
	state *State
}

// Registry maps command names and aliases to descriptors.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*entry
	aliases map[string]string // alias -> canonical name
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		byName:  make(map[string]*entry),
		aliases: make(map[string]string),
	}
}

// Register adds desc to the table. It returns an error if desc's name is
// already registered or any of its aliases collide with an existing name
// or alias anywhere in the table (alias uniqueness is global, not
// per-command).
func (r *Registry) Register(desc *Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[desc.Name]; exists {
		return fmt.Errorf("registry: command %q already registered", desc.Name)
	}
	for _, a := range desc.Aliases {
		if _, exists := r.aliases[a]; exists {
			return fmt.Errorf("registry: alias %q already bound to command %q", a, r.aliases[a])
		}
		if _, exists := r.byName[a]; exists {
			return fmt.Errorf("registry: alias %q collides with an existing command name", a)
		}
	}

	r.byName[desc.Name] = &entry{
		desc: desc,
		state: &State{
			Space: session.NewSpace(),
		},
	}
	for _, a := range desc.Aliases {
		r.aliases[a] = desc.Name
	}
	return nil
}

// Resolve maps a token (name or alias) to its canonical command name.
// ok is false for an unknown token.
func (r *Registry) Resolve(token string) (name string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.byName[token]; exists {
		return token, true
	}
	if name, exists := r.aliases[token]; exists {
		return name, true
	}
	return "", false
}

// Lookup returns the descriptor and state for a canonical command name.
func (r *Registry) Lookup(name string) (*Descriptor, *State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[name]
	if !ok {
		return nil, nil, false
	}
	return e.desc, e.state, true
}

// All returns every registered descriptor, for startup preload and
// teardown dispose passes.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.byName))
	for _, e := range r.byName {
		out = append(out, e.desc)
	}
	return out
}

// PreloadAll runs every registered command's preload hook sequentially,
// storing the result in that command's State.Resource. A failing preload
// aborts the whole pass (spec.md §4.8 step 3: each preload hook is
// awaited in turn at startup; a load failure is fatal to startup).
func (r *Registry) PreloadAll() error {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.byName))
	for _, e := range r.byName {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	for _, e := range entries {
		if e.desc.Preload == nil {
			continue
		}
		res, err := e.desc.Preload()
		if err != nil {
			return fmt.Errorf("registry: preload %q: %w", e.desc.Name, err)
		}
		e.state.Resource = res
	}
	return nil
}
