// Package session implements per-command conversational state: a
// session collects the successive events of one conversation and
// enforces that only one caller holds it active at a time.
package session

import (
	"sync"
	"time"

	"github.com/ashlock/gatekit/internal/protocol"
)

// Session is a mutable conversational context scoped to one command.
// The zero value is not usable; construct via Acquire.
type Session struct {
	mu sync.Mutex

	space     *Space // nil for an ephemeral session
	created   time.Time
	store     map[string]any
	events    []*protocol.Event
	counts    map[*protocol.Event]int
	activated bool
	expired   bool
}

func newSession(space *Space) *Session {
	return &Session{
		space:   space,
		created: time.Now(),
		store:   make(map[string]any),
		counts:  make(map[*protocol.Event]int),
	}
}

func (s *Session) addEvent(e *protocol.Event) {
	s.events = append(s.events, e)
	s.counts[e]++
}

// Event returns the most recently added event, or nil if none has been
// added yet.
func (s *Session) Event() *protocol.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return nil
	}
	return s.events[len(s.events)-1]
}

// StoreGet reads a handler-scoped value.
func (s *Session) StoreGet(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.store[key]
	return v, ok
}

// StoreSet writes a handler-scoped value.
func (s *Session) StoreSet(key string, val any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[key] = val
}

// Activated reports whether this session currently rejects re-entry.
func (s *Session) Activated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activated
}

// Deactivate clears the activated flag, allowing the next matching
// event to acquire this session. The dispatcher calls this once the
// handler returns.
func (s *Session) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activated = false
}

// Destroy removes the session from its space. Idempotent: a second call
// is a no-op. Ephemeral sessions (space == nil) have nothing to remove.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired {
		return
	}
	s.expired = true
	if s.space != nil {
		s.space.remove(s)
	}
}

// Space is the ordered collection of live, non-ephemeral sessions
// belonging to one command.
type Space struct {
	mu       sync.Mutex
	sessions []*Session
}

// NewSpace constructs an empty session space.
func NewSpace() *Space {
	return &Space{}
}

func (sp *Space) remove(target *Session) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	for i, s := range sp.sessions {
		if s == target {
			sp.sessions = append(sp.sessions[:i], sp.sessions[i+1:]...)
			return
		}
	}
}

// Rule decides whether an incoming event belongs to an existing session.
// None (Key == nil && Predicate == nil) makes every acquisition ephemeral.
type Rule struct {
	// Key extracts a comparable key from an event. Two events with equal
	// keys are treated as the same conversation.
	Key func(*protocol.Event) any
	// Predicate directly compares a candidate event against an incoming
	// one. Takes precedence over Key when both are set.
	Predicate func(incoming, candidate *protocol.Event) bool
}

func (r Rule) isNone() bool {
	return r.Key == nil && r.Predicate == nil
}

func (r Rule) matches(incoming, candidate *protocol.Event) bool {
	if r.Predicate != nil {
		return r.Predicate(incoming, candidate)
	}
	return r.Key(incoming) == r.Key(candidate)
}

// Acquire resolves a session for e against space under rule, serialized
// by lock (the command's dedicated mutex). It returns nil if rule is
// non-none and a matching session is already activated — the caller must
// treat that as a same-session-in-progress refusal, never as "no session
// exists". The returned session (when non-nil) is marked activated.
func Acquire(e *protocol.Event, space *Space, rule Rule, lock *sync.Mutex) *Session {
	if rule.isNone() {
		s := newSession(nil)
		s.addEvent(e)
		s.activated = true
		return s
	}

	lock.Lock()
	defer lock.Unlock()

	space.mu.Lock()
	candidates := append([]*Session{}, space.sessions...)
	space.mu.Unlock()

	for _, s := range candidates {
		if !rule.matches(e, s.Event()) {
			continue
		}
		s.mu.Lock()
		if s.activated {
			s.mu.Unlock()
			return nil
		}
		s.addEvent(e)
		s.activated = true
		s.mu.Unlock()
		return s
	}

	s := newSession(space)
	s.addEvent(e)
	s.activated = true
	space.mu.Lock()
	space.sessions = append(space.sessions, s)
	space.mu.Unlock()
	return s
}
