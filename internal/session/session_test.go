package session

import (
	"sync"
	"testing"

	"github.com/ashlock/gatekit/internal/protocol"
)

func eventFor(userID int64) *protocol.Event {
	return &protocol.Event{
		Kind:    protocol.KindMessage,
		Message: &protocol.MessagePayload{Sender: protocol.Sender{UserID: userID}},
	}
}

func userIDRule() Rule {
	return Rule{Key: func(e *protocol.Event) any { return e.Message.Sender.UserID }}
}

func TestAcquireNoneRuleIsEphemeral(t *testing.T) {
	s1 := Acquire(eventFor(1), nil, Rule{}, &sync.Mutex{})
	s2 := Acquire(eventFor(1), nil, Rule{}, &sync.Mutex{})
	if s1 == s2 {
		t.Error("ephemeral Acquire returned the same session twice")
	}
	if !s1.Activated() || !s2.Activated() {
		t.Error("ephemeral sessions should be activated on acquire")
	}
}

func TestAcquireAttributeRuleReusesSession(t *testing.T) {
	space := NewSpace()
	lock := &sync.Mutex{}
	rule := userIDRule()

	s1 := Acquire(eventFor(42), space, rule, lock)
	if s1 == nil {
		t.Fatal("first Acquire returned nil")
	}
	s1.Deactivate()

	s2 := Acquire(eventFor(42), space, rule, lock)
	if s2 != s1 {
		t.Error("matching event should reuse the existing session")
	}
}

func TestAcquireRejectsReentryWhileActivated(t *testing.T) {
	space := NewSpace()
	lock := &sync.Mutex{}
	rule := userIDRule()

	s1 := Acquire(eventFor(7), space, rule, lock)
	if s1 == nil {
		t.Fatal("first Acquire returned nil")
	}

	s2 := Acquire(eventFor(7), space, rule, lock)
	if s2 != nil {
		t.Error("Acquire should refuse re-entry on an activated session")
	}
}

func TestAcquireDistinctKeysGetDistinctSessions(t *testing.T) {
	space := NewSpace()
	lock := &sync.Mutex{}
	rule := userIDRule()

	s1 := Acquire(eventFor(1), space, rule, lock)
	s2 := Acquire(eventFor(2), space, rule, lock)
	if s1 == s2 {
		t.Error("distinct keys should not share a session")
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	space := NewSpace()
	lock := &sync.Mutex{}
	rule := userIDRule()

	s := Acquire(eventFor(1), space, rule, lock)
	s.Destroy()
	s.Destroy()

	s2 := Acquire(eventFor(1), space, rule, lock)
	if s2 == s {
		t.Error("destroyed session should not be reachable from the space anymore")
	}
}

func TestPredicateRule(t *testing.T) {
	space := NewSpace()
	lock := &sync.Mutex{}
	rule := Rule{Predicate: func(a, b *protocol.Event) bool {
		return a.Message.Sender.UserID == b.Message.Sender.UserID
	}}

	s1 := Acquire(eventFor(9), space, rule, lock)
	s1.Deactivate()
	s2 := Acquire(eventFor(9), space, rule, lock)
	if s1 != s2 {
		t.Error("predicate rule should reuse the matching session")
	}
}
