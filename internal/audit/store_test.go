package audit

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := newTestStore(t)

	if err := s.Record(Entry{TraceID: "t1", Command: "echo", UserID: 1, Outcome: OutcomeOK, LatencyMS: 5}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(Entry{TraceID: "t2", Command: "foo", UserID: 2, Outcome: OutcomeTimeout, LatencyMS: 30000}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Newest first.
	if entries[0].TraceID != "t2" {
		t.Errorf("entries[0].TraceID = %q, want t2", entries[0].TraceID)
	}
	if entries[1].Outcome != OutcomeOK {
		t.Errorf("entries[1].Outcome = %q, want ok", entries[1].Outcome)
	}
}

func TestPruneKeepsMinimum(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		if err := s.Record(Entry{TraceID: "t", Command: "echo", Outcome: OutcomeOK}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	deleted, err := s.Prune(-time.Hour, 3) // everything is "older" than now+1h
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Prune deleted %d, want 2 (keeping minKeep=3 of 5)", deleted)
	}

	entries, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries after prune, want 3", len(entries))
	}
}

func TestPruneNoOpBelowMinKeep(t *testing.T) {
	s := newTestStore(t)
	s.Record(Entry{TraceID: "t", Command: "echo", Outcome: OutcomeOK})

	deleted, err := s.Prune(-time.Hour, 10)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Prune deleted %d rows when total <= minKeep, want 0", deleted)
	}
}
