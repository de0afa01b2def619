package audit

import (
	"testing"

	"github.com/ashlock/gatekit/internal/dispatcher"
)

func TestDispatchSinkRecordsToStore(t *testing.T) {
	s := newTestStore(t)
	sink := &DispatchSink{Store: s}

	sink.Record(dispatcher.AuditEntry{
		TraceID:   "t1",
		Command:   "echo",
		UserID:    5,
		Outcome:   "ok",
		LatencyMS: 12,
	})

	entries, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Command != "echo" || entries[0].Outcome != OutcomeOK {
		t.Errorf("entry = %+v, want command=echo outcome=ok", entries[0])
	}
}
