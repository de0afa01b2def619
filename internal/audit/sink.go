package audit

import (
	"log/slog"

	"github.com/ashlock/gatekit/internal/dispatcher"
)

// DispatchSink adapts a Store to dispatcher.AuditSink: the dispatcher
// calls Record synchronously as each invocation finishes, so a write
// failure here is logged and dropped rather than surfaced to the caller.
type DispatchSink struct {
	Store  *Store
	Logger *slog.Logger
}

// Record implements dispatcher.AuditSink.
func (s *DispatchSink) Record(e dispatcher.AuditEntry) {
	err := s.Store.Record(Entry{
		TraceID:   e.TraceID,
		Command:   e.Command,
		UserID:    e.UserID,
		Outcome:   Outcome(e.Outcome),
		Detail:    e.Detail,
		LatencyMS: e.LatencyMS,
	})
	if err != nil && s.Logger != nil {
		s.Logger.Warn("audit: failed to record dispatch decision", "error", err)
	}
}
