package testutil

import (
	"context"
	"sync"

	"github.com/dalemusser/eventkey/internal/app/store/audit"
	"github.com/dalemusser/eventkey/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// AuditSink records audit events in memory.
type AuditSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *AuditSink) Log(_ context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// Types returns the recorded event types in order.
func (s *AuditSink) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.EventType
	}
	return out
}

// Events returns a copy of the recorded events.
func (s *AuditSink) Events() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Event(nil), s.events...)
}

// NewAuditLogger returns an audit logger that writes every category to an
// in-memory sink.
func NewAuditLogger() (*auditlog.Logger, *AuditSink) {
	sink := &AuditSink{}
	return auditlog.New(sink, zap.NewNop(), auditlog.Config{}), sink
}
