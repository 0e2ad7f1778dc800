package log

import (
	"path/filepath"

	"factorycraft.ai/internal/sim/world"
)

const (
	ticksDir = "ticks"
	auditDir = "audit"
)

// TickLogger writes one JSONL entry per tick (compressed): the commands
// applied at the tick boundary and the resulting state digest.
type TickLogger struct{ w *JSONLZstdWriter }

func NewTickLogger(worldDir string) *TickLogger {
	return &TickLogger{w: NewJSONLZstdWriter(filepath.Join(worldDir, ticksDir), "ticks")}
}

func (l *TickLogger) WriteTick(v world.TickLogEntry) error { return l.w.Write(v) }
func (l *TickLogger) Close() error                         { return l.w.Close() }

// AuditLogger writes one entry per placement and removal (compressed).
type AuditLogger struct{ w *JSONLZstdWriter }

func NewAuditLogger(worldDir string) *AuditLogger {
	return &AuditLogger{w: NewJSONLZstdWriter(filepath.Join(worldDir, auditDir), "audit")}
}

func (l *AuditLogger) WriteAudit(v world.AuditEntry) error { return l.w.Write(v) }
func (l *AuditLogger) Close() error                        { return l.w.Close() }

// TickFanout sends every entry to each logger in turn and returns the
// first error.
type TickFanout []world.TickLogger

func (f TickFanout) WriteTick(e world.TickLogEntry) error {
	var first error
	for _, l := range f {
		if l == nil {
			continue
		}
		if err := l.WriteTick(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type AuditFanout []world.AuditLogger

func (f AuditFanout) WriteAudit(e world.AuditEntry) error {
	var first error
	for _, l := range f {
		if l == nil {
			continue
		}
		if err := l.WriteAudit(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
