package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Recorder is a ZapLogger that keeps every entry in memory. Loggers derived
// from it with With or WithGroup record into the same buffer.
type Recorder struct {
	*ZapLogger
	logs *observer.ObservedLogs
}

// NewRecorder returns a Recorder capturing all levels.
func NewRecorder() *Recorder {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Recorder{ZapLogger: NewZapLogger(zap.New(core)), logs: logs}
}

// Entries returns the recorded entries in order.
func (r *Recorder) Entries() []observer.LoggedEntry {
	return r.logs.All()
}

// Logged reports whether an entry with exactly msg was written at level.
func (r *Recorder) Logged(level zapcore.Level, msg string) bool {
	return r.logs.FilterLevelExact(level).FilterMessage(msg).Len() > 0
}

// LoggedContaining reports whether an entry at level has msg as a substring.
func (r *Recorder) LoggedContaining(level zapcore.Level, snippet string) bool {
	return r.logs.FilterLevelExact(level).FilterMessageSnippet(snippet).Len() > 0
}

// Field returns the most recent value logged under key.
func (r *Recorder) Field(key string) (any, bool) {
	entries := r.logs.FilterFieldKey(key).All()
	if len(entries) == 0 {
		return nil, false
	}
	v, ok := entries[len(entries)-1].ContextMap()[key]
	return v, ok
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.logs.TakeAll()
}
