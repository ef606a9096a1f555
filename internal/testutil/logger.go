package testutil

import (
	"sync"
)

// LogEntry is one call recorded by RecordingLogger.
type LogEntry struct {
	Level         string
	Msg           string
	KeysAndValues []interface{}
}

// RecordingLogger implements logging.Logger and keeps every call.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (r *RecordingLogger) record(level, msg string, kv []interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, LogEntry{Level: level, Msg: msg, KeysAndValues: kv})
}

func (r *RecordingLogger) Debug(msg string, kv ...interface{}) { r.record("debug", msg, kv) }
func (r *RecordingLogger) Info(msg string, kv ...interface{})  { r.record("info", msg, kv) }
func (r *RecordingLogger) Warn(msg string, kv ...interface{})  { r.record("warn", msg, kv) }
func (r *RecordingLogger) Error(msg string, kv ...interface{}) { r.record("error", msg, kv) }

// Entries returns a copy of the recorded calls.
func (r *RecordingLogger) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LogEntry(nil), r.entries...)
}

// Messages returns the messages logged at level, in order.
func (r *RecordingLogger) Messages(level string) []string {
	var msgs []string
	for _, e := range r.Entries() {
		if e.Level == level {
			msgs = append(msgs, e.Msg)
		}
	}
	return msgs
}
