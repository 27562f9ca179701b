// Package runlog accumulates the structured log of a single pipeline run.
// A Recorder belongs to one run and is handed to each stage explicitly, so
// concurrent runs never share a buffer. Entries are mirrored to the process
// logger as they arrive.
package runlog

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level is the severity of a run log entry.
type Level string

const (
	LevelDebug    Level = "debug"
	LevelInfo     Level = "info"
	LevelSuccess  Level = "success"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// Entry is one structured run log record.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Detail    string    `json:"detail,omitempty"`
}

// Recorder is an append-only log buffer for one run.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	log     zerolog.Logger
}

// NewRecorder creates a recorder mirroring entries to the given logger.
func NewRecorder(log zerolog.Logger) *Recorder {
	return &Recorder{log: log}
}

func (r *Recorder) append(level Level, msg string, detail []string) {
	e := Entry{Timestamp: time.Now(), Level: level, Message: msg}
	if len(detail) > 0 {
		e.Detail = detail[0]
	}

	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()

	ev := r.mirror(level)
	if e.Detail != "" {
		ev = ev.Str("detail", e.Detail)
	}
	ev.Msg(msg)
}

func (r *Recorder) mirror(level Level) *zerolog.Event {
	switch level {
	case LevelDebug:
		return r.log.Debug()
	case LevelSuccess:
		return r.log.Info().Str("status", "success")
	case LevelWarning:
		return r.log.Warn()
	case LevelError:
		return r.log.Error()
	case LevelCritical:
		return r.log.Error().Str("severity", "critical")
	default:
		return r.log.Info()
	}
}

// Debug records a debug entry. The optional detail is free text.
func (r *Recorder) Debug(msg string, detail ...string) { r.append(LevelDebug, msg, detail) }

// Info records an info entry.
func (r *Recorder) Info(msg string, detail ...string) { r.append(LevelInfo, msg, detail) }

// Success records a success entry.
func (r *Recorder) Success(msg string, detail ...string) { r.append(LevelSuccess, msg, detail) }

// Warning records a warning entry.
func (r *Recorder) Warning(msg string, detail ...string) { r.append(LevelWarning, msg, detail) }

// Error records an error entry.
func (r *Recorder) Error(msg string, detail ...string) { r.append(LevelError, msg, detail) }

// Critical records a critical entry.
func (r *Recorder) Critical(msg string, detail ...string) { r.append(LevelCritical, msg, detail) }

// Entries returns a copy of the accumulated entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Clear discards accumulated entries.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
