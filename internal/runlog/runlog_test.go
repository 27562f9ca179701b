package runlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRecorderAccumulates(t *testing.T) {
	rec := NewRecorder(zerolog.Nop())

	rec.Info("classified columns", "3 identifiers")
	rec.Warning("dropped rows")
	rec.Success("done")

	entries := rec.Entries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Level != LevelInfo || entries[0].Detail != "3 identifiers" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Level != LevelWarning || entries[1].Detail != "" {
		t.Errorf("second entry = %+v", entries[1])
	}
	if entries[2].Level != LevelSuccess {
		t.Errorf("third entry = %+v", entries[2])
	}
	for _, e := range entries {
		if e.Timestamp.IsZero() {
			t.Error("entry missing timestamp")
		}
	}
}

func TestRecorderMirrorsToLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	rec := NewRecorder(zerolog.New(buf))

	rec.Error("load failed", "connection refused")

	out := buf.String()
	if !strings.Contains(out, "load failed") || !strings.Contains(out, "connection refused") {
		t.Errorf("mirrored output missing fields: %s", out)
	}
}

func TestRecorderClear(t *testing.T) {
	rec := NewRecorder(zerolog.Nop())
	rec.Info("one")
	rec.Clear()
	if got := rec.Entries(); len(got) != 0 {
		t.Errorf("entries after Clear = %v", got)
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	rec := NewRecorder(zerolog.Nop())
	rec.Info("one")

	entries := rec.Entries()
	entries[0].Message = "mutated"

	if rec.Entries()[0].Message != "one" {
		t.Error("Entries() exposed internal slice")
	}
}
