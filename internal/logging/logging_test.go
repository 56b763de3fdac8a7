package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud"); err == nil {
		t.Fatal("got nil error for unknown level")
	}
	l, err := New("warn")
	if err != nil {
		t.Fatalf("New(warn): %v", err)
	}
	if l.Core().Enabled(zap.InfoLevel) {
		t.Fatal("warn logger: info enabled, want disabled")
	}
}

func TestNewObservedKeepsEntries(t *testing.T) {
	l, logs := NewObserved(t)
	l.Debug("chunk dispatched", zap.Int("lod", 2))
	l.Warn("ignoring edit")
	if got := logs.Len(); got != 2 {
		t.Fatalf("entries: got %d, want 2", got)
	}
	if got := logs.FilterMessage("ignoring edit").Len(); got != 1 {
		t.Fatalf("warn entries: got %d, want 1", got)
	}
}
