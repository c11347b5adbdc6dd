package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		logger, level, err := New("warn", format)
		if err != nil {
			t.Fatalf("New(warn, %q): %v", format, err)
		}
		if logger.Core().Enabled(zap.InfoLevel) {
			t.Errorf("format %q: info should be disabled at warn", format)
		}
		level.SetLevel(zap.DebugLevel)
		if !logger.Core().Enabled(zap.DebugLevel) {
			t.Errorf("format %q: level change not applied", format)
		}
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, _, err := New("loud", "json"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, _, err := New("info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
