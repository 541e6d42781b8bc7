package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	dev, err := New("development")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !dev.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected development logger to log debug")
	}

	prod, err := New("release")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if prod.Core().Enabled(zapcore.DebugLevel) || !prod.Core().Enabled(zapcore.InfoLevel) {
		t.Error("Expected production logger at info level")
	}

	quiet, _ := New("quiet")
	if quiet.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("Expected quiet logger to drop everything")
	}
	Sync(quiet)
	Sync(nil)
}
