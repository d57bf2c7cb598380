package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := New(false, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger == nil {
		t.Fatalf("expected logger instance")
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("production logger should not log debug by default")
	}
	_ = logger.Sync()
}

func TestNewDevelopmentDefaultsToDebug(t *testing.T) {
	logger, err := New(true, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("development logger should log debug when no level is set")
	}
}

func TestNewDevelopmentWithLevel(t *testing.T) {
	logger, err := New(true, "warn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info to be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Error("expected warn to be enabled")
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(false, "chatty"); err == nil {
		t.Error("expected error for unknown level")
	}
}
