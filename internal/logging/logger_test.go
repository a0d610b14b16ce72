package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	prod, err := New(true, "")
	if err != nil {
		t.Fatalf("production logger: %v", err)
	}
	if prod.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("production logger must not log debug by default")
	}

	dev, err := New(false, "warn")
	if err != nil {
		t.Fatalf("development logger: %v", err)
	}
	if dev.Core().Enabled(zap.InfoLevel) || !dev.Core().Enabled(zap.WarnLevel) {
		t.Fatalf("explicit warn level not applied")
	}

	if _, err := New(false, "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
