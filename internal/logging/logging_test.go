// ABOUTME: Tests for logger construction
// ABOUTME: Verifies level parsing and structured output

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_WritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("report written", "id", "12345678")

	out := buf.String()
	if !strings.Contains(out, "report written") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "id=12345678") {
		t.Errorf("expected key/value in output, got %q", out)
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}
}

func TestNew_DefaultLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, ""); err != nil {
		t.Errorf("empty level should default, got %v", err)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}
