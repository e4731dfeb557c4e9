package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewWithConfig(t *testing.T) {
	l := NewWithConfig("vanity", log.DebugLevel, true, true, log.JSONFormatter)
	if l.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v, want debug", l.GetLevel())
	}
	if l.GetPrefix() != "vanity" {
		t.Errorf("prefix = %q, want vanity", l.GetPrefix())
	}
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "rank")
	l.SetLevel(log.InfoLevel)
	l.Info("ranking fallback", "reason", "timeout")
	if out := buf.String(); !strings.Contains(out, "rank") || !strings.Contains(out, "reason=timeout") {
		t.Errorf("unexpected output %q", out)
	}
}
