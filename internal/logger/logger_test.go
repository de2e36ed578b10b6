package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, 0)

	l.Component("session").Info("Session manager: session created", "session_id", "s1")

	out := buf.String()
	assert.Contains(t, out, "component=session")
	assert.Contains(t, out, "session_id=s1")
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, int(slog.LevelWarn))

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
