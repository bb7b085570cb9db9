package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetJSON(false)
		_ = SetLevel("info")
	})
	return &buf
}

func TestLevels(t *testing.T) {
	buf := capture(t)

	require.NoError(t, SetLevel("warn"))
	Info("hidden info")
	Warn("visible warning")
	Error("visible error")

	out := buf.String()
	assert.NotContains(t, out, "hidden info")
	assert.Contains(t, out, "visible warning")
	assert.Contains(t, out, "visible error")
	assert.False(t, IsDebugEnabled())

	require.NoError(t, SetLevel("DEBUG"))
	assert.True(t, IsDebugEnabled())
	Debug("debug %d", 42)
	assert.Contains(t, buf.String(), "debug 42")
}

func TestInvalidLevel(t *testing.T) {
	err := SetLevel("verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestStructuredFields(t *testing.T) {
	buf := capture(t)

	WithDevice("0000:01:00.0").Info("link decoded")
	WithFields(logrus.Fields{"speed": "16GT/s", "width": 16}).Info("link state")

	out := buf.String()
	assert.Contains(t, out, `device="0000:01:00.0"`)
	assert.Contains(t, out, "speed=16GT/s")
	assert.Contains(t, out, "width=16")
}

func TestJSONFormatter(t *testing.T) {
	buf := capture(t)

	SetJSON(true)
	WithField("device", "0000:65:00.0").Warn("degraded")

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "{"), "expected JSON output, got %q", line)
	assert.Contains(t, line, `"device":"0000:65:00.0"`)
	assert.Contains(t, line, `"level":"warning"`)
}
