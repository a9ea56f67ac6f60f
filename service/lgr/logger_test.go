package lgr

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestPrettyHandlerWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelInfo)

	Logger.Info("frame sampled", slog.Int("frame", 30), slog.String("source", "clip.mp4"))

	out := buf.String()
	assert.Contains(t, out, "INFO:")
	assert.Contains(t, out, "frame sampled")
	assert.Contains(t, out, `"frame": 30`)
	assert.Contains(t, out, `"source": "clip.mp4"`)
}

func TestPrettyHandlerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelWarn)

	Logger.Info("hidden")
	Logger.Debug("hidden too")
	assert.Empty(t, buf.String())

	Logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestPrettyHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelInfo)

	Logger.With(slog.String("run", "abc")).WithGroup("loop").Info("done", slog.Int("frames", 2))

	out := buf.String()
	assert.Contains(t, out, `"run": "abc"`)
	assert.Contains(t, out, `"loop.frames": 2`)
}

func TestReplaceAttrExpandsErrors(t *testing.T) {
	a := ReplaceAttr(nil, slog.Any("error", WithStack(errors.New("capture failed"))))
	require.Equal(t, slog.KindGroup, a.Value.Kind())

	keys := map[string]bool{}
	for _, g := range a.Value.Group() {
		keys[g.Key] = true
		if g.Key == "msg" {
			assert.Equal(t, "capture failed", g.Value.String())
		}
	}
	assert.True(t, keys["msg"])
	assert.True(t, keys["trace"])
}

func TestReplaceAttrLeavesOtherValues(t *testing.T) {
	a := ReplaceAttr(nil, slog.Int("frames", 4))
	assert.Equal(t, int64(4), a.Value.Int64())

	a = ReplaceAttr(nil, slog.Any("payload", map[string]int{"a": 1}))
	assert.Equal(t, slog.KindAny, a.Value.Kind())
}

func TestWithStackNil(t *testing.T) {
	assert.NoError(t, WithStack(nil))
}
