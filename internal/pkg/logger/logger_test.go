package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newHandler(&buf, Options{Level: "info"})).Info("settled", "address", "abc")
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "settled", rec["msg"])
	assert.Equal(t, "abc", rec["address"])

	buf.Reset()
	slog.New(newHandler(&buf, Options{Level: "warn", Format: "text"})).Info("dropped")
	assert.Empty(t, buf.String())
	slog.New(newHandler(&buf, Options{Level: "warn", Format: "text"})).Warn("kept", "k", 1)
	assert.Contains(t, buf.String(), "msg=kept")
	assert.Contains(t, buf.String(), "k=1")
}
