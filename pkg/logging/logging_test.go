package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "json", &buf)

	logger.Info("hello")

	out := buf.String()
	assert.Contains(t, out, `"level":"INFO"`)
	assert.Contains(t, out, `"msg":"hello"`)
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "text", &buf)

	logger.Info("hello")

	assert.Contains(t, buf.String(), "level=INFO")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "json", &buf)

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestPatientFieldsAreRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "json", &buf)

	logger.Info("loaded subject",
		slog.String("patient_name", "Jane Roe"),
		slog.String("patient_sex", "F"),
		slog.String("subject", "100307"),
	)

	out := buf.String()
	assert.NotContains(t, out, "Jane Roe")
	assert.Contains(t, out, "[REDACTED]")
	assert.Contains(t, out, "100307")
}

func TestEmbeddedDatesAreRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "json", &buf)

	logger.Info("scan", slog.String("note", "born 1984-02-29 in Bern"))

	assert.NotContains(t, buf.String(), "1984-02-29")
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))

	logger := Discard()
	assert.Same(t, logger, OrDiscard(logger))
}
