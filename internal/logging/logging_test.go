package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestStep_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "commerce", "info")

	Step(log, "order.create", FieldOrderID, int64(5))(nil)
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "commerce", line[FieldService])
	assert.Equal(t, "order.create", line[FieldStep])
	assert.Equal(t, "ok", line[FieldStatus])
	assert.EqualValues(t, 5, line[FieldOrderID])
	assert.Contains(t, line, FieldDurationMS)

	buf.Reset()
	Step(log, "payment.confirm")(errors.New("declined"))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line[FieldStatus])
	assert.Equal(t, "declined", line["error"])
}
