package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	defer SetOutput(prev)

	Info("plan_refreshed", map[string]any{"entries": 3})
	Error("commit_error", nil)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var e entry
	require.NoError(t, json.Unmarshal(lines[0], &e))
	assert.Equal(t, "info", e.Level)
	assert.Equal(t, "plan_refreshed", e.Message)
	assert.EqualValues(t, 3, e.Fields["entries"])
	assert.NotEmpty(t, e.Time)

	require.NoError(t, json.Unmarshal(lines[1], &e))
	assert.Equal(t, "error", e.Level)
}
