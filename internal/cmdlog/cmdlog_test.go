package cmdlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"targetscope/internal/backend"
	"targetscope/internal/commit"
	"targetscope/internal/logging"
	"targetscope/internal/metrics"
	"targetscope/internal/model"
	"targetscope/internal/store/sqlite"
)

func TestRunCountsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.SetOutput(&buf)
	defer logging.SetOutput(prev)

	runs := testutil.ToFloat64(metrics.CommandRuns.WithLabelValues("cmdlog_test"))
	errs := testutil.ToFloat64(metrics.CommandErrors.WithLabelValues("cmdlog_test"))

	assert.NoError(t, Run("cmdlog_test", func() error { return nil }))
	bad := fmt.Errorf("%w: query is required", model.ErrInvalidTarget)
	assert.ErrorIs(t, Run("cmdlog_test", func() error { return bad }), model.ErrInvalidTarget)

	assert.Equal(t, runs+2, testutil.ToFloat64(metrics.CommandRuns.WithLabelValues("cmdlog_test")))
	assert.Equal(t, errs+1, testutil.ToFloat64(metrics.CommandErrors.WithLabelValues("cmdlog_test")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var ok, failed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ok))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failed))
	assert.Contains(t, lines[0], "cmdlog_test_ok")
	okFields, _ := ok["fields"].(map[string]any)
	assert.Equal(t, "cmdlog_test", okFields["cmd"])
	assert.Contains(t, okFields, "durationMs")
	assert.NotContains(t, okFields, "kind")
	failedFields, _ := failed["fields"].(map[string]any)
	assert.Equal(t, "invalid_target", failedFields["kind"])
	assert.Contains(t, lines[1], "cmdlog_test_error")
	assert.Contains(t, lines[1], "query is required")
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("edit: %w", model.ErrImmutableField), "immutable_field"},
		{model.ErrUnknownPriority, "invalid_target"},
		{fmt.Errorf("get: %w", sqlite.ErrNotFound), "not_found"},
		{backend.ErrUnavailable, "backend_unavailable"},
		{commit.ErrNoCapacity, "no_capacity"},
		{commit.ErrNothingToCommit, "nothing_to_commit"},
		{errors.New("boom"), "other"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Kind(c.err), c.err.Error())
	}
}
