package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"targetscope/internal/config"
	"targetscope/internal/logging"
	"targetscope/internal/model"
	"targetscope/internal/store/sqlite"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setup(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	prev := logging.SetOutput(io.Discard)
	t.Cleanup(func() { logging.SetOutput(prev) })
	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "targetscope.yaml")
	dbPath = filepath.Join(dir, "data", "targetscope.db")
	cfg := config.Default()
	cfg.Storage.DBPath = dbPath
	cfg.Capacity.PostsPerHour = 2000
	require.NoError(t, config.Save(cfgPath, cfg))
	return cfgPath, dbPath
}

func TestInitRefusesOverwrite(t *testing.T) {
	cfgPath, _ := setup(t)
	_, err := run(t, "init", "--config", cfgPath)
	assert.Error(t, err)
	out, err := run(t, "init", "--config", cfgPath, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Config written to:")
}

func TestTargetsPlanCommit(t *testing.T) {
	cfgPath, dbPath := setup(t)

	out, err := run(t, "targets", "add", "keyword", "eth", "etf", "--priority", "high", "--min-likes", "30", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "added KEYWORD eth etf")
	out, err = run(t, "targets", "add", "account", "@lookonchain", "--mode", "both", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "@lookonchain")
	_, err = run(t, "targets", "add", "account", "not valid!", "--config", cfgPath)
	assert.ErrorIs(t, err, model.ErrInvalidTarget)

	out, err = run(t, "targets", "list", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "eth etf")
	assert.Contains(t, out, "255")

	out, err = run(t, "plan", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Execution order (2 of 2)")

	out, err = run(t, "capacity", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Capacity 2000 posts/h")

	out, err = run(t, "commit", "--config", cfgPath)
	require.NoError(t, err)
	// keyword 280*0.7*1.3 = 255, account 140*1.0*1.4 = 196
	assert.Contains(t, out, "committed 2 targets, 451 posts/h")

	db, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	targets, err := db.ListTargets(context.Background())
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.Len(t, targets, 2)
	kwID, accID := targets[0].ID, targets[1].ID

	_, err = run(t, "targets", "edit", kwID, "--min-reposts", "20", "--priority", "LOW", "--config", cfgPath)
	require.NoError(t, err)
	_, err = run(t, "targets", "edit", accID, "--min-likes", "5", "--config", cfgPath)
	assert.ErrorIs(t, err, model.ErrInvalidTarget)
	_, err = run(t, "targets", "edit", "missing", "--priority", "LOW", "--config", cfgPath)
	assert.ErrorIs(t, err, sqlite.ErrNotFound)

	out, err = run(t, "targets", "toggle", accID, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "disabled @lookonchain")

	out, err = run(t, "plan", "--limit", "5", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Execution order (1 of 1)")

	_, err = run(t, "targets", "rm", kwID, "--config", cfgPath)
	require.NoError(t, err)
	out, err = run(t, "plan", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "no enabled targets")
}

func TestEstimate(t *testing.T) {
	setup(t)
	out, err := run(t, "estimate", "keyword", "--priority", "HIGH", "--active", "2", "--min-likes", "60", "--min-reposts", "15")
	require.NoError(t, err)
	assert.Equal(t, "58 posts/h\n", out)

	out, err = run(t, "estimate", "account", "--priority", "LOW", "--mode", "REPLIES")
	require.NoError(t, err)
	assert.Equal(t, "50 posts/h\n", out)

	_, err = run(t, "estimate", "keyword", "--priority", "HIGH", "--min-likes=-1")
	assert.ErrorIs(t, err, model.ErrInvalidTarget)

	_, err = run(t, "estimate", "account", "--priority", "URGENT")
	assert.ErrorIs(t, err, model.ErrUnknownPriority)
}
