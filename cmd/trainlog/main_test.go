package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/trainlog/internal/modules/aggregate"
	"github.com/aristath/trainlog/internal/modules/comparison"
	"github.com/aristath/trainlog/internal/modules/runlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TRAINLOG_DATA_DIR", dir)
	t.Setenv("TRAINLOG_STORE", "file")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRun_SeedListSummary(t *testing.T) {
	dir := setEnv(t)

	out, err := runCmd(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded vanilla")
	assert.FileExists(t, filepath.Join(dir, "training_logs", "d3qn_log.json"))

	out, err = runCmd(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Dueling DQN")

	out, err = runCmd(t, "summary", "double")
	require.NoError(t, err)
	assert.Contains(t, out, "Training summary - Double DQN")
	assert.Contains(t, out, "Episodes: 1000")

	_, err = runCmd(t, "summary", "missing")
	assert.ErrorIs(t, err, runlog.ErrMissingRun)
}

func TestRun_CompareToFile(t *testing.T) {
	dir := setEnv(t)
	_, err := runCmd(t, "seed")
	require.NoError(t, err)

	outPath := filepath.Join(dir, "comparison.msgpack")
	_, err = runCmd(t, "compare", "-format", "msgpack", "-o", outPath, "vanilla", "nope", "d3qn")
	require.NoError(t, err)

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	c, err := comparison.Decode(f, comparison.FormatMsgpack)
	require.NoError(t, err)
	assert.Equal(t, []runlog.Key{runlog.KeyVanilla, runlog.KeyD3QN}, c.Keys())
	assert.Len(t, c.Skipped(), 1)
}

func TestRun_Simulate(t *testing.T) {
	dir := setEnv(t)

	out, err := runCmd(t, "simulate", "-algorithm", "Rainbow DQN", "-episodes", "250")
	require.NoError(t, err)
	assert.Contains(t, out, "Episodes: 250")
	assert.Contains(t, out, "Test count: 2")

	data, err := os.ReadFile(filepath.Join(dir, "training_logs", "rainbow_log.json"))
	require.NoError(t, err)
	record, err := runlog.DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, 250, record.Len())
	assert.NotEmpty(t, record.RunID)

	assert.InDelta(t, record.Rewards[0], record.AvgRewards[0], 1e-9)
	assert.InDelta(t, aggregate.Mean(record.Rewards[:50]), record.AvgRewards[49], 1e-9)
	assert.InDelta(t, aggregate.Mean(record.Rewards[150:250]), record.AvgRewards[249], 1e-9)
}

func TestRun_CompareReportsWriteFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	setEnv(t)
	_, err := runCmd(t, "seed")
	require.NoError(t, err)

	_, err = runCmd(t, "compare", "-o", "/dev/full")
	assert.Error(t, err)

	_, err = runCmd(t, "compare", "-o", filepath.Join(t.TempDir(), "missing", "out.json"))
	assert.ErrorContains(t, err, "failed to create output file")
}

func TestRun_Errors(t *testing.T) {
	setEnv(t)

	_, err := runCmd(t)
	assert.Error(t, err)

	_, err = runCmd(t, "explode")
	assert.Error(t, err)

	_, err = runCmd(t, "compare", "-format", "xml")
	assert.Error(t, err)
}
