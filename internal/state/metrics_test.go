package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/edgefuzz/edgefuzz/internal/fuzz"
)

func TestMetricsManager_Snapshot(t *testing.T) {
	dir := t.TempDir()
	m := NewFileMetricsManager(dir)

	s := fuzz.Stats{
		Executions:      42,
		Paths:           3,
		Crashes:         1,
		InputQueueDepth: 2,
		StrategyName:    "bitflip",
		StrategyPercent: 50.0,
		LastNewPath:     time.Unix(1000, 0),
		LastCrash:       time.Unix(2000, 0),
	}

	require.NoError(t, m.Snapshot(s))

	path := filepath.Join(dir, "metrics.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, int64(42), gjson.GetBytes(data, "executions").Int())
	assert.Equal(t, int64(3), gjson.GetBytes(data, "paths").Int())
	assert.Equal(t, int64(1), gjson.GetBytes(data, "crashes").Int())
	assert.Equal(t, "bitflip", gjson.GetBytes(data, "strategy").String())
	assert.Equal(t, int64(1000), gjson.GetBytes(data, "last_new_path").Int())
	assert.Equal(t, int64(2000), gjson.GetBytes(data, "last_crash").Int())
}

func TestMetricsManager_Snapshot_OmitsZeroTimestamps(t *testing.T) {
	dir := t.TempDir()
	m := NewFileMetricsManager(dir)

	require.NoError(t, m.Snapshot(fuzz.Stats{Executions: 1}))

	data, err := os.ReadFile(filepath.Join(dir, "metrics.json"))
	require.NoError(t, err)
	assert.False(t, gjson.GetBytes(data, "last_new_path").Exists())
	assert.False(t, gjson.GetBytes(data, "last_crash").Exists())
}

func TestReadExecutions(t *testing.T) {
	dir := t.TempDir()
	m := NewFileMetricsManager(dir)
	require.NoError(t, m.Snapshot(fuzz.Stats{Executions: 7}))

	n, err := ReadExecutions(filepath.Join(dir, "metrics.json"))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)
}

func TestReadExecutions_MissingFile(t *testing.T) {
	_, err := ReadExecutions(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
