package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/edgefuzz/edgefuzz/internal/fuzz"
)

// MetricsManager persists periodic run-summary snapshots as JSON,
// separate from the interactive status line, so a run's progress can be
// inspected without attaching to its terminal.
type MetricsManager struct {
	path string
}

// NewFileMetricsManager constructs a MetricsManager writing to
// <outputDir>/metrics.json.
func NewFileMetricsManager(outputDir string) *MetricsManager {
	return &MetricsManager{path: filepath.Join(outputDir, "metrics.json")}
}

// Snapshot writes the current stats to disk as a small JSON object, one
// key set per field via sjson rather than a marshaled struct — the
// snapshot is simple keyed data with no need for static typing on
// read-back.
func (m *MetricsManager) Snapshot(s fuzz.Stats) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}

	doc := "{}"
	var err error
	doc, err = sjson.Set(doc, "executions", s.Executions)
	if err != nil {
		return err
	}
	doc, err = sjson.Set(doc, "paths", s.Paths)
	if err != nil {
		return err
	}
	doc, err = sjson.Set(doc, "crashes", s.Crashes)
	if err != nil {
		return err
	}
	doc, err = sjson.Set(doc, "queue_depth", s.InputQueueDepth)
	if err != nil {
		return err
	}
	doc, err = sjson.Set(doc, "strategy", s.StrategyName)
	if err != nil {
		return err
	}
	doc, err = sjson.Set(doc, "strategy_percent", s.StrategyPercent)
	if err != nil {
		return err
	}
	if !s.LastNewPath.IsZero() {
		doc, err = sjson.Set(doc, "last_new_path", s.LastNewPath.Unix())
		if err != nil {
			return err
		}
	}
	if !s.LastCrash.IsZero() {
		doc, err = sjson.Set(doc, "last_crash", s.LastCrash.Unix())
		if err != nil {
			return err
		}
	}

	return os.WriteFile(m.path, []byte(doc), 0o644)
}

// ReadExecutions reads back the executions counter from a previously
// written snapshot, for tooling that wants a cheap progress check
// without parsing the whole document.
func ReadExecutions(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read metrics: %w", err)
	}
	return gjson.GetBytes(data, "executions").Uint(), nil
}
