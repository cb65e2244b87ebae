// Package fuzz implements the coverage-guided engine that drives
// mutation strategies against a backend and classifies their traces.
package fuzz

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/edgefuzz/edgefuzz/internal/backend"
	"github.com/edgefuzz/edgefuzz/internal/coverage"
	"github.com/edgefuzz/edgefuzz/internal/logger"
	"github.com/edgefuzz/edgefuzz/internal/mutate"
	"github.com/edgefuzz/edgefuzz/internal/report"
	"github.com/edgefuzz/edgefuzz/internal/testcase"
)

// StatusFunc renders a single status-line update. The engine calls it
// with the current Stats every StatInterval executions.
type StatusFunc func(Stats)

// Stats is the set of counters the engine tracks and exposes to the
// status-line renderer and the run-summary snapshot.
type Stats struct {
	Executions      uint64
	Paths           int
	Crashes         int
	LastNewPath     time.Time
	LastCrash       time.Time
	InputQueueDepth int
	StrategyName    string
	StrategyPercent float64
	Started         time.Time
}

// Engine pops test cases from an input queue, instantiates every
// mutation strategy against each, drives the backend, and classifies
// the resulting traces against a monotonically growing baseline.
type Engine struct {
	backend      backend.Backend
	outputDir    string
	statInterval int
	onStatus     StatusFunc
	reporter     report.Reporter

	inputQueue    []*testcase.TestCase
	strategyQueue []mutate.Strategy
	currentStrat  mutate.Strategy

	baseline *coverage.Trace

	stats Stats
	stop  *atomic.Bool
}

// New constructs an Engine. seeds is the initial input queue, already
// loaded from the seed directory.
func New(b backend.Backend, seeds []*testcase.TestCase, outputDir string, statInterval int, onStatus StatusFunc) *Engine {
	return &Engine{
		backend:      b,
		outputDir:    outputDir,
		statInterval: statInterval,
		onStatus:     onStatus,
		inputQueue:   append([]*testcase.TestCase{}, seeds...),
		stop:         atomic.NewBool(false),
		stats:        Stats{Started: time.Now()},
	}
}

// SetReporter installs a Reporter used to write a full crash report
// alongside the raw crashing input. Without one, only the raw bytes are
// persisted.
func (e *Engine) SetReporter(r report.Reporter) {
	e.reporter = r
}

// Stop requests cooperative shutdown. The current execution finishes
// naturally; the engine then drains into cleanup on its next iteration.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Run drives the main loop until both queues are empty with no current
// strategy, or Stop is observed. It always invokes backend cleanup
// before returning, on every exit path.
func (e *Engine) Run() error {
	defer func() {
		if err := e.backend.Cleanup(); err != nil {
			logger.Warn("backend cleanup: %v", err)
		}
	}()

	if err := e.backend.Initialize(); err != nil {
		return fmt.Errorf("initialize backend: %w", err)
	}

	for {
		if e.stop.Load() {
			logger.Info("stop requested, draining")
			return nil
		}

		if e.currentStrat == nil {
			if len(e.strategyQueue) == 0 {
				if len(e.inputQueue) == 0 {
					logger.Info("end of tasks")
					return nil
				}
				seed := e.inputQueue[0]
				e.inputQueue = e.inputQueue[1:]
				e.strategyQueue = mutate.NewQueue(seed)
			}
			e.currentStrat = e.strategyQueue[0]
			e.strategyQueue = e.strategyQueue[1:]
		}

		tc, ok := e.currentStrat.GenTest()
		if !ok {
			e.currentStrat = nil
			continue
		}

		if err := e.step(tc); err != nil {
			return err
		}
	}
}

// step executes one mutated test case and updates engine state from its
// outcome.
func (e *Engine) step(tc *testcase.TestCase) error {
	result, err := e.backend.Execute(tc.Data)
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	e.stats.Executions++
	logger.Debug("exec %d: strategy=%s bytes=%d outcome=%s", e.stats.Executions, e.currentStrat.Name(), len(tc.Data), result.Outcome)

	if e.baseline == nil {
		e.baseline = result.Trace
		e.stats.Paths = e.baseline.NumberOfPaths()
	}

	switch result.Outcome {
	case backend.OutcomeCrash:
		e.stats.Crashes++
		e.stats.LastCrash = time.Now()
		if err := e.persistCrash(tc, result); err != nil {
			logger.Warn("persist crash: %v", err)
		}
	case backend.OutcomeHang:
		// Hangs do not participate in novelty comparison or baseline
		// merge; the engine simply continues.
	default:
		if result.Trace.CompareTo(e.baseline) {
			e.inputQueue = append(e.inputQueue, tc)
		}
	}

	if result.Outcome != backend.OutcomeHang {
		result.Trace.CombineInto(e.baseline)
		paths := e.baseline.NumberOfPaths()
		if paths > e.stats.Paths {
			e.stats.Paths = paths
			e.stats.LastNewPath = time.Now()
		}
	}

	name, pct := e.currentStrat.Stats()
	e.stats.StrategyName = name
	e.stats.StrategyPercent = pct
	e.stats.InputQueueDepth = len(e.inputQueue)

	if e.onStatus != nil && e.statInterval > 0 && int(e.stats.Executions)%e.statInterval == 0 {
		e.onStatus(e.stats)
	}

	return nil
}

// persistCrash always writes tc's raw bytes to <output>/input_<k>, the
// crash artifact spec.md §6 mandates, creating the output directory on
// the first crash. When a Reporter is installed, it additionally writes
// a full triage report alongside that raw file — the report is additive,
// never a replacement for it.
func (e *Engine) persistCrash(tc *testcase.TestCase, result *backend.Result) error {
	if mkErr := os.MkdirAll(e.outputDir, 0o755); mkErr != nil {
		return fmt.Errorf("create output dir: %w", mkErr)
	}

	path := filepath.Join(e.outputDir, fmt.Sprintf("input_%d", e.stats.Crashes))
	var err error
	if writeErr := tc.WriteTo(path); writeErr != nil {
		err = multierr.Append(err, fmt.Errorf("write crashing input: %w", writeErr))
	}
	if e.reporter != nil {
		if reportErr := e.reporter.Save(tc, result, path); reportErr != nil {
			err = multierr.Append(err, fmt.Errorf("write crash report: %w", reportErr))
		}
	}
	return err
}

// Stats returns a snapshot of the engine's current counters.
func (e *Engine) Stats() Stats {
	return e.stats
}
