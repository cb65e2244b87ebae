// Package backend implements the two ways edgefuzz observes a target
// execution's coverage: a fork-server co-process speaking the AFL wire
// protocol, and a trace-parse co-process that derives coverage from a
// dynamic-translation tool's superblock trace on stderr.
package backend

import "github.com/edgefuzz/edgefuzz/internal/coverage"

// Outcome classifies one execution, independent of its Trace.
type Outcome int

const (
	// OutcomeNormal is a clean or non-fatal-signal exit.
	OutcomeNormal Outcome = iota
	// OutcomeCrash is an abnormal termination.
	OutcomeCrash
	// OutcomeHang is an execution that did not complete within the
	// configured per-execution timeout.
	OutcomeHang
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCrash:
		return "crash"
	case OutcomeHang:
		return "hang"
	default:
		return "normal"
	}
}

// Result is what a Backend returns for one execution.
type Result struct {
	Trace   *coverage.Trace
	Outcome Outcome
}

// Backend launches an instrumented execution of the target against a
// test case's bytes and reports its trace and outcome. Implementations
// own all IPC resources and must release them in Cleanup, which must be
// safe to call multiple times and even if Initialize did not complete.
type Backend interface {
	// Initialize spawns the co-process and performs any handshake
	// required before the first Execute call.
	Initialize() error

	// Execute runs one execution against data and returns its outcome.
	Execute(data []byte) (*Result, error)

	// Cleanup releases every resource acquired by Initialize.
	Cleanup() error
}
