// Package report turns a crashing execution into a durable artifact:
// the triggering input plus enough context to start triage without
// re-running the target.
package report

import (
	"github.com/edgefuzz/edgefuzz/internal/backend"
	"github.com/edgefuzz/edgefuzz/internal/testcase"
)

// Reporter saves the details of a crashing execution to disk. inputPath
// is the already-written raw crashing input (spec.md §6's input_<k>
// file); a Reporter adds context around it rather than writing its own
// copy of the bytes.
type Reporter interface {
	// Save records tc, the input that produced result, as a crash report
	// referencing inputPath.
	Save(tc *testcase.TestCase, result *backend.Result, inputPath string) error
}
