package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/edgefuzz/edgefuzz/internal/backend"
	"github.com/edgefuzz/edgefuzz/internal/testcase"
)

// MarkdownReporter implements Reporter by writing one markdown triage
// report per crash into outputDir, referencing the raw input file the
// engine already wrote rather than duplicating its bytes.
type MarkdownReporter struct {
	outputDir string
}

// NewMarkdownReporter creates a MarkdownReporter writing under outputDir.
func NewMarkdownReporter(outputDir string) *MarkdownReporter {
	return &MarkdownReporter{outputDir: outputDir}
}

// Save writes a markdown report describing how the target terminated,
// pointing at inputPath for the crashing bytes.
func (r *MarkdownReporter) Save(tc *testcase.TestCase, result *backend.Result, inputPath string) error {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	trace := result.Trace
	var content string
	content += fmt.Sprintf("# Crash Report: %s\n\n", tc.Name)
	content += fmt.Sprintf("## Outcome: %s\n\n", result.Outcome)
	content += fmt.Sprintf("- Exit signal: %d\n", trace.ExitSignal())
	content += fmt.Sprintf("- Exit code: %d\n", trace.ExitCode())
	content += fmt.Sprintf("- Duration: %.4fs\n", trace.Duration())
	content += fmt.Sprintf("- Paths covered: %d\n", trace.NumberOfPaths())
	content += fmt.Sprintf("- Map checksum: %08x\n\n", trace.Checksum())
	content += "## Mutation History\n\n"
	if tc.Mutations == "" {
		content += "_none recorded (original seed)_\n\n"
	} else {
		content += fmt.Sprintf("%s\n\n", tc.Mutations)
	}
	content += fmt.Sprintf("## Input\n\n- Raw bytes: `%s`\n- Length: %d\n\n", inputPath, len(tc.Data))
	content += fmt.Sprintf("```\n%s\n```\n", dumpHex(tc.Data))

	reportName := fmt.Sprintf("%s.md", filepath.Base(inputPath))
	return os.WriteFile(filepath.Join(r.outputDir, reportName), []byte(content), 0o644)
}

// dumpHex renders data as a classic two-column hex/ASCII dump, capped to
// keep reports readable for large crashing inputs.
func dumpHex(data []byte) string {
	const maxBytes = 4096
	truncated := false
	if len(data) > maxBytes {
		data = data[:maxBytes]
		truncated = true
	}

	var out string
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		row := data[i:end]

		out += fmt.Sprintf("%08x  ", i)
		for j := 0; j < 16; j++ {
			if j < len(row) {
				out += fmt.Sprintf("%02x ", row[j])
			} else {
				out += "   "
			}
		}
		out += " "
		for _, b := range row {
			if b >= 0x20 && b < 0x7f {
				out += string(b)
			} else {
				out += "."
			}
		}
		out += "\n"
	}
	if truncated {
		out += fmt.Sprintf("... truncated at %d bytes\n", maxBytes)
	}
	return out
}
