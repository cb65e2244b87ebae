// Package testcase implements the mutable byte-buffer test case that
// flows between the mutation strategies, the backend, and the engine's
// input queue.
package testcase

import (
	"fmt"
	"os"
	"path/filepath"
)

// TestCase is a byte buffer plus the lineage metadata the engine and
// strategies need to track it through mutation and persistence.
type TestCase struct {
	// Name identifies the case: the originating seed file's basename, or
	// the name passed to New. Clones, and so every case a strategy
	// emits, keep their parent's name.
	Name string

	// Data is the payload bytes. Mutation strategies clone a TestCase
	// before modifying Data; the original is never mutated in place.
	Data []byte

	// Mutations is a human-readable description of the mutation that
	// produced this case, used only for diagnostic persistence (crash
	// reports). Each strategy replaces the description it inherits from
	// the parent rather than appending to it, so only the most recent
	// mutation is recorded, not the full lineage.
	Mutations string

	// StartBytePos and StartBitPos are optional resume markers. A
	// derived case carries the position its parent strategy had
	// reached, so a descendant strategy chain can pick up from there
	// instead of restarting at (0, 0). Only the sequential bit-flip
	// strategy consults these; the other strategies always start at
	// byte 0 regardless of what is recorded here.
	StartBytePos int
	StartBitPos  int
}

// New constructs a TestCase from raw bytes and a name.
func New(name string, data []byte) *TestCase {
	return &TestCase{Name: name, Data: data}
}

// Clone deep-copies Data so the mutation strategies can modify the
// returned case without aliasing the seed's buffer.
func (c *TestCase) Clone() *TestCase {
	data := make([]byte, len(c.Data))
	copy(data, c.Data)
	return &TestCase{
		Name:         c.Name,
		Data:         data,
		Mutations:    c.Mutations,
		StartBytePos: c.StartBytePos,
		StartBitPos:  c.StartBitPos,
	}
}

// WriteTo writes Data to path, creating or truncating the file.
func (c *TestCase) WriteTo(path string) error {
	if err := os.WriteFile(path, c.Data, 0o600); err != nil {
		return fmt.Errorf("write test case %q to %s: %w", c.Name, path, err)
	}
	return nil
}

// LoadFrom reads path into a new TestCase named after its basename.
func LoadFrom(path string) (*TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load test case from %s: %w", path, err)
	}
	return New(filepath.Base(path), data), nil
}
