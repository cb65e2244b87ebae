// Package mutate implements the deterministic mutation strategies the
// fuzzer engine drives against each seed test case.
package mutate

import "github.com/edgefuzz/edgefuzz/internal/testcase"

// Strategy is a stateful generator that yields successive mutated clones
// of a seed test case until exhaustion. Implementations must be
// deterministic and restart-safe: the same (strategy type, seed, initial
// state) always produces the same sequence of GenTest outputs.
type Strategy interface {
	// Name identifies the strategy, used in the status line and in the
	// mutation log recorded on emitted test cases.
	Name() string

	// GenTest returns the next mutated test case, or ok == false if the
	// strategy is exhausted. Once exhausted, a strategy always reports
	// exhaustion on every subsequent call.
	GenTest() (tc *testcase.TestCase, ok bool)

	// Stats reports the strategy's name and completion percentage.
	// PercentComplete never regresses and reaches 100 exactly when the
	// strategy is exhausted.
	Stats() (name string, percentComplete float64)
}

// Factories is the fixed, deterministic set of strategy constructors the
// engine instantiates against every seed, in this order.
var Factories = []func(seed *testcase.TestCase) Strategy{
	func(seed *testcase.TestCase) Strategy { return NewNull(seed) },
	func(seed *testcase.TestCase) Strategy { return NewBitFlip(seed) },
	func(seed *testcase.TestCase) Strategy { return NewArith(seed) },
	func(seed *testcase.TestCase) Strategy { return NewInteresting(seed) },
	func(seed *testcase.TestCase) Strategy { return NewRuns(seed) },
}

// NewQueue instantiates every strategy type against seed, in the fixed
// Factories order, for the engine's per-case strategy queue.
func NewQueue(seed *testcase.TestCase) []Strategy {
	queue := make([]Strategy, 0, len(Factories))
	for _, factory := range Factories {
		queue = append(queue, factory(seed))
	}
	return queue
}
