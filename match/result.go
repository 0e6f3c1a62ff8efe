// Package match evaluates a compiled rule against an input buffer using
// parsing-expression semantics: ordered choice, sequences with
// backtracking to the sequence start, zero-width lookahead, quantifiers,
// random-order repetition, and stack-scoped rule parametrization.
//
// Matching is synchronous and single-threaded; the engine owns all
// mutable state of one invocation, so independent parses against the
// same grammar may run concurrently.
package match

import (
	"fmt"
	"strings"

	"github.com/dhamidi/fern/grammar"
)

// Trace is the raw match trace: one node per matched rule, group, or
// terminal, annotated with the reflection policy that the AST builder
// applies afterwards. Offsets are rune offsets into the input.
type Trace struct {
	// Rule is the matched rule for rule traces, NoRule for groups and
	// leaves.
	Rule grammar.RuleID

	// DefaultName is the name a rule trace reflects under when its
	// policy does not name it explicitly.
	DefaultName string

	Reflect grammar.Reflect

	Start  int
	End    int
	Pos    grammar.Position
	EndPos grammar.Position

	Leaf     bool
	Text     string
	Children []*Trace
}

// FailDiag is the furthest-failure diagnostic of one top-level match
// attempt: the deepest cursor position any expression failed at, and
// what was expected there.
type FailDiag struct {
	Offset   int
	Pos      grammar.Position
	Expected []string
}

func (d *FailDiag) String() string {
	if len(d.Expected) == 0 {
		return fmt.Sprintf("%s: no rule matched", d.Pos)
	}
	return fmt.Sprintf("%s: expected %s", d.Pos, strings.Join(d.Expected, " or "))
}

// Result is the outcome of a parse. Exactly one of Trace and Failure is
// set. A failed match is an ordinary result, not an error: ordered
// choice produces and discards failures as part of normal operation, and
// only the outermost attempt's diagnostic is surfaced.
type Result struct {
	Trace   *Trace
	Failure *FailDiag
}

func (r *Result) OK() bool { return r.Trace != nil }

// BudgetError reports that the cooperative step or repetition budget was
// exceeded. It is a third failure category next to success and match
// failure, returned as an ordinary error value.
type BudgetError struct {
	Steps int
	Loops int
}

func (e *BudgetError) Error() string {
	if e.Loops > 0 {
		return fmt.Sprintf("resource budget exceeded: repetition longer than %d iterations", e.Loops)
	}
	return fmt.Sprintf("resource budget exceeded: more than %d rule invocations", e.Steps)
}

const defaultLoopLimit = 65536

type Option func(*Engine)

// WithStartRule overrides the grammar's declared start target with a
// fully qualified "Block.Rule" name.
func WithStartRule(qualified string) Option {
	return func(e *Engine) {
		e.startName = qualified
	}
}

// WithInputName sets the name reported in failure positions.
func WithInputName(name string) Option {
	return func(e *Engine) {
		e.file = name
	}
}

// WithMaxSteps bounds the number of rule invocations; 0 means unbounded.
// The budget is checked at each rule-invocation boundary.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithLoopLimit bounds the iteration count of a single repetition.
func WithLoopLimit(n int) Option {
	return func(e *Engine) {
		e.loopLimit = n
	}
}

// WithMemoization caches choice results keyed by (element id, cursor).
func WithMemoization() Option {
	return func(e *Engine) {
		e.memo = make(map[memoKey]memoEntry)
	}
}
