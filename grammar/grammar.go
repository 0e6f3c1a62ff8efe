// Package grammar holds the compiled, immutable representation of a fern
// grammar: blocks, rules, and expression trees. All cross-block references
// are resolved at compile time into indexes into the rule arena, so the
// match engine never performs a name lookup.
package grammar

import (
	"fmt"

	"github.com/google/uuid"
)

type Position struct {
	File   string
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

type Span struct {
	Start Position
	End   Position
}

// RuleID indexes the rule arena of a Grammar.
type RuleID int

// NoRule marks an unresolved rule reference. References still carrying
// NoRule after compilation are a compiler bug.
const NoRule RuleID = -1

// Grammar is the compiled model. It is immutable once the compiler
// returns it; concurrent parses against the same Grammar are safe.
type Grammar struct {
	Blocks []*Block
	Rules  []*Rule

	// Start is the program entry point declared by the single
	// "+ start" directive.
	Start     RuleID
	StartName string
}

// Rule returns the rule stored at id.
func (g *Grammar) Rule(id RuleID) *Rule {
	return g.Rules[id]
}

// Lookup resolves a fully qualified "Block.Rule" name. It is the only
// name-based query left after compilation, used to select an explicit
// start rule for a parse.
func (g *Grammar) Lookup(qualified string) (RuleID, bool) {
	for _, b := range g.Blocks {
		for name, id := range b.Rules {
			if b.Name+"."+name == qualified {
				return id, true
			}
		}
	}
	return NoRule, false
}

// Block is a namespaced collection of rules plus its import table.
type Block struct {
	Name    string
	Pos     Position
	Rules   map[string]RuleID
	Imports []Import

	// Visible maps an import name (alias or original block name, plus
	// the block's own name) to the target block. Built by the resolve
	// pass; an aliased import is visible only under its alias.
	Visible map[string]*Block
}

type Import struct {
	Target string
	Alias  string
	Pos    Position
}

// Name under which the import is visible inside the importing block.
func (i Import) VisibleName() string {
	if i.Alias != "" {
		return i.Alias
	}
	return i.Target
}

// Rule is one named production. Generics and Templates are the two
// independent formal-parameter channels; both are bound positionally at
// each call site.
type Rule struct {
	ID        RuleID
	Block     string
	Name      string
	Pos       Position
	Generics  []string
	Templates []string
	Body      *Choice
}

func (r *Rule) QualifiedName() string {
	return r.Block + "." + r.Name
}

// Choice is an ordered list of sequence alternatives. The first
// alternative that matches wins unconditionally.
type Choice struct {
	UUID uuid.UUID
	Alts []*Seq
}

// Seq is an ordered list of elements matched left to right on a shared
// cursor.
type Seq struct {
	Elems []*Elem
}

type Lookahead int

const (
	LookNone Lookahead = iota
	LookPositive
	LookNegative
)

// Quant is a repetition range. Max < 0 means unbounded.
type Quant struct {
	Min int
	Max int
}

// One is the default quantifier: exactly one match.
var One = Quant{Min: 1, Max: 1}

func (q Quant) Unbounded() bool { return q.Max < 0 }

func (q Quant) String() string {
	if q.Unbounded() {
		return fmt.Sprintf("{%d,}", q.Min)
	}
	return fmt.Sprintf("{%d,%d}", q.Min, q.Max)
}

type ReflectKind int

const (
	// ReflectDefault: rule references produce a node named after the
	// referenced rule, groups are transparent, terminals produce
	// anonymous leaves.
	ReflectDefault ReflectKind = iota
	ReflectOmit
	ReflectName
	ReflectFlatten
)

// Reflect is the per-element AST shaping policy.
type Reflect struct {
	Kind ReflectKind
	Name string
}

// Elem wraps either a terminal/reference expression or a nested choice,
// together with its lookahead, quantifier, random-order, and reflection
// modifiers.
type Elem struct {
	UUID      uuid.UUID
	Pos       Position
	Expr      *Expr
	Group     *Choice
	Lookahead Lookahead
	Quant     Quant

	// Random, when non-nil, turns the element's group into a
	// random-order repetition: each alternative must match, in any
	// order, with the given range applied per alternative.
	Random *Quant

	Reflect Reflect
}

type ExprKind int

const (
	ExprLiteral ExprKind = iota
	ExprClass
	ExprWildcard
	ExprRule
	ExprArg
)

// Expr is a terminal or reference expression.
type Expr struct {
	Kind ExprKind
	Pos  Position

	// Text holds the literal value (ExprLiteral), the raw class source
	// (ExprClass), the dotted reference as written (ExprRule), or the
	// parameter name (ExprArg).
	Text string

	Class *Class

	// Rule is the arena index filled in by the resolve pass.
	Rule RuleID

	// Argument lists for parametrized references. Each argument is a
	// caller-supplied expression tree bound to the callee's formal of
	// the same position.
	GenericArgs  []*Choice
	TemplateArgs []*Choice
}

// Describe renders the expression the way match failures report it.
func (e *Expr) Describe() string {
	switch e.Kind {
	case ExprLiteral:
		return fmt.Sprintf("%q", e.Text)
	case ExprClass:
		return "[" + e.Text + "]"
	case ExprWildcard:
		return "any character"
	case ExprRule, ExprArg:
		return e.Text
	}
	return "?"
}
