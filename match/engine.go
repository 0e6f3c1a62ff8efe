package match

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dhamidi/fern/grammar"
)

// Engine holds the mutable state of one parse invocation: cursor,
// parameter-scope stack, budget counters, and the furthest-failure
// accumulator. The grammar itself is shared and never mutated.
type Engine struct {
	g     *grammar.Grammar
	ctx   context.Context
	input []rune
	file  string
	pos   int

	scopes []scope

	steps     int
	maxSteps  int
	loopLimit int

	memo map[memoKey]memoEntry

	startName string

	// quiet suppresses failure recording while evaluating lookaheads,
	// whose inner failures are part of normal operation.
	quiet    int
	furthest int
	expected []string

	lineStarts []int
}

// Parse evaluates the grammar's start rule (or the rule selected with
// WithStartRule) against input. The whole input must be consumed for the
// match to succeed. A failed match is reported inside the Result; the
// returned error is reserved for exceeded budgets, cancellation, and an
// unknown start rule.
func Parse(ctx context.Context, g *grammar.Grammar, input string, opts ...Option) (*Result, error) {
	e := &Engine{
		g:         g,
		ctx:       ctx,
		loopLimit: defaultLoopLimit,
		furthest:  -1,
	}
	for _, opt := range opts {
		opt(e)
	}

	// Stray carriage returns never take part in matching.
	e.input = []rune(strings.ReplaceAll(input, "\r", ""))
	e.indexLines()

	start := g.Start
	name := g.StartName
	if e.startName != "" {
		id, ok := g.Lookup(e.startName)
		if !ok {
			return nil, fmt.Errorf("unknown start rule %q", e.startName)
		}
		// A parametrized rule has no bindings at the top level.
		rule := g.Rule(id)
		if len(rule.Generics) > 0 || len(rule.Templates) > 0 {
			return nil, fmt.Errorf("start rule %q takes parameters", e.startName)
		}
		start = id
		name = e.startName
	}

	trace, ok, err := e.matchRule(start, grammar.Reflect{Kind: grammar.ReflectName, Name: name})
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Result{Failure: e.failDiag()}, nil
	}
	if e.pos < len(e.input) {
		// The start rule matched a strict prefix.
		if e.furthest < e.pos {
			e.furthest = e.pos
			e.expected = []string{"end of input"}
		}
		return &Result{Failure: e.failDiag()}, nil
	}
	return &Result{Trace: trace}, nil
}

func (e *Engine) matchRule(id grammar.RuleID, re grammar.Reflect) (*Trace, bool, error) {
	e.steps++
	if e.maxSteps > 0 && e.steps > e.maxSteps {
		return nil, false, &BudgetError{Steps: e.maxSteps}
	}
	if e.ctx != nil {
		if err := e.ctx.Err(); err != nil {
			return nil, false, err
		}
	}

	rule := e.g.Rule(id)
	start := e.pos
	frags, ok, err := e.matchChoice(rule.Body)
	if err != nil || !ok {
		return nil, false, err
	}
	return &Trace{
		Rule:        id,
		DefaultName: rule.Name,
		Reflect:     re,
		Start:       start,
		End:         e.pos,
		Pos:         e.position(start),
		EndPos:      e.position(e.pos),
		Children:    frags,
	}, true, nil
}

// matchChoice tries alternatives in declared order at the same start
// cursor. The first success is taken unconditionally, even if a later
// alternative would consume more input.
func (e *Engine) matchChoice(c *grammar.Choice) ([]*Trace, bool, error) {
	start := e.pos
	key := memoKey{id: c.UUID, pos: start}
	if ent, ok := e.memoized(key); ok {
		e.pos = start + ent.consumed
		return ent.frags, ent.ok, nil
	}

	for _, alt := range c.Alts {
		frags, ok, err := e.matchSeq(alt)
		if err != nil {
			return nil, false, err
		}
		if ok {
			e.memoize(key, start, frags, true)
			return frags, true, nil
		}
		e.pos = start
	}
	e.memoize(key, start, nil, false)
	return nil, false, nil
}

// matchSeq evaluates elements left to right on the shared cursor. A
// required element's failure fails the whole sequence and rewinds the
// cursor to the sequence's start.
func (e *Engine) matchSeq(s *grammar.Seq) ([]*Trace, bool, error) {
	start := e.pos
	var frags []*Trace
	for _, elem := range s.Elems {
		fs, ok, err := e.matchElem(elem)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			e.pos = start
			return nil, false, nil
		}
		frags = append(frags, fs...)
	}
	return frags, true, nil
}

func (e *Engine) matchElem(el *grammar.Elem) ([]*Trace, bool, error) {
	if el.Lookahead == grammar.LookNone {
		return e.matchRepeat(el)
	}

	// Lookahead asserts without consuming: the cursor is always
	// restored and no fragments are produced.
	start := e.pos
	e.quiet++
	_, ok, err := e.matchRepeat(el)
	e.quiet--
	e.pos = start
	if err != nil {
		return nil, false, err
	}
	if ok == (el.Lookahead == grammar.LookPositive) {
		return nil, true, nil
	}
	return nil, false, nil
}

// matchRepeat applies the element's quantifier. Every iteration must
// make cursor progress; a zero-width success terminates the loop instead
// of running forever.
func (e *Engine) matchRepeat(el *grammar.Elem) ([]*Trace, bool, error) {
	var frags []*Trace
	count := 0
	if !el.Quant.Unbounded() && el.Quant.Max == 0 {
		return nil, true, nil
	}
	for {
		save := e.pos
		fs, ok, err := e.matchOnce(el)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			e.pos = save
			break
		}
		frags = append(frags, fs...)
		count++
		if count > e.loopLimit {
			return nil, false, &BudgetError{Loops: e.loopLimit}
		}
		if e.pos == save {
			break
		}
		if !el.Quant.Unbounded() && count == el.Quant.Max {
			break
		}
	}
	if count >= el.Quant.Min {
		return frags, true, nil
	}
	return nil, false, nil
}

func (e *Engine) matchOnce(el *grammar.Elem) ([]*Trace, bool, error) {
	if el.Random != nil {
		return e.matchRandomOrder(el)
	}
	if el.Group != nil {
		start := e.pos
		frags, ok, err := e.matchChoice(el.Group)
		if err != nil || !ok {
			return nil, false, err
		}
		return []*Trace{e.groupTrace(el.Reflect, start, frags)}, true, nil
	}
	return e.matchExpr(el.Expr, el.Reflect)
}

// matchRandomOrder is the single home of the random-order repetition
// policy: every alternative of the element's group must match exactly
// once, in whatever order the input presents them, with the element's
// random-order range applied per alternative. Changing the multiplicity
// contract means changing only this function.
func (e *Engine) matchRandomOrder(el *grammar.Elem) ([]*Trace, bool, error) {
	alts := el.Group.Alts
	matched := make([]bool, len(alts))
	start := e.pos
	var frags []*Trace

	remaining := len(alts)
	for remaining > 0 {
		progress := false
		for i, alt := range alts {
			if matched[i] {
				continue
			}
			save := e.pos
			fs, ok, err := e.matchSeqRange(alt, *el.Random)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				e.pos = save
				continue
			}
			frags = append(frags, fs...)
			matched[i] = true
			remaining--
			progress = true
			break
		}
		if !progress {
			e.pos = start
			return nil, false, nil
		}
	}
	return []*Trace{e.groupTrace(el.Reflect, start, frags)}, true, nil
}

// matchSeqRange repeats one sequence alternative within a random-order
// element according to the per-alternative range.
func (e *Engine) matchSeqRange(s *grammar.Seq, q grammar.Quant) ([]*Trace, bool, error) {
	var frags []*Trace
	count := 0
	for {
		if !q.Unbounded() && count == q.Max {
			break
		}
		save := e.pos
		fs, ok, err := e.matchSeq(s)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			e.pos = save
			break
		}
		frags = append(frags, fs...)
		count++
		if count > e.loopLimit {
			return nil, false, &BudgetError{Loops: e.loopLimit}
		}
		if e.pos == save {
			break
		}
	}
	if count >= q.Min {
		return frags, true, nil
	}
	return nil, false, nil
}

func (e *Engine) matchExpr(x *grammar.Expr, re grammar.Reflect) ([]*Trace, bool, error) {
	switch x.Kind {
	case grammar.ExprLiteral:
		return e.matchLiteral(x, re)
	case grammar.ExprClass:
		return e.matchClass(x, re)
	case grammar.ExprWildcard:
		return e.matchWildcard(x, re)
	case grammar.ExprArg:
		return e.matchArg(x, re)
	case grammar.ExprRule:
		return e.matchRuleRef(x, re)
	}
	return nil, false, fmt.Errorf("corrupt grammar: unknown expression kind %d", x.Kind)
}

func (e *Engine) matchLiteral(x *grammar.Expr, re grammar.Reflect) ([]*Trace, bool, error) {
	want := []rune(x.Text)
	if e.pos+len(want) > len(e.input) {
		e.fail(x)
		return nil, false, nil
	}
	for i, r := range want {
		if e.input[e.pos+i] != r {
			e.fail(x)
			return nil, false, nil
		}
	}
	leaf := e.leafTrace(re, e.pos, e.pos+len(want))
	e.pos += len(want)
	return []*Trace{leaf}, true, nil
}

func (e *Engine) matchClass(x *grammar.Expr, re grammar.Reflect) ([]*Trace, bool, error) {
	if e.pos >= len(e.input) || !x.Class.Contains(e.input[e.pos]) {
		e.fail(x)
		return nil, false, nil
	}
	leaf := e.leafTrace(re, e.pos, e.pos+1)
	e.pos++
	return []*Trace{leaf}, true, nil
}

func (e *Engine) matchWildcard(x *grammar.Expr, re grammar.Reflect) ([]*Trace, bool, error) {
	if e.pos >= len(e.input) {
		e.fail(x)
		return nil, false, nil
	}
	leaf := e.leafTrace(re, e.pos, e.pos+1)
	e.pos++
	return []*Trace{leaf}, true, nil
}

// matchArg delegates to the expression bound to a formal parameter. The
// bound expression is evaluated at the scope depth of the call site that
// supplied it, so its own parameter references resolve against the
// caller's bindings.
func (e *Engine) matchArg(x *grammar.Expr, re grammar.Reflect) ([]*Trace, bool, error) {
	bound, depth, ok := e.lookupArg(x.Text)
	if !ok {
		return nil, false, fmt.Errorf("corrupt grammar: unbound parameter %q at %s", x.Text, x.Pos)
	}

	saved := e.scopes
	e.scopes = e.scopes[:depth:depth]
	start := e.pos
	frags, matchedOK, err := e.matchChoice(bound)
	e.scopes = saved

	if err != nil || !matchedOK {
		return nil, false, err
	}
	return []*Trace{e.groupTrace(re, start, frags)}, true, nil
}

func (e *Engine) matchRuleRef(x *grammar.Expr, re grammar.Reflect) ([]*Trace, bool, error) {
	rule := e.g.Rule(x.Rule)
	parametrized := len(rule.Generics) > 0 || len(rule.Templates) > 0
	if parametrized {
		e.scopes = append(e.scopes, bindScope(rule, x))
	}
	trace, ok, err := e.matchRule(x.Rule, re)
	if parametrized {
		e.scopes = e.scopes[:len(e.scopes)-1]
	}
	if err != nil || !ok {
		return nil, false, err
	}
	return []*Trace{trace}, true, nil
}

func (e *Engine) groupTrace(re grammar.Reflect, start int, frags []*Trace) *Trace {
	return &Trace{
		Rule:     grammar.NoRule,
		Reflect:  re,
		Start:    start,
		End:      e.pos,
		Pos:      e.position(start),
		EndPos:   e.position(e.pos),
		Children: frags,
	}
}

func (e *Engine) leafTrace(re grammar.Reflect, start, end int) *Trace {
	return &Trace{
		Rule:    grammar.NoRule,
		Reflect: re,
		Start:   start,
		End:     end,
		Pos:     e.position(start),
		EndPos:  e.position(end),
		Leaf:    true,
		Text:    string(e.input[start:end]),
	}
}

// fail records a leaf-expression failure for the furthest-failure
// diagnostic.
func (e *Engine) fail(x *grammar.Expr) {
	if e.quiet > 0 {
		return
	}
	if e.pos > e.furthest {
		e.furthest = e.pos
		e.expected = e.expected[:0]
	}
	if e.pos == e.furthest {
		desc := x.Describe()
		for _, have := range e.expected {
			if have == desc {
				return
			}
		}
		e.expected = append(e.expected, desc)
	}
}

func (e *Engine) failDiag() *FailDiag {
	offset := e.furthest
	if offset < 0 {
		offset = 0
	}
	return &FailDiag{
		Offset:   offset,
		Pos:      e.position(offset),
		Expected: append([]string(nil), e.expected...),
	}
}

func (e *Engine) indexLines() {
	e.lineStarts = []int{0}
	for i, r := range e.input {
		if r == '\n' {
			e.lineStarts = append(e.lineStarts, i+1)
		}
	}
}

func (e *Engine) position(offset int) grammar.Position {
	line := sort.Search(len(e.lineStarts), func(i int) bool {
		return e.lineStarts[i] > offset
	})
	return grammar.Position{
		File:   e.file,
		Offset: offset,
		Line:   line,
		Column: offset - e.lineStarts[line-1] + 1,
	}
}
