package match

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dhamidi/fern/grammar"
	"github.com/dhamidi/fern/parser"
)

func compile(t *testing.T, src string) *grammar.Grammar {
	t.Helper()
	g, err := parser.CompileString("test.fern", src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return g
}

func TestParseMatching(t *testing.T) {
	tests := []struct {
		name    string
		grammar string
		input   string
		ok      bool
	}{
		{
			"literal",
			`[Main]{ + start Main.top, top <- "abc", }`,
			"abc", true,
		},
		{
			"literal mismatch",
			`[Main]{ + start Main.top, top <- "abc", }`,
			"abd", false,
		},
		{
			"sequence",
			`[Main]{ + start Main.top, top <- "a" "b" "c", }`,
			"abc", true,
		},
		{
			"ordered choice first alternative",
			`[Main]{ + start Main.top, top <- "ab" : "a", }`,
			"ab", true,
		},
		{
			"ordered choice second alternative",
			`[Main]{ + start Main.top, top <- "ab" : "a", }`,
			"a", true,
		},
		{
			"first match wins even when shorter",
			`[Main]{ + start Main.top, top <- "a" : "ab", }`,
			"ab", false,
		},
		{
			"wildcard",
			`[Main]{ + start Main.top, top <- . . ., }`,
			"x?z", true,
		},
		{
			"wildcard needs a character",
			`[Main]{ + start Main.top, top <- . ., }`,
			"x", false,
		},
		{
			"character class",
			`[Main]{ + start Main.top, top <- [a-z]+, }`,
			"hello", true,
		},
		{
			"character class rejects outside range",
			`[Main]{ + start Main.top, top <- [a-z]+, }`,
			"Hello", false,
		},
		{
			"optional present",
			`[Main]{ + start Main.top, top <- "a"? "b", }`,
			"ab", true,
		},
		{
			"optional absent",
			`[Main]{ + start Main.top, top <- "a"? "b", }`,
			"b", true,
		},
		{
			"star zero",
			`[Main]{ + start Main.top, top <- "a"* "b", }`,
			"b", true,
		},
		{
			"star many",
			`[Main]{ + start Main.top, top <- "a"* "b", }`,
			"aaaab", true,
		},
		{
			"plus needs one",
			`[Main]{ + start Main.top, top <- "a"+, }`,
			"", false,
		},
		{
			"exact count",
			`[Main]{ + start Main.top, top <- "a"{3}, }`,
			"aaa", true,
		},
		{
			"exact count too few",
			`[Main]{ + start Main.top, top <- "a"{3}, }`,
			"aa", false,
		},
		{
			"at least two rejects one",
			`[Main]{ + start Main.top, top <- "a"{2,}, }`,
			"a", false,
		},
		{
			"at least two consumes three",
			`[Main]{ + start Main.top, top <- "a"{2,}, }`,
			"aaa", true,
		},
		{
			"bounded range stops at max",
			`[Main]{ + start Main.top, top <- "a"{1,2} "ab", }`,
			"aaab", true,
		},
		{
			"positive lookahead",
			`[Main]{ + start Main.top, top <- &"ab" "a" "b", }`,
			"ab", true,
		},
		{
			"positive lookahead fails",
			`[Main]{ + start Main.top, top <- &"ab" . ., }`,
			"ba", false,
		},
		{
			"negative lookahead",
			`[Main]{ + start Main.top, top <- !"b" . ., }`,
			"ab", true,
		},
		{
			"negative lookahead fails",
			`[Main]{ + start Main.top, top <- !"b" . ., }`,
			"ba", false,
		},
		{
			"lookahead consumes nothing",
			`[Main]{ + start Main.top, top <- &"abc" "abc", }`,
			"abc", true,
		},
		{
			"group repetition",
			`[Main]{ + start Main.top, top <- ("a" : "b")+, }`,
			"abba", true,
		},
		{
			"rule reference",
			`[Main]{ + start Main.top, top <- item item, item <- [0-9], }`,
			"42", true,
		},
		{
			"cross-block rule reference",
			`[Main]{ + start Main.top, + use Lib, top <- Lib.digit+, } [Lib]{ digit <- [0-9], }`,
			"123", true,
		},
		{
			"whole input must be consumed",
			`[Main]{ + start Main.top, top <- "a", }`,
			"ab", false,
		},
		{
			"empty input against optional",
			`[Main]{ + start Main.top, top <- "a"?, }`,
			"", true,
		},
		{
			"zero-width repetition terminates",
			`[Main]{ + start Main.top, top <- ""* "a", }`,
			"a", true,
		},
		{
			"zero-width group repetition terminates",
			`[Main]{ + start Main.top, top <- ("a"?)*, }`,
			"", true,
		},
		{
			"carriage returns are stripped",
			`[Main]{ + start Main.top, top <- "a" "\n" "b", }`,
			"a\r\nb", true,
		},
		{
			"random order all permutations required",
			`[Main]{ + start Main.top, top <- ("a" : "b" : "c")^, }`,
			"cab", true,
		},
		{
			"random order missing alternative",
			`[Main]{ + start Main.top, top <- ("a" : "b" : "c")^, }`,
			"ab", false,
		},
		{
			"random order duplicate alternative",
			`[Main]{ + start Main.top, top <- ("a" : "b" : "c")^, }`,
			"aabc", false,
		},
		{
			"random order range per alternative",
			`[Main]{ + start Main.top, top <- ("a" : "b")^[1,2], }`,
			"abb", true,
		},
		{
			"random order range exceeded",
			`[Main]{ + start Main.top, top <- ("a" : "b")^[1,2], }`,
			"aaab", false,
		},
		{
			"generic parameter",
			`[Main]{ + start Main.top, top <- list<[0-9]>, list<item> <- item (","# item)*, }`,
			"1,2,3", true,
		},
		{
			"template parameter",
			`[Main]{ + start Main.top, top <- quoted("x"), quoted(q) <- "'" q "'", }`,
			"'x'", true,
		},
		{
			"recursive parametrized rule",
			`[Main]{ + start Main.top, top <- rep<"ab">, rep<x> <- x rep<x> : x, }`,
			"ababab", true,
		},
		{
			"parameter forwarded through call",
			`[Main]{ + start Main.top, top <- outer<"a">, outer<x> <- pair<x>, pair<y> <- y y, }`,
			"aa", true,
		},
		{
			"shadowed parameter name resolves in caller scope",
			`[Main]{ + start Main.top, top <- outer<"a">, outer<x> <- pair<x>, pair<x> <- x x, }`,
			"aa", true,
		},
		{
			"recursion",
			`[Main]{ + start Main.top, top <- "(" top ")" : "x", }`,
			"(((x)))", true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := compile(t, tt.grammar)
			result, err := Parse(context.Background(), g, tt.input)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if result.OK() != tt.ok {
				if result.Failure != nil {
					t.Errorf("OK() = %v, want %v (%v)", result.OK(), tt.ok, result.Failure)
				} else {
					t.Errorf("OK() = %v, want %v", result.OK(), tt.ok)
				}
			}
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	g := compile(t, `[Main]{ + start Main.top, top <- (word : sep)+, word <- [a-z]+, sep <- [ ,]+, }`)
	input := "one, two, three"

	first, err := Parse(context.Background(), g, input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	second, err := Parse(context.Background(), g, input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated parse differs (-first +second):\n%s", diff)
	}
}

func TestParseFurthestFailure(t *testing.T) {
	g := compile(t, `[Main]{ + start Main.top, top <- "foo" : "bar", }`)
	result, err := Parse(context.Background(), g, "baz")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.OK() {
		t.Fatal("OK() = true, want failure")
	}
	diag := result.Failure
	if diag.Offset != 0 {
		t.Errorf("Offset = %d, want 0", diag.Offset)
	}
	want := []string{`"foo"`, `"bar"`}
	if diff := cmp.Diff(want, diag.Expected); diff != "" {
		t.Errorf("Expected mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFurthestFailureDeepest(t *testing.T) {
	g := compile(t, `[Main]{ + start Main.top, top <- "a" "a" "x" : "a" "b", }`)
	result, err := Parse(context.Background(), g, "aab")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.OK() {
		t.Fatal("OK() = true, want failure")
	}
	// The first alternative got two characters in before failing; the
	// second failed earlier. Only the deepest failure is reported.
	diag := result.Failure
	if diag.Offset != 2 {
		t.Errorf("Offset = %d, want 2", diag.Offset)
	}
	if diag.Pos.Line != 1 || diag.Pos.Column != 3 {
		t.Errorf("Pos = %d:%d, want 1:3", diag.Pos.Line, diag.Pos.Column)
	}
}

func TestParsePrefixMatchReportsEndOfInput(t *testing.T) {
	g := compile(t, `[Main]{ + start Main.top, top <- "a", }`)
	result, err := Parse(context.Background(), g, "ab")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.OK() {
		t.Fatal("OK() = true, want failure")
	}
	diag := result.Failure
	if diag.Offset != 1 {
		t.Errorf("Offset = %d, want 1", diag.Offset)
	}
	want := []string{"end of input"}
	if diff := cmp.Diff(want, diag.Expected); diff != "" {
		t.Errorf("Expected mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLookaheadFailuresStayQuiet(t *testing.T) {
	g := compile(t, `[Main]{ + start Main.top, top <- !"x" "y", }`)
	result, err := Parse(context.Background(), g, "x")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.OK() {
		t.Fatal("OK() = true, want failure")
	}
	// The only failure happened inside the negative lookahead; it must
	// not surface as an expectation.
	for _, exp := range result.Failure.Expected {
		if exp == `"x"` {
			t.Errorf("lookahead expectation leaked into diagnostics: %v", result.Failure.Expected)
		}
	}
}

func TestParseFailurePositionUsesInputName(t *testing.T) {
	g := compile(t, `[Main]{ + start Main.top, top <- "a", }`)
	result, err := Parse(context.Background(), g, "b", WithInputName("input.txt"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.OK() {
		t.Fatal("OK() = true, want failure")
	}
	if got := result.Failure.String(); !strings.HasPrefix(got, "input.txt:1:1: ") {
		t.Errorf("failure = %q, want prefix %q", got, "input.txt:1:1: ")
	}
}

func TestParseStartRuleOverride(t *testing.T) {
	g := compile(t, `[Main]{ + start Main.top, top <- "a", other <- "b", }`)

	result, err := Parse(context.Background(), g, "b", WithStartRule("Main.other"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !result.OK() {
		t.Errorf("OK() = false, want success: %v", result.Failure)
	}

	if _, err := Parse(context.Background(), g, "b", WithStartRule("Main.nope")); err == nil {
		t.Error("Parse with unknown start rule succeeded, want error")
	}
}

func TestParseStartRuleOverrideRejectsParametrizedRule(t *testing.T) {
	g := compile(t, `[Main]{ + start Main.top, top <- list<"a">, list<item> <- item+, }`)
	_, err := Parse(context.Background(), g, "aa", WithStartRule("Main.list"))
	if err == nil {
		t.Fatal("Parse with parametrized start rule succeeded, want error")
	}
	if !strings.Contains(err.Error(), "takes parameters") {
		t.Errorf("error = %v, want it to say the rule takes parameters", err)
	}
}

func TestParseStepBudget(t *testing.T) {
	g := compile(t, `[Main]{ + start Main.top, top <- "a" top : "a", }`)
	_, err := Parse(context.Background(), g, strings.Repeat("a", 50), WithMaxSteps(10))
	var budgetErr *BudgetError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("error = %v, want *BudgetError", err)
	}
	if budgetErr.Steps != 10 {
		t.Errorf("Steps = %d, want 10", budgetErr.Steps)
	}
}

func TestParseLoopLimit(t *testing.T) {
	g := compile(t, `[Main]{ + start Main.top, top <- "a"*, }`)
	_, err := Parse(context.Background(), g, strings.Repeat("a", 100), WithLoopLimit(10))
	var budgetErr *BudgetError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("error = %v, want *BudgetError", err)
	}
	if budgetErr.Loops != 10 {
		t.Errorf("Loops = %d, want 10", budgetErr.Loops)
	}
}

func TestParseContextCancellation(t *testing.T) {
	g := compile(t, `[Main]{ + start Main.top, top <- "a", }`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, g, "a")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestParseMemoizationPreservesResults(t *testing.T) {
	g := compile(t, `[Main]{ + start Main.top, top <- num "+" num : num "-" num, num <- [0-9]+, }`)
	input := "12-34"

	plain, err := Parse(context.Background(), g, input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	memoized, err := Parse(context.Background(), g, input, WithMemoization())
	if err != nil {
		t.Fatalf("Parse with memoization: %v", err)
	}
	if diff := cmp.Diff(plain, memoized); diff != "" {
		t.Errorf("memoized parse differs (-plain +memoized):\n%s", diff)
	}
}

func TestParseMemoizationPreservesDiagnostics(t *testing.T) {
	// The lookahead evaluates sub first, with expectation recording
	// suppressed. That attempt must not be cached: the later failure of
	// sub in normal position has to report what it expected.
	g := compile(t, `[Main]{ + start Main.top, top <- &sub "x" : sub, sub <- "y", }`)
	input := "z"

	plain, err := Parse(context.Background(), g, input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	memoized, err := Parse(context.Background(), g, input, WithMemoization())
	if err != nil {
		t.Fatalf("Parse with memoization: %v", err)
	}
	if plain.OK() || memoized.OK() {
		t.Fatalf("OK() = %v/%v, want two failures", plain.OK(), memoized.OK())
	}

	want := []string{`"y"`}
	if diff := cmp.Diff(want, plain.Failure.Expected); diff != "" {
		t.Errorf("plain Expected mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(plain.Failure, memoized.Failure); diff != "" {
		t.Errorf("memoized diagnostic differs (-plain +memoized):\n%s", diff)
	}
}

func TestParseTraceSpans(t *testing.T) {
	g := compile(t, `[Main]{ + start Main.top, top <- item item, item <- [a-z], }`)
	result, err := Parse(context.Background(), g, "ab")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !result.OK() {
		t.Fatalf("parse failed: %v", result.Failure)
	}
	root := result.Trace
	if root.Start != 0 || root.End != 2 {
		t.Errorf("root span = [%d,%d), want [0,2)", root.Start, root.End)
	}
	if len(root.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(root.Children))
	}
	second := root.Children[1]
	if second.Start != 1 || second.End != 2 {
		t.Errorf("second item span = [%d,%d), want [1,2)", second.Start, second.End)
	}
	if second.Pos.Column != 2 {
		t.Errorf("second item column = %d, want 2", second.Pos.Column)
	}
}
