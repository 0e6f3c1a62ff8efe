package parser

import (
	"fmt"

	"github.com/dhamidi/fern/grammar"
)

type ErrorCode int

const (
	ErrUnexpectedToken ErrorCode = iota + 1
	ErrUnexpectedEOF
	ErrBadEscape
	ErrBadClass
	ErrBadRange
	ErrBadDirective
	ErrUndefinedRule
	ErrUndefinedBlock
	ErrDuplicateDefinition
	ErrDuplicateParameter
	ErrArityMismatch
	ErrMissingStart
	ErrMultipleStart
)

// CompileError is fatal to producing a usable grammar model. It always
// carries the source position the diagnostic refers to.
type CompileError struct {
	Code ErrorCode
	Pos  grammar.Position
	Msg  string
}

func (e *CompileError) Error() string {
	if e.Pos.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func errorf(code ErrorCode, pos grammar.Position, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func unexpectedTokenError(tok Token, expected string) *CompileError {
	if tok.Kind == TokenEOF {
		return errorf(ErrUnexpectedEOF, tok.Pos, "unexpected end of input, expected %s", expected)
	}
	return errorf(ErrUnexpectedToken, tok.Pos, "unexpected %q, expected %s", tok.Literal, expected)
}

func undefinedRuleError(pos grammar.Position, name string) *CompileError {
	return errorf(ErrUndefinedRule, pos, "undefined rule %q", name)
}

func undefinedBlockError(pos grammar.Position, name string) *CompileError {
	return errorf(ErrUndefinedBlock, pos, "undefined block %q", name)
}

func duplicateDefinitionError(pos grammar.Position, name string) *CompileError {
	return errorf(ErrDuplicateDefinition, pos, "duplicate definition of %q", name)
}

func duplicateParameterError(pos grammar.Position, rule, param string) *CompileError {
	return errorf(ErrDuplicateParameter, pos, "duplicate parameter %q in rule %q", param, rule)
}

func arityMismatchError(pos grammar.Position, callee, channel string, expected, got int) *CompileError {
	return errorf(ErrArityMismatch, pos, "rule %q expects %d %s argument(s), got %d", callee, expected, channel, got)
}

func missingStartError() *CompileError {
	return &CompileError{Code: ErrMissingStart, Msg: "no start rule declared; exactly one \"+ start\" directive is required"}
}

func multipleStartError(pos grammar.Position) *CompileError {
	return errorf(ErrMultipleStart, pos, "multiple \"+ start\" directives; exactly one is allowed")
}
