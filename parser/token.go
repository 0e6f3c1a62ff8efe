package parser

import "github.com/dhamidi/fern/grammar"

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenError
	TokenComment

	TokenIdent
	TokenNumber
	TokenString
	TokenClass

	TokenLBracket
	TokenRBracket
	TokenLBrace
	TokenRBrace
	TokenLParen
	TokenRParen
	TokenLAngle
	TokenRAngle
	TokenArrow
	TokenComma
	TokenColon
	TokenDot
	TokenPlus
	TokenStar
	TokenQuestion
	TokenAmp
	TokenBang
	TokenHash
	TokenDoubleHash
	TokenCaret
)

var tokenKindNames = map[TokenKind]string{
	TokenEOF:        "EOF",
	TokenError:      "Error",
	TokenComment:    "Comment",
	TokenIdent:      "Ident",
	TokenNumber:     "Number",
	TokenString:     "String",
	TokenClass:      "Class",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLAngle:     "<",
	TokenRAngle:     ">",
	TokenArrow:      "<-",
	TokenComma:      ",",
	TokenColon:      ":",
	TokenDot:        ".",
	TokenPlus:       "+",
	TokenStar:       "*",
	TokenQuestion:   "?",
	TokenAmp:        "&",
	TokenBang:       "!",
	TokenHash:       "#",
	TokenDoubleHash: "##",
	TokenCaret:      "^",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

type Token struct {
	Kind TokenKind
	// Literal is the decoded value for strings, the raw inner text for
	// character classes, and the source text otherwise.
	Literal string
	Pos     grammar.Position
}
