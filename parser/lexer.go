package parser

import "github.com/dhamidi/fern/grammar"

// Lexer tokenizes fern grammar source. It is deliberately small: the
// grammar language is self-describing, so the bootstrap set of tokens is
// fixed and hand-built rather than derived from a grammar file.
type Lexer struct {
	input  []byte
	file   string
	pos    int
	line   int
	column int
}

func NewLexer(input []byte, file string) *Lexer {
	return &Lexer{
		input:  input,
		file:   file,
		pos:    0,
		line:   1,
		column: 1,
	}
}

func (l *Lexer) Position() grammar.Position {
	return grammar.Position{
		File:   l.file,
		Offset: l.pos,
		Line:   l.line,
		Column: l.column,
	}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekN(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	ch := l.input[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

func (l *Lexer) skipWhitespace() {
	for {
		ch := l.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			l.advance()
		} else {
			break
		}
	}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	pos := l.Position()

	ch := l.peek()
	if ch == 0 {
		return Token{Kind: TokenEOF, Pos: pos}
	}

	switch {
	case isIdentStart(ch):
		return l.lexIdent(pos)
	case isDigit(ch):
		return l.lexNumber(pos)
	}

	switch ch {
	case '"':
		return l.lexString(pos)
	case '[':
		return l.lexBracket(pos)
	case '%':
		return l.lexComment(pos)
	case '#':
		l.advance()
		if l.peek() == '#' {
			l.advance()
			return Token{Kind: TokenDoubleHash, Literal: "##", Pos: pos}
		}
		return Token{Kind: TokenHash, Literal: "#", Pos: pos}
	case '<':
		l.advance()
		if l.peek() == '-' {
			l.advance()
			return Token{Kind: TokenArrow, Literal: "<-", Pos: pos}
		}
		return Token{Kind: TokenLAngle, Literal: "<", Pos: pos}
	}

	single := map[byte]TokenKind{
		']': TokenRBracket,
		'{': TokenLBrace,
		'}': TokenRBrace,
		'(': TokenLParen,
		')': TokenRParen,
		'>': TokenRAngle,
		',': TokenComma,
		':': TokenColon,
		'.': TokenDot,
		'+': TokenPlus,
		'*': TokenStar,
		'?': TokenQuestion,
		'&': TokenAmp,
		'!': TokenBang,
		'^': TokenCaret,
	}
	if kind, ok := single[ch]; ok {
		l.advance()
		return Token{Kind: kind, Literal: string(ch), Pos: pos}
	}

	l.advance()
	return Token{Kind: TokenError, Literal: string(ch), Pos: pos}
}

func (l *Lexer) lexIdent(pos grammar.Position) Token {
	start := l.pos
	for isIdentPart(l.peek()) {
		l.advance()
	}
	return Token{Kind: TokenIdent, Literal: string(l.input[start:l.pos]), Pos: pos}
}

func (l *Lexer) lexNumber(pos grammar.Position) Token {
	start := l.pos
	for isDigit(l.peek()) {
		l.advance()
	}
	return Token{Kind: TokenNumber, Literal: string(l.input[start:l.pos]), Pos: pos}
}

// lexString decodes a quoted literal. Supported escapes: \" \\ \n \t \0.
func (l *Lexer) lexString(pos grammar.Position) Token {
	l.advance() // opening quote
	var value []byte
	for {
		ch := l.peek()
		if ch == 0 || ch == '\n' {
			return Token{Kind: TokenError, Literal: string(value), Pos: pos}
		}
		if ch == '"' {
			l.advance()
			return Token{Kind: TokenString, Literal: string(value), Pos: pos}
		}
		if ch == '\\' {
			l.advance()
			esc := l.advance()
			switch esc {
			case 'n':
				value = append(value, '\n')
			case 't':
				value = append(value, '\t')
			case '0':
				value = append(value, 0)
			case '"', '\\':
				value = append(value, esc)
			default:
				return Token{Kind: TokenError, Literal: string(esc), Pos: pos}
			}
			continue
		}
		value = append(value, l.advance())
	}
}

// lexBracket scans "[" up to the matching unescaped "]". The inner text
// is kept raw; the parser compiles it into rune ranges. A "[" directly
// followed by an identifier and "]" at the start of a line is still lexed
// here; the parser treats a Class token as a block header when it sits in
// top-level position.
func (l *Lexer) lexBracket(pos grammar.Position) Token {
	l.advance() // '['
	start := l.pos
	for {
		ch := l.peek()
		if ch == 0 || ch == '\n' {
			return Token{Kind: TokenError, Literal: string(l.input[start:l.pos]), Pos: pos}
		}
		if ch == '\\' {
			l.advance()
			l.advance()
			continue
		}
		if ch == ']' {
			inner := string(l.input[start:l.pos])
			l.advance()
			return Token{Kind: TokenClass, Literal: inner, Pos: pos}
		}
		l.advance()
	}
}

// lexComment scans a "% ...," comment directive through its terminating
// comma. The comma belongs to the comment.
func (l *Lexer) lexComment(pos grammar.Position) Token {
	l.advance() // '%'
	start := l.pos
	for {
		ch := l.peek()
		if ch == 0 {
			return Token{Kind: TokenError, Literal: string(l.input[start:l.pos]), Pos: pos}
		}
		if ch == ',' {
			text := string(l.input[start:l.pos])
			l.advance()
			return Token{Kind: TokenComment, Literal: text, Pos: pos}
		}
		l.advance()
	}
}

// Tokenize runs the lexer to EOF.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens
		}
	}
}
