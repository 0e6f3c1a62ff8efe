// Package parser compiles fern grammar source text into the immutable
// grammar model. The grammar language describes itself, so the compiler
// is a fixed, hand-built recursive-descent parser over the small
// bootstrap set of productions (block header, directives, rule
// definitions, and the expression grammar) followed by a resolution
// pass.
package parser

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dhamidi/fern/grammar"
)

// Source is one grammar file to compile. Name is used in positions and
// diagnostics only.
type Source struct {
	Name string
	Data []byte
}

// Compile parses all sources, merges their blocks into one namespace,
// and resolves every reference. It returns either a fully resolved
// grammar or a *CompileError; never a partially built model.
func Compile(sources ...Source) (*grammar.Grammar, error) {
	var blocks []*blockDecl
	for _, src := range sources {
		p := newParser(src)
		decls, err := p.parseFile()
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, decls...)
	}
	return resolve(blocks)
}

// CompileString is a convenience wrapper around Compile for a single
// in-memory grammar.
func CompileString(name, src string) (*grammar.Grammar, error) {
	return Compile(Source{Name: name, Data: []byte(src)})
}

type blockDecl struct {
	name    string
	pos     grammar.Position
	imports []grammar.Import
	rules   []*ruleDecl
	starts  []startDecl
}

type ruleDecl struct {
	name      string
	pos       grammar.Position
	generics  []string
	templates []string
	body      *grammar.Choice
}

type startDecl struct {
	block string
	rule  string
	pos   grammar.Position
}

type Parser struct {
	file   string
	tokens []Token
	pos    int
}

func newParser(src Source) *Parser {
	all := NewLexer(src.Data, src.Name).Tokenize()
	// Comment directives are separators; they never reach the parser.
	tokens := all[:0:0]
	for _, tok := range all {
		if tok.Kind != TokenComment {
			tokens = append(tokens, tok)
		}
	}
	return &Parser{file: src.Name, tokens: tokens}
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(kind TokenKind, what string) (Token, error) {
	tok := p.current()
	if tok.Kind != kind {
		return tok, unexpectedTokenError(tok, what)
	}
	return p.advance(), nil
}

// adjacent reports whether tok starts right after a token ending at
// offset. The lexer discards whitespace, so modifiers that must touch
// their operand ("#Name", "^[1,2]") are checked by offset.
func adjacent(offset int, tok Token) bool {
	return tok.Pos.Offset == offset
}

// parseFile := (block | ",")* EOF
func (p *Parser) parseFile() ([]*blockDecl, error) {
	var blocks []*blockDecl
	for {
		tok := p.current()
		switch tok.Kind {
		case TokenEOF:
			return blocks, nil
		case TokenComma:
			// comma continuation between top-level constructs
			p.advance()
		case TokenClass:
			block, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, block)
		default:
			return nil, unexpectedTokenError(tok, "block header")
		}
	}
}

// parseBlock := "[" Name "]" "{" (directive | ruleDef | ",")* "}"
//
// The lexer delivers "[Name]" as a single Class token; a block header is
// a Class token in top-level position whose text is an identifier.
func (p *Parser) parseBlock() (*blockDecl, error) {
	tok := p.advance()
	name := tok.Literal
	if !isBlockName(name) {
		return nil, errorf(ErrUnexpectedToken, tok.Pos, "invalid block name %q", name)
	}
	block := &blockDecl{name: name, pos: tok.Pos}

	if _, err := p.expect(TokenLBrace, `"{"`); err != nil {
		return nil, err
	}

	for {
		tok := p.current()
		switch tok.Kind {
		case TokenRBrace:
			p.advance()
			return block, nil
		case TokenComma:
			p.advance()
		case TokenPlus:
			if err := p.parseDirective(block); err != nil {
				return nil, err
			}
		case TokenIdent:
			rule, err := p.parseRuleDef()
			if err != nil {
				return nil, err
			}
			block.rules = append(block.rules, rule)
		case TokenEOF:
			return nil, unexpectedTokenError(tok, `"}"`)
		default:
			return nil, unexpectedTokenError(tok, "directive or rule definition")
		}
	}
}

func isBlockName(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

// parseDirective := "+" "use" Name ("as" Name)? ","
//                 | "+" "start" Name "." Name ","
func (p *Parser) parseDirective(block *blockDecl) error {
	p.advance() // "+"
	tok, err := p.expect(TokenIdent, `"use" or "start"`)
	if err != nil {
		return err
	}

	switch tok.Literal {
	case "use":
		target, err := p.expect(TokenIdent, "block name")
		if err != nil {
			return err
		}
		imp := grammar.Import{Target: target.Literal, Pos: target.Pos}
		if p.current().Kind == TokenIdent && p.current().Literal == "as" {
			p.advance()
			alias, err := p.expect(TokenIdent, "alias name")
			if err != nil {
				return err
			}
			imp.Alias = alias.Literal
		}
		block.imports = append(block.imports, imp)
	case "start":
		blockName, err := p.expect(TokenIdent, "block name")
		if err != nil {
			return err
		}
		if _, err := p.expect(TokenDot, `"."`); err != nil {
			return err
		}
		ruleName, err := p.expect(TokenIdent, "rule name")
		if err != nil {
			return err
		}
		block.starts = append(block.starts, startDecl{
			block: blockName.Literal,
			rule:  ruleName.Literal,
			pos:   tok.Pos,
		})
	default:
		return errorf(ErrBadDirective, tok.Pos, "unknown directive %q", tok.Literal)
	}

	_, err = p.expect(TokenComma, `","`)
	return err
}

// parseRuleDef := Name ("<" Name ("," Name)* ">")? ("(" Name ("," Name)* ")")? "<-" choice ","
func (p *Parser) parseRuleDef() (*ruleDecl, error) {
	nameTok := p.advance()
	rule := &ruleDecl{name: nameTok.Literal, pos: nameTok.Pos}

	if p.current().Kind == TokenLAngle {
		params, err := p.parseParamList(TokenRAngle, `">"`)
		if err != nil {
			return nil, err
		}
		rule.generics = params
	}
	if p.current().Kind == TokenLParen {
		params, err := p.parseParamList(TokenRParen, `")"`)
		if err != nil {
			return nil, err
		}
		rule.templates = params
	}

	if _, err := p.expect(TokenArrow, `"<-"`); err != nil {
		return nil, err
	}

	body, err := p.parseChoice()
	if err != nil {
		return nil, err
	}
	rule.body = body

	if _, err := p.expect(TokenComma, `","`); err != nil {
		return nil, err
	}
	return rule, nil
}

func (p *Parser) parseParamList(close TokenKind, closeWhat string) ([]string, error) {
	p.advance() // "<" or "("
	var params []string
	for {
		tok, err := p.expect(TokenIdent, "parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, tok.Literal)
		switch p.current().Kind {
		case TokenComma:
			p.advance()
		case close:
			p.advance()
			return params, nil
		default:
			return nil, unexpectedTokenError(p.current(), closeWhat)
		}
	}
}

// parseChoice := seq (":" seq)*
func (p *Parser) parseChoice() (*grammar.Choice, error) {
	choice := &grammar.Choice{UUID: uuid.New()}
	for {
		seq, err := p.parseSeq()
		if err != nil {
			return nil, err
		}
		choice.Alts = append(choice.Alts, seq)
		if p.current().Kind != TokenColon {
			return choice, nil
		}
		p.advance()
	}
}

// parseSeq := elem+
func (p *Parser) parseSeq() (*grammar.Seq, error) {
	seq := &grammar.Seq{}
	for {
		switch p.current().Kind {
		case TokenColon, TokenComma, TokenRParen, TokenRAngle, TokenRBrace, TokenEOF:
			if len(seq.Elems) == 0 {
				return nil, unexpectedTokenError(p.current(), "expression")
			}
			return seq, nil
		}
		elem, err := p.parseElem()
		if err != nil {
			return nil, err
		}
		seq.Elems = append(seq.Elems, elem)
	}
}

// parseElem := ("&" | "!")? primary quantifier? randomOrder? reflection?
func (p *Parser) parseElem() (*grammar.Elem, error) {
	elem := &grammar.Elem{UUID: uuid.New(), Quant: grammar.One, Pos: p.current().Pos}

	switch p.current().Kind {
	case TokenAmp:
		elem.Lookahead = grammar.LookPositive
		p.advance()
	case TokenBang:
		elem.Lookahead = grammar.LookNegative
		p.advance()
	}

	if err := p.parsePrimary(elem); err != nil {
		return nil, err
	}

	if err := p.parseQuantifier(elem); err != nil {
		return nil, err
	}
	if err := p.parseRandomOrder(elem); err != nil {
		return nil, err
	}
	if err := p.parseReflection(elem); err != nil {
		return nil, err
	}
	return elem, nil
}

func (p *Parser) parsePrimary(elem *grammar.Elem) error {
	tok := p.current()
	switch tok.Kind {
	case TokenString:
		p.advance()
		elem.Expr = &grammar.Expr{Kind: grammar.ExprLiteral, Pos: tok.Pos, Text: tok.Literal, Rule: grammar.NoRule}
		return nil
	case TokenClass:
		p.advance()
		class, err := parseClass(tok)
		if err != nil {
			return err
		}
		elem.Expr = &grammar.Expr{Kind: grammar.ExprClass, Pos: tok.Pos, Text: tok.Literal, Class: class, Rule: grammar.NoRule}
		return nil
	case TokenDot:
		p.advance()
		elem.Expr = &grammar.Expr{Kind: grammar.ExprWildcard, Pos: tok.Pos, Rule: grammar.NoRule}
		return nil
	case TokenLParen:
		p.advance()
		group, err := p.parseChoice()
		if err != nil {
			return err
		}
		if _, err := p.expect(TokenRParen, `")"`); err != nil {
			return err
		}
		elem.Group = group
		return nil
	case TokenIdent:
		return p.parseReference(elem)
	}
	return unexpectedTokenError(tok, "expression")
}

// parseReference := Name ("." Name)? ("<" args ">")? ("(" args ")")?
//
// Whether a bare name is a rule reference or a parameter reference is
// decided by the resolve pass, which knows the enclosing rule's formals.
func (p *Parser) parseReference(elem *grammar.Elem) error {
	tok := p.advance()
	name := tok.Literal
	end := tok.Pos.Offset + len(tok.Literal)

	if p.current().Kind == TokenDot && adjacent(end, p.current()) {
		p.advance()
		part, err := p.expect(TokenIdent, "rule name")
		if err != nil {
			return err
		}
		name = name + "." + part.Literal
		end = part.Pos.Offset + len(part.Literal)
	}

	expr := &grammar.Expr{Kind: grammar.ExprRule, Pos: tok.Pos, Text: name, Rule: grammar.NoRule}

	if p.current().Kind == TokenLAngle && adjacent(end, p.current()) {
		args, closeTok, err := p.parseArgList(TokenRAngle, `">"`)
		if err != nil {
			return err
		}
		expr.GenericArgs = args
		end = closeTok.Pos.Offset + 1
	}
	if p.current().Kind == TokenLParen && adjacent(end, p.current()) {
		args, _, err := p.parseArgList(TokenRParen, `")"`)
		if err != nil {
			return err
		}
		expr.TemplateArgs = args
	}

	elem.Expr = expr
	return nil
}

func (p *Parser) parseArgList(close TokenKind, closeWhat string) ([]*grammar.Choice, Token, error) {
	p.advance() // "<" or "("
	var args []*grammar.Choice
	for {
		arg, err := p.parseChoice()
		if err != nil {
			return nil, Token{}, err
		}
		args = append(args, arg)
		switch p.current().Kind {
		case TokenComma:
			p.advance()
		case close:
			return args, p.advance(), nil
		default:
			return nil, Token{}, unexpectedTokenError(p.current(), closeWhat)
		}
	}
}

// parseQuantifier := "?" | "*" | "+" | "{" Number? ("," Number?)? "}"
func (p *Parser) parseQuantifier(elem *grammar.Elem) error {
	switch p.current().Kind {
	case TokenQuestion:
		p.advance()
		elem.Quant = grammar.Quant{Min: 0, Max: 1}
	case TokenStar:
		p.advance()
		elem.Quant = grammar.Quant{Min: 0, Max: -1}
	case TokenPlus:
		p.advance()
		elem.Quant = grammar.Quant{Min: 1, Max: -1}
	case TokenLBrace:
		open := p.advance()
		quant, err := p.parseRange(open.Pos, TokenRBrace, `"}"`)
		if err != nil {
			return err
		}
		elem.Quant = quant
	}
	return nil
}

// parseRange parses the interior of "{min,max}" with either bound
// omittable. "{n}" means exactly n.
func (p *Parser) parseRange(pos grammar.Position, close TokenKind, closeWhat string) (grammar.Quant, error) {
	quant := grammar.Quant{Min: 0, Max: -1}
	hasMin, hasComma := false, false

	if p.current().Kind == TokenNumber {
		n, _ := strconv.Atoi(p.advance().Literal)
		quant.Min = n
		hasMin = true
	}
	if p.current().Kind == TokenComma {
		p.advance()
		hasComma = true
		if p.current().Kind == TokenNumber {
			n, _ := strconv.Atoi(p.advance().Literal)
			quant.Max = n
		}
	}
	if _, err := p.expect(close, closeWhat); err != nil {
		return quant, err
	}

	if !hasMin && !hasComma {
		return quant, errorf(ErrBadRange, pos, "repetition range needs at least one bound")
	}
	if hasMin && !hasComma {
		quant.Max = quant.Min
	}
	if !quant.Unbounded() && quant.Min > quant.Max {
		return quant, errorf(ErrBadRange, pos, "invalid repetition range %s", quant)
	}
	return quant, nil
}

// parseRandomOrder := "^" ("[" Number? "," Number? "]")?
//
// The bracketed range arrives as a single Class token; it must touch the
// caret to count as its range.
func (p *Parser) parseRandomOrder(elem *grammar.Elem) error {
	if p.current().Kind != TokenCaret {
		return nil
	}
	caret := p.advance()
	random := grammar.One

	if p.current().Kind == TokenClass && adjacent(caret.Pos.Offset+1, p.current()) {
		tok := p.advance()
		quant, err := parseClassRange(tok)
		if err != nil {
			return err
		}
		random = quant
	}

	if elem.Group == nil {
		return errorf(ErrBadRange, caret.Pos, "random-order modifier requires a group")
	}
	elem.Random = &random
	return nil
}

func parseClassRange(tok Token) (grammar.Quant, error) {
	quant := grammar.Quant{Min: 0, Max: -1}
	parts := strings.Split(tok.Literal, ",")
	if len(parts) != 2 {
		return quant, errorf(ErrBadRange, tok.Pos, "invalid random-order range [%s]", tok.Literal)
	}
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return quant, errorf(ErrBadRange, tok.Pos, "invalid random-order range [%s]", tok.Literal)
		}
		if i == 0 {
			quant.Min = n
		} else {
			quant.Max = n
		}
	}
	if !quant.Unbounded() && quant.Min > quant.Max {
		return quant, errorf(ErrBadRange, tok.Pos, "invalid random-order range [%s]", tok.Literal)
	}
	return quant, nil
}

// parseReflection := "#" Name? | "##"
//
// A name names the sub-match only when it touches the "#".
func (p *Parser) parseReflection(elem *grammar.Elem) error {
	switch p.current().Kind {
	case TokenDoubleHash:
		p.advance()
		elem.Reflect = grammar.Reflect{Kind: grammar.ReflectFlatten}
	case TokenHash:
		hash := p.advance()
		if p.current().Kind == TokenIdent && adjacent(hash.Pos.Offset+1, p.current()) {
			name := p.advance()
			elem.Reflect = grammar.Reflect{Kind: grammar.ReflectName, Name: name.Literal}
		} else {
			elem.Reflect = grammar.Reflect{Kind: grammar.ReflectOmit}
		}
	}
	return nil
}

// parseClass compiles the raw interior of a character class into rune
// ranges. Escapes: \] \[ \\ \- \n \t \0. "a-z" forms a range unless the
// dash is first, last, or escaped.
func parseClass(tok Token) (*grammar.Class, error) {
	type item struct {
		r       rune
		escaped bool
	}
	var items []item
	runes := []rune(tok.Literal)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' {
			if i+1 >= len(runes) {
				return nil, errorf(ErrBadClass, tok.Pos, "trailing backslash in character class [%s]", tok.Literal)
			}
			i++
			esc := runes[i]
			switch esc {
			case 'n':
				esc = '\n'
			case 't':
				esc = '\t'
			case '0':
				esc = 0
			case ']', '[', '\\', '-':
			default:
				return nil, errorf(ErrBadClass, tok.Pos, "unknown escape %q in character class [%s]", string(esc), tok.Literal)
			}
			items = append(items, item{r: esc, escaped: true})
			continue
		}
		items = append(items, item{r: r})
	}
	if len(items) == 0 {
		return nil, errorf(ErrBadClass, tok.Pos, "empty character class")
	}

	class := &grammar.Class{}
	for i := 0; i < len(items); i++ {
		if i+2 < len(items) && items[i+1].r == '-' && !items[i+1].escaped {
			lo, hi := items[i].r, items[i+2].r
			if lo > hi {
				return nil, errorf(ErrBadClass, tok.Pos, "inverted range %q-%q in character class [%s]", string(lo), string(hi), tok.Literal)
			}
			class.Ranges = append(class.Ranges, grammar.RuneRange{Lo: lo, Hi: hi})
			i += 2
			continue
		}
		class.Ranges = append(class.Ranges, grammar.RuneRange{Lo: items[i].r, Hi: items[i].r})
	}
	return class, nil
}
