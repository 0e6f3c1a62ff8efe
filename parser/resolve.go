package parser

import (
	"strings"

	"github.com/dhamidi/fern/grammar"
)

// resolve turns the parsed block declarations into a grammar model:
// blocks and rules are registered (duplicates are fatal), use directives
// are expanded into per-block visible-name tables, every reference is
// rewritten to an arena index, call-site arity is checked against both
// parameter channels, and exactly one start directive is located.
func resolve(blocks []*blockDecl) (*grammar.Grammar, error) {
	g := &grammar.Grammar{Start: grammar.NoRule}
	byName := make(map[string]*grammar.Block)

	// Pass 1: register blocks and their local rule names.
	decls := make(map[string]*blockDecl)
	for _, decl := range blocks {
		if _, ok := byName[decl.name]; ok {
			return nil, duplicateDefinitionError(decl.pos, decl.name)
		}
		block := &grammar.Block{
			Name:    decl.name,
			Pos:     decl.pos,
			Rules:   make(map[string]grammar.RuleID),
			Imports: decl.imports,
		}
		byName[decl.name] = block
		decls[decl.name] = decl
		g.Blocks = append(g.Blocks, block)

		for _, rd := range decl.rules {
			if _, ok := block.Rules[rd.name]; ok {
				return nil, duplicateDefinitionError(rd.pos, decl.name+"."+rd.name)
			}
			if err := checkParams(rd); err != nil {
				return nil, err
			}
			id := grammar.RuleID(len(g.Rules))
			block.Rules[rd.name] = id
			g.Rules = append(g.Rules, &grammar.Rule{
				ID:        id,
				Block:     decl.name,
				Name:      rd.name,
				Pos:       rd.pos,
				Generics:  rd.generics,
				Templates: rd.templates,
				Body:      rd.body,
			})
		}
	}

	// Pass 2: expand use directives into visible-name tables. An
	// aliased import is visible only under the alias.
	for _, block := range g.Blocks {
		block.Visible = map[string]*grammar.Block{block.Name: block}
		for _, imp := range block.Imports {
			target, ok := byName[imp.Target]
			if !ok {
				return nil, undefinedBlockError(imp.Pos, imp.Target)
			}
			name := imp.VisibleName()
			if _, ok := block.Visible[name]; ok {
				return nil, duplicateDefinitionError(imp.Pos, name)
			}
			block.Visible[name] = target
		}
	}

	// Pass 3: locate exactly one start directive program-wide.
	for _, decl := range blocks {
		for _, start := range decl.starts {
			if g.Start != grammar.NoRule {
				return nil, multipleStartError(start.pos)
			}
			block := byName[decl.name]
			target, ok := block.Visible[start.block]
			if !ok {
				return nil, undefinedBlockError(start.pos, start.block)
			}
			id, ok := target.Rules[start.rule]
			if !ok {
				return nil, undefinedRuleError(start.pos, start.block+"."+start.rule)
			}
			rule := g.Rules[id]
			if len(rule.Generics) > 0 || len(rule.Templates) > 0 {
				return nil, arityMismatchError(start.pos, rule.QualifiedName(), "generic",
					len(rule.Generics)+len(rule.Templates), 0)
			}
			g.Start = id
			g.StartName = rule.QualifiedName()
		}
	}
	if g.Start == grammar.NoRule {
		return nil, missingStartError()
	}

	// Pass 4: resolve every expression in every rule body.
	for _, block := range g.Blocks {
		decl := decls[block.Name]
		for _, rd := range decl.rules {
			rule := g.Rules[block.Rules[rd.name]]
			if err := resolveChoice(g, block, rule, rule.Body); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

func checkParams(rd *ruleDecl) error {
	seen := make(map[string]bool)
	for _, name := range rd.generics {
		if seen[name] {
			return duplicateParameterError(rd.pos, rd.name, name)
		}
		seen[name] = true
	}
	for _, name := range rd.templates {
		if seen[name] {
			return duplicateParameterError(rd.pos, rd.name, name)
		}
		seen[name] = true
	}
	return nil
}

func resolveChoice(g *grammar.Grammar, block *grammar.Block, rule *grammar.Rule, choice *grammar.Choice) error {
	for _, alt := range choice.Alts {
		for _, elem := range alt.Elems {
			if elem.Group != nil {
				if err := resolveChoice(g, block, rule, elem.Group); err != nil {
					return err
				}
				continue
			}
			if err := resolveExpr(g, block, rule, elem.Expr); err != nil {
				return err
			}
		}
	}
	return nil
}

func resolveExpr(g *grammar.Grammar, block *grammar.Block, rule *grammar.Rule, expr *grammar.Expr) error {
	if expr.Kind != grammar.ExprRule {
		return nil
	}

	// A bare name with no arguments that matches one of the enclosing
	// rule's formals is a parameter reference, not a rule reference.
	if !strings.Contains(expr.Text, ".") &&
		len(expr.GenericArgs) == 0 && len(expr.TemplateArgs) == 0 &&
		isFormal(rule, expr.Text) {
		expr.Kind = grammar.ExprArg
		return nil
	}

	// Argument expression trees are resolved in the caller's context:
	// they may reference the caller's rules and formals.
	for _, arg := range expr.GenericArgs {
		if err := resolveChoice(g, block, rule, arg); err != nil {
			return err
		}
	}
	for _, arg := range expr.TemplateArgs {
		if err := resolveChoice(g, block, rule, arg); err != nil {
			return err
		}
	}

	target, err := lookupRule(g, block, expr)
	if err != nil {
		return err
	}
	expr.Rule = target.ID

	if len(expr.GenericArgs) != len(target.Generics) {
		return arityMismatchError(expr.Pos, target.QualifiedName(), "generic",
			len(target.Generics), len(expr.GenericArgs))
	}
	if len(expr.TemplateArgs) != len(target.Templates) {
		return arityMismatchError(expr.Pos, target.QualifiedName(), "template",
			len(target.Templates), len(expr.TemplateArgs))
	}
	return nil
}

func isFormal(rule *grammar.Rule, name string) bool {
	for _, p := range rule.Generics {
		if p == name {
			return true
		}
	}
	for _, p := range rule.Templates {
		if p == name {
			return true
		}
	}
	return false
}

func lookupRule(g *grammar.Grammar, block *grammar.Block, expr *grammar.Expr) (*grammar.Rule, error) {
	name := expr.Text
	if i := strings.IndexByte(name, '.'); i >= 0 {
		blockName, ruleName := name[:i], name[i+1:]
		target, ok := block.Visible[blockName]
		if !ok {
			return nil, undefinedBlockError(expr.Pos, blockName)
		}
		id, ok := target.Rules[ruleName]
		if !ok {
			return nil, undefinedRuleError(expr.Pos, name)
		}
		return g.Rules[id], nil
	}

	id, ok := block.Rules[name]
	if !ok {
		return nil, undefinedRuleError(expr.Pos, name)
	}
	return g.Rules[id], nil
}
