package match

import "github.com/dhamidi/fern/grammar"

// scope binds a parametrized rule's formal names to the caller-supplied
// expression trees for the duration of one invocation. The generic and
// template channels are independent but resolve identically.
type scope struct {
	generics  map[string]*grammar.Choice
	templates map[string]*grammar.Choice
}

// lookupArg searches the innermost active scope first. The returned
// depth is the scope-stack height at the call site that supplied the
// binding; the bound expression is evaluated at that depth so that
// parameter references inside it resolve against the caller's formals,
// not the callee's.
func (e *Engine) lookupArg(name string) (*grammar.Choice, int, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		s := e.scopes[i]
		if c, ok := s.generics[name]; ok {
			return c, i, true
		}
		if c, ok := s.templates[name]; ok {
			return c, i, true
		}
	}
	return nil, 0, false
}

func bindScope(rule *grammar.Rule, expr *grammar.Expr) scope {
	s := scope{
		generics:  make(map[string]*grammar.Choice, len(rule.Generics)),
		templates: make(map[string]*grammar.Choice, len(rule.Templates)),
	}
	for i, name := range rule.Generics {
		s.generics[name] = expr.GenericArgs[i]
	}
	for i, name := range rule.Templates {
		s.templates[name] = expr.TemplateArgs[i]
	}
	return s
}
