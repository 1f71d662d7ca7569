package am

import (
	"sort"

	"github.com/go-automake/automake/diag"
)

// Statement is one top-level construct of a Makefile.am, in input order.
type Statement interface {
	Position() diag.Pos
}

// Comment is a block of '#' comment lines not attached to a definition or
// rule.
type Comment struct {
	Lines []string
	Cond  Condition
	Pos   diag.Pos
}

// Position implements Statement.
func (c *Comment) Position() diag.Pos { return c.Pos }

// Raw is a line passed through to the output unchanged, such as a
// "-include" directive.
type Raw struct {
	Text string
	Cond Condition
	Pos  diag.Pos
}

// Position implements Statement.
func (r *Raw) Position() diag.Pos { return r.Pos }

// Definition is the value of a variable in one condition. Later "+="
// assignments in the same condition are folded into Value.
type Definition struct {
	Var     *Variable
	Cond    Condition
	Op      string
	Value   string
	Pos     diag.Pos
	Comment []string
}

// Position implements Statement.
func (d *Definition) Position() diag.Pos { return d.Pos }

// Variable is a make variable defined in the Makefile.am.
type Variable struct {
	Name string
	Defs []*Definition
}

// Pos returns the position of the first definition.
func (v *Variable) Pos() diag.Pos {
	if len(v.Defs) == 0 {
		return diag.Pos{}
	}
	return v.Defs[0].Pos
}

// Conditions returns the conditions the variable is defined in, in
// definition order.
func (v *Variable) Conditions() []Condition {
	conds := make([]Condition, 0, len(v.Defs))
	for _, d := range v.Defs {
		conds = append(conds, d.Cond)
	}
	return conds
}

// IsConditional reports whether the variable has a definition in a
// condition other than TRUE.
func (v *Variable) IsConditional() bool {
	for _, d := range v.Defs {
		if !d.Cond.IsTrue() {
			return true
		}
	}
	return false
}

// Def returns the definition made in exactly cond.
func (v *Variable) Def(cond Condition) *Definition {
	for _, d := range v.Defs {
		if d.Cond == cond {
			return d
		}
	}
	return nil
}

// ValueIn returns the definition in effect when cond holds: the most
// specific definition whose condition is implied by cond. Definitions later
// in the file win ties, as they do in make.
func (v *Variable) ValueIn(cond Condition) (*Definition, bool) {
	var best *Definition
	for _, d := range v.Defs {
		if !cond.Implies(d.Cond) {
			continue
		}
		if best == nil || len(d.Cond.Literals()) >= len(best.Cond.Literals()) {
			best = d
		}
	}
	return best, best != nil
}

// RecipeLine is one line of a rule's recipe. Cond is the condition the line
// appeared under, which may be narrower than the rule's.
type RecipeLine struct {
	Raw  []string
	Cond Condition
}

// Rule is a make rule.
type Rule struct {
	Targets     []string
	Prereqs     string
	DoubleColon bool
	Recipe      []RecipeLine
	Cond        Condition
	Pos         diag.Pos
	Comment     []string
}

// Position implements Statement.
func (r *Rule) Position() diag.Pos { return r.Pos }

// File is a parsed Makefile.am with its included fragments inlined.
type File struct {
	// Path is the name used in diagnostics, relative to the top directory.
	Path string

	// Statements holds definitions, rules, comments and raw lines in
	// input order. A variable appended to with "+=" appears once, at its
	// first definition in that condition.
	Statements []Statement

	// Includes are the included fragments as they should appear in the
	// Makefile.in rebuild rule, for example "$(top_srcdir)/common.am".
	Includes []string

	vars  map[string]*Variable
	order []string
	rules map[string][]*Rule
}

func newFile(path string) *File {
	return &File{
		Path:  path,
		vars:  make(map[string]*Variable),
		rules: make(map[string][]*Rule),
	}
}

// Var returns the named variable, or nil.
func (f *File) Var(name string) *Variable {
	return f.vars[name]
}

// IsDefined reports whether name is defined in any condition.
func (f *File) IsDefined(name string) bool {
	v := f.vars[name]
	return v != nil && len(v.Defs) > 0
}

// VarNames returns the names of all variables in first-definition order.
func (f *File) VarNames() []string {
	return append([]string(nil), f.order...)
}

// Rules returns the rules defining target.
func (f *File) Rules(target string) []*Rule {
	return f.rules[target]
}

// HasTarget reports whether the file defines a rule for target.
func (f *File) HasTarget(target string) bool {
	return len(f.rules[target]) > 0
}

// Targets returns every target with a rule, sorted.
func (f *File) Targets() []string {
	targets := make([]string, 0, len(f.rules))
	for t := range f.rules {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}
