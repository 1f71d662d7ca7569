package am

import (
	"sort"
	"strings"
)

// Condition is a conjunction of conditional literals such as FOO_TRUE or
// BAR_FALSE. The zero value is the always-true condition. Conditions are
// comparable and may be used as map keys.
type Condition struct {
	key string
}

// True is the condition that always holds.
var True = Condition{}

// NewCondition returns the conjunction of lits. Each literal must end in
// _TRUE or _FALSE.
func NewCondition(lits ...string) Condition {
	set := make(map[string]struct{}, len(lits))
	for _, l := range lits {
		if l == "" || l == "TRUE" {
			continue
		}
		set[l] = struct{}{}
	}
	sorted := make([]string, 0, len(set))
	for l := range set {
		sorted = append(sorted, l)
	}
	sort.Strings(sorted)
	return Condition{key: strings.Join(sorted, " ")}
}

// Literals returns the literals of c in sorted order.
func (c Condition) Literals() []string {
	if c.key == "" {
		return nil
	}
	return strings.Split(c.key, " ")
}

// IsTrue reports whether c always holds.
func (c Condition) IsTrue() bool {
	return c.key == ""
}

// IsFalse reports whether c can never hold because it contains a literal
// and its negation.
func (c Condition) IsFalse() bool {
	lits := c.Literals()
	seen := make(map[string]struct{}, len(lits))
	for _, l := range lits {
		seen[l] = struct{}{}
	}
	for _, l := range lits {
		if _, ok := seen[Negate(l)]; ok {
			return true
		}
	}
	return false
}

// Merge returns the conjunction of c and other.
func (c Condition) Merge(other Condition) Condition {
	return NewCondition(append(c.Literals(), other.Literals()...)...)
}

// Implies reports whether c being true guarantees other is true, that is,
// every literal of other is a literal of c.
func (c Condition) Implies(other Condition) bool {
	mine := make(map[string]struct{})
	for _, l := range c.Literals() {
		mine[l] = struct{}{}
	}
	for _, l := range other.Literals() {
		if _, ok := mine[l]; !ok {
			return false
		}
	}
	return true
}

// Strip returns c without the literals of other. It is used to print the
// part of a condition not already implied by an enclosing one.
func (c Condition) Strip(other Condition) Condition {
	drop := make(map[string]struct{})
	for _, l := range other.Literals() {
		drop[l] = struct{}{}
	}
	var keep []string
	for _, l := range c.Literals() {
		if _, ok := drop[l]; !ok {
			keep = append(keep, l)
		}
	}
	return NewCondition(keep...)
}

// String returns "TRUE" or the space separated literals.
func (c Condition) String() string {
	if c.key == "" {
		return "TRUE"
	}
	return c.key
}

// Subst returns the configure substitutions that comment out a line when c
// does not hold, for example "@FOO_TRUE@@BAR_FALSE@".
func (c Condition) Subst() string {
	var b strings.Builder
	for _, l := range c.Literals() {
		b.WriteString("@")
		b.WriteString(l)
		b.WriteString("@")
	}
	return b.String()
}

// Negate returns the negation of a single literal.
func Negate(lit string) string {
	if strings.HasSuffix(lit, "_TRUE") {
		return strings.TrimSuffix(lit, "_TRUE") + "_FALSE"
	}
	return strings.TrimSuffix(lit, "_FALSE") + "_TRUE"
}
