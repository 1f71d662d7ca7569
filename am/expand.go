package am

import (
	"regexp"
	"strings"

	"github.com/go-automake/automake/diag"
)

var varRefRE = regexp.MustCompile(`^\$(?:\(([A-Za-z0-9_.@]+)\)|\{([A-Za-z0-9_.@]+)\})$`)

// Word is one word of a variable's value and the condition under which it
// is present.
type Word struct {
	Text string
	Cond Condition
	Pos  diag.Pos
}

// VarRef returns the name of the variable word refers to when word is
// exactly "$(NAME)" or "${NAME}".
func VarRef(word string) (string, bool) {
	m := varRefRE.FindStringSubmatch(word)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	return m[2], true
}

// SplitWords splits a make value on whitespace, keeping variable references
// such as "$(patsubst %.c,%.o, $(SRC))" in one word.
func SplitWords(value string) []string {
	var (
		words []string
		b     strings.Builder
		depth int
	)
	flush := func() {
		if b.Len() > 0 {
			words = append(words, b.String())
			b.Reset()
		}
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == '$' && i+1 < len(value) && (value[i+1] == '(' || value[i+1] == '{'):
			depth++
			b.WriteByte(c)
			b.WriteByte(value[i+1])
			i++
			continue
		case depth > 0 && (c == ')' || c == '}'):
			depth--
		case depth == 0 && (c == ' ' || c == '\t' || c == '\n'):
			flush()
			continue
		}
		b.WriteByte(c)
	}
	flush()
	return words
}

// Words returns every word of the named variable across all of its
// definitions, expanding references to other variables defined in the file.
// Each word carries the conjunction of the conditions it was reached
// through; contradictory combinations are dropped. Undefined references are
// kept as they are, since configure or make may provide them.
func (f *File) Words(name string, diags *diag.Buffer) []Word {
	var words []Word
	f.collect(name, True, nil, diags, func(d *Definition, cond Condition, w string) {
		words = append(words, Word{Text: w, Cond: cond, Pos: d.Pos})
	})
	return words
}

// Expand returns the words of the named variable in effect when cond holds,
// expanding references recursively.
func (f *File) Expand(name string, cond Condition, diags *diag.Buffer) []string {
	var out []string
	f.expandIn(name, cond, nil, diags, &out)
	return out
}

func (f *File) expandIn(name string, cond Condition, visiting []string, diags *diag.Buffer, out *[]string) {
	v := f.vars[name]
	if v == nil {
		return
	}
	if f.cycle(v, visiting, diags) {
		return
	}
	d, ok := v.ValueIn(cond)
	if !ok {
		return
	}
	visiting = append(visiting, name)
	for _, w := range SplitWords(d.Value) {
		if ref, ok := VarRef(w); ok && f.IsDefined(ref) {
			f.expandIn(ref, cond, visiting, diags, out)
			continue
		}
		*out = append(*out, w)
	}
}

func (f *File) collect(name string, cond Condition, visiting []string, diags *diag.Buffer, emit func(*Definition, Condition, string)) {
	v := f.vars[name]
	if v == nil {
		return
	}
	if f.cycle(v, visiting, diags) {
		return
	}
	visiting = append(visiting, name)
	for _, d := range v.Defs {
		c := cond.Merge(d.Cond)
		if c.IsFalse() {
			continue
		}
		for _, w := range SplitWords(d.Value) {
			if ref, ok := VarRef(w); ok && f.IsDefined(ref) {
				f.collect(ref, c, visiting, diags, emit)
				continue
			}
			emit(d, c, w)
		}
	}
}

func (f *File) cycle(v *Variable, visiting []string, diags *diag.Buffer) bool {
	for _, n := range visiting {
		if n == v.Name {
			if diags != nil {
				diags.Errorf(v.Pos(), "variable '%s' recursively defined", v.Name)
			}
			return true
		}
	}
	return false
}

// Value returns the value of the named variable in cond without expansion,
// or "" when it is not defined there.
func (f *File) Value(name string, cond Condition) string {
	v := f.vars[name]
	if v == nil {
		return ""
	}
	if d, ok := v.ValueIn(cond); ok {
		return d.Value
	}
	return ""
}
