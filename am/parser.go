package am

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-automake/automake/diag"
	"github.com/go-automake/automake/internal/dcontext"
)

// internalConditionals are defined by the configure code automake itself
// installs and may be used without an AM_CONDITIONAL of their own.
var internalConditionals = []string{
	"AMDEP",
	"am__fastdepCC",
	"am__fastdepCXX",
	"am__fastdepCCAS",
}

// Options control how a Makefile.am is read.
type Options struct {
	// TopDir is the top source directory on disk.
	TopDir string

	// Dir is the directory of the Makefile.am relative to TopDir, using
	// forward slashes. It is "." for the top-level Makefile.am.
	Dir string

	// Conditionals is the set of names declared with AM_CONDITIONAL. When
	// nil, conditionals are not checked.
	Conditionals map[string]bool

	// Diags receives diagnostics. Required.
	Diags *diag.Buffer
}

var (
	conditionalRE = regexp.MustCompile(`^(if|else|endif)(?:\s+(!?[A-Za-z_][A-Za-z0-9_]*))?\s*(?:#.*)?$`)
	conditionalKW = regexp.MustCompile(`^(if|else|endif)(\s|$)`)
	includeRE     = regexp.MustCompile(`^(-include|sinclude|include)\s+(\S+)\s*(?:#.*)?$`)
	recursiveRE   = regexp.MustCompile(`\$[({][^)}]*\$[({]`)
	posixNameRE   = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
	substNameRE   = regexp.MustCompile(`^@[A-Za-z_][A-Za-z0-9_]*@$`)
)

type condFrame struct {
	name    string
	negated bool
	inElse  bool
	arg     string
	pos     diag.Pos
}

func (c condFrame) literal() string {
	if c.negated != c.inElse {
		return c.name + "_FALSE"
	}
	return c.name + "_TRUE"
}

type parser struct {
	opts    Options
	file    *File
	diags   *diag.Buffer
	frames  []condFrame
	rule    *Rule
	comment []string
	cpos    diag.Pos
	ccond   Condition
	stack   []string
}

// Parse reads the Makefile.am at name, relative to opts.TopDir, and every
// fragment it includes. Problems with the input are reported to opts.Diags;
// the returned error is reserved for failures to read name itself.
func Parse(ctx context.Context, name string, opts Options) (*File, error) {
	fsPath := filepath.Join(opts.TopDir, filepath.FromSlash(name))
	data, err := os.ReadFile(fsPath)
	if err != nil {
		return nil, err
	}
	dcontext.GetLogger(ctx).Debugf("reading %s", name)

	p := newParser(name, opts)
	if abs, err := filepath.Abs(fsPath); err == nil {
		p.stack = append(p.stack, abs)
	}
	if err := p.parse(bytes.NewReader(data), name, nil); err != nil {
		return nil, err
	}
	return p.finish(), nil
}

// ParseReader reads a Makefile.am from r. name is used in diagnostics.
// Include directives are resolved against opts.TopDir.
func ParseReader(ctx context.Context, r io.Reader, name string, opts Options) (*File, error) {
	p := newParser(name, opts)
	if err := p.parse(r, name, nil); err != nil {
		return nil, err
	}
	return p.finish(), nil
}

func newParser(name string, opts Options) *parser {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Diags == nil {
		opts.Diags = new(diag.Buffer)
	}
	if opts.Conditionals != nil {
		conds := make(map[string]bool, len(opts.Conditionals)+len(internalConditionals))
		for k, v := range opts.Conditionals {
			conds[k] = v
		}
		for _, c := range internalConditionals {
			conds[c] = true
		}
		opts.Conditionals = conds
	}
	return &parser{
		opts:  opts,
		file:  newFile(name),
		diags: opts.Diags,
	}
}

func (p *parser) finish() *File {
	p.flushComment()
	for _, frame := range p.frames {
		p.diags.Errorf(frame.pos, "unterminated conditional: %s", frame.literal())
	}
	p.frames = nil
	return p.file
}

func (p *parser) cond() Condition {
	lits := make([]string, len(p.frames))
	for i, f := range p.frames {
		lits[i] = f.literal()
	}
	return NewCondition(lits...)
}

func (p *parser) parse(r io.Reader, name string, includedFrom *diag.Pos) error {
	lines, err := readLines(r, name, includedFrom, p.diags)
	if err != nil {
		return err
	}
	depth := len(p.frames)

	for _, l := range lines {
		if err := p.line(l); err != nil {
			return err
		}
	}

	if includedFrom != nil {
		switch {
		case len(p.frames) > depth:
			p.diags.Errorf(p.frames[len(p.frames)-1].pos, "unterminated conditional in included file: %s", p.frames[len(p.frames)-1].literal())
			p.frames = p.frames[:depth]
		case len(p.frames) < depth:
			p.diags.Errorf(diag.Pos{File: name, IncludedFrom: includedFrom}, "too many conditionals closed in included file")
		}
	}
	return nil
}

func (p *parser) line(l logicalLine) error {
	first := l.raw[0]
	joined := l.joined()
	trimmed := strings.TrimSpace(joined)

	switch {
	case trimmed == "":
		p.flushComment()
		return nil

	case strings.HasPrefix(first, "\t") && p.rule != nil:
		p.rule.Recipe = append(p.rule.Recipe, RecipeLine{Raw: l.raw, Cond: p.cond()})
		return nil

	case strings.HasPrefix(trimmed, "##"):
		return nil

	case strings.HasPrefix(trimmed, "#"):
		if len(p.comment) == 0 {
			p.cpos = l.pos
			p.ccond = p.cond()
		}
		for _, r := range l.raw {
			p.comment = append(p.comment, strings.TrimLeft(r, " \t"))
		}
		return nil

	case strings.HasPrefix(first, "\t"):
		p.diags.Errorf(l.pos, "recipe line outside of a rule")
		return nil
	}

	if conditionalKW.MatchString(trimmed) {
		p.flushComment()
		m := conditionalRE.FindStringSubmatch(trimmed)
		if m == nil {
			p.diags.Errorf(l.pos, "invalid conditional directive '%s'", trimmed)
			return nil
		}
		p.conditional(m[1], m[2], l.pos)
		return nil
	}

	if m := includeRE.FindStringSubmatch(trimmed); m != nil {
		p.flushComment()
		p.rule = nil
		if m[1] != "include" {
			p.file.Statements = append(p.file.Statements, &Raw{Text: trimmed, Cond: p.cond(), Pos: l.pos})
			return nil
		}
		return p.include(m[2], l.pos)
	}

	kind, lhs, op, rhs := classify(joined)
	switch kind {
	case lineAssign:
		p.rule = nil
		p.assign(strings.TrimSpace(lhs), op, rhs, l.pos)
	case lineRule:
		p.ruleHeader(lhs, op == "::", rhs, l.pos)
	default:
		p.rule = nil
		p.diags.Errorf(l.pos, "unrecognized line: %s", trimmed)
	}
	return nil
}

func (p *parser) conditional(keyword, arg string, pos diag.Pos) {
	switch keyword {
	case "if":
		if arg == "" {
			p.diags.Errorf(pos, "'if' without a condition")
			return
		}
		name := strings.TrimPrefix(arg, "!")
		if p.opts.Conditionals != nil && !p.opts.Conditionals[name] {
			p.diags.Errorf(pos, "%s does not appear in AM_CONDITIONAL", name)
		}
		p.frames = append(p.frames, condFrame{
			name:    name,
			negated: strings.HasPrefix(arg, "!"),
			arg:     arg,
			pos:     pos,
		})

	case "else":
		if len(p.frames) == 0 {
			p.diags.Errorf(pos, "else without if")
			return
		}
		top := &p.frames[len(p.frames)-1]
		if top.inElse {
			p.diags.Errorf(pos, "else after else")
			return
		}
		if arg != "" && arg != top.arg {
			p.diags.Errorf(pos, "else reminder (%s) incompatible with current conditional: %s", arg, top.literal())
		}
		top.inElse = true

	case "endif":
		if len(p.frames) == 0 {
			p.diags.Errorf(pos, "endif without if")
			return
		}
		top := p.frames[len(p.frames)-1]
		if arg != "" && arg != top.arg {
			p.diags.Errorf(pos, "endif reminder (%s) incompatible with current conditional: %s", arg, top.literal())
		}
		p.frames = p.frames[:len(p.frames)-1]
	}

	if p.rule != nil && !p.cond().Implies(p.rule.Cond) {
		p.rule = nil
	}
}

func (p *parser) include(arg string, pos diag.Pos) error {
	rel, display, ok := p.resolveInclude(arg, pos)
	if !ok {
		return nil
	}

	fsPath := filepath.Join(p.opts.TopDir, filepath.FromSlash(rel))
	abs, err := filepath.Abs(fsPath)
	if err != nil {
		abs = fsPath
	}
	for _, s := range p.stack {
		if s == abs {
			p.diags.Errorf(pos, "'%s': recursive inclusion", rel)
			return nil
		}
	}

	data, err := os.ReadFile(fsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.diags.Errorf(pos, "'%s': include file not found", rel)
			return nil
		}
		return err
	}

	seen := false
	for _, inc := range p.file.Includes {
		if inc == display {
			seen = true
			break
		}
	}
	if !seen {
		p.file.Includes = append(p.file.Includes, display)
	}

	from := pos
	p.stack = append(p.stack, abs)
	defer func() { p.stack = p.stack[:len(p.stack)-1] }()
	return p.parse(bytes.NewReader(data), rel, &from)
}

// resolveInclude maps an include argument to a path relative to TopDir and
// the form used in the Makefile.in rebuild rule.
func (p *parser) resolveInclude(arg string, pos diag.Pos) (rel, display string, ok bool) {
	for _, prefix := range []string{"$(top_srcdir)/", "${top_srcdir}/"} {
		if strings.HasPrefix(arg, prefix) {
			rest := strings.TrimPrefix(arg, prefix)
			return path.Clean(rest), "$(top_srcdir)/" + rest, true
		}
	}
	for _, prefix := range []string{"$(srcdir)/", "${srcdir}/"} {
		if strings.HasPrefix(arg, prefix) {
			rest := strings.TrimPrefix(arg, prefix)
			return path.Join(p.opts.Dir, rest), "$(srcdir)/" + rest, true
		}
	}
	if strings.ContainsAny(arg, "$@") {
		p.diags.Errorf(pos, "'%s': include path must start with $(srcdir) or $(top_srcdir) when it uses variables", arg)
		return "", "", false
	}
	return path.Join(p.opts.Dir, arg), "$(srcdir)/" + arg, true
}

func (p *parser) assign(name, op, value string, pos diag.Pos) {
	if name == "" || strings.ContainsAny(name, " \t") {
		p.diags.Errorf(pos, "unrecognized line: %s %s %s", name, op, value)
		return
	}
	if !posixNameRE.MatchString(name) && !substNameRE.MatchString(name) {
		p.diags.Warnf(pos, diag.CategoryPortability, "'%s': non-POSIX variable name", name)
	}
	switch op {
	case ":=", "::=":
		p.diags.Warnf(pos, diag.CategoryPortability, "'%s'-style assignments are not portable", op)
	case "?=":
		p.diags.Warnf(pos, diag.CategoryPortability, "'?='-style assignments are not portable")
	}
	value = strings.TrimSpace(stripComment(value))
	if recursiveRE.MatchString(value) {
		p.diags.Warnf(pos, diag.CategoryPortability, "'%s': non-POSIX recursive variable expansion", name)
	}

	v := p.file.vars[name]
	if v == nil {
		v = &Variable{Name: name}
		p.file.vars[name] = v
		p.file.order = append(p.file.order, name)
	}
	cond := p.cond()
	comment := p.takeComment()

	define := func(op, value string) {
		d := &Definition{Var: v, Cond: cond, Op: op, Value: value, Pos: pos, Comment: comment}
		v.Defs = append(v.Defs, d)
		p.file.Statements = append(p.file.Statements, d)
	}

	switch op {
	case "+=":
		// Narrower definitions saw the old value and must see the
		// appended words too.
		for _, d := range v.Defs {
			if d.Cond != cond && d.Cond.Implies(cond) {
				d.Value = joinValue(d.Value, value)
			}
		}
		if d := v.Def(cond); d != nil {
			d.Value = joinValue(d.Value, value)
			return
		}
		if sup, ok := v.ValueIn(cond); ok {
			define("=", joinValue(sup.Value, value))
			return
		}
		if len(v.Defs) > 0 {
			p.diags.Errorf(pos, "cannot apply '+=' because '%s' is not defined in this condition nor in any superior condition", name)
		}
		define("=", value)

	case "?=":
		if v.Def(cond) != nil {
			return
		}
		define(op, value)

	default:
		if d := v.Def(cond); d != nil {
			p.diags.Errorf(pos, "%s multiply defined in condition %s", name, cond)
			d.Value = value
			d.Op = op
			return
		}
		define(op, value)
	}
}

func (p *parser) ruleHeader(lhs string, double bool, rest string, pos diag.Pos) {
	targets := strings.Fields(lhs)
	if len(targets) == 0 {
		p.diags.Errorf(pos, "rule without a target")
		p.rule = nil
		return
	}
	for _, t := range targets {
		if strings.Contains(t, "%") {
			p.diags.Warnf(pos, diag.CategoryPortability, "'%%'-style pattern rules are a GNU make extension")
			break
		}
	}

	prereqs, inline, hasInline := cutUnescaped(rest, ';')
	rule := &Rule{
		Targets:     targets,
		Prereqs:     strings.TrimSpace(stripComment(prereqs)),
		DoubleColon: double,
		Cond:        p.cond(),
		Pos:         pos,
		Comment:     p.takeComment(),
	}
	if hasInline {
		rule.Recipe = append(rule.Recipe, RecipeLine{Raw: []string{"\t" + strings.TrimSpace(inline)}, Cond: rule.Cond})
	}
	for _, t := range targets {
		p.file.rules[t] = append(p.file.rules[t], rule)
	}
	p.file.Statements = append(p.file.Statements, rule)
	p.rule = rule
}

func (p *parser) takeComment() []string {
	c := p.comment
	p.comment = nil
	return c
}

func (p *parser) flushComment() {
	if len(p.comment) == 0 {
		return
	}
	p.file.Statements = append(p.file.Statements, &Comment{Lines: p.comment, Cond: p.ccond, Pos: p.cpos})
	p.comment = nil
}

const (
	lineOther = iota
	lineAssign
	lineRule
)

// classify decides whether s is an assignment or a rule header by finding
// the first '=' or ':' outside variable references.
func classify(s string) (kind int, lhs, op, rhs string) {
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '$' && i+1 < len(s) && (s[i+1] == '(' || s[i+1] == '{'):
			depth++
			i++
		case c == '$' && i+1 < len(s):
			i++
		case depth > 0 && (c == ')' || c == '}'):
			depth--
		case depth > 0:
		case c == '\\' && i+1 < len(s):
			i++
		case c == '#':
			return lineOther, "", "", ""
		case c == '=':
			end, op := i, "="
			if i > 0 {
				switch s[i-1] {
				case '+', '?':
					end, op = i-1, s[i-1:i+1]
				}
			}
			return lineAssign, s[:end], op, s[i+1:]
		case c == ':':
			switch {
			case strings.HasPrefix(s[i:], "::="):
				return lineAssign, s[:i], "::=", s[i+3:]
			case strings.HasPrefix(s[i:], ":="):
				return lineAssign, s[:i], ":=", s[i+2:]
			case strings.HasPrefix(s[i:], "::"):
				return lineRule, s[:i], "::", s[i+2:]
			}
			return lineRule, s[:i], ":", s[i+1:]
		}
	}
	return lineOther, "", "", ""
}

// stripComment removes an unescaped '#' comment outside variable
// references.
func stripComment(s string) string {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
		case c == '$' && i+1 < len(s) && (s[i+1] == '(' || s[i+1] == '{'):
			depth++
			i++
		case depth > 0 && (c == ')' || c == '}'):
			depth--
		case depth == 0 && c == '#':
			return s[:i]
		}
	}
	return s
}

func cutUnescaped(s string, sep byte) (before, after string, found bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
		case c == '$' && i+1 < len(s) && (s[i+1] == '(' || s[i+1] == '{'):
			depth++
			i++
		case depth > 0 && (c == ')' || c == '}'):
			depth--
		case depth == 0 && c == sep:
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func joinValue(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
