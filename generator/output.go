package generator

import (
	"regexp"
	"strings"

	"github.com/go-automake/automake/am"
)

const wrapColumn = 80

type chunkKind int

const (
	chunkVar chunkKind = iota
	chunkRule
	chunkBlank
)

// chunk is one generated variable definition or rule, kept as physical
// lines so it can be dropped when the Makefile.am overrides it.
type chunk struct {
	kind    chunkKind
	name    string
	targets []string
	lines   []string
}

// output accumulates the generated parts of a Makefile.in. Variables and
// rules are kept apart because all variables are written before any rule.
type output struct {
	vars   []chunk
	rules  []chunk
	names  map[string]bool
	phony  []string
	seen   map[string]bool
	make   []string
	mkseen map[string]bool
}

func newOutput() *output {
	return &output{
		names:  make(map[string]bool),
		seen:   make(map[string]bool),
		mkseen: make(map[string]bool),
	}
}

// defined reports whether a generated variable called name exists.
func (o *output) defined(name string) bool {
	return o.names[name]
}

// variable defines name = value, wrapping long values. The first
// definition of a name wins.
func (o *output) variable(name, value string) {
	o.condVariable(am.True, name, value)
}

// condVariable defines name under cond.
func (o *output) condVariable(cond am.Condition, name, value string) {
	if o.names[name] && cond.IsTrue() {
		return
	}
	o.names[name] = true
	o.vars = append(o.vars, chunk{
		kind:  chunkVar,
		name:  name,
		lines: formatVariable(cond.Subst(), name, "=", am.SplitWords(value)),
	})
}

// rule adds a rule. recipe lines are written after a TAB.
func (o *output) rule(targets, prereqs string, recipe ...string) {
	header := targets + ":"
	if prereqs != "" {
		header += " " + prereqs
	}
	lines := []string{header}
	for _, r := range recipe {
		lines = append(lines, "\t"+r)
	}
	o.rules = append(o.rules, chunk{kind: chunkRule, targets: strings.Fields(targets), lines: lines})
}

// raw adds lines that are neither definitions nor rules, such as include
// directives.
func (o *output) raw(lines ...string) {
	if len(lines) == 0 {
		return
	}
	o.rules = append(o.rules, chunk{kind: chunkRule, lines: lines})
}

// blank separates groups of rules.
func (o *output) blank() {
	o.rules = append(o.rules, chunk{kind: chunkBlank})
}

// text adds template output, sorting its definitions and rules into the
// right section.
func (o *output) text(s string) {
	for _, c := range parseChunks(s) {
		switch c.kind {
		case chunkVar:
			if o.names[c.name] {
				continue
			}
			o.names[c.name] = true
			o.vars = append(o.vars, c)
		default:
			o.rules = append(o.rules, c)
		}
	}
}

// addPhony marks targets as phony.
func (o *output) addPhony(targets ...string) {
	for _, t := range targets {
		if !o.seen[t] {
			o.seen[t] = true
			o.phony = append(o.phony, t)
		}
	}
}

// addMake lists targets whose recipe runs $(MAKE), for the .MAKE special
// target.
func (o *output) addMake(targets ...string) {
	for _, t := range targets {
		if !o.mkseen[t] {
			o.mkseen[t] = true
			o.make = append(o.make, t)
		}
	}
}

// generatedTargets returns every target of a generated rule.
func (o *output) generatedTargets() map[string]bool {
	m := make(map[string]bool)
	for _, c := range o.rules {
		for _, t := range c.targets {
			m[t] = true
		}
	}
	return m
}

// dropTargets removes targets from the generated rules. A rule left with
// no target is dropped entirely.
func (o *output) dropTargets(drop map[string]bool) {
	kept := o.rules[:0]
	for _, c := range o.rules {
		if c.kind != chunkRule {
			kept = append(kept, c)
			continue
		}
		var remain []string
		removed := false
		for _, t := range c.targets {
			if drop[t] {
				removed = true
				continue
			}
			remain = append(remain, t)
		}
		if !removed {
			kept = append(kept, c)
			continue
		}
		if len(remain) == 0 {
			continue
		}
		c.lines = append([]string(nil), c.lines...)
		c.lines[headerIndex(c.lines)] = rewriteHeader(c.lines[headerIndex(c.lines)], remain)
		c.targets = remain
		kept = append(kept, c)
	}
	o.rules = kept
}

func headerIndex(lines []string) int {
	for i, l := range lines {
		if !strings.HasPrefix(l, "#") {
			return i
		}
	}
	return 0
}

func rewriteHeader(header string, targets []string) string {
	prefix, rest := splitCondPrefix(header)
	i := findColon(rest)
	if i < 0 {
		return header
	}
	return prefix + strings.Join(targets, " ") + rest[i:]
}

// formatVariable renders a definition with every physical line carrying
// prefix, breaking lines before they pass wrapColumn.
func formatVariable(prefix, name, op string, words []string) []string {
	line := prefix + name + " " + op
	if op == ":" {
		line = prefix + name + op
	}
	var lines []string
	empty := true
	for _, w := range words {
		if !empty && len(line)+1+len(w) > wrapColumn-2 {
			lines = append(lines, line+" \\")
			line = prefix + "\t" + w
			continue
		}
		line += " " + w
		empty = false
	}
	return append(lines, line)
}

var (
	condPrefixRE = regexp.MustCompile(`^(?:@[A-Za-z0-9_]+@)+`)
	varLineRE    = regexp.MustCompile(`^([A-Za-z0-9_.]+)\s*[+:?]?=`)
)

// splitCondPrefix separates a leading "@COND_TRUE@" chain from a line.
func splitCondPrefix(line string) (prefix, rest string) {
	prefix = condPrefixRE.FindString(line)
	return prefix, line[len(prefix):]
}

// findColon returns the index of the first ':' outside variable
// references, or -1.
func findColon(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '$' && i+1 < len(s) && (s[i+1] == '(' || s[i+1] == '{'):
			depth++
			i++
		case depth > 0 && (c == ')' || c == '}'):
			depth--
		case depth == 0 && c == ':':
			return i
		}
	}
	return -1
}

// parseChunks splits Makefile text into definitions, rules and blank
// separators. Comment lines stay with what follows them.
func parseChunks(s string) []chunk {
	var (
		chunks  []chunk
		pending []string
		current *chunk
	)
	flush := func() {
		if current != nil {
			chunks = append(chunks, *current)
			current = nil
		}
	}
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		_, rest := splitCondPrefix(line)
		switch {
		case strings.TrimSpace(line) == "":
			flush()
			chunks = append(chunks, chunk{kind: chunkBlank})
			continue
		case strings.HasPrefix(rest, "\t") && current != nil && current.kind == chunkRule:
			current.lines = append(current.lines, line)
			continue
		case strings.HasPrefix(line, "#"):
			flush()
			pending = append(pending, line)
			continue
		}

		flush()
		physical := []string{line}
		for strings.HasSuffix(line, "\\") && i+1 < len(lines) {
			i++
			line = lines[i]
			physical = append(physical, line)
		}
		c := chunk{lines: append(pending, physical...)}
		pending = nil
		if m := varLineRE.FindStringSubmatch(rest); m != nil {
			c.kind = chunkVar
			c.name = m[1]
		} else {
			c.kind = chunkRule
			if idx := findColon(rest); idx >= 0 {
				c.targets = strings.Fields(rest[:idx])
			}
		}
		current = &c
	}
	flush()
	if len(pending) > 0 {
		chunks = append(chunks, chunk{kind: chunkBlank, lines: pending})
	}
	return chunks
}

// render writes chunks, collapsing runs of blank lines.
func render(b *strings.Builder, chunks []chunk) {
	lastBlank := true
	for _, c := range chunks {
		if c.kind == chunkBlank && len(c.lines) == 0 {
			if !lastBlank {
				b.WriteString("\n")
			}
			lastBlank = true
			continue
		}
		for _, l := range c.lines {
			b.WriteString(l)
			b.WriteString("\n")
		}
		lastBlank = false
	}
}
