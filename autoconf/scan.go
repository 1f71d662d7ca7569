package autoconf

import (
	"sort"
	"strings"
)

// call is one macro invocation found in m4 input.
type call struct {
	name   string
	args   []string
	offset int
}

// scanner finds invocations of a fixed set of macros in m4 text. It
// understands enough m4 to do so reliably: '[' ']' quoting, '#' and dnl
// comments, and balanced parentheses in arguments. Macros are not
// expanded, but the arguments of a call are scanned too, so a macro used
// inside an AS_IF body is still found.
type scanner struct {
	src   string
	known map[string]bool
	lines []int
}

func newScanner(src string, known map[string]bool) *scanner {
	s := &scanner{src: src, known: known, lines: []int{0}}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			s.lines = append(s.lines, i+1)
		}
	}
	return s
}

// line returns the 1-based line number of offset.
func (s *scanner) line(offset int) int {
	return sort.Search(len(s.lines), func(i int) bool { return s.lines[i] > offset })
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdent(c byte) bool {
	return isIdentStart(c) || ('0' <= c && c <= '9')
}

// calls returns the recognised macro invocations in source order. An
// unterminated argument list is reported through unterminated with the
// offset of the macro name.
func (s *scanner) calls(unterminated func(name string, offset int)) []call {
	var (
		out   []call
		src   = s.src
		quote int
	)
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '[':
			quote++
			i++
		case c == ']':
			if quote > 0 {
				quote--
			}
			i++
		case c == '#' && quote == 0:
			i = skipLine(src, i)
		case isIdentStart(c) && (i == 0 || !isIdent(src[i-1])):
			j := i
			for j < len(src) && isIdent(src[j]) {
				j++
			}
			name := src[i:j]
			if name == "dnl" {
				i = skipLine(src, j)
				continue
			}
			if !s.known[name] {
				i = j
				continue
			}
			if j < len(src) && src[j] == '(' {
				args, _, ok := parseArgs(src, j+1)
				if !ok {
					unterminated(name, i)
					return out
				}
				out = append(out, call{name: name, args: args, offset: i})
				// Continue inside the argument list to find nested calls.
				i = j + 1
				continue
			}
			out = append(out, call{name: name, offset: i})
			i = j
		default:
			i++
		}
	}
	return out
}

func skipLine(src string, i int) int {
	if n := strings.IndexByte(src[i:], '\n'); n >= 0 {
		return i + n + 1
	}
	return len(src)
}

// parseArgs reads a macro argument list starting just after the opening
// parenthesis. One level of quotes is removed from each argument, leading
// whitespace is skipped as m4 does, and trailing whitespace is trimmed.
func parseArgs(src string, start int) (args []string, end int, ok bool) {
	var (
		b       strings.Builder
		depth   int
		quote   int
		started bool
	)
	finish := func() {
		args = append(args, strings.TrimSpace(b.String()))
		b.Reset()
		started = false
	}
	for i := start; i < len(src); i++ {
		c := src[i]
		if quote > 0 {
			switch c {
			case '[':
				quote++
			case ']':
				quote--
				if quote == 0 {
					continue
				}
			}
			b.WriteByte(c)
			continue
		}
		switch {
		case c == '[':
			quote = 1
			started = true
		case c == '(':
			depth++
			started = true
			b.WriteByte(c)
		case c == ')' && depth == 0:
			finish()
			return args, i + 1, true
		case c == ')':
			depth--
			b.WriteByte(c)
		case c == ',' && depth == 0:
			finish()
		case c == '#':
			i = skipLine(src, i) - 1
		case !started && (c == ' ' || c == '\t' || c == '\n'):
		default:
			started = true
			b.WriteByte(c)
		}
	}
	return nil, len(src), false
}
