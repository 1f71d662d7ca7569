package am

import (
	"bufio"
	"io"
	"strings"

	"github.com/go-automake/automake/diag"
)

// logicalLine is a line after backslash-newline continuations have been
// joined. Raw keeps the physical lines so recipes can be reproduced
// faithfully.
type logicalLine struct {
	pos diag.Pos
	raw []string
}

// joined returns the logical line with continuations replaced by a single
// space, which is how make reads variable values and rule headers.
func (l logicalLine) joined() string {
	if len(l.raw) == 1 {
		return l.raw[0]
	}
	parts := make([]string, len(l.raw))
	for i, r := range l.raw {
		r = strings.TrimRight(r, " \t")
		if i < len(l.raw)-1 {
			r = strings.TrimSuffix(r, "\\")
			r = strings.TrimRight(r, " \t")
		}
		if i > 0 {
			r = strings.TrimLeft(r, " \t")
		}
		parts[i] = r
	}
	return strings.Join(parts, " ")
}

// readLines splits input into logical lines and reports continuation
// problems to diags.
func readLines(r io.Reader, file string, includedFrom *diag.Pos, diags *diag.Buffer) ([]logicalLine, error) {
	var (
		lines   []logicalLine
		current *logicalLine
		lineno  int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lineno++
		text := strings.TrimSuffix(scanner.Text(), "\r")
		pos := diag.Pos{File: file, Line: lineno, IncludedFrom: includedFrom}

		if current != nil {
			trimmed := strings.TrimSpace(text)
			first := strings.TrimSpace(current.raw[0])
			switch {
			case trimmed == "":
				diags.Errorf(pos, "blank line following trailing backslash")
				lines = append(lines, *current)
				current = nil
				continue
			case strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(first, "#"):
				diags.Errorf(pos, "comment following trailing backslash")
			}
			current.raw = append(current.raw, text)
		} else {
			current = &logicalLine{pos: pos, raw: []string{text}}
		}

		if continues(text, pos, diags) {
			continue
		}
		lines = append(lines, *current)
		current = nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if current != nil {
		diags.Errorf(current.pos, "trailing backslash on last line")
		lines = append(lines, *current)
	}
	return lines, nil
}

// continues reports whether text ends with a continuation backslash.
func continues(text string, pos diag.Pos, diags *diag.Buffer) bool {
	trimmed := strings.TrimRight(text, " \t")
	if !strings.HasSuffix(trimmed, "\\") {
		return false
	}
	// An even number of trailing backslashes is a sequence of escaped
	// backslashes, not a continuation.
	n := len(trimmed) - len(strings.TrimRight(trimmed, "\\"))
	if n%2 == 0 {
		return false
	}
	if len(trimmed) != len(text) {
		diags.Warnf(pos, diag.CategorySyntax, "whitespace following trailing backslash")
	}
	return true
}
