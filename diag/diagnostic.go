package diag

import (
	"fmt"
	"strings"
)

// Pos is a location in an input file. Line is 1-based; zero means the whole
// file. IncludedFrom links a position inside an included fragment to the
// include directive that pulled it in.
type Pos struct {
	File         string `yaml:"file"`
	Line         int    `yaml:"line,omitempty"`
	IncludedFrom *Pos   `yaml:"includedfrom,omitempty"`
}

// String formats the position as FILE:LINE, FILE or the empty string.
func (p Pos) String() string {
	switch {
	case p.File == "":
		return ""
	case p.Line == 0:
		return p.File
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// IsValid reports whether the position names a file.
func (p Pos) IsValid() bool {
	return p.File != ""
}

// Severity is the level a diagnostic is reported at.
type Severity int

const (
	// Warning diagnostics do not fail the run.
	Warning Severity = iota
	// Error diagnostics make automake exit with a non-zero status.
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Diagnostic is a single message about an input file.
type Diagnostic struct {
	Pos      Pos
	Category Category
	Severity Severity
	Message  string
}

// String formats the diagnostic the way compilers do:
//
//	Makefile.am:12: warning: ':='-style assignments are not portable
//
// followed by one line for every include level the position is nested in.
func (d Diagnostic) String() string {
	var b strings.Builder
	if pos := d.Pos.String(); pos != "" {
		b.WriteString(pos)
	} else {
		b.WriteString("automake")
	}
	fmt.Fprintf(&b, ": %s: %s", d.Severity, d.Message)

	prev := d.Pos
	for inc := d.Pos.IncludedFrom; inc != nil; inc = inc.IncludedFrom {
		fmt.Fprintf(&b, "\n%s:   '%s' included from here", inc, prev.File)
		prev = *inc
	}
	return b.String()
}

// Error implements the error interface so a fatal diagnostic can be
// returned where an error is expected.
func (d Diagnostic) Error() string {
	return d.String()
}
