package diag

import (
	"bytes"
	"testing"

	"github.com/go-automake/automake"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticString(t *testing.T) {
	top := Pos{File: "Makefile.am", Line: 5}
	d := Diagnostic{
		Pos:      Pos{File: "frag.am", Line: 2, IncludedFrom: &top},
		Category: CategoryPortability,
		Severity: Warning,
		Message:  "':='-style assignments are not portable",
	}
	require.Equal(t,
		"frag.am:2: warning: ':='-style assignments are not portable\n"+
			"Makefile.am:5:   'frag.am' included from here",
		d.String())

	d = Diagnostic{Category: CategoryError, Severity: Error, Message: "no input"}
	require.Equal(t, "automake: error: no input", d.String())

	d = Diagnostic{Pos: Pos{File: "configure.ac"}, Severity: Error, Message: "bad"}
	require.Equal(t, "configure.ac: error: bad", d.Error())
}

func TestCategoryRegistry(t *testing.T) {
	c, ok := ParseCategory("portability")
	require.True(t, ok)
	require.Equal(t, CategoryPortability, c)
	require.Equal(t, "portability", c.String())

	_, ok = ParseCategory("cygnus")
	require.False(t, ok)

	names := []string{}
	for _, d := range Categories() {
		names = append(names, d.Value)
	}
	require.Equal(t, []string{"error", "extra-portability", "gnu", "obsolete", "override", "portability", "syntax", "unsupported"}, names)
}

func TestDefaultWarnings(t *testing.T) {
	foreign := DefaultWarnings(automake.Foreign)
	require.False(t, foreign.Enabled(CategoryPortability))
	require.False(t, foreign.Enabled(CategoryGNU))
	require.True(t, foreign.Enabled(CategorySyntax))
	require.True(t, foreign.Enabled(CategoryError))
	require.False(t, foreign.Enabled(CategoryExtraPortability))

	gnu := DefaultWarnings(automake.GNU)
	require.True(t, gnu.Enabled(CategoryPortability))
	require.True(t, gnu.Enabled(CategoryGNU))
}

func TestWarningsSet(t *testing.T) {
	w := DefaultWarnings(automake.Foreign)
	require.NoError(t, w.Set("all"))
	require.True(t, w.Enabled(CategoryExtraPortability))
	require.False(t, w.Werror())

	require.NoError(t, w.Set("no-syntax,error"))
	require.False(t, w.Enabled(CategorySyntax))
	require.True(t, w.Werror())

	require.NoError(t, w.Set("none"))
	require.False(t, w.Enabled(CategoryObsolete))
	require.True(t, w.Enabled(CategoryError))

	require.Error(t, w.Set("no-error-at-all"))
	require.Error(t, w.Set("cygnus"))
	require.Error(t, w.Set("no-cygnus"))
}

func TestWarningsApply(t *testing.T) {
	var b Buffer
	b.Warnf(Pos{File: "Makefile.am", Line: 1}, CategoryPortability, "not portable")
	b.Warnf(Pos{File: "Makefile.am", Line: 2}, CategorySyntax, "dubious")
	b.Errorf(Pos{File: "Makefile.am", Line: 3}, "broken")
	require.True(t, b.HasErrors())

	w := DefaultWarnings(automake.Foreign)
	out := w.Apply(b.Diagnostics())
	require.Len(t, out, 2)
	require.Equal(t, Warning, out[0].Severity)
	require.Equal(t, "dubious", out[0].Message)

	require.NoError(t, w.Set("error"))
	out = w.Apply(b.Diagnostics())
	require.Equal(t, Error, out[0].Severity)
}

func TestReporter(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(NewWriterSink(&out))

	require.NoError(t, r.ReportAll([]Diagnostic{
		{Pos: Pos{File: "Makefile.am", Line: 1}, Category: CategorySyntax, Severity: Warning, Message: "first"},
		{Pos: Pos{File: "Makefile.am", Line: 2}, Category: CategoryError, Severity: Error, Message: "second"},
	}))
	require.NoError(t, r.Close())

	require.Equal(t, "Makefile.am:1: warning: first\nMakefile.am:2: error: second\n", out.String())
	require.Equal(t, 1, r.Errors())
	require.Equal(t, 1, r.Warnings())
}

func TestSeverityFilter(t *testing.T) {
	counter := NewCountingSink()
	r := NewReporter(SeverityFilter(counter, Error))

	require.NoError(t, r.ReportAll([]Diagnostic{
		{Category: CategorySyntax, Severity: Warning, Message: "first"},
		{Category: CategoryError, Severity: Error, Message: "second"},
	}))
	require.NoError(t, r.Close())

	require.Equal(t, 1, counter.Errors())
	require.Equal(t, 0, counter.Warnings())
	require.Equal(t, 1, counter.Count(CategoryError))
}
