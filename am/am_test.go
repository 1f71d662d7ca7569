package am

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-automake/automake/diag"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, input string, conds ...string) (*File, []diag.Diagnostic) {
	t.Helper()
	var known map[string]bool
	if len(conds) > 0 {
		known = make(map[string]bool)
		for _, c := range conds {
			known[c] = true
		}
	}
	diags := new(diag.Buffer)
	f, err := ParseReader(context.Background(), strings.NewReader(input), "Makefile.am", Options{
		TopDir:       t.TempDir(),
		Conditionals: known,
		Diags:        diags,
	})
	require.NoError(t, err)
	return f, diags.Diagnostics()
}

func messages(diags []diag.Diagnostic) []string {
	var out []string
	for _, d := range diags {
		out = append(out, d.String())
	}
	return out
}

func TestCondition(t *testing.T) {
	c := NewCondition("FOO_TRUE", "BAR_FALSE", "FOO_TRUE", "TRUE")
	require.Equal(t, []string{"BAR_FALSE", "FOO_TRUE"}, c.Literals())
	require.Equal(t, "@BAR_FALSE@@FOO_TRUE@", c.Subst())
	require.Equal(t, "TRUE", True.String())
	require.True(t, c.Implies(NewCondition("FOO_TRUE")))
	require.False(t, NewCondition("FOO_TRUE").Implies(c))
	require.True(t, c.Implies(True))
	require.True(t, c.Merge(NewCondition("FOO_FALSE")).IsFalse())
	require.Equal(t, NewCondition("BAR_FALSE"), c.Strip(NewCondition("FOO_TRUE")))
	require.Equal(t, "FOO_FALSE", Negate("FOO_TRUE"))
	require.Equal(t, NewCondition("A_TRUE", "B_TRUE"), NewCondition("B_TRUE", "A_TRUE"))
}

func TestParseDefinitionsAndRules(t *testing.T) {
	f, diags := parseString(t, `## dropped
# Programs built here.
bin_PROGRAMS = hello
hello_SOURCES = hello.c \
	  hello.h
CLEANFILES = core # trailing comment

gen.h: gen.sh ; sh $(srcdir)/gen.sh > $@
	echo done

all-local::
	@echo local
`)
	require.Empty(t, messages(diags))

	require.Equal(t, []string{"bin_PROGRAMS", "hello_SOURCES", "CLEANFILES"}, f.VarNames())
	require.Equal(t, "hello.c hello.h", f.Value("hello_SOURCES", True))
	require.Equal(t, "core", f.Value("CLEANFILES", True))

	def := f.Var("bin_PROGRAMS").Defs[0]
	require.Equal(t, []string{"# Programs built here."}, def.Comment)
	require.Equal(t, 3, def.Pos.Line)

	rules := f.Rules("gen.h")
	require.Len(t, rules, 1)
	require.Equal(t, "gen.sh", rules[0].Prereqs)
	require.Len(t, rules[0].Recipe, 2)
	require.Equal(t, []string{"\tsh $(srcdir)/gen.sh > $@"}, rules[0].Recipe[0].Raw)

	require.True(t, f.Rules("all-local")[0].DoubleColon)
	require.Equal(t, []string{"all-local", "gen.h"}, f.Targets())
	require.Len(t, f.Statements, 5)
}

func TestParseAppend(t *testing.T) {
	f, diags := parseString(t, `
X = a
X += b
if FOO
X += c
Y += d
endif
if BAR
Z = 1
endif
Z += 2
`, "FOO", "BAR")
	require.Equal(t, []string{
		"Makefile.am:11: error: cannot apply '+=' because 'Z' is not defined in this condition nor in any superior condition",
	}, messages(diags))

	x := f.Var("X")
	require.Equal(t, "a b", x.Def(True).Value)
	require.Equal(t, "a b c", x.Def(NewCondition("FOO_TRUE")).Value)
	require.Equal(t, "d", f.Var("Y").Def(NewCondition("FOO_TRUE")).Value)
	require.Equal(t, "1 2", f.Var("Z").Def(NewCondition("BAR_TRUE")).Value)
	require.Equal(t, "2", f.Value("Z", True))
	require.True(t, x.IsConditional())
	require.Equal(t, []Condition{True, NewCondition("FOO_TRUE")}, x.Conditions())
}

func TestParseRedefinition(t *testing.T) {
	f, diags := parseString(t, "A = 1\nA = 2\nB ?= 3\nB ?= 4\n")
	require.Equal(t, []string{
		"Makefile.am:2: error: A multiply defined in condition TRUE",
		"Makefile.am:3: warning: '?='-style assignments are not portable",
		"Makefile.am:4: warning: '?='-style assignments are not portable",
	}, messages(diags))
	require.Equal(t, "2", f.Value("A", True))
	require.Equal(t, "3", f.Value("B", True))
}

func TestParsePortability(t *testing.T) {
	_, diags := parseString(t, "A := 1\nB ?= 2\nfoo-bar = 3\nC = $($(A))\n%.o: %.c\n\tcc -c $<\n")
	require.Equal(t, []string{
		"Makefile.am:1: warning: ':='-style assignments are not portable",
		"Makefile.am:2: warning: '?='-style assignments are not portable",
		"Makefile.am:3: warning: 'foo-bar': non-POSIX variable name",
		"Makefile.am:4: warning: 'C': non-POSIX recursive variable expansion",
		"Makefile.am:5: warning: '%'-style pattern rules are a GNU make extension",
	}, messages(diags))
	for _, d := range diags {
		require.Equal(t, diag.CategoryPortability, d.Category)
	}
}

func TestParseConditionals(t *testing.T) {
	f, diags := parseString(t, `
if DEBUG
CFLAGS_X = -g
if !FAST
SLOW = yes
else !FAST
SLOW = no
endif !FAST
else
CFLAGS_X = -O2
endif DEBUG
`, "DEBUG", "FAST")
	require.Empty(t, messages(diags))

	v := f.Var("CFLAGS_X")
	require.Equal(t, "-g", v.Def(NewCondition("DEBUG_TRUE")).Value)
	require.Equal(t, "-O2", v.Def(NewCondition("DEBUG_FALSE")).Value)
	slow := f.Var("SLOW")
	require.Equal(t, "yes", slow.Def(NewCondition("DEBUG_TRUE", "FAST_FALSE")).Value)
	require.Equal(t, "no", slow.Def(NewCondition("DEBUG_TRUE", "FAST_TRUE")).Value)
}

func TestParseConditionalErrors(t *testing.T) {
	_, diags := parseString(t, "if NOPE\nendif\nelse\nendif\nif AMDEP\nelse\nelse\nendif WRONG\nif AMDEP\n", "KNOWN")
	require.Equal(t, []string{
		"Makefile.am:1: error: NOPE does not appear in AM_CONDITIONAL",
		"Makefile.am:3: error: else without if",
		"Makefile.am:4: error: endif without if",
		"Makefile.am:7: error: else after else",
		"Makefile.am:8: error: endif reminder (WRONG) incompatible with current conditional: AMDEP_FALSE",
		"Makefile.am:9: error: unterminated conditional: AMDEP_TRUE",
	}, messages(diags))
}

func TestParseConditionalRecipe(t *testing.T) {
	f, diags := parseString(t, `
install-data-local:
	mkdir -p $(DESTDIR)$(datadir)
if DOCS
	cp doc.txt $(DESTDIR)$(datadir)
endif
`, "DOCS")
	require.Empty(t, messages(diags))
	r := f.Rules("install-data-local")[0]
	require.Len(t, r.Recipe, 2)
	require.True(t, r.Recipe[0].Cond.IsTrue())
	require.Equal(t, NewCondition("DOCS_TRUE"), r.Recipe[1].Cond)
}

func TestParseContinuationErrors(t *testing.T) {
	_, diags := parseString(t, "A = 1 \\ \n  2\nB = 3 \\\n\nC = 4 \\\n# no\nD = \\")
	require.Equal(t, []string{
		"Makefile.am:1: warning: whitespace following trailing backslash",
		"Makefile.am:4: error: blank line following trailing backslash",
		"Makefile.am:6: error: comment following trailing backslash",
		"Makefile.am:7: error: trailing backslash on last line",
	}, messages(diags))
}

func TestParseUnrecognized(t *testing.T) {
	_, diags := parseString(t, "this is not make\n\techo orphan\n")
	require.Equal(t, []string{
		"Makefile.am:1: error: unrecognized line: this is not make",
		"Makefile.am:2: error: recipe line outside of a rule",
	}, messages(diags))
}

func TestParseInclude(t *testing.T) {
	top := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(top, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(top, "common.am"), []byte("COMMON = yes\nA := x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(top, "sub", "local.am"), []byte("LOCAL = 1\ninclude $(srcdir)/local.am\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(top, "sub", "Makefile.am"), []byte(
		"include $(top_srcdir)/common.am\ninclude local.am\n-include extra.mk\ninclude missing.am\n"), 0o644))

	diags := new(diag.Buffer)
	f, err := Parse(context.Background(), "sub/Makefile.am", Options{TopDir: top, Dir: "sub", Diags: diags})
	require.NoError(t, err)

	require.True(t, f.IsDefined("COMMON"))
	require.True(t, f.IsDefined("LOCAL"))
	require.Equal(t, []string{"$(top_srcdir)/common.am", "$(srcdir)/local.am"}, f.Includes)

	raw, ok := f.Statements[len(f.Statements)-1].(*Raw)
	require.True(t, ok)
	require.Equal(t, "-include extra.mk", raw.Text)

	require.Equal(t, []string{
		"common.am:2: warning: ':='-style assignments are not portable\n" +
			"sub/Makefile.am:1:   'common.am' included from here",
		"sub/local.am:2: error: 'sub/local.am': recursive inclusion\n" +
			"sub/Makefile.am:2:   'sub/local.am' included from here",
		"sub/Makefile.am:4: error: 'sub/missing.am': include file not found",
	}, messages(diags.Diagnostics()))
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(context.Background(), "Makefile.am", Options{TopDir: t.TempDir()})
	require.Error(t, err)
}

func TestWords(t *testing.T) {
	f, diags := parseString(t, `
COMMON = a.c $(EXTRA)
EXTRA = b.c
if WIN
EXTRA += win.c
endif
prog_SOURCES = $(COMMON) main.c $(UNDEFINED) $(patsubst %.c,%.o, x.c)
LOOP = $(LOOP2)
LOOP2 = $(LOOP)
`, "WIN")
	require.Empty(t, messages(diags))

	var got []string
	for _, w := range f.Words("prog_SOURCES", nil) {
		got = append(got, w.Text+"|"+w.Cond.String())
	}
	require.Equal(t, []string{
		"a.c|TRUE",
		"b.c|TRUE",
		"b.c|WIN_TRUE",
		"win.c|WIN_TRUE",
		"main.c|TRUE",
		"$(UNDEFINED)|TRUE",
		"$(patsubst %.c,%.o, x.c)|TRUE",
	}, got)

	require.Equal(t, []string{"a.c", "b.c", "main.c", "$(UNDEFINED)", "$(patsubst %.c,%.o, x.c)"},
		f.Expand("prog_SOURCES", True, nil))
	require.Equal(t, []string{"a.c", "b.c", "win.c", "main.c", "$(UNDEFINED)", "$(patsubst %.c,%.o, x.c)"},
		f.Expand("prog_SOURCES", NewCondition("WIN_TRUE"), nil))

	buf := new(diag.Buffer)
	f.Words("LOOP", buf)
	require.True(t, buf.HasErrors())
	require.Contains(t, buf.Diagnostics()[0].Message, "recursively defined")
}

func TestVarRef(t *testing.T) {
	name, ok := VarRef("$(FOO)")
	require.True(t, ok)
	require.Equal(t, "FOO", name)
	name, ok = VarRef("${BAR_baz}")
	require.True(t, ok)
	require.Equal(t, "BAR_baz", name)
	_, ok = VarRef("$(FOO:.c=.o)")
	require.False(t, ok)
	_, ok = VarRef("x$(FOO)")
	require.False(t, ok)
}
