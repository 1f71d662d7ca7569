package options

import (
	"context"
	"strings"
	"testing"

	"github.com/go-automake/automake"
	"github.com/go-automake/automake/am"
	"github.com/go-automake/automake/diag"
	"github.com/stretchr/testify/require"
)

var pos = diag.Pos{File: "configure.ac", Line: 3}

func TestDefaults(t *testing.T) {
	o := New(automake.GNU)
	require.Equal(t, []string{DistGzip}, o.DistFormats())
	require.Equal(t, TarV7, o.TarFormat)
	require.True(t, o.Warnings.Enabled(diag.CategoryPortability))
	require.Equal(t, "gnu", o.String())
}

func TestApply(t *testing.T) {
	diags := new(diag.Buffer)
	o := New(automake.GNU)
	o.Apply(strings.Fields("foreign subdir-objects dist-xz no-dist-gzip tar-ustar 1.11 filename-length-max=99 -Wno-syntax"), SourceInitAutomake, pos, diags)
	require.Empty(t, diags.Diagnostics())

	require.Equal(t, automake.Foreign, o.Strictness)
	require.True(t, o.SubdirObjects)
	require.Equal(t, []string{DistXz}, o.DistFormats())
	require.False(t, o.Dist(DistGzip))
	require.Equal(t, TarUstar, o.TarFormat)
	require.Equal(t, "1.11", o.RequiredVersion)
	require.Equal(t, 99, o.FilenameLengthMax)
	require.False(t, o.Warnings.Enabled(diag.CategorySyntax))
	require.Equal(t, "foreign subdir-objects dist-xz no-dist-gzip tar-ustar filename-length-max=99", o.String())
}

func TestApplyErrors(t *testing.T) {
	diags := new(diag.Buffer)
	o := New(automake.GNU)
	o.Apply([]string{"bogus", "tar-pax", "9.0", "cygnus", "-Wbogus", "silent-rules", "filename-length-max=x"}, SourceMakefile, pos, diags)

	var msgs []string
	for _, d := range diags.Diagnostics() {
		msgs = append(msgs, d.Message)
	}
	require.Equal(t, []string{
		"option 'bogus' not recognized",
		"option 'tar-pax' can only be used as argument to AM_INIT_AUTOMAKE but not in AUTOMAKE_OPTIONS",
		"require Automake 9.0, but have " + automake.APIVersion,
		"support for 'cygnus' has been removed",
		"unknown warning category 'bogus'",
		"'silent-rules' is obsolete; silent rules are always available",
		"invalid option value in 'filename-length-max=x'",
	}, msgs)
	require.Equal(t, TarV7, o.TarFormat)
}

func TestStrictnessKeepsExplicitWarnings(t *testing.T) {
	o := New(automake.GNU)
	require.NoError(t, o.SetWarnings("no-portability"))
	require.NoError(t, o.SetWarnings("error"))

	o.SetStrictness(automake.Gnits)
	require.False(t, o.Warnings.Enabled(diag.CategoryPortability))
	require.True(t, o.Warnings.Enabled(diag.CategoryGNU))
	require.True(t, o.Warnings.Werror())

	o.SetStrictness(automake.Foreign)
	require.False(t, o.Warnings.Enabled(diag.CategoryGNU))
}

func TestClone(t *testing.T) {
	o := New(automake.GNU)
	c := o.Clone()
	c.Apply([]string{"dist-zip", "-Wno-gnu"}, SourceMakefile, pos, new(diag.Buffer))
	require.False(t, o.Dist(DistZip))
	require.True(t, o.Warnings.Enabled(diag.CategoryGNU))
	require.True(t, c.Dist(DistZip))
}

func TestCompareVersions(t *testing.T) {
	require.Equal(t, 0, compareVersions("1.16", "1.16"))
	require.Equal(t, -1, compareVersions("1.9", "1.16"))
	require.Equal(t, 1, compareVersions("1.16.1", "1.16"))
	require.Equal(t, 1, compareVersions("1.16a", "1.16"))
	require.Equal(t, 1, compareVersions("2.0", "1.99"))
}

func parse(t *testing.T, input string, conds ...string) (*am.File, *diag.Buffer) {
	t.Helper()
	known := map[string]bool{}
	for _, c := range conds {
		known[c] = true
	}
	diags := new(diag.Buffer)
	f, err := am.ParseReader(context.Background(), strings.NewReader(input), "Makefile.am", am.Options{
		TopDir:       t.TempDir(),
		Conditionals: known,
		Diags:        diags,
	})
	require.NoError(t, err)
	return f, diags
}

func TestForMakefile(t *testing.T) {
	f, diags := parse(t, "OPTS = no-dependencies\nAUTOMAKE_OPTIONS = foreign $(OPTS) dist-bzip2\n")
	base := New(automake.GNU)
	o := ForMakefile(base, f, diags)
	require.Empty(t, diags.Diagnostics())
	require.Equal(t, automake.Foreign, o.Strictness)
	require.True(t, o.NoDependencies)
	require.Equal(t, []string{DistBzip2, DistGzip}, o.DistFormats())
	require.Equal(t, automake.GNU, base.Strictness)
}

func TestForMakefileErrors(t *testing.T) {
	f, diags := parse(t, "AUTOMAKE_OPTIONS = no-dist-gzip\nif X\nAUTOMAKE_OPTIONS += dist-xz\nendif\n", "X")
	ForMakefile(New(automake.GNU), f, diags)

	var msgs []string
	for _, d := range diags.Diagnostics() {
		msgs = append(msgs, d.String())
	}
	require.Equal(t, []string{
		"Makefile.am:1: error: 'AUTOMAKE_OPTIONS' cannot have conditional contents",
		"Makefile.am:1: error: no-dist-gzip specified but no dist-* specified, at least one archive format must be enabled",
	}, msgs)
}
