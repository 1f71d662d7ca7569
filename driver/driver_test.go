package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-automake/automake"
	"github.com/go-automake/automake/auxfiles"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const configureAC = `AC_INIT([hello], [1.0])
AM_INIT_AUTOMAKE([foreign])
AC_PROG_CC
AC_CONFIG_FILES([Makefile src/Makefile])
AC_OUTPUT
`

type DriverSuite struct {
	suite.Suite
	ctx    context.Context
	dir    string
	stderr *bytes.Buffer
}

func TestDriverSuite(t *testing.T) {
	suite.Run(t, new(DriverSuite))
}

func (s *DriverSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = s.T().TempDir()
	s.stderr = new(bytes.Buffer)
	s.writeFile("configure.ac", configureAC)
	s.writeFile("Makefile.am", "SUBDIRS = src\n")
	s.writeFile("src/Makefile.am", "bin_PROGRAMS = hello\nhello_SOURCES = hello.c\n")
}

func (s *DriverSuite) writeFile(name, contents string) {
	p := filepath.Join(s.dir, filepath.FromSlash(name))
	s.Require().NoError(os.MkdirAll(filepath.Dir(p), 0o755))
	s.Require().NoError(os.WriteFile(p, []byte(contents), 0o644))
}

func (s *DriverSuite) readFile(name string) string {
	contents, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(name)))
	s.Require().NoError(err)
	return string(contents)
}

func (s *DriverSuite) exists(name string) bool {
	_, err := os.Lstat(filepath.Join(s.dir, filepath.FromSlash(name)))
	return err == nil
}

func (s *DriverSuite) config() Config {
	return Config{
		Dir:        s.dir,
		Strictness: automake.GNU,
		Aux:        auxfiles.Options{AddMissing: true},
		Jobs:       2,
		Stderr:     s.stderr,
	}
}

func (s *DriverSuite) TestGenerateTree() {
	summary, err := Run(s.ctx, s.config())
	s.Require().NoError(err)
	s.Equal(0, summary.Errors, s.stderr.String())
	s.Equal([]string{"Makefile.in", "src/Makefile.in"}, summary.Written)
	s.Equal([]string{"depcomp", "install-sh", "missing"}, summary.Installed)

	top := s.readFile("Makefile.in")
	s.Contains(top, "$(top_srcdir)/depcomp")
	s.Contains(top, "$(top_srcdir)/install-sh")
	s.Contains(s.readFile("src/Makefile.in"), "bin_PROGRAMS = hello$(EXEEXT)")

	fi, err := os.Stat(filepath.Join(s.dir, "install-sh"))
	s.Require().NoError(err)
	s.Equal(os.FileMode(0o755), fi.Mode().Perm())
}

func (s *DriverSuite) TestUnchangedOnSecondRun() {
	_, err := Run(s.ctx, s.config())
	s.Require().NoError(err)

	summary, err := Run(s.ctx, s.config())
	s.Require().NoError(err)
	s.Empty(summary.Written)
	s.Equal([]string{"Makefile.in", "src/Makefile.in"}, summary.Unchanged)
	s.Empty(summary.Installed)
}

func (s *DriverSuite) TestMissingAuxFiles() {
	cfg := s.config()
	cfg.Aux.AddMissing = false

	summary, err := Run(s.ctx, cfg)
	s.Require().NoError(err)
	s.Equal(3, summary.Errors)
	s.Contains(s.stderr.String(), "configure.ac:2: error: required file './install-sh' not found; 'automake --add-missing' can install 'install-sh'\n")
	s.Contains(s.stderr.String(), "error: required file './depcomp' not found")
	s.False(s.exists("install-sh"))

	// The makefiles themselves are fine and still written.
	s.Len(summary.Written, 2)
}

func (s *DriverSuite) TestAuxDir() {
	s.writeFile("configure.ac", strings.Replace(configureAC, "AM_INIT_AUTOMAKE", "AC_CONFIG_AUX_DIR([build-aux])\nAM_INIT_AUTOMAKE", 1))

	summary, err := Run(s.ctx, s.config())
	s.Require().NoError(err)
	s.Equal(0, summary.Errors, s.stderr.String())
	s.Equal([]string{"build-aux/depcomp", "build-aux/install-sh", "build-aux/missing"}, summary.Installed)
	s.Contains(s.readFile("Makefile.in"), "$(top_srcdir)/build-aux/missing")
}

func (s *DriverSuite) TestGNUStandardFiles() {
	s.writeFile("configure.ac", strings.Replace(configureAC, "AM_INIT_AUTOMAKE([foreign])", "AM_INIT_AUTOMAKE", 1))
	s.writeFile("README", "hello\n")

	summary, err := Run(s.ctx, s.config())
	s.Require().NoError(err)
	out := s.stderr.String()
	for _, name := range []string{"NEWS", "AUTHORS", "ChangeLog", "COPYING"} {
		s.Contains(out, "Makefile.am: error: required file './"+name+"' not found\n")
	}
	s.NotContains(out, "'./README'")
	s.NotContains(out, "'./INSTALL'")
	s.True(s.exists("INSTALL"))
	s.Equal(4, summary.Errors)

	s.Contains(s.readFile("Makefile.in"), "$(srcdir)/INSTALL")
}

func (s *DriverSuite) TestReadmeAlpha() {
	configure := strings.Replace(configureAC, "[1.0]", "[1.0a]", 1)
	s.writeFile("configure.ac", strings.Replace(configure, "[foreign]", "[foreign readme-alpha]", 1))

	summary, err := Run(s.ctx, s.config())
	s.Require().NoError(err)
	s.Equal(1, summary.Errors)
	s.Contains(s.stderr.String(), "Makefile.am: error: required file './README-alpha' not found\n")

	s.writeFile("README-alpha", "unstable\n")
	s.stderr.Reset()
	summary, err = Run(s.ctx, s.config())
	s.Require().NoError(err)
	s.Equal(0, summary.Errors, s.stderr.String())
	s.Contains(s.readFile("Makefile.in"), "$(srcdir)/README-alpha")
}

func (s *DriverSuite) TestErrorsSkipMakefile() {
	s.writeFile("src/Makefile.am", "bin_PROGRAMS = hello\nhello_LIBADD = -lm\n")

	summary, err := Run(s.ctx, s.config())
	s.Require().NoError(err)
	s.Equal(1, summary.Errors)
	s.Contains(s.stderr.String(), "src/Makefile.am:2: error: use 'hello_LDADD', not 'hello_LIBADD'\n")
	s.Equal([]string{"Makefile.in"}, summary.Written)
	s.False(s.exists("src/Makefile.in"))
}

func (s *DriverSuite) TestSelectedMakefiles() {
	cfg := s.config()
	cfg.Makefiles = []string{"src/Makefile"}

	summary, err := Run(s.ctx, cfg)
	s.Require().NoError(err)
	s.Equal([]string{"src/Makefile.in"}, summary.Written)
	s.False(s.exists("Makefile.in"))
}

func (s *DriverSuite) TestUnknownMakefile() {
	cfg := s.config()
	cfg.Makefiles = []string{"lib/Makefile"}

	summary, err := Run(s.ctx, cfg)
	s.Require().NoError(err)
	s.Equal(1, summary.Errors)
	s.Contains(s.stderr.String(), "configure.ac: error: 'lib/Makefile' is not created by configure.ac\n")
	s.Empty(summary.Written)
}

func (s *DriverSuite) TestWarningsAndWerror() {
	s.writeFile("src/Makefile.am", "bin_PROGRAMS = hello\nX := 1\n")

	summary, err := Run(s.ctx, s.config())
	s.Require().NoError(err)
	s.Equal(0, summary.Warnings)

	s.stderr.Reset()
	cfg := s.config()
	cfg.Warnings = []string{"portability"}
	summary, err = Run(s.ctx, cfg)
	s.Require().NoError(err)
	s.Equal(1, summary.Warnings)
	s.Contains(s.stderr.String(), "src/Makefile.am:2: warning: ':='-style assignments are not portable\n")

	s.stderr.Reset()
	cfg.Warnings = []string{"portability", "error"}
	summary, err = Run(s.ctx, cfg)
	s.Require().NoError(err)
	s.Equal(1, summary.Errors)
	s.Contains(s.stderr.String(), "src/Makefile.am:2: error: ':='-style assignments are not portable\n")
}

func (s *DriverSuite) TestBadWarningSetting() {
	cfg := s.config()
	cfg.Warnings = []string{"no-such-category"}

	_, err := Run(s.ctx, cfg)
	s.Error(err)
}

func (s *DriverSuite) TestMissingConfigure() {
	s.Require().NoError(os.Remove(filepath.Join(s.dir, "configure.ac")))

	_, err := Run(s.ctx, s.config())
	s.Error(err)
}

func (s *DriverSuite) TestMetricsTextfile() {
	cfg := s.config()
	cfg.MetricsTextfile = filepath.Join(s.T().TempDir(), "automake.prom")

	_, err := Run(s.ctx, cfg)
	s.Require().NoError(err)

	contents, err := os.ReadFile(cfg.MetricsTextfile)
	s.Require().NoError(err)
	s.Contains(string(contents), `automake_generate_makefiles_total{result="generated"} 2`)
	s.Contains(string(contents), `automake_generate_files_total{status="installed"} 3`)
	s.Contains(string(contents), "automake_generate_jobs 2")
}

func TestPrintTrace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configure.ac"), []byte(configureAC), 0o644))

	var stdout, stderr bytes.Buffer
	errors, err := printTrace(context.Background(), dir, &stdout, &stderr)
	require.NoError(t, err)
	require.Equal(t, 0, errors)
	require.Empty(t, stderr.String())
	require.Contains(t, stdout.String(), "package: hello\n")
	require.Contains(t, stdout.String(), "- output: src/Makefile\n")
}
