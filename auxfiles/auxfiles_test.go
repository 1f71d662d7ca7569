package auxfiles

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-automake/automake"
	"github.com/go-automake/automake/diag"
	"github.com/go-automake/automake/internal/outfile"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type InstallerSuite struct {
	suite.Suite
	ctx   context.Context
	top   string
	lib   string
	diags *diag.Buffer
	pos   diag.Pos
}

func TestInstallerSuite(t *testing.T) {
	suite.Run(t, new(InstallerSuite))
}

func (s *InstallerSuite) SetupTest() {
	s.ctx = context.Background()
	s.top = s.T().TempDir()
	s.lib = s.T().TempDir()
	s.diags = &diag.Buffer{}
	s.pos = diag.Pos{File: "configure.ac", Line: 2}
}

func (s *InstallerSuite) installer(opts Options) *Installer {
	return NewInstaller(outfile.New(s.top), opts, s.diags)
}

func (s *InstallerSuite) messages() []string {
	var msgs []string
	for _, d := range s.diags.Diagnostics() {
		msgs = append(msgs, d.String())
	}
	return msgs
}

func (s *InstallerSuite) TestMissingWithoutAddMissing() {
	i := s.installer(Options{})

	s.False(i.Require(s.ctx, "install-sh", s.pos))
	s.False(i.Require(s.ctx, "NEWS", diag.Pos{File: "Makefile.am"}))
	s.Equal([]string{
		"configure.ac:2: error: required file './install-sh' not found; 'automake --add-missing' can install 'install-sh'",
		"Makefile.am: error: required file './NEWS' not found",
	}, s.messages())
	s.Empty(i.Installed())
}

func (s *InstallerSuite) TestRequireOnce() {
	i := s.installer(Options{})

	s.False(i.Require(s.ctx, "build-aux/missing", s.pos))
	s.False(i.Require(s.ctx, "build-aux/missing", diag.Pos{File: "Makefile.am", Line: 9}))
	s.Equal([]string{
		"configure.ac:2: error: required file 'build-aux/missing' not found; 'automake --add-missing' can install 'missing'",
	}, s.messages())
}

func (s *InstallerSuite) TestExistingFile() {
	s.Require().NoError(os.WriteFile(filepath.Join(s.top, "README"), []byte("hi\n"), 0o644))
	i := s.installer(Options{AddMissing: true})

	s.True(i.Require(s.ctx, "README", s.pos))
	s.Empty(s.messages())
	s.Empty(i.Installed())
}

func (s *InstallerSuite) TestInstallEmbedded() {
	i := s.installer(Options{AddMissing: true})

	s.True(i.Require(s.ctx, "build-aux/install-sh", s.pos))
	s.True(i.Require(s.ctx, "build-aux/depcomp", s.pos))
	s.True(i.Require(s.ctx, "INSTALL", s.pos))
	s.Empty(s.messages())
	s.Equal([]string{"INSTALL", "build-aux/depcomp", "build-aux/install-sh"}, i.Installed())

	fi, err := os.Stat(filepath.Join(s.top, "build-aux", "install-sh"))
	s.Require().NoError(err)
	s.Equal(os.FileMode(0o755), fi.Mode().Perm())

	fi, err = os.Stat(filepath.Join(s.top, "INSTALL"))
	s.Require().NoError(err)
	s.Equal(os.FileMode(0o644), fi.Mode().Perm())

	want, err := embedded.ReadFile("data/depcomp")
	s.Require().NoError(err)
	got, err := os.ReadFile(filepath.Join(s.top, "build-aux", "depcomp"))
	s.Require().NoError(err)
	s.Equal(want, got)
}

func (s *InstallerSuite) TestNotInstallable() {
	i := s.installer(Options{AddMissing: true, LibDir: s.lib})

	s.False(i.Require(s.ctx, "COPYING", s.pos))
	s.Equal([]string{"configure.ac:2: error: required file './COPYING' not found"}, s.messages())
}

func (s *InstallerSuite) TestSymlinkFromLibDir() {
	libFile := filepath.Join(s.lib, "COPYING")
	s.Require().NoError(os.WriteFile(libFile, []byte("license\n"), 0o644))
	i := s.installer(Options{AddMissing: true, LibDir: s.lib})

	s.True(i.Require(s.ctx, "COPYING", s.pos))
	link, err := os.Readlink(filepath.Join(s.top, "COPYING"))
	s.Require().NoError(err)
	s.Equal(libFile, link)
}

func (s *InstallerSuite) TestCopyFromLibDir() {
	s.Require().NoError(os.WriteFile(filepath.Join(s.lib, "missing"), []byte("#!/bin/sh\nexit 0\n"), 0o755))
	i := s.installer(Options{AddMissing: true, Copy: true, LibDir: s.lib})

	s.True(i.Require(s.ctx, "missing", s.pos))
	dst := filepath.Join(s.top, "missing")
	fi, err := os.Lstat(dst)
	s.Require().NoError(err)
	s.True(fi.Mode().IsRegular())
	s.Equal(os.FileMode(0o755), fi.Mode().Perm())

	got, err := os.ReadFile(dst)
	s.Require().NoError(err)
	s.Equal("#!/bin/sh\nexit 0\n", string(got))
}

func (s *InstallerSuite) TestForce() {
	dst := filepath.Join(s.top, "INSTALL")
	s.Require().NoError(os.WriteFile(dst, []byte("old\n"), 0o644))

	i := s.installer(Options{AddMissing: true})
	s.True(i.Require(s.ctx, "INSTALL", s.pos))
	got, err := os.ReadFile(dst)
	s.Require().NoError(err)
	s.Equal("old\n", string(got))

	i = s.installer(Options{AddMissing: true, Force: true})
	s.True(i.Require(s.ctx, "INSTALL", s.pos))
	got, err = os.ReadFile(dst)
	s.Require().NoError(err)
	s.NotEqual("old\n", string(got))
	s.Equal([]string{"INSTALL"}, i.Installed())
}

func TestStandardFiles(t *testing.T) {
	require.Empty(t, StandardFiles(automake.Foreign))
	require.Equal(t, []string{"INSTALL", "NEWS", "README", "AUTHORS", "ChangeLog", "COPYING"}, StandardFiles(automake.GNU))
	require.Contains(t, StandardFiles(automake.Gnits), "THANKS")
}

func TestDefaultLibDir(t *testing.T) {
	t.Setenv("AUTOMAKE_LIBDIR", "")
	require.Equal(t, "/usr/share/automake-"+automake.APIVersion, DefaultLibDir())

	t.Setenv("AUTOMAKE_LIBDIR", "/opt/automake")
	require.Equal(t, "/opt/automake", DefaultLibDir())
}

func TestEmbeddedScriptsAreShellScripts(t *testing.T) {
	for name := range executable {
		contents, err := embedded.ReadFile("data/" + name)
		require.NoError(t, err, name)
		require.Regexp(t, `^#! ?/bin/sh\n`, string(contents), name)
	}
}
