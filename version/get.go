package version

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-automake/automake"
)

// Package returns the overall, canonical project import path under
// which the package was built.
func Package() string {
	return mainpkg
}

// Version returns returns the module version the running binary was
// built from.
func Version() string {
	return version
}

// Revision returns the VCS (e.g. git) revision being used to build
// the program at linking time.
func Revision() string {
	return revision
}

// FprintVersion outputs the version string to the writer, in the following
// format, followed by a newline:
//
//	<cmd> (<project> <version>) <api version>
//
// For example, a binary "automake" built from github.com/go-automake/automake
// with version "v0.1.0" would print the following:
//
//	automake (github.com/go-automake/automake v0.1.0) 1.16
//
// The API version is the automake release whose Makefile.am dialect and
// generated Makefile.in layout this binary follows.
func FprintVersion(w io.Writer) {
	fmt.Fprintf(w, "%s (%s %s) %s\n", filepath.Base(os.Args[0]), Package(), Version(), automake.APIVersion)
}

// PrintVersion outputs the version information, from Fprint, to stdout.
func PrintVersion() {
	FprintVersion(os.Stdout)
}
