// Package automake defines the vocabulary shared by the components of the
// automake generator. The goal is to turn author-level Makefile.am files into
// portable Makefile.in templates that configure later instantiates.
//
// # Makefile.am
//
// A Makefile.am is an ordinary makefile extended with a handful of naming
// conventions. Variables named after a directory and a primary, such as
// bin_PROGRAMS or pkgdata_DATA, describe what is built and where it is
// installed. Conditionals declared with AM_CONDITIONAL in configure.ac may
// guard any part of the file.
//
// # configure.ac
//
// The generator never runs configure. It reads configure.ac to learn the
// output files, substitutions and conditionals configure will provide, and
// writes rules that reference them as @VAR@ substitutions.
//
// # Makefile.in
//
// The output is plain make and POSIX sh. Nothing from this module is needed
// to use it: configure turns it into a Makefile, and the standard targets
// (all, install, check, dist and the rest) work without automake installed.
//
// # Strictness
//
// Every generated file is checked against a strictness level. Foreign
// packages get only the checks needed for correct output, GNU packages must
// also follow the GNU coding standards, and Gnits packages follow the
// stricter Gnits standards.
package automake
