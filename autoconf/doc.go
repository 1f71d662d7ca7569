// Package autoconf extracts what automake needs from a configure.ac: the
// package name and version, AM_INIT_AUTOMAKE options, the files
// config.status creates, AC_SUBST variables, AM_CONDITIONAL names and the
// compilers that are checked for.
//
// The input is scanned directly rather than traced through m4, so macros
// defined elsewhere and then called are not seen.
package autoconf
