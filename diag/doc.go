// Package diag provides the diagnostics automake reports while reading
// configure.ac and Makefile.am files and while generating Makefile.in.
//
// Every diagnostic belongs to a registered Category. Warning categories can
// be enabled and disabled with -W settings; the error category is always on.
// Diagnostics are collected per Makefile.am in a Buffer and later delivered
// to sinks through a Reporter, which is built on github.com/docker/go-events.
package diag
