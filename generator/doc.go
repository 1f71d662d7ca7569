// Package generator turns a parsed Makefile.am into a Makefile.in.
//
// The output is assembled from fragments embedded under am/. Each fragment
// is plain make text with %KEY% substitutions and ?FLAG? line guards;
// Generate picks the fragments a Makefile.am needs, fills them in and
// orders the result: generated variables, configure substitutions, the
// user's variables, generated rules, and finally the user's rules.
//
// A user rule whose target the generator also produces replaces the
// generated one. User variables always win over generated defaults of the
// same name.
package generator
