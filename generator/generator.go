package generator

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	automake "github.com/go-automake/automake"
	"github.com/go-automake/automake/am"
	"github.com/go-automake/automake/autoconf"
	"github.com/go-automake/automake/diag"
	"github.com/go-automake/automake/internal/dcontext"
	"github.com/go-automake/automake/options"
)

// Input is everything needed to write one Makefile.in.
type Input struct {
	// File is the parsed Makefile.am.
	File *am.File

	Trace   *autoconf.Trace
	Options *options.Options

	// Makefile is the AC_CONFIG_FILES entry whose input is the
	// Makefile.in being written.
	Makefile autoconf.ConfigFile

	// Makefiles holds the outputs of every Makefile of the package that
	// is generated from a Makefile.am. The top-level Makefile.in takes
	// care of config files living in directories without one.
	Makefiles map[string]bool

	// FS is the top source directory.
	FS fs.FS

	// AuxDist are the aux files the top-level Makefile.in distributes,
	// relative to the top source directory.
	AuxDist []string

	// Diags receives diagnostics. Required.
	Diags *diag.Buffer
}

// Requirement is an aux file the generated Makefile.in refers to.
type Requirement struct {
	// Name is relative to the aux directory.
	Name string
	Pos  diag.Pos
}

// Result is a generated Makefile.in.
type Result struct {
	Text     []byte
	Required []Requirement
}

type generator struct {
	file  *am.File
	trace *autoconf.Trace
	opts  *options.Options
	diags *diag.Buffer
	in    Input
	out   *output

	// dir is the Makefile's directory relative to the top, "." at the
	// top.
	dir       string
	top       bool
	recursive bool

	primaries   map[string][]primaryVar
	deps        map[string][]string
	installdirs []string
	checkBuild  []string
	distCommon  []string
	distSources []string
	sources     []string
	suffixes    []string

	langs         []*language
	langSeen      map[*language]bool
	exts          []string
	extSeen       map[string]bool
	progReported  map[string]bool
	linkers       map[string]bool
	linkerOrder   []linker
	depfiles      []string
	objDirs       []string
	objRules      map[string]bool
	dirstamps     map[string]bool
	dirstampOrder []string
	helpers       map[string]int
	programs      map[string]bool
	canonical     map[string]bool
	compilePos    diag.Pos

	// hdrClean are the files distclean-hdr removes.
	hdrClean []string

	required []Requirement
	reqSeen  map[string]bool
}

func newGenerator(in Input) *generator {
	return &generator{
		file:         in.File,
		trace:        in.Trace,
		opts:         in.Options,
		diags:        in.Diags,
		in:           in,
		out:          newOutput(),
		dir:          in.Makefile.Dir(),
		top:          in.Makefile.Dir() == ".",
		deps:         make(map[string][]string),
		langSeen:     make(map[*language]bool),
		extSeen:      make(map[string]bool),
		progReported: make(map[string]bool),
		linkers:      make(map[string]bool),
		objRules:     make(map[string]bool),
		dirstamps:    make(map[string]bool),
		helpers:      make(map[string]int),
		programs:     make(map[string]bool),
		canonical:    make(map[string]bool),
		reqSeen:      make(map[string]bool),
	}
}

// Generate writes the Makefile.in for in. Problems in the inputs are
// reported to in.Diags; the returned error is reserved for failures of the
// generator itself.
func Generate(ctx context.Context, in Input) (*Result, error) {
	g := newGenerator(in)
	log := dcontext.GetLoggerWithField(ctx, "makefile", in.Makefile.Output)

	steps := []struct {
		name string
		fn   func() error
	}{
		{"header", g.handleHeaderVars},
		{"all", g.handleAll},
		{"rebuild", g.handleRebuild},
		{"config headers", g.handleConfigHeaders},
		{"config files", g.handleConfigFiles},
		{"programs", g.handlePrograms},
		{"libraries", g.handleLibraries},
		{"compile", g.handleCompile},
		{"scripts", func() error { return g.handleInstallable("SCRIPTS", "INSTALL_SCRIPT") }},
		{"data", func() error { return g.handleInstallable("DATA", "INSTALL_DATA") }},
		{"headers", func() error { return g.handleInstallable("HEADERS", "INSTALL_HEADER") }},
		{"mans", g.handleMans},
		{"subdirs", g.handleSubdirs},
		{"tests", g.handleTests},
		{"dist", g.handleDist},
		{"standard targets", g.handleStandardTargets},
	}
	g.scanPrimaries()
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step.fn(); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", in.Makefile.Output, step.name, err)
		}
	}
	g.checkCanonicalVariables()
	g.require("install-sh", g.trace.MacroPos("AM_INIT_AUTOMAKE"))
	g.require("missing", g.trace.MacroPos("AM_INIT_AUTOMAKE"))

	text, err := g.render()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.Makefile.Output, err)
	}
	log.Debugf("generated %d bytes, %d rules", len(text), len(g.out.rules))
	return &Result{Text: text, Required: g.required}, nil
}

// makefileIn returns the Makefile.in path relative to the top.
func (g *generator) makefileIn() string {
	if len(g.in.Makefile.Inputs) > 0 {
		return g.in.Makefile.Inputs[0]
	}
	return g.in.Makefile.Output + ".in"
}

// makefileAm returns the Makefile.am path relative to the top.
func (g *generator) makefileAm() string {
	return strings.TrimSuffix(g.makefileIn(), ".in") + ".am"
}

// dep adds prereq to a standard target such as all-am.
func (g *generator) dep(target, prereq string) {
	for _, have := range g.deps[target] {
		if have == prereq {
			return
		}
	}
	g.deps[target] = append(g.deps[target], prereq)
}

// require records an aux file the Makefile.in refers to.
func (g *generator) require(name string, pos diag.Pos) {
	if g.reqSeen[name] {
		return
	}
	g.reqSeen[name] = true
	g.required = append(g.required, Requirement{Name: name, Pos: pos})
}

// auxPath returns how the Makefile.in names an aux file.
func (g *generator) auxPath(name string) string {
	if g.trace.AuxDir == "." || g.trace.AuxDir == "" {
		return "$(top_srcdir)/" + name
	}
	return "$(top_srcdir)/" + g.trace.AuxDir + "/" + name
}

// srcPath returns how the Makefile.in names file, given relative to the
// top source directory.
func (g *generator) srcPath(file string) string {
	if path.Dir(file) == g.dir {
		return "$(srcdir)/" + path.Base(file)
	}
	return "$(top_srcdir)/" + file
}

// exists reports whether file, relative to the top source directory,
// exists.
func (g *generator) exists(file string) bool {
	if g.in.FS == nil {
		return false
	}
	_, err := fs.Stat(g.in.FS, path.Clean(file))
	return err == nil
}

func (g *generator) handleHeaderVars() error {
	subdir := g.dir
	text, err := expandTemplate("header-vars", Keys{"SUBDIR": subdir}, nil)
	if err != nil {
		return err
	}
	g.out.text(text)
	return nil
}

// handleAll writes the all rule first so that it is make's default goal.
func (g *generator) handleAll() error {
	g.recursive = g.file.IsDefined("SUBDIRS")
	var pre []string
	if g.file.IsDefined("BUILT_SOURCES") {
		pre = append(pre, "$(BUILT_SOURCES)")
	}
	for _, h := range g.trace.HeadersIn(g.dir) {
		pre = append(pre, path.Base(h.Output))
	}
	g.topTarget("all", pre)
	return nil
}

// topTarget writes a user-facing standard target that hands over to its
// -am or -recursive form.
func (g *generator) topTarget(name string, pre []string) {
	sub := name + "-am"
	if g.recursive {
		sub = name + "-recursive"
	}
	if len(pre) > 0 {
		g.out.rule(name, strings.Join(pre, " "), "$(MAKE) $(AM_MAKEFLAGS) "+sub)
		g.out.addMake(name)
	} else {
		g.out.rule(name, sub)
	}
	g.out.addPhony(name)
}

// standardSubsts are substituted in every Makefile.in.
var standardSubsts = []string{
	"ACLOCAL", "AMTAR", "AM_DEFAULT_VERBOSITY", "AM_DEFAULT_V", "AM_V",
	"AUTOCONF", "AUTOHEADER", "AUTOMAKE", "AWK", "CPPFLAGS", "CYGPATH_W",
	"DEFS", "ECHO_C", "ECHO_N", "ECHO_T", "INSTALL", "INSTALL_DATA",
	"INSTALL_PROGRAM", "INSTALL_SCRIPT", "INSTALL_STRIP_PROGRAM", "LDFLAGS",
	"LIBOBJS", "LIBS", "LTLIBOBJS", "MAKEINFO", "MKDIR_P", "PACKAGE",
	"PACKAGE_BUGREPORT", "PACKAGE_NAME", "PACKAGE_STRING", "PACKAGE_TARNAME",
	"PACKAGE_URL", "PACKAGE_VERSION", "PATH_SEPARATOR", "SET_MAKE", "SHELL",
	"STRIP", "VERSION", "abs_builddir", "abs_srcdir", "abs_top_builddir",
	"abs_top_srcdir", "am__include", "am__isrc", "am__leading_dot",
	"am__quote", "am__tar", "am__untar", "bindir", "build_alias", "builddir",
	"datadir", "datarootdir", "docdir", "dvidir", "exec_prefix", "host_alias",
	"htmldir", "includedir", "infodir", "install_sh", "libdir", "libexecdir",
	"localedir", "localstatedir", "mandir", "mkdir_p", "oldincludedir",
	"pdfdir", "prefix", "program_transform_name", "psdir", "runstatedir",
	"sbindir", "sharedstatedir", "srcdir", "sysconfdir", "target_alias",
	"top_build_prefix", "top_builddir", "top_srcdir",
}

var programSubsts = map[string][]string{
	autoconf.ProgCC:     {"CC", "CFLAGS", "CCDEPMODE", "OBJEXT", "EXEEXT"},
	autoconf.ProgCXX:    {"CXX", "CXXFLAGS", "CXXDEPMODE", "OBJEXT", "EXEEXT"},
	autoconf.ProgCCAS:   {"CCAS", "CCASFLAGS", "CCASDEPMODE"},
	autoconf.ProgRANLIB: {"RANLIB"},
}

// substs returns the NAME = @NAME@ definitions, sorted by name.
func (g *generator) substs() []string {
	set := make(map[string]bool)
	for _, s := range standardSubsts {
		set[s] = true
	}
	for prog, names := range programSubsts {
		if !g.trace.HasProgram(prog) {
			continue
		}
		for _, s := range names {
			set[s] = true
		}
		if prog != autoconf.ProgRANLIB {
			set["DEPDIR"] = true
			set["AMDEPBACKSLASH"] = true
			set["am__nodep"] = true
		}
	}
	for _, s := range g.trace.SubstNames() {
		set[s] = true
	}

	var names []string
	for s := range set {
		if strings.HasSuffix(s, "_TRUE") || strings.HasSuffix(s, "_FALSE") {
			continue
		}
		if g.file.IsDefined(s) || g.out.defined(s) {
			continue
		}
		names = append(names, s)
	}
	sort.Strings(names)

	lines := make([]string, len(names))
	for i, s := range names {
		lines[i] = s + " = @" + s + "@"
	}
	return lines
}

// rewriteWords adjusts user values the way the generated rules expect:
// program names get $(EXEEXT).
func (g *generator) rewriteWords(name string, words []string) []string {
	exe := false
	if pv, ok := parsePrimary(name); ok && pv.primary == "PROGRAMS" {
		exe = true
	}
	tests := name == "TESTS" || name == "XFAIL_TESTS"
	if !exe && !tests {
		return words
	}
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w
		if strings.ContainsAny(w, "$@") {
			continue
		}
		if exe || g.programs[w] {
			out[i] = w + "$(EXEEXT)"
		}
	}
	return out
}

// userVars renders the Makefile.am's own definitions and standalone
// comments in input order.
func (g *generator) userVars() []chunk {
	var chunks []chunk
	for _, st := range g.file.Statements {
		switch st := st.(type) {
		case *am.Definition:
			name := st.Var.Name
			words := g.rewriteWords(name, am.SplitWords(st.Value))
			lines := append([]string(nil), st.Comment...)
			lines = append(lines, formatVariable(st.Cond.Subst(), name, st.Op, words)...)
			chunks = append(chunks, chunk{kind: chunkVar, name: name, lines: lines})
		case *am.Comment:
			lines := make([]string, len(st.Lines))
			for i, l := range st.Lines {
				lines[i] = st.Cond.Subst() + l
			}
			chunks = append(chunks, chunk{kind: chunkBlank}, chunk{kind: chunkVar, lines: lines}, chunk{kind: chunkBlank})
		}
	}
	return chunks
}

// userRules renders the Makefile.am's rules and pass-through lines.
func (g *generator) userRules() []chunk {
	var chunks []chunk
	for _, st := range g.file.Statements {
		switch st := st.(type) {
		case *am.Rule:
			lines := append([]string(nil), st.Comment...)
			sep := ":"
			if st.DoubleColon {
				sep = "::"
			}
			header := st.Cond.Subst() + strings.Join(g.ruleTargets(st.Targets), " ") + sep
			if st.Prereqs != "" {
				header += " " + st.Prereqs
			}
			lines = append(lines, header)
			for _, r := range st.Recipe {
				for _, raw := range r.Raw {
					lines = append(lines, r.Cond.Subst()+raw)
				}
			}
			chunks = append(chunks, chunk{kind: chunkRule, targets: st.Targets, lines: lines}, chunk{kind: chunkBlank})
		case *am.Raw:
			chunks = append(chunks, chunk{kind: chunkRule, lines: []string{st.Cond.Subst() + st.Text}})
		}
	}
	return chunks
}

// ruleTargets maps a user target naming a program to the program file.
func (g *generator) ruleTargets(targets []string) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t
		if g.programs[t] {
			out[i] = t + "$(EXEEXT)"
		}
	}
	return out
}

// overrides drops generated rules the Makefile.am replaces.
func (g *generator) overrides() {
	generated := g.out.generatedTargets()
	drop := make(map[string]bool)
	for _, st := range g.file.Statements {
		r, ok := st.(*am.Rule)
		if !ok {
			continue
		}
		for _, t := range r.Targets {
			target := t
			if g.programs[t] {
				if !g.opts.NoExeext {
					g.diags.Warnf(r.Pos, diag.CategoryObsolete,
						"deprecated feature: target '%s' overrides '%s$(EXEEXT)'; change your target to read '%s$(EXEEXT)'", t, t, t)
				}
				target = t + "$(EXEEXT)"
			}
			if !generated[target] || drop[target] || target == ".SUFFIXES" {
				continue
			}
			drop[target] = true
			if !strings.HasPrefix(target, ".") {
				g.diags.Warnf(r.Pos, diag.CategoryOverride,
					"user target '%s' defined here overrides Automake target '%s'", t, target)
			}
		}
	}
	if len(drop) > 0 {
		g.out.dropTargets(drop)
	}
}

// render assembles the Makefile.in.
func (g *generator) render() ([]byte, error) {
	if len(g.suffixes) > 0 && len(g.out.rules) > 0 {
		suffix := chunk{kind: chunkRule, targets: []string{".SUFFIXES"},
			lines: []string{".SUFFIXES:", ".SUFFIXES: " + strings.Join(g.suffixes, " ")}}
		rules := append([]chunk{g.out.rules[0], {kind: chunkBlank}, suffix}, g.out.rules[1:]...)
		g.out.rules = rules
	}
	g.overrides()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s generated by automake %s from %s.\n", path.Base(g.makefileIn()), automake.APIVersion, path.Base(g.file.Path))
	b.WriteString("# @configure_input@\n\n")
	b.WriteString("@SET_MAKE@\n")

	var vars []chunk
	for _, c := range g.out.vars {
		if c.name != "" && g.file.IsDefined(c.name) {
			continue
		}
		vars = append(vars, c)
	}
	render(&b, vars)
	for _, l := range g.substs() {
		b.WriteString(l)
		b.WriteString("\n")
	}
	render(&b, g.userVars())
	b.WriteString("\n")
	render(&b, g.out.rules)
	b.WriteString("\n")

	special := []chunk{}
	if len(g.out.make) > 0 {
		special = append(special, chunk{kind: chunkRule, lines: formatVariable("", ".MAKE", ":", g.out.make)})
		special = append(special, chunk{kind: chunkBlank})
	}
	special = append(special,
		chunk{kind: chunkRule, lines: formatVariable("", ".PHONY", ":", g.out.phony)},
		chunk{kind: chunkBlank},
		chunk{kind: chunkRule, lines: []string{".PRECIOUS: Makefile"}},
		chunk{kind: chunkBlank},
	)
	render(&b, special)
	render(&b, g.userRules())

	footer, err := expandTemplate("footer", nil, nil)
	if err != nil {
		return nil, err
	}
	b.WriteString("\n")
	b.WriteString(footer)
	return []byte(b.String()), nil
}
