package generator

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/go-automake/automake/am"
	"github.com/go-automake/automake/autoconf"
	"github.com/go-automake/automake/diag"
)

// language describes how sources with some extensions are compiled.
type language struct {
	// noun names the sources in diagnostics: "C source seen but ...".
	noun string
	exts []string
	// compile is the variable holding the compile command.
	compile string
	// verbose is the silent-rules switch, as in AM_V_CC.
	verbose string
	// fastdep is the am__fastdep conditional, empty when the language
	// has no dependency tracking.
	fastdep  string
	compiler string
	flags    string
	cpp      bool
	prog     string
	macro    string
	// link orders the languages by linker: the highest one present in a
	// target chooses it. Zero links with the C linker.
	link int
}

var languages = []*language{
	{noun: "C", exts: []string{"c"}, compile: "COMPILE", verbose: "CC", fastdep: "CC",
		compiler: "CC", flags: "CFLAGS", cpp: true, prog: autoconf.ProgCC, macro: "AC_PROG_CC", link: 1},
	{noun: "C++", exts: []string{"cc", "cpp", "cxx", "C", "c++"}, compile: "CXXCOMPILE", verbose: "CXX", fastdep: "CXX",
		compiler: "CXX", flags: "CXXFLAGS", cpp: true, prog: autoconf.ProgCXX, macro: "AC_PROG_CXX", link: 2},
	{noun: "assembler", exts: []string{"S", "sx"}, compile: "CPPASCOMPILE", verbose: "CPPAS", fastdep: "CCAS",
		compiler: "CCAS", flags: "CCASFLAGS", cpp: true, prog: autoconf.ProgCCAS, macro: "AM_PROG_AS"},
	{noun: "assembler", exts: []string{"s"}, compile: "CCASCOMPILE", verbose: "CCAS",
		compiler: "CCAS", flags: "CCASFLAGS", prog: autoconf.ProgCCAS, macro: "AM_PROG_AS"},
}

var langByExt = func() map[string]*language {
	m := make(map[string]*language)
	for _, l := range languages {
		for _, ext := range l.exts {
			m[ext] = l
		}
	}
	return m
}()

// command returns the value of the language's compile variable. When
// xname is set the per-target flags of that target replace the AM_ ones.
func (l *language) command(f *am.File, xname string) string {
	cppflags := "$(AM_CPPFLAGS)"
	flags := "$(AM_" + l.flags + ")"
	if xname != "" {
		if f.IsDefined(xname + "_CPPFLAGS") {
			cppflags = "$(" + xname + "_CPPFLAGS)"
		}
		if f.IsDefined(xname + "_" + l.flags) {
			flags = "$(" + xname + "_" + l.flags + ")"
		}
	}
	if !l.cpp {
		return fmt.Sprintf("$(%s) %s $(%s)", l.compiler, flags, l.flags)
	}
	return fmt.Sprintf("$(%s) $(DEFS) $(DEFAULT_INCLUDES) $(INCLUDES) %s $(CPPFLAGS) %s $(%s)",
		l.compiler, cppflags, flags, l.flags)
}

// fastdepKeys returns the condition prefixes used by the compile rules.
func (l *language) fastdepKeys() Keys {
	t := "@am__fastdep" + l.fastdep + "_TRUE@"
	f := "@am__fastdep" + l.fastdep + "_FALSE@"
	return Keys{
		"FASTDEP_TRUE":        t,
		"FASTDEP_FALSE":       f,
		"AMDEP_FASTDEP_FALSE": "@AMDEP_TRUE@" + f,
		"FPFX":                l.verbose,
		"DEPMODE":             l.fastdep + "DEPMODE",
	}
}

// linker is the link step of programs whose highest language is lang.
type linker struct {
	ld    string
	link  string
	flags string
	cc    string
}

var (
	cLinker   = linker{ld: "CCLD", link: "LINK", flags: "CFLAGS", cc: "CC"}
	cxxLinker = linker{ld: "CXXLD", link: "CXXLINK", flags: "CXXFLAGS", cc: "CXX"}
)

func linkerFor(l *language) linker {
	if l != nil && l.link == 2 {
		return cxxLinker
	}
	return cLinker
}

func perTargetFlags() []string {
	return []string{"CFLAGS", "CPPFLAGS", "CXXFLAGS", "CCASFLAGS"}
}

// tracking reports whether dependency tracking rules are written.
func (g *generator) tracking() bool {
	return !g.opts.NoDependencies
}

// useLanguage records that a source of lang with extension ext is
// compiled, and checks that configure looks for its compiler.
func (g *generator) useLanguage(l *language, ext string, pos diag.Pos) {
	if !g.langSeen[l] {
		g.langSeen[l] = true
		g.langs = append(g.langs, l)
	}
	if !g.extSeen[ext] {
		g.extSeen[ext] = true
		g.exts = append(g.exts, ext)
	}
	if g.trace.HasProgram(l.prog) || g.progReported[l.prog] {
		return
	}
	g.progReported[l.prog] = true
	g.diags.Errorf(pos, "%s source seen but '%s' is undefined; add '%s' to '%s'",
		l.noun, l.prog, l.macro, path.Base(g.trace.Path))
}

// object returns the object compiled from src for the target whose
// canonical name is xname. Files that are not compiled, such as headers,
// yield "".
func (g *generator) object(xname, src string, perTarget bool, pos diag.Pos) (string, *language, error) {
	if strings.ContainsAny(src, "$@") {
		return "", nil, nil
	}
	i := strings.LastIndexByte(src, '.')
	if i < 0 {
		return "", nil, nil
	}
	ext := src[i+1:]
	l := langByExt[ext]
	if l == nil {
		return "", nil, nil
	}
	g.useLanguage(l, ext, pos)

	dir, file := path.Split(src[:i])
	explicit := perTarget
	if dir != "" && !g.opts.SubdirObjects {
		g.diags.Warnf(pos, diag.CategoryUnsupported,
			"source file '%s' is in a subdirectory, but option 'subdir-objects' is disabled", src)
		dir = ""
		explicit = true
	}
	name := file
	if perTarget {
		name = xname + "-" + file
	}
	obj := dir + name
	depbase := dir + "$(DEPDIR)/" + name
	tracked := g.tracking() && l.fastdep != ""
	if tracked {
		depfile := depbase + ".Po"
		if dir == "" {
			depfile = "./" + depfile
		}
		g.addDepfile(depfile)
	}

	if dir != "" {
		stamp := g.dirstamp(strings.TrimSuffix(dir, "/"))
		g.addObjDir(dir)
		if !g.objRules[obj+"/stamp"] {
			g.objRules[obj+"/stamp"] = true
			g.out.rule(obj+".$(OBJEXT)", stamp)
		}
	}
	if explicit && !g.objRules[obj] {
		g.objRules[obj] = true
		cmd := "$(" + l.compile + ")"
		if perTarget {
			cmd = l.command(g.file, xname)
		}
		for _, suffix := range []string{"o", "obj"} {
			keys := l.fastdepKeys()
			keys["OBJ"] = obj + "." + suffix
			keys["SOURCE"] = src
			keys["COMPILE"] = cmd
			keys["DEPBASE"] = depbase
			text, err := expandTemplate("compile", keys, Flags{"AMDEP": tracked})
			if err != nil {
				return "", nil, err
			}
			g.out.text(text)
		}
	}
	return obj + ".$(OBJEXT)", l, nil
}

func (g *generator) addDepfile(f string) {
	for _, have := range g.depfiles {
		if have == f {
			return
		}
	}
	g.depfiles = append(g.depfiles, f)
}

func (g *generator) addObjDir(dir string) {
	for _, have := range g.objDirs {
		if have == dir {
			return
		}
	}
	g.objDirs = append(g.objDirs, dir)
}

// dirstamp returns the stamp file marking that dir exists in the build
// tree, writing its rule the first time.
func (g *generator) dirstamp(dir string) string {
	stamp := dir + "/$(am__dirstamp)"
	if g.dirstamps[dir] {
		return stamp
	}
	g.dirstamps[dir] = true
	g.dirstampOrder = append(g.dirstampOrder, dir)
	g.out.variable("am__dirstamp", "$(am__leading_dot)dirstamp")
	text, err := expandTemplate("dirstamp", Keys{"DIRSTAMP": stamp, "DIRECTORY": dir}, nil)
	if err == nil {
		g.out.text(text)
	}
	return stamp
}

// variant is the value of a word list under one assignment of the
// conditionals it depends on.
type variant struct {
	cond  am.Condition
	words []string
}

// variants evaluates the concatenation of names under every assignment of
// the conditionals they depend on. Unconditional lists have one TRUE
// variant.
func (g *generator) variants(names ...string) []variant {
	seen := make(map[string]bool)
	var conds []string
	for _, name := range names {
		for _, w := range g.file.Words(name, g.diags) {
			for _, lit := range w.Cond.Literals() {
				c := strings.TrimSuffix(strings.TrimSuffix(lit, "_TRUE"), "_FALSE")
				if !seen[c] {
					seen[c] = true
					conds = append(conds, c)
				}
			}
		}
	}
	sort.Strings(conds)

	var out []variant
	for mask := 0; mask < 1<<len(conds); mask++ {
		lits := make([]string, len(conds))
		for i, c := range conds {
			if mask&(1<<i) != 0 {
				lits[i] = c + "_TRUE"
			} else {
				lits[i] = c + "_FALSE"
			}
		}
		cond := am.NewCondition(lits...)
		var words []string
		for _, name := range names {
			words = append(words, g.file.Expand(name, cond, nil)...)
		}
		out = append(out, variant{cond: cond, words: words})
	}
	return out
}

// condList folds variants into one word list. Words present in every
// variant are kept inline; the rest go to a helper variable, named from
// helper and a counter, defined once per variant condition.
func (g *generator) condList(helper string, vs []variant) []string {
	if len(vs) == 1 {
		return vs[0].words
	}
	common := dedupe(vs[0].words)
	for _, v := range vs[1:] {
		in := make(map[string]bool)
		for _, w := range v.words {
			in[w] = true
		}
		kept := common[:0]
		for _, w := range common {
			if in[w] {
				kept = append(kept, w)
			}
		}
		common = kept
	}
	isCommon := make(map[string]bool)
	for _, w := range common {
		isCommon[w] = true
	}

	rests := make([][]string, len(vs))
	differ := false
	for i, v := range vs {
		for _, w := range dedupe(v.words) {
			if !isCommon[w] {
				rests[i] = append(rests[i], w)
				differ = true
			}
		}
	}
	if !differ {
		return common
	}
	g.helpers[helper]++
	name := fmt.Sprintf("%s%d", helper, g.helpers[helper])
	for i, v := range vs {
		g.out.condVariable(v.cond, name, strings.Join(rests[i], " "))
	}
	return append(common, "$("+name+")")
}

func dedupe(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// union returns every word of names in any condition, in first-seen
// order.
func (g *generator) union(names ...string) []string {
	var words []string
	for _, name := range names {
		for _, w := range g.file.Words(name, g.diags) {
			words = append(words, w.Text)
		}
	}
	return dedupe(words)
}

// handleSources writes the object list of one program or library and
// returns the language that decides its linker.
func (g *generator) handleSources(xname, defaultSource string, pos diag.Pos) (*language, error) {
	srcVar := xname + "_SOURCES"
	nodist := "nodist_" + srcVar
	extra := "EXTRA_" + srcVar

	var names, defaults []string
	if g.file.IsDefined(srcVar) {
		names = append(names, srcVar)
		pos = g.file.Var(srcVar).Pos()
	} else if !g.file.IsDefined(nodist) {
		defaults = []string{defaultSource}
		g.out.variable(srcVar, defaultSource)
	}
	if g.file.IsDefined(nodist) {
		names = append(names, nodist)
	}
	if g.compilePos == (diag.Pos{}) {
		g.compilePos = pos
	}

	perTarget := false
	for _, f := range perTargetFlags() {
		if g.file.IsDefined(xname + "_" + f) {
			perTarget = true
		}
	}

	var link *language
	vs := g.variants(names...)
	for i := range vs {
		var objs []string
		for _, src := range append(append([]string(nil), defaults...), vs[i].words...) {
			obj, l, err := g.object(xname, src, perTarget, pos)
			if err != nil {
				return nil, err
			}
			if l == nil {
				continue
			}
			objs = append(objs, obj)
			if link == nil || l.link > link.link {
				link = l
			}
		}
		vs[i].words = objs
	}
	for _, src := range g.union(extra) {
		if i := strings.LastIndexByte(src, '.'); i >= 0 {
			if l := langByExt[src[i+1:]]; l != nil {
				g.useLanguage(l, src[i+1:], pos)
			}
		}
	}
	g.out.variable("am_"+xname+"_OBJECTS", strings.Join(g.condList("am__objects_", vs), " "))
	g.out.variable(xname+"_OBJECTS", "$(am_"+xname+"_OBJECTS)")

	g.sources = append(g.sources, "$("+srcVar+")")
	if g.file.IsDefined(nodist) {
		g.sources = append(g.sources, "$("+nodist+")")
	}
	if g.file.IsDefined(extra) {
		g.sources = append(g.sources, "$("+extra+")")
	}

	if len(vs) > 1 && g.file.IsDefined(srcVar) {
		dist := "am__" + xname + "_SOURCES_DIST"
		g.out.variable(dist, strings.Join(g.union(srcVar, extra), " "))
		g.distSources = append(g.distSources, "$("+dist+")")
	} else {
		g.distSources = append(g.distSources, "$("+srcVar+")")
		if g.file.IsDefined(extra) {
			g.distSources = append(g.distSources, "$("+extra+")")
		}
	}
	return link, nil
}

// linkDependencies writes xname_DEPENDENCIES from the link inputs that are
// files this Makefile can rebuild.
func (g *generator) linkDependencies(xname, add string) {
	if g.file.IsDefined(xname + "_DEPENDENCIES") {
		return
	}
	src := xname + "_" + add
	if !g.file.IsDefined(src) {
		if add != "LDADD" || !g.file.IsDefined("LDADD") {
			g.out.variable(xname+"_DEPENDENCIES", "")
			return
		}
		src = "LDADD"
	}
	vs := g.variants(src)
	for i := range vs {
		vs[i].words = linkDeps(vs[i].words)
	}
	g.out.variable(xname+"_DEPENDENCIES", strings.Join(g.condList("am__DEPENDENCIES_", vs), " "))
}

func linkDeps(words []string) []string {
	var out []string
	for _, w := range words {
		switch {
		case w == "@LIBOBJS@" || w == "$(LIBOBJS)":
			out = append(out, "$(LIBOBJS)")
		case w == "@ALLOCA@" || w == "$(ALLOCA)":
			out = append(out, "$(ALLOCA)")
		case strings.HasPrefix(w, "-"), strings.HasPrefix(w, "@"), strings.HasPrefix(w, "$"):
		default:
			out = append(out, w)
		}
	}
	return out
}

var canonicalRE = regexp.MustCompile(`[^A-Za-z0-9_@]`)

// canonicalize maps a program or library name to the prefix of its
// variables: sub/libfoo.a becomes sub_libfoo_a.
func canonicalize(name string) string {
	return canonicalRE.ReplaceAllString(name, "_")
}

// targetNames returns the programs or libraries a primary variable lists,
// in every condition.
func (g *generator) targetNames(pv primaryVar) []string {
	var names []string
	for _, w := range g.union(pv.name) {
		if strings.ContainsAny(w, "$@") {
			continue
		}
		names = append(names, w)
	}
	return names
}

// handlePrograms writes link and install rules for every program.
func (g *generator) handlePrograms() error {
	var refs []string
	done := make(map[string]bool)
	for _, pv := range g.primaries["PROGRAMS"] {
		switch pv.dir {
		case "check":
			g.checkBuild = append(g.checkBuild, pv.ref())
		case "EXTRA":
		default:
			refs = append(refs, pv.ref())
		}
		for _, name := range g.targetNames(pv) {
			g.programs[name] = true
			if done[name] {
				continue
			}
			done[name] = true
			if err := g.handleProgram(name, pv); err != nil {
				return err
			}
		}
		if pv.dir == "EXTRA" {
			continue
		}
		std := pv.installs() && g.opts.StdOptions
		text, err := expandTemplate("progs", Keys{"DIR": pv.prefix + pv.dir, "NDIR": pv.dir},
			Flags{"INSTALL": pv.installs(), "STDOPTIONS": std})
		if err != nil {
			return err
		}
		g.out.text(text)
		g.dep("clean-am", "clean-"+pv.target())
		g.out.addPhony("clean-" + pv.target())
		if pv.installs() {
			g.addInstall(pv.dir, "install-"+pv.target(), "uninstall-"+pv.target())
		}
		if std {
			g.dep("installcheck-am", "installcheck-"+pv.target())
			g.out.addPhony("installcheck-" + pv.target())
		}
	}
	if len(refs) > 0 {
		g.out.variable("PROGRAMS", strings.Join(refs, " "))
		g.dep("all-am", "$(PROGRAMS)")
	}
	return nil
}

func (g *generator) handleProgram(name string, pv primaryVar) error {
	xname := canonicalize(name)
	g.canonical[xname] = true
	if g.file.IsDefined(xname + "_LIBADD") {
		g.diags.Errorf(g.file.Var(xname+"_LIBADD").Pos(), "use '%s_LDADD', not '%s_LIBADD'", xname, xname)
	}

	lang, err := g.handleSources(xname, name+".c", pv.pos)
	if err != nil {
		return err
	}
	if !g.file.IsDefined(xname + "_LDADD") {
		g.out.variable(xname+"_LDADD", "$(LDADD)")
	}
	g.linkDependencies(xname, "LDADD")

	ld := linkerFor(lang)
	g.useLinker(ld)
	xlink := ld.link
	if g.file.IsDefined(xname + "_LINK") {
		xlink = xname + "_LINK"
	} else if g.file.IsDefined(xname+"_LDFLAGS") || g.file.IsDefined(xname+"_"+ld.flags) {
		xlink = xname + "_LINK"
		flags := "$(AM_" + ld.flags + ")"
		if g.file.IsDefined(xname + "_" + ld.flags) {
			flags = "$(" + xname + "_" + ld.flags + ")"
		}
		ldflags := "$(AM_LDFLAGS)"
		if g.file.IsDefined(xname + "_LDFLAGS") {
			ldflags = "$(" + xname + "_LDFLAGS)"
		}
		g.out.variable(xlink, fmt.Sprintf("$(%s) %s $(%s) %s $(LDFLAGS) -o $@", ld.ld, flags, ld.flags, ldflags))
	}

	stamp := ""
	if dir := path.Dir(name); dir != "." {
		stamp = g.dirstamp(dir)
	}
	text, err := expandTemplate("program", Keys{
		"PROGRAM":  name,
		"EXEEXT":   "$(EXEEXT)",
		"XPROGRAM": xname,
		"DIRSTAMP": stamp,
		"LINKER":   ld.ld,
		"XLINK":    xlink,
	}, nil)
	if err != nil {
		return err
	}
	g.out.text(text)
	return nil
}

func (g *generator) useLinker(ld linker) {
	if g.linkers[ld.ld] {
		return
	}
	g.linkers[ld.ld] = true
	g.linkerOrder = append(g.linkerOrder, ld)
}

var libNameRE = regexp.MustCompile(`^(?:.*/)?lib[^/]*\.a$`)

// handleLibraries writes archive and install rules for every static
// library.
func (g *generator) handleLibraries() error {
	var refs []string
	done := make(map[string]bool)
	for _, pv := range g.primaries["LIBRARIES"] {
		switch pv.dir {
		case "check":
			g.checkBuild = append(g.checkBuild, pv.ref())
		case "EXTRA":
		default:
			refs = append(refs, pv.ref())
		}
		if !g.trace.HasProgram(autoconf.ProgRANLIB) && !g.progReported[autoconf.ProgRANLIB] {
			g.progReported[autoconf.ProgRANLIB] = true
			g.diags.Errorf(pv.pos, "library used but 'RANLIB' is undefined; add 'AC_PROG_RANLIB' to '%s'",
				path.Base(g.trace.Path))
		}
		for _, name := range g.targetNames(pv) {
			if done[name] {
				continue
			}
			done[name] = true
			if !libNameRE.MatchString(name) {
				dir, base := path.Split(name)
				base = strings.TrimSuffix(base, ".a")
				if !strings.HasPrefix(base, "lib") {
					base = "lib" + base
				}
				g.diags.Errorf(pv.pos, "'%s' is not a standard library name; did you mean '%s%s.a'?", name, dir, base)
				continue
			}
			if err := g.handleLibrary(name, pv); err != nil {
				return err
			}
		}
		if pv.dir == "EXTRA" {
			continue
		}
		text, err := expandTemplate("libs", Keys{"DIR": pv.prefix + pv.dir, "NDIR": pv.dir},
			Flags{"INSTALL": pv.installs()})
		if err != nil {
			return err
		}
		g.out.text(text)
		g.dep("clean-am", "clean-"+pv.target())
		g.out.addPhony("clean-" + pv.target())
		if pv.installs() {
			g.addInstall(pv.dir, "install-"+pv.target(), "uninstall-"+pv.target())
		}
	}
	if len(refs) > 0 {
		g.out.variable("LIBRARIES", strings.Join(refs, " "))
		g.dep("all-am", "$(LIBRARIES)")
	}
	return nil
}

func (g *generator) handleLibrary(name string, pv primaryVar) error {
	xname := canonicalize(name)
	g.canonical[xname] = true
	if v := g.file.Var(xname + "_LDADD"); v != nil {
		g.diags.Errorf(v.Pos(), "use '%s_LIBADD', not '%s_LDADD'", xname, xname)
	}

	if !g.file.IsDefined("AR") && !g.substDefined("AR") {
		g.out.variable("AR", "ar")
	}
	if !g.file.IsDefined("ARFLAGS") && !g.substDefined("ARFLAGS") {
		g.out.variable("ARFLAGS", "cru")
	}
	g.silent("AR")
	if !g.file.IsDefined(xname + "_AR") {
		g.out.variable(xname+"_AR", "$(AR) $(ARFLAGS)")
	}
	if !g.file.IsDefined(xname + "_LIBADD") {
		g.out.variable(xname+"_LIBADD", "")
	}
	if _, err := g.handleSources(xname, strings.TrimSuffix(name, ".a")+".c", pv.pos); err != nil {
		return err
	}
	g.linkDependencies(xname, "LIBADD")

	stamp := ""
	if dir := path.Dir(name); dir != "." {
		stamp = g.dirstamp(dir)
	}
	text, err := expandTemplate("library", Keys{"LIBRARY": name, "XLIBRARY": xname, "DIRSTAMP": stamp}, nil)
	if err != nil {
		return err
	}
	g.out.text(text)
	return nil
}

func (g *generator) substDefined(name string) bool {
	_, ok := g.trace.Substs[name]
	return ok
}

// silent defines the AM_V_name switch.
func (g *generator) silent(name string) {
	if g.out.defined("AM_V_" + name) {
		return
	}
	text, err := expandTemplate("silent", Keys{"NAME": name, "LABEL": fmt.Sprintf("%-8s", name)}, nil)
	if err == nil {
		g.out.text(text)
	}
}

// handleCompile writes what the compiled languages share: compile and link
// commands, suffix rules, dependency tracking and object cleaning.
func (g *generator) handleCompile() error {
	if len(g.langs) == 0 && len(g.linkerOrder) == 0 {
		return nil
	}

	includes := g.defaultIncludes()
	g.out.variable("DEFAULT_INCLUDES", includes)
	if g.tracking() && len(g.depfiles) > 0 {
		g.require("depcomp", g.compilePos)
		text, err := expandTemplate("depfiles", Keys{
			"DEFAULT_INCLUDES": includes,
			"DEPCOMP":          g.auxPath("depcomp"),
			"DEPFILES":         strings.Join(g.depfiles, " "),
		}, nil)
		if err != nil {
			return err
		}
		g.out.text(text)
		g.out.addPhony("am--depfiles")
	}

	for _, l := range g.langs {
		g.out.variable(l.compile, l.command(g.file, ""))
		g.silent(l.verbose)
	}
	for _, ld := range g.linkerOrder {
		g.out.variable(ld.ld, "$("+ld.cc+")")
		g.out.variable(ld.link, fmt.Sprintf("$(%s) $(AM_%s) $(%s) $(AM_LDFLAGS) $(LDFLAGS) -o $@", ld.ld, ld.flags, ld.flags))
		g.silent(ld.ld)
	}

	for _, ext := range g.exts {
		l := langByExt[ext]
		for _, suffix := range []string{"o", "obj"} {
			keys := l.fastdepKeys()
			keys["EXT"] = ext
			keys["OBJSUFFIX"] = suffix
			keys["COMPILE"] = l.compile
			keys["SOURCE"] = "$<"
			if suffix == "obj" {
				keys["SOURCE"] = "`$(CYGPATH_W) '$<'`"
			}
			text, err := expandTemplate("depend2", keys, Flags{"AMDEP": g.tracking() && l.fastdep != ""})
			if err != nil {
				return err
			}
			g.out.text(text)
		}
		g.suffixes = append(g.suffixes, "."+ext)
	}
	g.suffixes = append(g.suffixes, ".o", ".obj")

	if g.tracking() {
		var lines []string
		for _, f := range g.depfiles {
			lines = append(lines, "@AMDEP_TRUE@@am__include@ @am__quote@"+f+"@am__quote@ # am--include-marker")
		}
		g.out.raw(lines...)
	}

	recipe := []string{"-rm -f *.$(OBJEXT)"}
	for _, dir := range g.objDirs {
		recipe = append(recipe, "-rm -f "+dir+"*.$(OBJEXT)")
	}
	g.out.rule("mostlyclean-compile", "", recipe...)
	g.out.rule("distclean-compile", "", "-rm -f *.tab.c")
	g.out.addPhony("mostlyclean-compile", "distclean-compile")
	g.dep("mostlyclean-am", "mostlyclean-compile")
	g.dep("distclean-am", "distclean-compile")
	return nil
}

// defaultIncludes returns the -I flags every compile gets: the build
// directory and the directories of the config headers.
func (g *generator) defaultIncludes() string {
	var flags []string
	if !g.opts.NoStdinc {
		flags = append(flags, "-I.@am__isrc@")
	}
	seen := map[string]bool{g.dir: true}
	for _, h := range g.trace.ConfigHeaders {
		d := h.Dir()
		if seen[d] {
			continue
		}
		seen[d] = true
		if d == "." {
			flags = append(flags, "-I$(top_builddir)")
		} else {
			flags = append(flags, "-I$(top_builddir)/"+d)
		}
	}
	return strings.Join(flags, " ")
}

var canonicalVarRE = regexp.MustCompile(`^(?:EXTRA_|nodist_|dist_)?(.+)_(SOURCES|LDADD|LIBADD|LDFLAGS|DEPENDENCIES|CFLAGS|CPPFLAGS|CXXFLAGS|CCASFLAGS|LINK|AR|SHORTNAME)$`)

var nonCanonicalPrefixes = map[string]bool{
	"AM":            true,
	"BUILT":         true,
	"CONFIG_STATUS": true,
	"CONFIGURE":     true,
	"EXTRA":         true,
}

// checkCanonicalVariables flags per-target variables whose prefix matches
// no program or library, which usually means a misspelt name.
func (g *generator) checkCanonicalVariables() {
	for _, name := range g.file.VarNames() {
		m := canonicalVarRE.FindStringSubmatch(name)
		if m == nil || nonCanonicalPrefixes[m[1]] || g.canonical[m[1]] {
			continue
		}
		g.diags.Warnf(g.file.Var(name).Pos(), diag.CategorySyntax,
			"variable '%s' is defined but no program or library has '%s' as canonical name (possible typo)",
			name, m[1])
	}
}
