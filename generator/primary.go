package generator

import (
	"regexp"
	"sort"
	"strings"

	"github.com/go-automake/automake/diag"
)

var primaryRE = regexp.MustCompile(`^((?:dist_|nodist_|nobase_|notrans_)*)([A-Za-z0-9_]+?)_(PROGRAMS|LIBRARIES|SCRIPTS|DATA|HEADERS|MANS|LTLIBRARIES|TEXINFOS|LISP|PYTHON|JAVA)$`)

// unsupportedPrimaries are recognised so that they can be rejected with a
// clear message instead of passing through silently.
var unsupportedPrimaries = map[string]bool{
	"LTLIBRARIES": true,
	"TEXINFOS":    true,
	"LISP":        true,
	"PYTHON":      true,
	"JAVA":        true,
}

// standardDirs are the installation directories known without a user
// definition. A standard directory may only be used with the primaries
// that list it in legitimateDirs.
var standardDirs = map[string]bool{
	"bin": true, "sbin": true, "libexec": true, "pkglibexec": true,
	"data": true, "pkgdata": true, "sysconf": true, "sharedstate": true,
	"localstate": true, "runstate": true, "lib": true, "pkglib": true,
	"include": true, "pkginclude": true, "oldinclude": true, "info": true,
	"man": true, "doc": true, "dvi": true, "html": true, "pdf": true,
	"ps": true, "lisp": true, "locale": true,
	"man0": true, "man1": true, "man2": true, "man3": true, "man4": true,
	"man5": true, "man6": true, "man7": true, "man8": true, "man9": true,
	"mann": true, "manl": true,
}

var legitimateDirs = map[string][]string{
	"PROGRAMS":  {"bin", "sbin", "libexec", "pkglibexec"},
	"LIBRARIES": {"lib", "pkglib"},
	"SCRIPTS":   {"bin", "sbin", "libexec", "pkglibexec", "pkgdata"},
	"DATA": {"data", "pkgdata", "sysconf", "sharedstate", "localstate",
		"runstate", "doc", "dvi", "html", "pdf", "ps", "lisp", "locale"},
	"HEADERS": {"include", "pkginclude", "oldinclude"},
	"MANS": {"man", "man0", "man1", "man2", "man3", "man4", "man5", "man6",
		"man7", "man8", "man9", "mann", "manl"},
}

// pseudoDirs need no directory variable: their files are never installed.
var pseudoDirs = map[string]bool{"noinst": true, "check": true, "EXTRA": true}

var execDirRE = regexp.MustCompile(`^(bin|sbin|libexec|sysconf|localstate|lib|pkglib|.*exec.*)$`)

// primaryVar is a variable such as nobase_dist_pkgdata_DATA.
type primaryVar struct {
	name    string
	prefix  string
	dir     string
	primary string
	pos     diag.Pos
}

// parsePrimary splits a variable name into prefixes, directory and
// primary.
func parsePrimary(name string) (primaryVar, bool) {
	m := primaryRE.FindStringSubmatch(name)
	if m == nil {
		return primaryVar{}, false
	}
	return primaryVar{name: name, prefix: m[1], dir: m[2], primary: m[3]}, true
}

func (pv primaryVar) has(prefix string) bool {
	return strings.Contains("_"+pv.prefix, "_"+prefix+"_")
}

// ref returns the make reference to the variable.
func (pv primaryVar) ref() string {
	return "$(" + pv.name + ")"
}

// target returns the suffix of the per-directory rules, as in
// install-dist_binSCRIPTS.
func (pv primaryVar) target() string {
	return pv.prefix + pv.dir + pv.primary
}

// installs reports whether the files are copied to an installation
// directory.
func (pv primaryVar) installs() bool {
	return !pseudoDirs[pv.dir]
}

// distributed reports whether the files go into the distribution. Headers
// are sources and are distributed unless nodist_ says otherwise; other
// installable files only with dist_.
func (pv primaryVar) distributed() bool {
	if pv.has("nodist") {
		return false
	}
	if pv.has("dist") {
		return true
	}
	return pv.primary == "HEADERS"
}

// scanPrimaries collects the primary variables of the file and checks
// their directories.
func (g *generator) scanPrimaries() {
	g.primaries = make(map[string][]primaryVar)
	for _, name := range g.file.VarNames() {
		pv, ok := parsePrimary(name)
		if !ok {
			continue
		}
		pv.pos = g.file.Var(name).Pos()
		if unsupportedPrimaries[pv.primary] {
			g.diags.Warnf(pv.pos, diag.CategoryUnsupported, "'%s': the %s primary is not supported", name, pv.primary)
			continue
		}
		if !g.checkDir(pv) {
			continue
		}
		g.primaries[pv.primary] = append(g.primaries[pv.primary], pv)
	}
}

func (g *generator) checkDir(pv primaryVar) bool {
	if pseudoDirs[pv.dir] {
		if pv.dir == "EXTRA" && pv.primary != "PROGRAMS" && pv.primary != "LIBRARIES" {
			return false
		}
		return true
	}
	if standardDirs[pv.dir] {
		for _, d := range legitimateDirs[pv.primary] {
			if d == pv.dir {
				return true
			}
		}
		g.diags.Errorf(pv.pos, "'%sdir' is not a legitimate directory for '%s'", pv.dir, pv.primary)
		return false
	}
	if !g.dirDefined(pv.dir) {
		g.diags.Errorf(pv.pos, "'%s' is used but '%sdir' is undefined", pv.name, pv.dir)
		return false
	}
	return true
}

// dirDefined reports whether fooDIR exists for a custom directory foo.
func (g *generator) dirDefined(dir string) bool {
	name := dir + "dir"
	if g.file.IsDefined(name) {
		return true
	}
	_, ok := g.trace.Substs[name]
	return ok
}

// addInstall wires the install and uninstall rules of one directory into
// the standard targets.
func (g *generator) addInstall(dir, install, uninstall string) {
	if execDirRE.MatchString(dir) {
		g.dep("install-exec-am", install)
	} else {
		g.dep("install-data-am", install)
	}
	g.dep("uninstall-am", uninstall)
	g.addInstallDir(dir)
	g.out.addPhony(install, uninstall)
}

func (g *generator) addInstallDir(dir string) {
	d := `"$(DESTDIR)$(` + dir + `dir)"`
	for _, have := range g.installdirs {
		if have == d {
			return
		}
	}
	g.installdirs = append(g.installdirs, d)
}

// handleInstallable writes the rules for SCRIPTS, DATA and HEADERS.
func (g *generator) handleInstallable(primary, install string) error {
	var refs []string
	for _, pv := range g.primaries[primary] {
		if pv.distributed() {
			g.distCommon = append(g.distCommon, pv.ref())
		}
		switch pv.dir {
		case "EXTRA":
			continue
		case "check":
			g.checkBuild = append(g.checkBuild, pv.ref())
			continue
		}
		refs = append(refs, pv.ref())
		if !pv.installs() {
			continue
		}

		std := primary == "SCRIPTS" && g.opts.StdOptions
		text, err := expandTemplate("data", Keys{
			"DIR":     pv.prefix + pv.dir,
			"NDIR":    pv.dir,
			"PRIMARY": primary,
			"INSTALL": install,
		}, Flags{
			"BASE":       !pv.has("nobase"),
			"TRANSFORM":  primary == "SCRIPTS",
			"STDOPTIONS": std,
		})
		if err != nil {
			return err
		}
		g.out.text(text)
		g.addInstall(pv.dir, "install-"+pv.target(), "uninstall-"+pv.target())
		if std {
			g.dep("installcheck-am", "installcheck-"+pv.target())
			g.out.addPhony("installcheck-" + pv.target())
		}
	}
	if len(refs) > 0 {
		g.out.variable(primary, strings.Join(refs, " "))
		g.dep("all-am", "$("+primary+")")
	}
	return nil
}

// handleMans writes one pair of install rules per manual section.
func (g *generator) handleMans() error {
	type section struct {
		list1, list2 []string
	}
	sections := make(map[string]*section)
	get := func(s string) *section {
		if sections[s] == nil {
			sections[s] = &section{}
		}
		return sections[s]
	}

	var refs []string
	for _, pv := range g.primaries["MANS"] {
		if pv.distributed() {
			g.distCommon = append(g.distCommon, pv.ref())
		}
		refs = append(refs, pv.ref())
		if pv.dir != "man" {
			s := get(strings.TrimPrefix(pv.dir, "man"))
			s.list1 = append(s.list1, pv.ref())
			continue
		}
		found := false
		seen := make(map[string]bool)
		for _, w := range g.file.Words(pv.name, g.diags) {
			s, ok := manSection(w.Text)
			if !ok || seen[s] {
				continue
			}
			seen[s] = true
			found = true
			get(s).list2 = append(get(s).list2, pv.ref())
		}
		if !found {
			get("1").list2 = append(get("1").list2, pv.ref())
		}
	}
	if len(refs) == 0 {
		return nil
	}
	g.out.variable("MANS", strings.Join(refs, " "))
	g.dep("all-am", "$(MANS)")

	names := make([]string, 0, len(sections))
	for s := range sections {
		names = append(names, s)
	}
	sort.Strings(names)

	var installs, uninstalls []string
	for _, s := range names {
		sec := sections[s]
		g.out.variable("man"+s+"dir", "$(mandir)/man"+s)
		list1 := strings.Join(sec.list1, " ")
		list2 := strings.Join(sec.list2, " ")
		text, err := expandTemplate("mans", Keys{
			"SECTION": s,
			"LIST1":   list1,
			"LIST2":   list2,
			"DEPS":    strings.TrimSpace(list1 + " " + list2),
		}, nil)
		if err != nil {
			return err
		}
		g.out.text(text)
		installs = append(installs, "install-man"+s)
		uninstalls = append(uninstalls, "uninstall-man"+s)
		g.addInstallDir("man" + s)
	}
	g.out.rule("install-man", strings.Join(installs, " "))
	g.out.rule("uninstall-man", strings.Join(uninstalls, " "))
	g.out.addPhony("install-man", "uninstall-man")
	g.out.addPhony(installs...)
	g.out.addPhony(uninstalls...)
	if !g.opts.NoInstallMan {
		g.dep("install-data-am", "install-man")
		g.dep("uninstall-am", "uninstall-man")
	}
	return nil
}

// manSection returns the section a page such as foo.3x installs into.
func manSection(file string) (string, bool) {
	if strings.ContainsAny(file, "$@") {
		return "", false
	}
	i := strings.LastIndexByte(file, '.')
	if i < 0 || i == len(file)-1 {
		return "", false
	}
	c := file[i+1]
	if ('0' <= c && c <= '9') || c == 'l' || c == 'n' {
		return string(c), true
	}
	return "", false
}
