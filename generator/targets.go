package generator

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-automake/automake"
	"github.com/go-automake/automake/diag"
	"github.com/go-automake/automake/options"
)

// commonFiles are distributed whenever they exist next to the
// Makefile.am.
var commonFiles = []string{
	"ABOUT-GNU", "ABOUT-NLS", "AUTHORS", "BACKLOG", "COPYING", "COPYING.DOC",
	"COPYING.LIB", "COPYING.LESSER", "ChangeLog", "INSTALL", "NEWS", "README",
	"THANKS", "TODO",
}

var distFormats = []struct {
	name, suffix string
}{
	{options.DistGzip, "tar.gz"},
	{options.DistBzip2, "tar.bz2"},
	{options.DistLzip, "tar.lz"},
	{options.DistXz, "tar.xz"},
	{options.DistZstd, "tar.zst"},
	{options.DistZip, "zip"},
}

// handleSubdirs writes the recursion over SUBDIRS.
func (g *generator) handleSubdirs() error {
	if !g.recursive {
		return nil
	}
	for _, w := range g.file.Words("SUBDIRS", g.diags) {
		d := w.Text
		if d == "." || strings.ContainsAny(d, "$@") || g.in.FS == nil {
			continue
		}
		if !g.exists(path.Join(g.dir, d)) {
			g.diags.Errorf(w.Pos, "required directory ./%s does not exist", path.Join(g.dir, d))
		}
	}
	if !g.file.IsDefined("DIST_SUBDIRS") {
		if g.file.Var("SUBDIRS").IsConditional() {
			g.out.variable("DIST_SUBDIRS", strings.Join(g.union("SUBDIRS"), " "))
		} else {
			g.out.variable("DIST_SUBDIRS", "$(SUBDIRS)")
		}
	}
	text, err := expandTemplate("subdirs", nil, nil)
	if err != nil {
		return err
	}
	g.out.text(text)
	g.out.addMake("$(am__recursive_targets)")
	g.out.addPhony("$(am__recursive_targets)")
	return nil
}

// handleTests writes the serial test harness.
func (g *generator) handleTests() error {
	v := g.file.Var("TESTS")
	if v == nil {
		return nil
	}
	if g.opts.ParallelTests {
		g.diags.Warnf(v.Pos(), diag.CategoryUnsupported,
			"the parallel test harness is not supported; tests run with the serial harness")
	}
	text, err := expandTemplate("check", nil, Flags{"COLOR": g.opts.ColorTests})
	if err != nil {
		return err
	}
	g.out.text(text)
	g.out.addPhony("check-TESTS")
	return nil
}

// alphaRelease reports whether the package version marks an alpha
// release. Under gnits a version outside the Gnits scheme is an error.
func (g *generator) alphaRelease() bool {
	alpha, ok := automake.GnitsVersion(g.trace.Version)
	if !ok && g.opts.Strictness == automake.Gnits {
		g.diags.Errorf(g.trace.MacroPos("AC_INIT"), "version '%s' doesn't follow Gnits standards", g.trace.Version)
	}
	return alpha
}

// handleDist writes DIST_COMMON, the distdir rule and, at the top, the
// archive rules.
func (g *generator) handleDist() error {
	common := []string{
		"$(srcdir)/" + path.Base(g.makefileIn()),
		"$(srcdir)/" + path.Base(g.makefileAm()),
	}
	common = append(common, g.file.Includes...)
	for _, f := range commonFiles {
		if g.exists(path.Join(g.dir, f)) {
			common = append(common, "$(srcdir)/"+f)
		}
	}
	common = append(common, g.distCommon...)
	if g.top && g.opts.ReadmeAlpha && g.alphaRelease() && g.exists("README-alpha") {
		common = append(common, "$(srcdir)/README-alpha")
	}
	if g.top {
		common = append(common, "$(top_srcdir)/configure", "$(am__configure_deps)")
		for _, f := range g.in.AuxDist {
			common = append(common, "$(top_srcdir)/"+f)
		}
	}
	g.out.variable("DIST_COMMON", strings.Join(dedupe(common), " "))
	g.out.variable("SOURCES", strings.Join(g.sources, " "))
	g.out.variable("DIST_SOURCES", strings.Join(g.distSources, " "))
	if g.opts.NoDist {
		return nil
	}

	limit := g.opts.FilenameLengthMax
	text, err := expandTemplate("distdir", Keys{
		"FILENAME_FILTER": fmt.Sprintf(`.\{%d\}`, limit+3),
	}, Flags{
		"TOPDIR_P":        g.top,
		"SUBDIRS":         g.recursive,
		"CHECK_NEWS":      g.top && g.opts.CheckNews,
		"DIST_HOOK":       g.file.HasTarget("dist-hook"),
		"FILENAME_FILTER": limit > 0,
	})
	if err != nil {
		return err
	}
	g.out.text(text)
	g.out.addPhony("distdir", "distdir-am")
	g.out.addMake("distdir")
	if !g.top {
		return nil
	}

	var archives, targets []string
	flags := Flags{}
	for _, f := range distFormats {
		on := g.opts.Dist(f.name)
		flags[strings.ToUpper(f.name)] = on
		if on {
			archives = append(archives, "$(distdir)."+f.suffix)
			targets = append(targets, "dist-"+f.name)
		}
	}
	tar, untar := `$${TAR-tar} chof - "$$tardir"`, `$${TAR-tar} xf -`
	if g.opts.TarFormat != options.TarV7 {
		tar, untar = "@am__tar@", "@am__untar@"
	}
	text, err = expandTemplate("dist-targets", Keys{
		"DIST_ARCHIVES": strings.Join(archives, " "),
		"DIST_TARGETS":  strings.Join(targets, " "),
		"AM_TAR":        tar,
		"AM_UNTAR":      untar,
	}, flags)
	if err != nil {
		return err
	}
	g.out.text(text)
	g.out.addPhony(targets...)
	g.out.addPhony("dist", "dist-all", "distcheck", "distuninstallcheck", "distcleancheck")
	g.out.addMake("dist", "dist-all", "distcheck")
	return nil
}

// handOff returns the target a user-facing standard target delegates to.
func (g *generator) handOff(name string) string {
	if g.recursive {
		return name + "-recursive"
	}
	return name + "-am"
}

// withLocal appends the user's name-local target when there is one.
func (g *generator) withLocal(name string, deps []string) []string {
	if g.file.HasTarget(name + "-local") {
		deps = append(deps, name+"-local")
		g.out.addPhony(name + "-local")
	}
	return deps
}

// hook returns the recipe running the user's hook target after name.
func (g *generator) hook(target, hook string) []string {
	if !g.file.HasTarget(hook) {
		return nil
	}
	g.out.addMake(target)
	g.out.addPhony(hook)
	return []string{"@$(NORMAL_INSTALL)", "$(MAKE) $(AM_MAKEFLAGS) " + hook}
}

func cleanFiles(name string) string {
	return fmt.Sprintf(`-test -z "$(%s)" || rm -f $(%s)`, name, name)
}

// handleStandardTargets writes the GNU standard targets.
func (g *generator) handleStandardTargets() error {
	var built []string
	if g.file.IsDefined("BUILT_SOURCES") {
		built = []string{"$(BUILT_SOURCES)"}
	}

	all := append([]string{"Makefile"}, g.deps["all-am"]...)
	for _, h := range g.trace.HeadersIn(g.dir) {
		all = append(all, path.Base(h.Output))
	}
	g.out.rule("all-am", strings.Join(g.withLocal("all", all), " "))

	g.out.blank()
	g.topTarget("check", built)
	var recipe []string
	if len(g.checkBuild) > 0 {
		recipe = append(recipe, "$(MAKE) $(AM_MAKEFLAGS) "+strings.Join(g.checkBuild, " "))
	}
	var checks []string
	if g.file.IsDefined("TESTS") {
		checks = append(checks, "check-TESTS")
	}
	checks = g.withLocal("check", checks)
	if len(checks) > 0 {
		recipe = append(recipe, "$(MAKE) $(AM_MAKEFLAGS) "+strings.Join(checks, " "))
	}
	g.out.rule("check-am", "all-am", recipe...)
	if len(recipe) > 0 {
		g.out.addMake("check-am")
	}

	g.topTarget("installdirs", nil)
	recipe = nil
	if len(g.installdirs) > 0 {
		recipe = []string{
			"for dir in " + strings.Join(g.installdirs, " ") + "; do \\",
			`  test -z "$$dir" || $(MKDIR_P) "$$dir"; \`,
			"done",
		}
	}
	g.out.rule("installdirs-am", "", recipe...)

	g.topTarget("install", built)
	g.topTarget("install-exec", nil)
	g.topTarget("install-data", nil)
	g.topTarget("uninstall", nil)
	g.out.blank()
	g.out.rule("install-am", "all-am", "@$(MAKE) $(AM_MAKEFLAGS) install-exec-am install-data-am")
	g.out.addMake("install-am")
	g.out.blank()
	g.topTarget("installcheck", nil)
	g.out.rule("install-strip", "",
		"if test -z '$(STRIP)'; then \\",
		`  $(MAKE) $(AM_MAKEFLAGS) INSTALL_PROGRAM="$(INSTALL_STRIP_PROGRAM)" \`,
		`    install_sh_PROGRAM="$(INSTALL_STRIP_PROGRAM)" INSTALL_STRIP_FLAG=-s \`,
		`      install; \`,
		"else \\",
		`  $(MAKE) $(AM_MAKEFLAGS) INSTALL_PROGRAM="$(INSTALL_STRIP_PROGRAM)" \`,
		`    install_sh_PROGRAM="$(INSTALL_STRIP_PROGRAM)" INSTALL_STRIP_FLAG=-s \`,
		`    "INSTALL_PROGRAM_ENV=STRIPPROG='$(STRIP)'" install; \`,
		"fi")
	g.out.addMake("install-strip")

	g.out.blank()
	g.handleCleanTargets()

	for _, t := range []string{"dvi", "html", "info", "pdf", "ps"} {
		g.out.blank()
		g.topTarget(t, nil)
		g.out.blank()
		g.out.rule(t+"-am", strings.Join(g.withLocal(t, nil), " "))
		g.out.addPhony(t + "-am")
	}

	g.out.blank()
	g.out.rule("install-data-am", strings.Join(g.withLocal("install-data", g.deps["install-data-am"]), " "),
		g.hook("install-data-am", "install-data-hook")...)
	g.out.blank()
	g.out.rule("install-exec-am", strings.Join(g.withLocal("install-exec", g.deps["install-exec-am"]), " "),
		g.hook("install-exec-am", "install-exec-hook")...)
	g.out.blank()
	g.out.rule("installcheck-am", strings.Join(g.withLocal("installcheck", g.deps["installcheck-am"]), " "))
	g.out.blank()
	g.out.rule("uninstall-am", strings.Join(g.withLocal("uninstall", g.deps["uninstall-am"]), " "),
		g.hook("uninstall-am", "uninstall-hook")...)

	g.out.addPhony("all-am", "check-am", "install-am", "install-data-am", "install-exec-am",
		"install-strip", "installcheck-am", "installdirs-am", "uninstall-am")
	return nil
}

func (g *generator) handleCleanTargets() {
	var recipe []string
	if g.file.IsDefined("MOSTLYCLEANFILES") {
		recipe = append(recipe, cleanFiles("MOSTLYCLEANFILES"))
	}
	g.out.rule("mostlyclean-generic", "", recipe...)
	g.out.blank()

	recipe = nil
	if g.file.IsDefined("CLEANFILES") {
		recipe = append(recipe, cleanFiles("CLEANFILES"))
	}
	g.out.rule("clean-generic", "", recipe...)
	g.out.blank()

	recipe = []string{
		cleanFiles("CONFIG_CLEAN_FILES"),
		`-test . = "$(srcdir)" || test -z "$(CONFIG_CLEAN_VPATH_FILES)" || rm -f $(CONFIG_CLEAN_VPATH_FILES)`,
	}
	for _, d := range g.dirstampOrder {
		recipe = append(recipe, "-rm -f "+d+"/$(am__dirstamp)")
	}
	if g.file.IsDefined("DISTCLEANFILES") {
		recipe = append(recipe, cleanFiles("DISTCLEANFILES"))
	}
	g.out.rule("distclean-generic", "", recipe...)
	g.out.blank()

	recipe = []string{
		`@echo "This command is intended for maintainers to use"`,
		`@echo "it deletes files that may require special tools to rebuild."`,
	}
	if g.file.IsDefined("BUILT_SOURCES") {
		recipe = append(recipe, cleanFiles("BUILT_SOURCES"))
	}
	if g.file.IsDefined("MAINTAINERCLEANFILES") {
		recipe = append(recipe, cleanFiles("MAINTAINERCLEANFILES"))
	}
	g.out.rule("maintainer-clean-generic", "", recipe...)

	g.out.blank()
	g.topTarget("clean", nil)
	g.out.blank()
	clean := append([]string{"clean-generic"}, g.deps["clean-am"]...)
	clean = append(g.withLocal("clean", clean), "mostlyclean-am")
	g.out.rule("clean-am", strings.Join(clean, " "))

	var depfiles []string
	for _, f := range g.depfiles {
		depfiles = append(depfiles, "-rm -f "+f)
	}
	var top []string
	if g.top {
		top = []string{"-rm -f $(am__CONFIG_DISTCLEAN_FILES)"}
	}

	g.out.blank()
	recipe = append(append(append([]string(nil), top...), depfiles...), "-rm -f Makefile")
	g.out.rule("distclean", g.handOff("distclean"), recipe...)
	distclean := append([]string{"clean-am"}, g.deps["distclean-am"]...)
	distclean = g.withLocal("distclean", append(distclean, "distclean-generic"))
	g.out.rule("distclean-am", strings.Join(distclean, " "))

	g.out.blank()
	recipe = append([]string(nil), top...)
	if g.top {
		recipe = append(recipe, "-rm -rf $(top_srcdir)/autom4te.cache")
	}
	recipe = append(append(recipe, depfiles...), "-rm -f Makefile")
	g.out.rule("maintainer-clean", g.handOff("maintainer-clean"), recipe...)
	g.out.rule("maintainer-clean-am", strings.Join(g.withLocal("maintainer-clean", []string{"distclean-am", "maintainer-clean-generic"}), " "))

	g.out.blank()
	g.topTarget("mostlyclean", nil)
	g.out.blank()
	mostly := append(append([]string(nil), g.deps["mostlyclean-am"]...), "mostlyclean-generic")
	g.out.rule("mostlyclean-am", strings.Join(g.withLocal("mostlyclean", mostly), " "))

	g.out.addPhony("clean-am", "clean-generic", "distclean", "distclean-am", "distclean-generic",
		"maintainer-clean", "maintainer-clean-am", "maintainer-clean-generic",
		"mostlyclean-am", "mostlyclean-generic")
}
