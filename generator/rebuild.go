package generator

import (
	"fmt"
	"path"
	"strings"
)

func (g *generator) maintainerMode() string {
	if g.trace.MaintainerMode {
		return "@MAINTAINER_MODE_TRUE@ "
	}
	return ""
}

// handleRebuild writes the rules that regenerate Makefile.in, Makefile and,
// at the top, configure and config.status when their inputs change.
func (g *generator) handleRebuild() error {
	deps := []string{"$(top_srcdir)/" + path.Base(g.trace.Path)}
	if g.exists("acinclude.m4") {
		deps = append(deps, "$(top_srcdir)/acinclude.m4")
	}
	regen := g.exists("aclocal.m4")
	aclocal := ""
	if regen {
		aclocal = " $(ACLOCAL_M4)"
	}

	var sources strings.Builder
	for _, inc := range g.file.Includes {
		sources.WriteString(inc)
		sources.WriteString(" ")
	}
	statusArg := "$(subdir)/$@"
	if g.top {
		statusArg = "$@"
	}
	depfiles := ""
	if g.tracking() && (len(g.primaries["PROGRAMS"]) > 0 || len(g.primaries["LIBRARIES"]) > 0) {
		depfiles = " $(am__maybe_remake_depfiles)"
	}

	text, err := expandTemplate("configure", Keys{
		"ACLOCAL_M4_DEPS":     strings.Join(deps, " "),
		"ACLOCAL_M4_DEP":      aclocal,
		"MAKEFILE_IN":         path.Base(g.makefileIn()),
		"MAINTAINER_MODE":     g.maintainerMode(),
		"MAKEFILE_AM":         path.Base(g.makefileAm()),
		"MAKEFILE_AM_SOURCES": sources.String(),
		"STRICTNESS":          g.opts.Strictness.String(),
		"MAKEFILE_PATH":       g.in.Makefile.Output,
		"MAKEFILE":            path.Base(g.in.Makefile.Output),
		"CONFIG_STATUS_ARG":   statusArg,
		"DEPFILES":            depfiles,
	}, Flags{"TOPDIR_P": g.top, "REGEN_ACLOCAL_M4": regen})
	if err != nil {
		return err
	}
	g.out.text(text)
	if g.top {
		g.out.addPhony("am--refresh")
	}
	return nil
}

// handleConfigHeaders writes the stamp rules of the config headers that
// live in this directory. Stamps are numbered across the whole package.
func (g *generator) handleConfigHeaders() error {
	var all []string
	for i, h := range g.trace.ConfigHeaders {
		all = append(all, "$(top_builddir)/"+h.Output)
		if h.Dir() != g.dir || len(h.Inputs) == 0 {
			continue
		}
		stamp := fmt.Sprintf("stamp-h%d", i+1)
		in := h.Inputs[0]
		deps := make([]string, len(h.Inputs))
		for j, input := range h.Inputs {
			deps[j] = g.srcPath(input)
		}
		autoheader := i == 0 && path.Dir(in) == g.dir

		text, err := expandTemplate("header", Keys{
			"CONFIG_H":        path.Base(h.Output),
			"STAMP":           stamp,
			"CONFIG_H_DEPS":   strings.Join(deps, " "),
			"CONFIG_H_PATH":   h.Output,
			"CONFIG_H_IN":     path.Base(in),
			"MAINTAINER_MODE": g.maintainerMode(),
		}, Flags{"AUTOHEADER": autoheader})
		if err != nil {
			return err
		}
		g.out.text(text)
		g.hdrClean = append(g.hdrClean, path.Base(h.Output), stamp)

		for _, input := range h.Inputs {
			if path.Dir(input) != g.dir {
				continue
			}
			if (autoheader && input == in) || g.exists(input) {
				g.distCommon = append(g.distCommon, g.srcPath(input))
			}
		}
	}
	if len(all) > 0 {
		g.out.variable("CONFIG_HEADER", strings.Join(all, " "))
	}
	if len(g.hdrClean) > 0 {
		g.out.rule("distclean-hdr", "", "-rm -f "+strings.Join(g.hdrClean, " "))
		g.out.addPhony("distclean-hdr")
		g.dep("distclean-am", "distclean-hdr")
	}
	return nil
}

// dirHasMakefile reports whether dir has a Makefile generated from a
// Makefile.am.
func (g *generator) dirHasMakefile(dir string) bool {
	for out := range g.in.Makefiles {
		if path.Dir(out) == dir {
			return true
		}
	}
	return false
}

// handleConfigFiles writes rebuild rules for the other files config.status
// creates here. The top-level Makefile also takes the files of directories
// that have no Makefile.am.
func (g *generator) handleConfigFiles() error {
	outputs := make(map[string]bool)
	for _, cf := range g.trace.ConfigFiles {
		outputs[cf.Output] = true
	}

	var clean []string
	for _, cf := range g.trace.ConfigFiles {
		if g.in.Makefiles[cf.Output] || cf.Output == g.in.Makefile.Output {
			continue
		}
		d := cf.Dir()
		if d != g.dir && !(g.top && !g.dirHasMakefile(d)) {
			continue
		}
		target := cf.Output
		if !g.top {
			target = strings.TrimPrefix(cf.Output, g.dir+"/")
		}

		var deps []string
		for _, input := range cf.Inputs {
			if outputs[input] {
				deps = append(deps, "$(top_builddir)/"+input)
				continue
			}
			deps = append(deps, g.srcPath(input))
			if g.exists(input) {
				g.distCommon = append(g.distCommon, g.srcPath(input))
			}
		}
		text, err := expandTemplate("config-file", Keys{
			"FILE":        target,
			"DEPS":        strings.Join(deps, " "),
			"CONFIG_FILE": cf.Output,
		}, nil)
		if err != nil {
			return err
		}
		g.out.text(text)
		clean = append(clean, target)
	}
	g.out.variable("CONFIG_CLEAN_FILES", strings.Join(clean, " "))
	g.out.variable("CONFIG_CLEAN_VPATH_FILES", "")
	return nil
}
