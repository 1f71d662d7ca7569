package autoconf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-automake/automake/diag"
	"github.com/go-automake/automake/internal/dcontext"
)

// Programs that configure.ac may check for and that Makefile.in rules
// depend on.
const (
	ProgCC     = "CC"
	ProgCXX    = "CXX"
	ProgCCAS   = "CCAS"
	ProgRANLIB = "RANLIB"
)

// ConfigFile is a file config.status creates from one or more templates.
type ConfigFile struct {
	Output string   `yaml:"output"`
	Inputs []string `yaml:"inputs"`
	Pos    diag.Pos `yaml:"pos"`
}

// Dir returns the directory of the output, "." at top level.
func (c ConfigFile) Dir() string {
	return path.Dir(c.Output)
}

// parseConfigFile splits "out:in1:in2" and applies the default input
// "out.in".
func parseConfigFile(spec string, pos diag.Pos) ConfigFile {
	parts := strings.Split(spec, ":")
	cf := ConfigFile{Output: parts[0], Pos: pos}
	if len(parts) > 1 {
		cf.Inputs = parts[1:]
	} else {
		cf.Inputs = []string{parts[0] + ".in"}
	}
	return cf
}

// Trace is what automake needs to know about a configure.ac.
type Trace struct {
	// Path is the configure.ac as named in diagnostics.
	Path string `yaml:"path"`

	Package   string `yaml:"package,omitempty"`
	Version   string `yaml:"version,omitempty"`
	BugReport string `yaml:"bugreport,omitempty"`
	TarName   string `yaml:"tarname,omitempty"`
	URL       string `yaml:"url,omitempty"`

	// InitAutomake is set when AM_INIT_AUTOMAKE is called.
	InitAutomake bool `yaml:"initautomake"`

	// AutomakeOptions are the options given to AM_INIT_AUTOMAKE.
	AutomakeOptions []string `yaml:"automakeoptions,omitempty"`

	ConfigFiles   []ConfigFile `yaml:"configfiles,omitempty"`
	ConfigHeaders []ConfigFile `yaml:"configheaders,omitempty"`

	// Substs maps every AC_SUBST variable to its first position.
	Substs map[string]diag.Pos `yaml:"substs,omitempty"`

	// Conditionals maps every AM_CONDITIONAL name to its first position.
	Conditionals map[string]diag.Pos `yaml:"conditionals,omitempty"`

	// AuxDir is the AC_CONFIG_AUX_DIR argument, "." when unset.
	AuxDir string `yaml:"auxdir"`

	// AuxFiles are the files requested with AC_REQUIRE_AUX_FILE.
	AuxFiles []string `yaml:"auxfiles,omitempty"`

	// Programs maps ProgCC and friends to the macro that checks for them.
	Programs map[string]diag.Pos `yaml:"programs,omitempty"`

	MaintainerMode bool `yaml:"maintainermode,omitempty"`
	SilentRules    bool `yaml:"silentrules,omitempty"`

	// Macros holds the first position of every recognised macro.
	Macros map[string]diag.Pos `yaml:"-"`
}

func newTrace(name string) *Trace {
	return &Trace{
		Path:         name,
		AuxDir:       ".",
		Substs:       make(map[string]diag.Pos),
		Conditionals: make(map[string]diag.Pos),
		Programs:     make(map[string]diag.Pos),
		Macros:       make(map[string]diag.Pos),
	}
}

// macroHandler applies one macro call to the trace.
type macroHandler func(t *Trace, args []string, pos diag.Pos, diags *diag.Buffer)

var handlers = map[string]macroHandler{
	"AC_INIT":             acInit,
	"AM_INIT_AUTOMAKE":    amInitAutomake,
	"AC_CONFIG_FILES":     acConfigFiles,
	"AC_OUTPUT":           acOutput,
	"AC_SUBST":            acSubst,
	"AC_SUBST_FILE":       acSubst,
	"AM_CONDITIONAL":      amConditional,
	"AC_CONFIG_HEADERS":   acConfigHeaders,
	"AC_CONFIG_HEADER":    acConfigHeaders,
	"AM_CONFIG_HEADER":    amConfigHeader,
	"AC_CONFIG_AUX_DIR":   acConfigAuxDir,
	"AC_REQUIRE_AUX_FILE": acRequireAuxFile,
	"AC_PROG_CC":          program(ProgCC),
	"AC_PROG_CXX":         program(ProgCXX),
	"AC_PROG_RANLIB":      program(ProgRANLIB),
	"AM_PROG_AS":          program(ProgCCAS),
	"AM_MAINTAINER_MODE":  amMaintainerMode,
	"AM_SILENT_RULES":     amSilentRules,
}

var knownMacros = func() map[string]bool {
	m := make(map[string]bool, len(handlers))
	for name := range handlers {
		m[name] = true
	}
	return m
}()

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func acInit(t *Trace, args []string, pos diag.Pos, diags *diag.Buffer) {
	// The one-argument form names a unique source file, not the package.
	if len(args) < 2 {
		return
	}
	t.Package = arg(args, 0)
	t.Version = arg(args, 1)
	t.BugReport = arg(args, 2)
	t.TarName = arg(args, 3)
	t.URL = arg(args, 4)
	if t.TarName == "" {
		t.TarName = defaultTarName(t.Package)
	}
}

// defaultTarName derives the tarname the way AC_INIT does: drop a leading
// "GNU ", lowercase, and map anything outside [a-z0-9_] to '-'.
func defaultTarName(pkg string) string {
	pkg = strings.TrimPrefix(pkg, "GNU ")
	pkg = strings.ToLower(pkg)
	return strings.Map(func(r rune) rune {
		switch {
		case 'a' <= r && r <= 'z', '0' <= r && r <= '9', r == '_':
			return r
		}
		return '-'
	}, pkg)
}

func amInitAutomake(t *Trace, args []string, pos diag.Pos, diags *diag.Buffer) {
	t.InitAutomake = true
	if len(args) >= 2 && args[1] != "" {
		diags.Warnf(pos, diag.CategoryObsolete, "AM_INIT_AUTOMAKE: two- and three-arguments forms are deprecated")
		if t.Package == "" {
			t.Package = args[0]
			t.TarName = args[0]
		}
		if t.Version == "" {
			t.Version = args[1]
		}
		return
	}
	t.AutomakeOptions = append(t.AutomakeOptions, strings.Fields(arg(args, 0))...)
}

func acConfigFiles(t *Trace, args []string, pos diag.Pos, diags *diag.Buffer) {
	for _, spec := range strings.Fields(arg(args, 0)) {
		t.ConfigFiles = append(t.ConfigFiles, parseConfigFile(spec, pos))
	}
}

func acOutput(t *Trace, args []string, pos diag.Pos, diags *diag.Buffer) {
	if strings.TrimSpace(arg(args, 0)) == "" {
		return
	}
	diags.Warnf(pos, diag.CategoryObsolete, "AC_OUTPUT should be used without arguments; use AC_CONFIG_FILES instead")
	acConfigFiles(t, args, pos, diags)
}

func acSubst(t *Trace, args []string, pos diag.Pos, diags *diag.Buffer) {
	name := arg(args, 0)
	if name == "" {
		return
	}
	if _, ok := t.Substs[name]; !ok {
		t.Substs[name] = pos
	}
}

func amConditional(t *Trace, args []string, pos diag.Pos, diags *diag.Buffer) {
	name := arg(args, 0)
	if name == "" {
		diags.Errorf(pos, "AM_CONDITIONAL requires a conditional name")
		return
	}
	if name == "TRUE" || name == "FALSE" {
		diags.Errorf(pos, "%s is a reserved conditional name", name)
		return
	}
	if _, ok := t.Conditionals[name]; !ok {
		t.Conditionals[name] = pos
	}
}

func acConfigHeaders(t *Trace, args []string, pos diag.Pos, diags *diag.Buffer) {
	for _, spec := range strings.Fields(arg(args, 0)) {
		t.ConfigHeaders = append(t.ConfigHeaders, parseConfigFile(spec, pos))
	}
}

func amConfigHeader(t *Trace, args []string, pos diag.Pos, diags *diag.Buffer) {
	diags.Warnf(pos, diag.CategoryObsolete, "'AM_CONFIG_HEADER': this macro is obsolete; use 'AC_CONFIG_HEADERS' instead")
	acConfigHeaders(t, args, pos, diags)
}

func acConfigAuxDir(t *Trace, args []string, pos diag.Pos, diags *diag.Buffer) {
	dir := strings.TrimSuffix(arg(args, 0), "/")
	if dir == "" {
		dir = "."
	}
	t.AuxDir = path.Clean(dir)
}

func acRequireAuxFile(t *Trace, args []string, pos diag.Pos, diags *diag.Buffer) {
	if f := arg(args, 0); f != "" {
		t.AuxFiles = append(t.AuxFiles, f)
	}
}

func program(name string) macroHandler {
	return func(t *Trace, args []string, pos diag.Pos, diags *diag.Buffer) {
		if _, ok := t.Programs[name]; !ok {
			t.Programs[name] = pos
		}
	}
}

func amMaintainerMode(t *Trace, args []string, pos diag.Pos, diags *diag.Buffer) {
	t.MaintainerMode = true
	if _, ok := t.Conditionals["MAINTAINER_MODE"]; !ok {
		t.Conditionals["MAINTAINER_MODE"] = pos
	}
}

func amSilentRules(t *Trace, args []string, pos diag.Pos, diags *diag.Buffer) {
	t.SilentRules = true
}

// Scan reads configure.ac text from r. name is used in diagnostics.
// Problems are reported to diags; the returned error is reserved for read
// failures.
func Scan(ctx context.Context, r io.Reader, name string, diags *diag.Buffer) (*Trace, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	t := newTrace(name)
	s := newScanner(string(data), knownMacros)
	calls := s.calls(func(macro string, offset int) {
		diags.Errorf(diag.Pos{File: name, Line: s.line(offset)}, "unterminated argument list for %s", macro)
	})
	for _, c := range calls {
		pos := diag.Pos{File: name, Line: s.line(c.offset)}
		if _, ok := t.Macros[c.name]; !ok {
			t.Macros[c.name] = pos
		}
		handlers[c.name](t, c.args, pos, diags)
	}

	dcontext.GetLoggerWithFields(ctx, map[interface{}]interface{}{
		"macros":      len(calls),
		"configfiles": len(t.ConfigFiles),
	}).Debugf("scanned %s", name)

	if _, ok := t.Macros["AC_INIT"]; !ok {
		diags.Errorf(diag.Pos{File: name}, "no proper invocation of AC_INIT was found")
	}
	if !t.InitAutomake {
		diags.Errorf(diag.Pos{File: name}, "no proper invocation of AM_INIT_AUTOMAKE was found")
	}
	return t, nil
}

// Load finds and scans the configure.ac in dir. An old-style configure.in
// is accepted with a warning.
func Load(ctx context.Context, dir string, diags *diag.Buffer) (*Trace, error) {
	ac, errAC := os.ReadFile(filepath.Join(dir, "configure.ac"))
	in, errIN := os.ReadFile(filepath.Join(dir, "configure.in"))
	switch {
	case errAC == nil && errIN == nil:
		diags.Warnf(diag.Pos{File: "configure.ac"}, diag.CategoryObsolete,
			"'configure.ac' and 'configure.in' both present; proceeding with 'configure.ac'")
		return Scan(ctx, strings.NewReader(string(ac)), "configure.ac", diags)
	case errAC == nil:
		return Scan(ctx, strings.NewReader(string(ac)), "configure.ac", diags)
	case errIN == nil:
		diags.Warnf(diag.Pos{File: "configure.in"}, diag.CategoryObsolete,
			"autoconf input should be named 'configure.ac', not 'configure.in'")
		return Scan(ctx, strings.NewReader(string(in)), "configure.in", diags)
	}
	if !errors.Is(errAC, fs.ErrNotExist) {
		return nil, errAC
	}
	return nil, fmt.Errorf("'configure.ac' is required in %s", dir)
}

// HasProgram reports whether configure.ac checks for prog.
func (t *Trace) HasProgram(prog string) bool {
	_, ok := t.Programs[prog]
	return ok
}

// ConditionalNames returns the AM_CONDITIONAL names as a set.
func (t *Trace) ConditionalNames() map[string]bool {
	m := make(map[string]bool, len(t.Conditionals))
	for name := range t.Conditionals {
		m[name] = true
	}
	return m
}

// SubstNames returns the AC_SUBST variables, sorted.
func (t *Trace) SubstNames() []string {
	names := make([]string, 0, len(t.Substs))
	for name := range t.Substs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MacroPos returns where macro was first called, or the position of the
// whole file when it was not called.
func (t *Trace) MacroPos(macro string) diag.Pos {
	if pos, ok := t.Macros[macro]; ok {
		return pos
	}
	return diag.Pos{File: t.Path}
}

// ConfigFile returns the AC_CONFIG_FILES entry producing output.
func (t *Trace) ConfigFile(output string) (ConfigFile, bool) {
	for _, cf := range t.ConfigFiles {
		if cf.Output == output {
			return cf, true
		}
	}
	return ConfigFile{}, false
}

// HeadersIn returns the config headers whose output lives in dir.
func (t *Trace) HeadersIn(dir string) []ConfigFile {
	var out []ConfigFile
	for _, h := range t.ConfigHeaders {
		if h.Dir() == dir {
			out = append(out, h)
		}
	}
	return out
}
