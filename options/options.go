// Package options resolves automake options from their sources: the
// configuration file, the command line, AM_INIT_AUTOMAKE in configure.ac
// and AUTOMAKE_OPTIONS in each Makefile.am, applied in that order.
package options

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-automake/automake"
	"github.com/go-automake/automake/am"
	"github.com/go-automake/automake/diag"
)

// Source identifies where an option was given.
type Source int

const (
	// SourceConfig is the configuration file.
	SourceConfig Source = iota
	// SourceCommandLine is the automake command line.
	SourceCommandLine
	// SourceInitAutomake is the AM_INIT_AUTOMAKE argument.
	SourceInitAutomake
	// SourceMakefile is AUTOMAKE_OPTIONS in a Makefile.am.
	SourceMakefile
)

func (s Source) String() string {
	switch s {
	case SourceConfig:
		return "configuration file"
	case SourceCommandLine:
		return "command line"
	case SourceInitAutomake:
		return "AM_INIT_AUTOMAKE"
	}
	return "AUTOMAKE_OPTIONS"
}

// Archive formats for "make dist".
const (
	DistGzip  = "gzip"
	DistBzip2 = "bzip2"
	DistXz    = "xz"
	DistZip   = "zip"
	DistLzip  = "lzip"
	DistZstd  = "zstd"
)

// Tar formats.
const (
	TarV7    = "v7"
	TarUstar = "ustar"
	TarPax   = "pax"
)

var versionRE = regexp.MustCompile(`^(\d+)\.(\d+)([a-z]?)(?:\.(\d+))?$`)

// Options are the effective settings for one Makefile.am.
type Options struct {
	Strictness automake.Strictness

	NoDependencies bool
	SubdirObjects  bool
	NoDist         bool
	NoInstallMan   bool
	NoInstallInfo  bool
	NoExeext       bool
	NoStdinc       bool
	StdOptions     bool
	CheckNews      bool
	ReadmeAlpha    bool
	SerialTests    bool
	ParallelTests  bool
	ColorTests     bool

	// TarFormat is one of TarV7, TarUstar or TarPax.
	TarFormat string

	// FilenameLengthMax, when non-zero, makes "make dist" reject longer
	// file names.
	FilenameLengthMax int

	// RequiredVersion is the newest automake version requirement seen.
	RequiredVersion string

	// Warnings are the enabled warning categories.
	Warnings *diag.Warnings

	dist      map[string]bool
	warnSpecs []string
}

// New returns the defaults for strictness: gzip archives, v7 tar format and
// the strictness' default warnings.
func New(strictness automake.Strictness) *Options {
	return &Options{
		Strictness: strictness,
		TarFormat:  TarV7,
		Warnings:   diag.DefaultWarnings(strictness),
		dist:       map[string]bool{DistGzip: true},
	}
}

// Clone returns an independent copy of o.
func (o *Options) Clone() *Options {
	c := *o
	c.Warnings = o.Warnings.Clone()
	c.dist = make(map[string]bool, len(o.dist))
	for k, v := range o.dist {
		c.dist[k] = v
	}
	c.warnSpecs = append([]string(nil), o.warnSpecs...)
	return &c
}

// DistFormats returns the enabled archive formats, sorted.
func (o *Options) DistFormats() []string {
	var formats []string
	for f, on := range o.dist {
		if on {
			formats = append(formats, f)
		}
	}
	sort.Strings(formats)
	return formats
}

// Dist reports whether format is enabled.
func (o *Options) Dist(format string) bool {
	return o.dist[format]
}

// SetStrictness changes the strictness. Warning defaults follow the new
// strictness; -W settings given so far are applied again on top.
func (o *Options) SetStrictness(s automake.Strictness) {
	o.Strictness = s
	o.Warnings.Reset(s)
	for _, spec := range o.warnSpecs {
		// Specs were validated when first recorded.
		_ = o.Warnings.Set(spec)
	}
}

// SetWarnings applies a -W setting such as "all" or "no-portability,error".
func (o *Options) SetWarnings(spec string) error {
	if err := o.Warnings.Set(spec); err != nil {
		return err
	}
	o.warnSpecs = append(o.warnSpecs, spec)
	return nil
}

// Apply applies option words from src. Problems are reported to diags at
// pos.
func (o *Options) Apply(words []string, src Source, pos diag.Pos, diags *diag.Buffer) {
	for _, w := range words {
		o.apply(w, src, pos, diags)
	}
}

func (o *Options) apply(word string, src Source, pos diag.Pos, diags *diag.Buffer) {
	if strings.HasPrefix(word, "-W") {
		if err := o.SetWarnings(strings.TrimPrefix(word, "-W")); err != nil {
			diags.Errorf(pos, "%v", err)
		}
		return
	}
	if s, err := automake.ParseStrictness(word); err == nil {
		o.SetStrictness(s)
		return
	}
	if versionRE.MatchString(word) {
		o.require(word, pos, diags)
		return
	}

	switch word {
	case "no-dependencies":
		o.NoDependencies = true
	case "subdir-objects":
		o.SubdirObjects = true
	case "dist-bzip2":
		o.dist[DistBzip2] = true
	case "dist-xz":
		o.dist[DistXz] = true
	case "dist-zip":
		o.dist[DistZip] = true
	case "dist-lzip":
		o.dist[DistLzip] = true
	case "dist-zstd":
		o.dist[DistZstd] = true
	case "no-dist-gzip":
		o.dist[DistGzip] = false
	case "no-dist":
		o.NoDist = true
	case "no-installman":
		o.NoInstallMan = true
	case "no-installinfo":
		o.NoInstallInfo = true
	case "no-exeext":
		o.NoExeext = true
	case "nostdinc":
		o.NoStdinc = true
	case "std-options":
		o.StdOptions = true
	case "check-news":
		o.CheckNews = true
	case "readme-alpha":
		o.ReadmeAlpha = true
	case "serial-tests":
		o.SerialTests = true
		o.ParallelTests = false
	case "parallel-tests":
		o.ParallelTests = true
		o.SerialTests = false
	case "color-tests":
		o.ColorTests = true
	case "no-define", "info-in-builddir", "no-texinfo.tex":
		// Accepted; they only affect features outside this tool.
	case "silent-rules":
		diags.Warnf(pos, diag.CategoryObsolete, "'silent-rules' is obsolete; silent rules are always available")
	case "tar-v7", "tar-ustar", "tar-pax":
		if src != SourceInitAutomake {
			diags.Errorf(pos, "option '%s' can only be used as argument to AM_INIT_AUTOMAKE but not in %s", word, src)
			return
		}
		o.TarFormat = strings.TrimPrefix(word, "tar-")
	case "cygnus", "ansi2knr", "lzma", "dist-lzma", "dist-shar", "dist-tarZ":
		diags.Errorf(pos, "support for '%s' has been removed", word)
	default:
		if strings.HasPrefix(word, "filename-length-max=") {
			n, err := strconv.Atoi(strings.TrimPrefix(word, "filename-length-max="))
			if err != nil || n <= 0 {
				diags.Errorf(pos, "invalid option value in '%s'", word)
				return
			}
			o.FilenameLengthMax = n
			return
		}
		diags.Errorf(pos, "option '%s' not recognized", word)
	}
}

// require checks a version requirement against automake.APIVersion.
func (o *Options) require(v string, pos diag.Pos, diags *diag.Buffer) {
	if compareVersions(v, automake.APIVersion) > 0 {
		diags.Errorf(pos, "require Automake %s, but have %s", v, automake.APIVersion)
		return
	}
	if o.RequiredVersion == "" || compareVersions(v, o.RequiredVersion) > 0 {
		o.RequiredVersion = v
	}
}

// compareVersions compares two "MAJOR.MINOR[alpha][.MICRO]" versions.
func compareVersions(a, b string) int {
	pa, pb := versionRE.FindStringSubmatch(a), versionRE.FindStringSubmatch(b)
	if pa == nil || pb == nil {
		return strings.Compare(a, b)
	}
	for _, i := range []int{1, 2} {
		x, _ := strconv.Atoi(pa[i])
		y, _ := strconv.Atoi(pb[i])
		if x != y {
			return cmpInt(x, y)
		}
	}
	if c := strings.Compare(pa[3], pb[3]); c != 0 {
		return c
	}
	x, _ := strconv.Atoi(pa[4])
	y, _ := strconv.Atoi(pb[4])
	return cmpInt(x, y)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Validate checks combinations that are only wrong once every source has
// been applied.
func (o *Options) Validate(pos diag.Pos, diags *diag.Buffer) {
	if !o.NoDist && len(o.DistFormats()) == 0 {
		diags.Errorf(pos, "no-dist-gzip specified but no dist-* specified, at least one archive format must be enabled")
	}
}

// ForMakefile returns the options for f: base with the file's
// AUTOMAKE_OPTIONS applied. AUTOMAKE_OPTIONS must not be conditional.
func ForMakefile(base *Options, f *am.File, diags *diag.Buffer) *Options {
	o := base.Clone()
	v := f.Var("AUTOMAKE_OPTIONS")
	if v == nil {
		o.Validate(diag.Pos{File: f.Path}, diags)
		return o
	}
	if v.IsConditional() {
		diags.Errorf(v.Pos(), "'AUTOMAKE_OPTIONS' cannot have conditional contents")
	}
	o.Apply(f.Expand("AUTOMAKE_OPTIONS", am.True, diags), SourceMakefile, v.Pos(), diags)
	o.Validate(v.Pos(), diags)
	return o
}

// String formats the options the way they would be written in
// AUTOMAKE_OPTIONS.
func (o *Options) String() string {
	words := []string{o.Strictness.String()}
	flag := func(on bool, name string) {
		if on {
			words = append(words, name)
		}
	}
	flag(o.NoDependencies, "no-dependencies")
	flag(o.SubdirObjects, "subdir-objects")
	for _, f := range o.DistFormats() {
		if f != DistGzip {
			words = append(words, "dist-"+f)
		}
	}
	flag(!o.dist[DistGzip], "no-dist-gzip")
	flag(o.NoDist, "no-dist")
	flag(o.NoInstallMan, "no-installman")
	flag(o.StdOptions, "std-options")
	flag(o.CheckNews, "check-news")
	flag(o.TarFormat != TarV7, "tar-"+o.TarFormat)
	if o.FilenameLengthMax > 0 {
		words = append(words, fmt.Sprintf("filename-length-max=%d", o.FilenameLengthMax))
	}
	return strings.Join(words, " ")
}
