// Package driver runs automake over a source tree: it reads configure.ac,
// generates every requested Makefile.in, installs missing auxiliary files
// and reports diagnostics.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"runtime"
	"slices"
	"sort"
	"strings"
	"time"

	events "github.com/docker/go-events"
	"github.com/go-automake/automake"
	"github.com/go-automake/automake/am"
	"github.com/go-automake/automake/autoconf"
	"github.com/go-automake/automake/auxfiles"
	"github.com/go-automake/automake/diag"
	"github.com/go-automake/automake/generator"
	"github.com/go-automake/automake/internal/dcontext"
	"github.com/go-automake/automake/internal/outfile"
	"github.com/go-automake/automake/metrics"
	"github.com/go-automake/automake/options"
	"golang.org/x/sync/errgroup"
)

// Config holds the settings of one run.
type Config struct {
	// Dir is the top source directory.
	Dir string

	// Makefiles are the configure outputs to process, such as "Makefile" or
	// "src/Makefile". When empty, every AC_CONFIG_FILES entry with a
	// Makefile.am is processed.
	Makefiles []string

	// Strictness is the default strictness.
	Strictness automake.Strictness

	// StrictnessSet reports that Strictness came from the command line,
	// so it outranks strictness words in Options.
	StrictnessSet bool

	// Options are option words from the configuration file.
	Options []string

	// Warnings are -W settings, configuration file ones first.
	Warnings []string

	Aux auxfiles.Options

	// Jobs limits concurrent generation. Zero means one per CPU.
	Jobs int

	// MetricsTextfile, when set, receives the run's metrics.
	MetricsTextfile string

	// Stderr receives diagnostics. Defaults to os.Stderr.
	Stderr io.Writer
}

// Summary describes what a run did.
type Summary struct {
	Errors    int
	Warnings  int
	Written   []string
	Unchanged []string
	Installed []string
}

// makefile is one Makefile.in being produced.
type makefile struct {
	cf    autoconf.ConfigFile
	in    string
	am    string
	top   bool
	file  *am.File
	opts  *options.Options
	diags *diag.Buffer
	res   *generator.Result
}

type run struct {
	cfg       Config
	trace     *autoconf.Trace
	base      *options.Options
	dir       *outfile.Dir
	fsys      fs.FS
	installer *auxfiles.Installer
	auxDiags  *diag.Buffer
	makefiles map[string]bool
	metrics   *metrics.Metrics
}

// Run processes the tree described by cfg. Problems with the input are
// reported as diagnostics and counted in the summary; the returned error
// is reserved for failures that stop the run.
func Run(ctx context.Context, cfg Config) (*Summary, error) {
	start := time.Now()
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Jobs <= 0 {
		cfg.Jobs = runtime.NumCPU()
	}

	r := &run{
		cfg:      cfg,
		dir:      outfile.New(cfg.Dir),
		fsys:     os.DirFS(cfg.Dir),
		auxDiags: new(diag.Buffer),
		metrics:  metrics.New(),
	}
	r.metrics.SetJobs(cfg.Jobs)
	r.installer = auxfiles.NewInstaller(r.dir, cfg.Aux, r.auxDiags)

	sinks := []events.Sink{diag.NewWriterSink(cfg.Stderr), r.metrics.Sink()}
	reporter := diag.NewReporter(sinks...)

	summary, err := r.run(ctx, reporter)
	if cerr := reporter.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	summary.Errors = reporter.Errors()
	summary.Warnings = reporter.Warnings()
	summary.Installed = r.installer.Installed()
	for range summary.Installed {
		r.metrics.FileInstalled()
	}

	r.metrics.Since(metrics.StageTotal, start)
	if cfg.MetricsTextfile != "" {
		if err := r.metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			return nil, fmt.Errorf("writing metrics: %w", err)
		}
	}
	return summary, nil
}

func (r *run) run(ctx context.Context, reporter *diag.Reporter) (*Summary, error) {
	log := dcontext.GetLogger(ctx)

	scanStart := time.Now()
	globalDiags := new(diag.Buffer)
	trace, err := autoconf.Load(ctx, r.cfg.Dir, globalDiags)
	if err != nil {
		return nil, err
	}
	r.trace = trace
	r.base, err = r.baseOptions(globalDiags)
	if err != nil {
		return nil, err
	}
	r.metrics.Since(metrics.StageScan, scanStart)

	mfs := r.selectMakefiles(globalDiags)
	if err := reporter.ReportAll(r.base.Warnings.Apply(globalDiags.Diagnostics())); err != nil {
		return nil, err
	}
	if globalDiags.HasErrors() || len(mfs) == 0 {
		return &Summary{}, nil
	}
	log.Debugf("processing %d makefiles with %d jobs", len(mfs), r.cfg.Jobs)

	genStart := time.Now()
	var top *makefile
	var rest []*makefile
	for _, mf := range mfs {
		if mf.top {
			top = mf
		} else {
			rest = append(rest, mf)
		}
	}

	// Subdirectory makefiles first: the top-level Makefile.in distributes
	// the aux files every other makefile requires.
	if err := r.generateAll(ctx, rest); err != nil {
		return nil, err
	}
	r.requireAux(ctx, rest)
	if top != nil {
		if err := r.generateTop(ctx, top, rest); err != nil {
			return nil, err
		}
		r.requireAux(ctx, []*makefile{top})
	}
	r.metrics.Since(metrics.StageGenerate, genStart)

	writeStart := time.Now()
	summary := &Summary{}
	for _, mf := range mfs {
		if err := reporter.ReportAll(mf.opts.Warnings.Apply(mf.diags.Diagnostics())); err != nil {
			return nil, err
		}
		ok := mf.res != nil && !mf.diags.HasErrors()
		r.metrics.Makefile(ok)
		if !ok {
			continue
		}
		changed, err := r.dir.PutContent(mf.in, mf.res.Text, 0o644)
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", mf.in, err)
		}
		r.metrics.FileWritten(changed)
		if changed {
			dcontext.GetLoggerWithField(ctx, "makefile", mf.am).Infof("writing %s", mf.in)
			summary.Written = append(summary.Written, mf.in)
		} else {
			log.Debugf("%s is up to date", mf.in)
			summary.Unchanged = append(summary.Unchanged, mf.in)
		}
	}
	r.metrics.Since(metrics.StageWrite, writeStart)

	if err := reporter.ReportAll(r.auxDiags.Diagnostics()); err != nil {
		return nil, err
	}
	return summary, nil
}

// baseOptions applies, lowest precedence first, the configuration file,
// the command line and AM_INIT_AUTOMAKE.
func (r *run) baseOptions(diags *diag.Buffer) (*options.Options, error) {
	o := options.New(r.cfg.Strictness)
	o.Apply(r.cfg.Options, options.SourceConfig, diag.Pos{}, diags)
	if r.cfg.StrictnessSet {
		o.SetStrictness(r.cfg.Strictness)
	}
	for _, spec := range r.cfg.Warnings {
		if err := o.SetWarnings(spec); err != nil {
			return nil, fmt.Errorf("-W%s: %w", spec, err)
		}
	}
	o.Apply(r.trace.AutomakeOptions, options.SourceInitAutomake, r.trace.MacroPos("AM_INIT_AUTOMAKE"), diags)
	return o, nil
}

// selectMakefiles returns the makefiles to process in AC_CONFIG_FILES
// order, or in argument order when makefiles were named.
func (r *run) selectMakefiles(diags *diag.Buffer) []*makefile {
	r.makefiles = make(map[string]bool)
	var all []*makefile
	for _, cf := range r.trace.ConfigFiles {
		mf := r.newMakefile(cf)
		if !r.dir.Exists(mf.am) {
			continue
		}
		r.makefiles[cf.Output] = true
		all = append(all, mf)
	}

	if len(r.cfg.Makefiles) == 0 {
		if len(all) == 0 {
			diags.Errorf(diag.Pos{File: r.trace.Path}, "no 'Makefile.am' found for any configure output")
		}
		return all
	}

	var mfs []*makefile
	seen := make(map[string]bool)
	for _, arg := range r.cfg.Makefiles {
		output := strings.TrimSuffix(path.Clean(arg), ".am")
		if seen[output] {
			continue
		}
		seen[output] = true
		cf, ok := r.trace.ConfigFile(output)
		if !ok {
			diags.Errorf(diag.Pos{File: r.trace.Path}, "'%s' is not created by %s", output, r.trace.Path)
			continue
		}
		mf := r.newMakefile(cf)
		if !r.dir.Exists(mf.am) {
			diags.Errorf(diag.Pos{}, "no Automake input file found for '%s'", output)
			continue
		}
		mfs = append(mfs, mf)
	}
	return mfs
}

func (r *run) newMakefile(cf autoconf.ConfigFile) *makefile {
	in := cf.Output + ".in"
	if len(cf.Inputs) > 0 {
		in = cf.Inputs[0]
	}
	return &makefile{
		cf:    cf,
		in:    in,
		am:    strings.TrimSuffix(in, ".in") + ".am",
		top:   cf.Dir() == ".",
		diags: new(diag.Buffer),
	}
}

// generateAll generates mfs concurrently, at most cfg.Jobs at a time.
func (r *run) generateAll(ctx context.Context, mfs []*makefile) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Jobs)
	for _, mf := range mfs {
		mf := mf
		g.Go(func() error {
			if err := r.parse(gctx, mf); err != nil {
				return err
			}
			return r.generate(gctx, mf, nil)
		})
	}
	return g.Wait()
}

// generateTop generates the top-level makefile. It runs a second time
// when its own requirements add to the distributed aux files.
func (r *run) generateTop(ctx context.Context, top *makefile, rest []*makefile) error {
	if err := r.parse(ctx, top); err != nil {
		return err
	}
	pos := diag.Pos{File: top.am}
	for _, name := range auxfiles.StandardFiles(top.opts.Strictness) {
		r.installer.Require(ctx, name, pos)
	}
	if top.opts.ReadmeAlpha {
		if alpha, _ := automake.GnitsVersion(r.trace.Version); alpha {
			r.installer.Require(ctx, "README-alpha", pos)
		}
	}

	auxDist := r.auxDist(rest)
	if err := r.generate(ctx, top, auxDist); err != nil {
		return err
	}
	if top.res == nil {
		return nil
	}
	all := append([]*makefile{top}, rest...)
	if final := r.auxDist(all); !slices.Equal(final, auxDist) {
		return r.generate(ctx, top, final)
	}
	return nil
}

func (r *run) parse(ctx context.Context, mf *makefile) error {
	ctx = dcontext.WithMakefile(ctx, mf.am)
	f, err := am.Parse(ctx, mf.am, am.Options{
		TopDir:       r.cfg.Dir,
		Dir:          mf.cf.Dir(),
		Conditionals: r.trace.ConditionalNames(),
		Diags:        mf.diags,
	})
	if err != nil {
		return fmt.Errorf("reading %s: %w", mf.am, err)
	}
	mf.file = f
	mf.opts = options.ForMakefile(r.base, f, mf.diags)
	return nil
}

func (r *run) generate(ctx context.Context, mf *makefile, auxDist []string) error {
	ctx = dcontext.WithMakefile(ctx, mf.am)
	res, err := generator.Generate(ctx, generator.Input{
		File:      mf.file,
		Trace:     r.trace,
		Options:   mf.opts,
		Makefile:  mf.cf,
		Makefiles: r.makefiles,
		FS:        r.fsys,
		AuxDist:   auxDist,
		Diags:     mf.diags,
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if err != nil {
		mf.diags.Errorf(diag.Pos{File: mf.am}, "%v", err)
		return nil
	}
	mf.res = res
	return nil
}

// auxPath returns the path of an aux file relative to the top.
func (r *run) auxPath(name string) string {
	return path.Join(r.trace.AuxDir, name)
}

// auxDist returns the aux files the top-level Makefile.in distributes.
func (r *run) auxDist(mfs []*makefile) []string {
	seen := map[string]bool{
		r.auxPath("install-sh"): true,
		r.auxPath("missing"):    true,
	}
	for _, name := range r.trace.AuxFiles {
		seen[r.auxPath(name)] = true
	}
	for _, mf := range mfs {
		if mf.res == nil {
			continue
		}
		for _, req := range mf.res.Required {
			seen[r.auxPath(req.Name)] = true
		}
	}
	dist := make([]string, 0, len(seen))
	for f := range seen {
		dist = append(dist, f)
	}
	sort.Strings(dist)
	return dist
}

// requireAux checks the aux files the generated makefiles refer to,
// installing them when allowed.
func (r *run) requireAux(ctx context.Context, mfs []*makefile) {
	for _, name := range r.trace.AuxFiles {
		r.installer.Require(ctx, r.auxPath(name), r.trace.MacroPos("AC_REQUIRE_AUX_FILE"))
	}
	for _, mf := range mfs {
		if mf.res == nil {
			continue
		}
		for _, req := range mf.res.Required {
			r.installer.Require(ctx, r.auxPath(req.Name), req.Pos)
		}
	}
}
