package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	logstash "github.com/bshuster-repo/logrus-logstash-hook"
	"github.com/go-automake/automake"
	"github.com/go-automake/automake/autoconf"
	"github.com/go-automake/automake/auxfiles"
	"github.com/go-automake/automake/configuration"
	"github.com/go-automake/automake/diag"
	"github.com/go-automake/automake/internal/dcontext"
	"github.com/go-automake/automake/version"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var (
	showVersion     bool
	printLibDir     bool
	verbose         bool
	addMissing      bool
	copyFiles       bool
	forceMissing    bool
	foreign         bool
	gnu             bool
	gnits           bool
	includeDeps     bool
	libDir          string
	warnings        []string
	werror          bool
	configPath      string
	jobs            int
	metricsTextfile string
)

func init() {
	RootCmd.AddCommand(TraceCmd)

	flags := RootCmd.Flags()
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	flags.BoolVar(&printLibDir, "print-libdir", false, "print directory where installable files are kept and exit")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbosely list files processed")
	flags.BoolVarP(&addMissing, "add-missing", "a", false, "add missing standard files to package")
	flags.BoolVarP(&copyFiles, "copy", "c", false, "with -a, copy missing files (default is symlink)")
	flags.BoolVarP(&forceMissing, "force-missing", "f", false, "force update of standard files")
	flags.BoolVar(&foreign, "foreign", false, "set strictness to foreign")
	flags.BoolVar(&gnu, "gnu", false, "set strictness to gnu")
	flags.BoolVar(&gnits, "gnits", false, "set strictness to gnits")
	flags.BoolVarP(&includeDeps, "include-deps", "i", false, "accepted for compatibility, has no effect")
	flags.StringVar(&libDir, "libdir", "", "set directory storing library files")
	flags.StringArrayVarP(&warnings, "warnings", "W", nil, "report the warnings falling in CATEGORY")
	flags.BoolVar(&werror, "werror", false, "treat warnings as errors")
	flags.IntVarP(&jobs, "jobs", "j", 0, "generate up to N Makefile.in files in parallel")
	flags.StringVar(&metricsTextfile, "metrics-textfile", "", "write prometheus metrics to FILE")

	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "read defaults from the yaml configuration FILE")
}

// RootCmd is the main command for the 'automake' binary.
var RootCmd = &cobra.Command{
	Use:   "automake [OPTION]... [MAKEFILE]...",
	Short: "`automake` generates Makefile.in files for configure from Makefile.am",
	Long: "`automake` generates Makefile.in files for configure from Makefile.am.\n\n" +
		"Each MAKEFILE names a configure output such as 'Makefile' or 'src/Makefile'.\n" +
		"Without arguments, every output listed in AC_CONFIG_FILES that has a\n" +
		"Makefile.am is processed.",
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			version.PrintVersion()
			return
		}

		config, err := resolveConfiguration()
		if err != nil {
			fmt.Fprintf(os.Stderr, "automake: error: configuration: %v\n", err)
			os.Exit(1)
		}
		if printLibDir {
			fmt.Println(resolveLibDir(config))
			return
		}

		ctx, err := configureLogging(context.Background(), config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "automake: error: unable to configure logging: %v\n", err)
			os.Exit(1)
		}

		cfg, err := runConfig(config, args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "automake: error: %v\n", err)
			os.Exit(1)
		}

		summary, err := Run(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "automake: error: %v\n", err)
			os.Exit(1)
		}
		dcontext.GetLoggerWithFields(ctx, map[any]any{
			"written":   len(summary.Written),
			"unchanged": len(summary.Unchanged),
			"installed": len(summary.Installed),
			"errors":    summary.Errors,
			"warnings":  summary.Warnings,
		}).Debug("done")
		if summary.Errors > 0 {
			os.Exit(1)
		}
	},
}

// TraceCmd prints what automake learns from configure.ac.
var TraceCmd = &cobra.Command{
	Use:   "trace [DIR]",
	Short: "`trace` prints the configure.ac trace as yaml",
	Long:  "`trace` scans configure.ac in DIR, or the current directory, and prints what automake learns from it as yaml.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		config, err := resolveConfiguration()
		if err != nil {
			fmt.Fprintf(os.Stderr, "automake: error: configuration: %v\n", err)
			os.Exit(1)
		}
		ctx, err := configureLogging(context.Background(), config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "automake: error: unable to configure logging: %v\n", err)
			os.Exit(1)
		}

		errors, err := printTrace(ctx, dir, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err != nil {
			fmt.Fprintf(os.Stderr, "automake: error: %v\n", err)
			os.Exit(1)
		}
		if errors > 0 {
			os.Exit(1)
		}
	},
}

// printTrace writes the trace of the configure.ac in dir to w as yaml and
// its diagnostics to stderr. It returns the number of errors reported.
func printTrace(ctx context.Context, dir string, w, stderr io.Writer) (int, error) {
	diags := new(diag.Buffer)
	trace, err := autoconf.Load(ctx, dir, diags)
	if err != nil {
		return 0, err
	}

	reporter := diag.NewReporter(diag.NewWriterSink(stderr))
	if err := reporter.ReportAll(diag.DefaultWarnings(automake.GNU).Apply(diags.Diagnostics())); err != nil {
		return 0, err
	}
	if err := reporter.Close(); err != nil {
		return 0, err
	}

	out, err := yaml.Marshal(trace)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(out); err != nil {
		return 0, err
	}
	return reporter.Errors(), nil
}

func resolveConfiguration() (*configuration.Configuration, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("AUTOMAKE_CONFIGURATION_PATH")
	}
	if path == "" {
		return configuration.Default(), nil
	}

	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	config, err := configuration.Parse(fp)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %v", path, err)
	}
	return config, nil
}

// resolveLibDir picks the library directory: --libdir, then the
// configuration file, then the built-in default.
func resolveLibDir(config *configuration.Configuration) string {
	switch {
	case libDir != "":
		return libDir
	case config.Generate.LibDir != "":
		return config.Generate.LibDir
	}
	return auxfiles.DefaultLibDir()
}

// runConfig merges the configuration file and the command line. Flags win.
func runConfig(config *configuration.Configuration, args []string) (Config, error) {
	cfg := Config{
		Dir:        ".",
		Makefiles:  args,
		Strictness: config.Generate.StrictnessLevel(),
		Options:    config.Generate.Options,
		Warnings:   append([]string(nil), config.Generate.Warnings...),
		Aux: auxfiles.Options{
			AddMissing: addMissing || config.Generate.AddMissing,
			Copy:       copyFiles || config.Generate.Copy,
			Force:      forceMissing || config.Generate.ForceMissing,
			LibDir:     resolveLibDir(config),
		},
		Jobs:            config.Generate.Jobs,
		MetricsTextfile: config.Metrics.Textfile,
	}

	n := 0
	for _, set := range []struct {
		on bool
		s  automake.Strictness
	}{{foreign, automake.Foreign}, {gnu, automake.GNU}, {gnits, automake.Gnits}} {
		if set.on {
			cfg.Strictness = set.s
			cfg.StrictnessSet = true
			n++
		}
	}
	if n > 1 {
		return cfg, fmt.Errorf("--foreign, --gnu and --gnits are mutually exclusive")
	}

	cfg.Warnings = append(cfg.Warnings, warnings...)
	if werror {
		cfg.Warnings = append(cfg.Warnings, "error")
	}
	if jobs < 0 {
		return cfg, fmt.Errorf("--jobs must not be negative")
	}
	if jobs > 0 {
		cfg.Jobs = jobs
	}
	if metricsTextfile != "" {
		cfg.MetricsTextfile = metricsTextfile
	}
	return cfg, nil
}

// configureLogging prepares the context with a logger using the
// configuration. --verbose raises the level to info.
func configureLogging(ctx context.Context, config *configuration.Configuration) (context.Context, error) {
	log.SetOutput(os.Stderr)
	level := logLevel(config.Log.Level)
	if verbose && level < log.InfoLevel {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	formatter := config.Log.Formatter
	if formatter == "" {
		formatter = "text" // default formatter
	}

	switch formatter {
	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	case "text":
		log.SetFormatter(&log.TextFormatter{
			TimestampFormat:  time.RFC3339Nano,
			DisableTimestamp: true,
		})
	case "logstash":
		log.SetFormatter(logstash.DefaultFormatter(log.Fields{"type": "automake"}))
	default:
		return ctx, fmt.Errorf("unsupported logging formatter: %q", config.Log.Formatter)
	}

	if config.Log.Formatter != "" {
		log.Debugf("using %q logging formatter", config.Log.Formatter)
	}

	// log the application version with messages
	ctx = dcontext.WithVersion(ctx, version.Version())

	if len(config.Log.Fields) > 0 {
		// build up the static fields, if present.
		var fields []any
		for k := range config.Log.Fields {
			fields = append(fields, k)
		}

		ctx = dcontext.WithValues(ctx, config.Log.Fields)
		ctx = dcontext.WithLogger(ctx, dcontext.GetLogger(ctx, fields...))
	}

	return ctx, nil
}

func logLevel(level configuration.Loglevel) log.Level {
	l, err := log.ParseLevel(string(level))
	if err != nil {
		l = log.WarnLevel
		log.Warnf("error parsing level %q: %v, using %q", level, err, l)
	}

	return l
}
