package driver

import (
	"context"
	"testing"

	"github.com/go-automake/automake"
	"github.com/go-automake/automake/autoconf"
	"github.com/go-automake/automake/configuration"
	"github.com/go-automake/automake/diag"
	"github.com/go-automake/automake/internal/dcontext"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		verbose, addMissing, copyFiles, forceMissing = false, false, false, false
		foreign, gnu, gnits, werror = false, false, false, false
		libDir, metricsTextfile = "", ""
		warnings = nil
		jobs = 0
	})
}

func TestRunConfigFlagsOverrideConfiguration(t *testing.T) {
	resetFlags(t)
	config := configuration.Default()
	config.Generate.Strictness = "gnits"
	config.Generate.Warnings = []string{"no-portability"}
	config.Generate.Jobs = 8
	config.Generate.LibDir = "/opt/am"
	config.Generate.Copy = true
	config.Metrics.Textfile = "/var/lib/am.prom"

	require.NoError(t, RootCmd.ParseFlags([]string{"--foreign", "-a", "-Wall", "-W", "no-gnu", "--werror", "-j", "2"}))

	cfg, err := runConfig(config, []string{"src/Makefile"})
	require.NoError(t, err)
	require.Equal(t, automake.Foreign, cfg.Strictness)
	require.Equal(t, []string{"src/Makefile"}, cfg.Makefiles)
	require.Equal(t, []string{"no-portability", "all", "no-gnu", "error"}, cfg.Warnings)
	require.Equal(t, 2, cfg.Jobs)
	require.True(t, cfg.Aux.AddMissing)
	require.True(t, cfg.Aux.Copy)
	require.False(t, cfg.Aux.Force)
	require.Equal(t, "/opt/am", cfg.Aux.LibDir)
	require.Equal(t, "/var/lib/am.prom", cfg.MetricsTextfile)
}

func TestStrictnessFlagOutranksConfigurationOptions(t *testing.T) {
	resetFlags(t)
	config := configuration.Default()
	config.Generate.Options = []string{"gnits", "check-news"}

	cfg, err := runConfig(config, nil)
	require.NoError(t, err)
	require.False(t, cfg.StrictnessSet)
	r := &run{cfg: cfg, trace: &autoconf.Trace{}}
	o, err := r.baseOptions(new(diag.Buffer))
	require.NoError(t, err)
	require.Equal(t, automake.Gnits, o.Strictness)

	require.NoError(t, RootCmd.ParseFlags([]string{"--foreign"}))
	cfg, err = runConfig(config, nil)
	require.NoError(t, err)
	require.True(t, cfg.StrictnessSet)
	r = &run{cfg: cfg, trace: &autoconf.Trace{}}
	o, err = r.baseOptions(new(diag.Buffer))
	require.NoError(t, err)
	require.Equal(t, automake.Foreign, o.Strictness)
	require.True(t, o.CheckNews)

	r = &run{cfg: cfg, trace: &autoconf.Trace{AutomakeOptions: []string{"gnu"}}}
	o, err = r.baseOptions(new(diag.Buffer))
	require.NoError(t, err)
	require.Equal(t, automake.GNU, o.Strictness)
}

func TestRunConfigExclusiveStrictness(t *testing.T) {
	resetFlags(t)
	require.NoError(t, RootCmd.ParseFlags([]string{"--gnu", "--gnits"}))

	_, err := runConfig(configuration.Default(), nil)
	require.EqualError(t, err, "--foreign, --gnu and --gnits are mutually exclusive")
}

func TestResolveLibDir(t *testing.T) {
	resetFlags(t)
	t.Setenv("AUTOMAKE_LIBDIR", "/env/am")
	config := configuration.Default()
	require.Equal(t, "/env/am", resolveLibDir(config))

	config.Generate.LibDir = "/config/am"
	require.Equal(t, "/config/am", resolveLibDir(config))

	libDir = "/flag/am"
	require.Equal(t, "/flag/am", resolveLibDir(config))
}

func TestConfigureLogging(t *testing.T) {
	resetFlags(t)
	t.Cleanup(func() {
		logrus.SetFormatter(&logrus.TextFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	})

	config := configuration.Default()
	config.Log.Formatter = "json"
	config.Log.Fields = map[string]interface{}{"project": "hello"}
	ctx, err := configureLogging(context.Background(), config)
	require.NoError(t, err)
	require.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	require.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	entry, ok := dcontext.GetLogger(ctx).(*logrus.Entry)
	require.True(t, ok)
	require.Equal(t, "hello", entry.Data["project"])

	verbose = true
	_, err = configureLogging(context.Background(), config)
	require.NoError(t, err)
	require.Equal(t, logrus.InfoLevel, logrus.GetLevel())

	config.Log.Formatter = "xml"
	_, err = configureLogging(context.Background(), config)
	require.EqualError(t, err, `unsupported logging formatter: "xml"`)
}
