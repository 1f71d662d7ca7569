package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	events "github.com/docker/go-events"
	"github.com/go-automake/automake/diag"
	"github.com/stretchr/testify/require"
)

func TestTextfile(t *testing.T) {
	m := New()
	m.Makefile(true)
	m.Makefile(true)
	m.Makefile(false)
	m.FileWritten(true)
	m.FileWritten(false)
	m.FileInstalled()
	m.SetJobs(4)
	m.Since(StageTotal, time.Now().Add(-time.Second))

	path := filepath.Join(t.TempDir(), "automake.prom")
	require.NoError(t, m.WriteTextfile(path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(contents)
	require.Contains(t, text, `automake_generate_makefiles_total{result="generated"} 2`)
	require.Contains(t, text, `automake_generate_makefiles_total{result="failed"} 1`)
	require.Contains(t, text, `automake_generate_files_total{status="written"} 1`)
	require.Contains(t, text, `automake_generate_files_total{status="unchanged"} 1`)
	require.Contains(t, text, `automake_generate_files_total{status="installed"} 1`)
	require.Contains(t, text, "automake_generate_jobs 4")
	require.Contains(t, text, `automake_generate_duration_seconds_count{stage="total"} 1`)
}

func TestDiagnosticSink(t *testing.T) {
	m := New()
	bcast := events.NewBroadcaster(m.Sink())

	require.NoError(t, bcast.Write(diag.Diagnostic{Category: diag.CategoryPortability, Severity: diag.Warning, Message: "a"}))
	require.NoError(t, bcast.Write(diag.Diagnostic{Category: diag.CategoryPortability, Severity: diag.Warning, Message: "b"}))
	require.NoError(t, bcast.Write(diag.Diagnostic{Category: diag.CategoryError, Severity: diag.Error, Message: "c"}))
	require.NoError(t, bcast.Write("not a diagnostic"))
	require.NoError(t, bcast.Close())

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)

	counts := make(map[string]float64)
	for _, mf := range families {
		if mf.GetName() != "automake_diagnostics_reported_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			var category, severity string
			for _, lp := range metric.GetLabel() {
				switch lp.GetName() {
				case "category":
					category = lp.GetValue()
				case "severity":
					severity = lp.GetValue()
				}
			}
			counts[category+"/"+severity] = metric.GetCounter().GetValue()
		}
	}
	require.Equal(t, map[string]float64{
		"portability/warning": 2,
		"error/error":         1,
	}, counts)
}

func TestSinkClosed(t *testing.T) {
	sink := New().Sink()
	require.NoError(t, sink.Close())
	require.Equal(t, events.ErrSinkClosed, sink.Write(diag.Diagnostic{Category: diag.CategoryError, Severity: diag.Error}))
}
