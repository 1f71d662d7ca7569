// Package metrics counts what an automake run did and exports the counts
// in the Prometheus text format, typically for the node exporter's textfile
// collector.
package metrics

import (
	"sync"
	"time"

	events "github.com/docker/go-events"
	"github.com/docker/go-metrics"
	"github.com/go-automake/automake/diag"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// NamespacePrefix is the namespace of prometheus metrics
	NamespacePrefix = "automake"
)

// Stages timed by Metrics.
const (
	StageScan     = "scan"
	StageGenerate = "generate"
	StageWrite    = "write"
	StageTotal    = "total"
)

// Metrics holds the counters of one run. The zero value is not usable; use
// New.
type Metrics struct {
	// GenerateNamespace holds makefile and output file metrics.
	GenerateNamespace *metrics.Namespace
	// DiagnosticsNamespace holds diagnostic counts.
	DiagnosticsNamespace *metrics.Namespace

	makefiles   metrics.LabeledCounter
	files       metrics.LabeledCounter
	durations   metrics.LabeledTimer
	jobs        metrics.Gauge
	diagnostics metrics.LabeledCounter

	registry *prometheus.Registry
}

// New creates the metrics of a run and registers them on a private
// registry.
func New() *Metrics {
	m := &Metrics{
		GenerateNamespace:    metrics.NewNamespace(NamespacePrefix, "generate", nil),
		DiagnosticsNamespace: metrics.NewNamespace(NamespacePrefix, "diagnostics", nil),
		registry:             prometheus.NewRegistry(),
	}
	m.makefiles = m.GenerateNamespace.NewLabeledCounter("makefiles", "The number of Makefile.in processed", "result")
	m.files = m.GenerateNamespace.NewLabeledCounter("files", "The number of files written, left unchanged or installed", "status")
	m.durations = m.GenerateNamespace.NewLabeledTimer("duration", "The time spent per stage", "stage")
	m.jobs = m.GenerateNamespace.NewGauge("jobs", "The number of Makefile.in generated in parallel", "")
	m.diagnostics = m.DiagnosticsNamespace.NewLabeledCounter("reported", "The number of diagnostics reported", "category", "severity")

	m.registry.MustRegister(m.GenerateNamespace, m.DiagnosticsNamespace)
	return m
}

// Makefile counts one processed Makefile.in.
func (m *Metrics) Makefile(ok bool) {
	result := "generated"
	if !ok {
		result = "failed"
	}
	m.makefiles.WithValues(result).Inc(1)
}

// FileWritten counts an output file; changed is false when its content
// was already up to date.
func (m *Metrics) FileWritten(changed bool) {
	status := "written"
	if !changed {
		status = "unchanged"
	}
	m.files.WithValues(status).Inc(1)
}

// FileInstalled counts an auxiliary file installed by --add-missing.
func (m *Metrics) FileInstalled() {
	m.files.WithValues("installed").Inc(1)
}

// Since records the time spent in stage since start.
func (m *Metrics) Since(stage string, start time.Time) {
	m.durations.WithValues(stage).UpdateSince(start)
}

// SetJobs records the parallelism of the run.
func (m *Metrics) SetJobs(n int) {
	m.jobs.Set(float64(n))
}

// Gatherer returns the registry holding the run's metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Sink returns an events.Sink counting the diagnostics written to it.
func (m *Metrics) Sink() events.Sink {
	return &diagnosticSink{diagnostics: m.diagnostics}
}

type diagnosticSink struct {
	mu          sync.Mutex
	closed      bool
	diagnostics metrics.LabeledCounter
}

var _ events.Sink = &diagnosticSink{}

// Write counts a diagnostic. Other events are ignored.
func (s *diagnosticSink) Write(event events.Event) error {
	d, ok := event.(diag.Diagnostic)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return events.ErrSinkClosed
	}
	s.diagnostics.WithValues(d.Category.String(), d.Severity.String()).Inc(1)
	return nil
}

// Close closes the sink.
func (s *diagnosticSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
