package diag

import (
	"fmt"
	"io"
	"sync"

	events "github.com/docker/go-events"
)

// Reporter delivers diagnostics to a set of sinks. Diagnostics are written
// to the sinks in the order they are reported.
type Reporter struct {
	broadcaster *events.Broadcaster
	counter     *CountingSink
}

// NewReporter returns a Reporter writing to sinks. A CountingSink is always
// attached so the caller can decide the exit status.
func NewReporter(sinks ...events.Sink) *Reporter {
	counter := NewCountingSink()
	all := append([]events.Sink{counter}, sinks...)
	return &Reporter{
		broadcaster: events.NewBroadcaster(all...),
		counter:     counter,
	}
}

// Report sends d to every sink.
func (r *Reporter) Report(d Diagnostic) error {
	return r.broadcaster.Write(d)
}

// ReportAll sends diags in order.
func (r *Reporter) ReportAll(diags []Diagnostic) error {
	for _, d := range diags {
		if err := r.Report(d); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes pending diagnostics and closes every sink. Counts are final
// once Close returns.
func (r *Reporter) Close() error {
	return r.broadcaster.Close()
}

// Errors returns the number of error diagnostics reported so far.
func (r *Reporter) Errors() int {
	return r.counter.Errors()
}

// Warnings returns the number of warning diagnostics reported so far.
func (r *Reporter) Warnings() int {
	return r.counter.Warnings()
}

// WriterSink writes diagnostics to an io.Writer, one per line.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

var _ events.Sink = &WriterSink{}

// NewWriterSink returns a sink writing to w, typically os.Stderr.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Write writes a diagnostic. Events that are not diagnostics are ignored.
func (s *WriterSink) Write(event events.Event) error {
	d, ok := event.(Diagnostic)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return events.ErrSinkClosed
	}
	_, err := fmt.Fprintln(s.w, d.String())
	return err
}

// Close closes the sink. The underlying writer is left open.
func (s *WriterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("diag: writer sink already closed")
	}
	s.closed = true
	return nil
}

// CountingSink counts diagnostics by severity and category.
type CountingSink struct {
	mu         sync.Mutex
	errors     int
	warnings   int
	byCategory map[Category]int
}

var _ events.Sink = &CountingSink{}

// NewCountingSink returns an empty CountingSink.
func NewCountingSink() *CountingSink {
	return &CountingSink{byCategory: make(map[Category]int)}
}

// Write counts a diagnostic.
func (s *CountingSink) Write(event events.Event) error {
	d, ok := event.(Diagnostic)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Severity == Error {
		s.errors++
	} else {
		s.warnings++
	}
	s.byCategory[d.Category]++
	return nil
}

// Close is a no-op; counts stay readable.
func (s *CountingSink) Close() error {
	return nil
}

// Errors returns the number of errors counted.
func (s *CountingSink) Errors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors
}

// Warnings returns the number of warnings counted.
func (s *CountingSink) Warnings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warnings
}

// Count returns the number of diagnostics counted in category c.
func (s *CountingSink) Count(c Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byCategory[c]
}

// SeverityFilter returns a sink that forwards to dst only diagnostics of at
// least severity min.
func SeverityFilter(dst events.Sink, min Severity) events.Sink {
	return events.NewFilter(dst, events.MatcherFunc(func(event events.Event) bool {
		d, ok := event.(Diagnostic)
		return ok && d.Severity >= min
	}))
}
