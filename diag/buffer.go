package diag

import (
	"fmt"
	"sync"
)

// Buffer collects diagnostics for one input without filtering them. The
// warning settings that apply are often only known once the input has been
// read completely, so filtering happens later with Warnings.Apply.
//
// A Buffer is safe for concurrent use.
type Buffer struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// Errorf records an error at pos.
func (b *Buffer) Errorf(pos Pos, format string, args ...any) {
	b.Add(Diagnostic{Pos: pos, Category: CategoryError, Severity: Error, Message: fmt.Sprintf(format, args...)})
}

// Warnf records a warning of category c at pos.
func (b *Buffer) Warnf(pos Pos, c Category, format string, args ...any) {
	sev := Warning
	if c.Descriptor().Fatal {
		sev = Error
	}
	b.Add(Diagnostic{Pos: pos, Category: c, Severity: sev, Message: fmt.Sprintf(format, args...)})
}

// Add records d. A diagnostic identical to one already recorded is
// dropped.
func (b *Buffer) Add(d Diagnostic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, have := range b.diags {
		if have.Category == d.Category && have.String() == d.String() {
			return
		}
	}
	b.diags = append(b.diags, d)
}

// Append records every diagnostic of other, in order.
func (b *Buffer) Append(other *Buffer) {
	diags := other.Diagnostics()
	b.mu.Lock()
	b.diags = append(b.diags, diags...)
	b.mu.Unlock()
}

// Diagnostics returns a copy of the recorded diagnostics.
func (b *Buffer) Diagnostics() []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Diagnostic(nil), b.diags...)
}

// HasErrors reports whether an error has been recorded. Warnings promoted by
// -Werror are not counted here.
func (b *Buffer) HasErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
