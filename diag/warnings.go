package diag

import (
	"fmt"
	"strings"

	"github.com/go-automake/automake"
)

// Warnings records which warning categories are enabled and whether
// warnings are promoted to errors.
type Warnings struct {
	enabled map[Category]bool
	werror  bool
}

// DefaultWarnings returns the settings in effect before any -W option is
// seen. Foreign strictness turns off the gnu and portability categories.
func DefaultWarnings(strictness automake.Strictness) *Warnings {
	w := &Warnings{enabled: make(map[Category]bool)}
	w.Reset(strictness)
	return w
}

// Reset restores the defaults for strictness. Explicit settings are lost,
// which matches the effect of a strictness option in AUTOMAKE_OPTIONS.
func (w *Warnings) Reset(strictness automake.Strictness) {
	for _, d := range Categories() {
		if d.Fatal {
			continue
		}
		w.enabled[d.Category] = d.Default && strictness >= d.MinStrictness
	}
}

// Clone returns an independent copy of w.
func (w *Warnings) Clone() *Warnings {
	c := &Warnings{enabled: make(map[Category]bool, len(w.enabled)), werror: w.werror}
	for k, v := range w.enabled {
		c.enabled[k] = v
	}
	return c
}

// Set applies one -W argument. The argument may hold several comma separated
// settings; each is "all", "none", "error", "no-error", a category name, or
// a category name prefixed with "no-".
func (w *Warnings) Set(spec string) error {
	for _, setting := range strings.Split(spec, ",") {
		setting = strings.TrimSpace(setting)
		if setting == "" {
			continue
		}
		if err := w.set(setting); err != nil {
			return err
		}
	}
	return nil
}

func (w *Warnings) set(setting string) error {
	switch setting {
	case "all":
		for c := range w.enabled {
			w.enabled[c] = true
		}
		return nil
	case "none":
		for c := range w.enabled {
			w.enabled[c] = false
		}
		return nil
	case "error":
		w.werror = true
		return nil
	case "no-error":
		w.werror = false
		return nil
	}

	enable := true
	name := setting
	if strings.HasPrefix(setting, "no-") {
		enable = false
		name = strings.TrimPrefix(setting, "no-")
	}
	c, ok := ParseCategory(name)
	if !ok || c.Descriptor().Fatal {
		return fmt.Errorf("unknown warning category '%s'", name)
	}
	w.enabled[c] = enable
	return nil
}

// Enabled reports whether diagnostics of category c are reported.
func (w *Warnings) Enabled(c Category) bool {
	if c.Descriptor().Fatal {
		return true
	}
	return w.enabled[c]
}

// Werror reports whether warnings are promoted to errors.
func (w *Warnings) Werror() bool {
	return w.werror
}

// Apply filters diagnostics through the settings: warnings in disabled
// categories are dropped and, with -Werror, the rest become errors.
func (w *Warnings) Apply(diags []Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Severity == Warning {
			if !w.Enabled(d.Category) {
				continue
			}
			if w.werror {
				d.Severity = Error
			}
		}
		out = append(out, d)
	}
	return out
}
