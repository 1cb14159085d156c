// Package diag collects diagnostics for a reconciliation step. Every entry
// is attributed to a structured attribute path (e.g. read["name"].cmd) so
// the caller can point at the exact declaration responsible.
package diag

import (
	"fmt"
	"strconv"
	"strings"
)

// Severity classifies a diagnostic entry.
type Severity string

const (
	// SeverityError aborts the step: a step returns no result when the
	// collector holds at least one error.
	SeverityError Severity = "error"

	// SeverityWarning is surfaced to the user but does not block.
	SeverityWarning Severity = "warning"
)

// Path is a structured attribute path pointing into a resource declaration.
type Path struct {
	steps []string
}

// Root starts a path at a top-level attribute.
func Root(attr string) Path {
	return Path{steps: []string{attr}}
}

// Attr appends a nested attribute step.
func (p Path) Attr(name string) Path {
	return Path{steps: append(append([]string{}, p.steps...), "."+name)}
}

// Key appends a string map-key step.
func (p Path) Key(key string) Path {
	return Path{steps: append(append([]string{}, p.steps...), "["+strconv.Quote(key)+"]")}
}

// Index appends a list-index step.
func (p Path) Index(i int) Path {
	return Path{steps: append(append([]string{}, p.steps...), "["+strconv.Itoa(i)+"]")}
}

// String renders the path, e.g. `update[2].cmd` or `read["addr"].cmd`.
func (p Path) String() string {
	return strings.Join(p.steps, "")
}

// IsZero reports whether the path points nowhere.
func (p Path) IsZero() bool { return len(p.steps) == 0 }

// Diagnostic is a single attributed message.
type Diagnostic struct {
	Severity Severity
	Summary  string
	Detail   string
	Path     Path
}

func (d Diagnostic) String() string {
	if d.Path.IsZero() {
		if d.Detail == "" {
			return fmt.Sprintf("[%s] %s", d.Severity, d.Summary)
		}
		return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Summary, d.Detail)
	}
	if d.Detail == "" {
		return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Path, d.Summary)
	}
	return fmt.Sprintf("[%s] %s: %s: %s", d.Severity, d.Path, d.Summary, d.Detail)
}

// Diagnostics accumulates entries for one reconciliation step.
// It is not safe for concurrent use; fan-out code must gather results
// first and report from a single goroutine.
type Diagnostics struct {
	entries []Diagnostic
}

// Error records an error-level entry.
func (d *Diagnostics) Error(summary, detail string, path Path) {
	d.entries = append(d.entries, Diagnostic{
		Severity: SeverityError,
		Summary:  summary,
		Detail:   detail,
		Path:     path,
	})
}

// Warning records a warning-level entry.
func (d *Diagnostics) Warning(summary, detail string, path Path) {
	d.entries = append(d.entries, Diagnostic{
		Severity: SeverityWarning,
		Summary:  summary,
		Detail:   detail,
		Path:     path,
	})
}

// Report records an entry at the given severity. Useful where a failure is
// downgraded to a warning by a resource's faillible flag.
func (d *Diagnostics) Report(sev Severity, summary, detail string, path Path) {
	d.entries = append(d.entries, Diagnostic{
		Severity: sev,
		Summary:  summary,
		Detail:   detail,
		Path:     path,
	})
}

// Extend appends all entries from another collector.
func (d *Diagnostics) Extend(other *Diagnostics) {
	d.entries = append(d.entries, other.entries...)
}

// HasErrors reports whether any error-level entry was recorded.
func (d *Diagnostics) HasErrors() bool {
	for _, e := range d.entries {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// All returns every recorded entry in order.
func (d *Diagnostics) All() []Diagnostic {
	return d.entries
}

// Errors returns the error-level entries in order.
func (d *Diagnostics) Errors() []Diagnostic {
	var out []Diagnostic
	for _, e := range d.entries {
		if e.Severity == SeverityError {
			out = append(out, e)
		}
	}
	return out
}

// Warnings returns the warning-level entries in order.
func (d *Diagnostics) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, e := range d.entries {
		if e.Severity == SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}
