// Package diagnostics defines the messages a generation pass reports to its
// host. Each diagnostic has a code, a severity and optionally the element it
// is attributed to, and renders both as terminal text and as JSON for tools.
package diagnostics

import (
	"encoding/json"
)

// Code is a unique diagnostic code.
type Code string

const (
	// CodeNone marks informational notes without a specific code.
	CodeNone Code = ""
	// CodeUnresolvedElement: a marked element is not a struct type.
	CodeUnresolvedElement Code = "FLD001"
	// CodePersistError: the writer failed to store an artifact.
	CodePersistError Code = "FLD002"
	// CodeDuplicateIdentity: two targets map to the same generated name.
	CodeDuplicateIdentity Code = "FLD003"
	// CodeInternal: any other failure while processing one target.
	CodeInternal Code = "FLD004"
)

// Severity is the severity of a diagnostic.
type Severity string

const (
	// SeverityNote is informational.
	SeverityNote Severity = "note"
	// SeverityError means the attributed target produced no artifact.
	SeverityError Severity = "error"
)

// Diagnostic is one message produced during a pass.
type Diagnostic struct {
	Code     Code     `json:"code,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	// Element is the qualified name of the element the message is about.
	Element string `json:"element,omitempty"`
	// Position is the element's source position.
	Position string `json:"position,omitempty"`
	// Detail carries extra context such as a stack trace.
	Detail string `json:"detail,omitempty"`
}

// Error implements the error interface
func (d Diagnostic) Error() string {
	return FormatCompact(d)
}

// Reporter receives diagnostics.
type Reporter interface {
	Report(d Diagnostic)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(d Diagnostic)

// Report calls f(d).
func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// Tee returns a reporter that forwards to every given reporter in order.
func Tee(reporters ...Reporter) Reporter {
	return ReporterFunc(func(d Diagnostic) {
		for _, r := range reporters {
			r.Report(d)
		}
	})
}

// List is a collection of diagnostics. A *List is a Reporter.
type List []Diagnostic

// Report appends d.
func (l *List) Report(d Diagnostic) {
	*l = append(*l, d)
}

// HasErrors returns true if the list contains any error diagnostics
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the number of errors and notes.
func (l List) Count() (errors, notes int) {
	for _, d := range l {
		switch d.Severity {
		case SeverityError:
			errors++
		case SeverityNote:
			notes++
		}
	}
	return
}

// Errors returns only the error diagnostics.
func (l List) Errors() List {
	var out List
	for _, d := range l {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// ToJSON returns all diagnostics as a JSON array
func (l List) ToJSON() (string, error) {
	if l == nil {
		l = List{}
	}
	bytes, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
