package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/fielder/internal/compiler/diagnostics"
)

// FormatDiagnostic renders a diagnostic for the terminal
//
// Example output:
//
//	❌ ERROR [FLD001] app.Handler
//	   Unable to process app.Handler: only struct types can carry the fielder:generate marker.
//	   at handler.go:12:6
func FormatDiagnostic(d diagnostics.Diagnostic, noColor bool) string {
	var b strings.Builder

	var headerColor, bodyColor *color.Color
	var symbol string
	switch d.Severity {
	case diagnostics.SeverityError:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
		symbol = "❌"
	default:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
		symbol = "ℹ️"
	}
	dim := color.New(color.Faint)

	// Disable colors if requested
	if noColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
		dim.DisableColor()
	}

	header := fmt.Sprintf("%s %s", symbol, strings.ToUpper(string(d.Severity)))
	if d.Code != diagnostics.CodeNone {
		header += fmt.Sprintf(" [%s]", d.Code)
	}
	if d.Element != "" {
		header += " " + d.Element
	}
	headerColor.Fprintln(&b, header)
	bodyColor.Fprintf(&b, "   %s\n", d.Message)

	if d.Position != "" {
		dim.Fprintf(&b, "   at %s\n", d.Position)
	}

	if d.Detail != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(strings.TrimRight(d.Detail, "\n"), "\n") {
			dim.Fprintf(&b, "     %s\n", line)
		}
	}

	return b.String()
}

// WriteDiagnostic writes a formatted diagnostic to the writer
func WriteDiagnostic(w io.Writer, d diagnostics.Diagnostic, noColor bool) {
	fmt.Fprint(w, FormatDiagnostic(d, noColor))
}

// DiagnosticPrinter returns a reporter that prints each diagnostic as it
// arrives
func DiagnosticPrinter(w io.Writer, noColor bool) diagnostics.Reporter {
	return diagnostics.ReporterFunc(func(d diagnostics.Diagnostic) {
		WriteDiagnostic(w, d, noColor)
	})
}

// FormatSummary renders the end-of-pass summary line
func FormatSummary(written, unchanged, errors int, noColor bool) string {
	if errors > 0 {
		red := color.New(color.FgRed, color.Bold)
		if noColor {
			red.DisableColor()
		}
		return red.Sprintf("✗ %d file(s) written, %d unchanged, %d error(s)", written, unchanged, errors)
	}
	return FormatSuccess(fmt.Sprintf("%d file(s) written, %d unchanged", written, unchanged), noColor)
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}
