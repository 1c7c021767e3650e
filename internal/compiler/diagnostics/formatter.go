package diagnostics

import (
	"fmt"
	"strings"
)

// Format returns a human-readable, multi-line rendering for terminal output
func Format(d Diagnostic) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s", severityIcon(d.Severity), d.Severity)
	if d.Code != CodeNone {
		fmt.Fprintf(&b, " [%s]", d.Code)
	}
	if d.Element != "" {
		fmt.Fprintf(&b, " in %s", d.Element)
	}
	b.WriteString("\n")

	if d.Position != "" {
		fmt.Fprintf(&b, "  at %s\n", d.Position)
	}
	fmt.Fprintf(&b, "  %s\n", d.Message)

	if d.Detail != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(strings.TrimRight(d.Detail, "\n"), "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}

	return b.String()
}

// FormatList returns every diagnostic preceded by a summary line
func FormatList(l List) string {
	if len(l) == 0 {
		return "no diagnostics"
	}

	var b strings.Builder
	errCount, noteCount := l.Count()
	fmt.Fprintf(&b, "%d error(s), %d note(s)\n\n", errCount, noteCount)
	for i, d := range l {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Format(d))
	}
	return b.String()
}

// FormatCompact returns a compact one-line format
func FormatCompact(d Diagnostic) string {
	var b strings.Builder
	if d.Position != "" {
		b.WriteString(d.Position)
		b.WriteString(": ")
	}
	b.WriteString(string(d.Severity))
	b.WriteString(": ")
	if d.Element != "" {
		b.WriteString(d.Element)
		b.WriteString(": ")
	}
	b.WriteString(d.Message)
	if d.Code != CodeNone {
		fmt.Fprintf(&b, " [%s]", d.Code)
	}
	return b.String()
}

func severityIcon(severity Severity) string {
	switch severity {
	case SeverityError:
		return "❌"
	case SeverityNote:
		return "ℹ️ "
	default:
		return "•"
	}
}
