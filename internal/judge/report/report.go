// Package report renders a RunReport as a human-readable summary.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"cfjudge/internal/judge/result"
)

const endOfOutput = "<end of output>"

// Render returns the text summary of r.
func Render(r result.RunReport) string {
	var b strings.Builder
	Write(&b, r)
	return b.String()
}

// Write renders r into w.
func Write(w io.Writer, r result.RunReport) {
	fmt.Fprintf(w, "%s  %s\n", r.Language, r.SourcePath)

	switch r.Status {
	case result.StatusBuildFailed:
		reason := ""
		if r.Build != nil && r.Build.Reason != "" {
			reason = " (" + string(r.Build.Reason) + ")"
		}
		fmt.Fprintf(w, "status: %s%s\n", r.Status, reason)
		if diag := strings.TrimRight(r.BuildDiagnostic(), "\n"); diag != "" {
			fmt.Fprintln(w, "--- build output ---")
			fmt.Fprintln(w, diag)
		}
		return
	case result.StatusNoTestCases:
		fmt.Fprintf(w, "status: %s (add in.txt/out.txt or in1.txt/out1.txt ...)\n", r.Status)
		return
	}

	fmt.Fprintf(w, "status: %s (%d/%d passed, %d ms)\n", r.Status, r.PassedCount(), len(r.Cases), r.TotalTimeMs)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range r.Cases {
		fmt.Fprintf(tw, "  case %s\t%s\t%d ms\t%s\n", c.Name, c.Outcome, c.TimeMs, firstLine(c.Message))
	}
	_ = tw.Flush()

	failure := r.FirstFailure()
	if failure == nil {
		return
	}
	fmt.Fprintf(w, "first failure: case %s (%s)\n", failure.Name, failure.Outcome)
	if failure.Message != "" {
		fmt.Fprintf(w, "  %s\n", failure.Message)
	}
	if d := failure.Diff; d != nil {
		fmt.Fprintf(w, "  line %d\n", d.Line)
		fmt.Fprintf(w, "    expected: %s\n", diffSide(d.Expected, d.Line, d.ExpectedLines))
		fmt.Fprintf(w, "    actual:   %s\n", diffSide(d.Actual, d.Line, d.ActualLines))
	}
	if failure.Outcome == result.OutcomeRuntimeError && failure.Stderr != "" {
		fmt.Fprintln(w, "  stderr:")
		writeIndented(w, failure.Stderr, "    ")
	}
	if failure.Actual != "" && failure.Diff == nil {
		fmt.Fprintln(w, "  output:")
		writeIndented(w, failure.Actual, "    ")
	}
}

func diffSide(text string, line, total int) string {
	if line > total {
		return endOfOutput
	}
	return fmt.Sprintf("%q", text)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func writeIndented(w io.Writer, text, indent string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(w, "%s%s\n", indent, line)
	}
}
