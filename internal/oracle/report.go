package oracle

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"rsc.io/diff"
)

var (
	labelStyle = color.New(color.FgCyan, color.Bold)
	okStyle    = color.New(color.FgGreen, color.Bold)
	failStyle  = color.New(color.FgRed, color.Bold)
	faintStyle = color.New(color.Faint)
)

// Diff returns a line diff of the two captured outputs, or "" when they are
// equal.
func (r *Report) Diff() string {
	if r.Stdout1 == r.Stdout2 {
		return ""
	}
	return diff.Format(r.Stdout1, r.Stdout2)
}

// Reduction returns the relative size change from before to after.
func (r *Report) Reduction() float64 {
	if r.SizeBefore == 0 {
		return 0
	}
	return 100 * float64(r.SizeBefore-r.SizeAfter) / float64(r.SizeBefore)
}

func status(ok bool, errText string) string {
	if ok {
		return okStyle.Sprint("ok")
	}
	if errText == "" {
		errText = "failed"
	}
	return failStyle.Sprint(errText)
}

// WriteReport prints a human-readable report.
func WriteReport(w io.Writer, r *Report) {
	labelStyle.Fprint(w, "size:     ")
	fmt.Fprintf(w, "%d -> %d bytes (%.1f%% reduction)\n", r.SizeBefore, r.SizeAfter, r.Reduction())

	labelStyle.Fprint(w, "before:   ")
	fmt.Fprintf(w, "%s exit=%d %s\n", status(r.RanOK1, r.Err1), r.ExitCode1, faintStyle.Sprint(r.Elapsed1))
	labelStyle.Fprint(w, "after:    ")
	fmt.Fprintf(w, "%s exit=%d %s\n", status(r.RanOK2, r.Err2), r.ExitCode2, faintStyle.Sprint(r.Elapsed2))

	labelStyle.Fprintln(w, "stdout before:")
	fmt.Fprint(w, withNewline(r.Stdout1))
	labelStyle.Fprintln(w, "stdout after:")
	fmt.Fprint(w, withNewline(r.Stdout2))

	if d := r.Diff(); d != "" {
		labelStyle.Fprintln(w, "diff (-before +after):")
		fmt.Fprint(w, withNewline(d))
	}

	labelStyle.Fprint(w, "verdict:  ")
	if r.Matched {
		okStyle.Fprintln(w, "equivalent")
	} else {
		failStyle.Fprintln(w, "NOT equivalent")
	}
}

func withNewline(s string) string {
	if s == "" || s[len(s)-1] == '\n' {
		return s
	}
	return s + "\n"
}
