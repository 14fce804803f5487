package text

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/mickamy/qprof/internal/insight"
	"github.com/mickamy/qprof/internal/model"
)

// Options controls how the text renderer behaves.
type Options struct {
	EnableColor bool
	ShowPlan    bool
	RuleWidth   int
}

type styles struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	warning lipgloss.Style
	hint    lipgloss.Style
	info    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#5B7083")),
		warning: r.NewStyle().Foreground(lipgloss.Color("#F4D03F")).Bold(true),
		hint:    r.NewStyle().Foreground(lipgloss.Color("#2CD7C7")),
		info:    r.NewStyle(),
	}
}

// Render prints the report as plain text, one finding per line.
func Render(w io.Writer, report *model.Report, opts Options) error {
	if w == nil {
		return errors.New("text: writer is nil")
	}
	if report == nil || report.Record == nil {
		return errors.New("text: empty report")
	}
	if opts.RuleWidth <= 0 {
		opts.RuleWidth = 57
	}

	r := lipgloss.NewRenderer(w)
	if opts.EnableColor {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	st := newStyles(r)

	rec := report.Record
	rule := strings.Repeat("=", opts.RuleWidth)
	_, _ = fmt.Fprintln(w, rule)
	_, _ = fmt.Fprintln(w, strings.TrimRight(rec.QueryText, "\n"))
	_, _ = fmt.Fprintln(w, rule)
	_, _ = fmt.Fprintf(w, "%s %s\n", st.title.Render("Query ID:"), rec.QueryID)
	_, _ = fmt.Fprintf(w, "%s %s\n", st.title.Render("Source:"), describeSource(report))
	_, _ = fmt.Fprintln(w)

	renderFindings(w, report.Findings, st)

	if opts.ShowPlan && report.PlanText != "" {
		_, _ = fmt.Fprintln(w, st.title.Render("Explain plan:"))
		for _, line := range strings.Split(strings.TrimRight(report.PlanText, "\n"), "\n") {
			_, _ = fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return nil
}

func describeSource(report *model.Report) string {
	var where string
	switch report.Store {
	case model.StoreFull:
		where = "full query history"
	case model.StoreFast:
		where = "recent query history"
	default:
		where = string(report.Store)
	}
	if report.Executed {
		where += ", executed for this report"
	}
	return where
}

func renderFindings(w io.Writer, findings []insight.Finding, st styles) {
	if len(findings) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, st.title.Render("Findings:"))
	var last insight.Category
	for i, f := range findings {
		if i > 0 && f.Category != last {
			_, _ = fmt.Fprintln(w)
		}
		last = f.Category

		_, _ = fmt.Fprintf(w, "  %s %s\n", severityIcon(f.Severity), styleFor(st, f.Severity).Render(insight.Text(f)))
		if link := insight.Link(f); link != "" {
			_, _ = fmt.Fprintf(w, "     %s\n", st.muted.Render("See "+link))
		}
	}
	_, _ = fmt.Fprintln(w)
}

func styleFor(st styles, sev insight.Severity) lipgloss.Style {
	switch sev {
	case insight.SeverityWarning:
		return st.warning
	case insight.SeverityHint:
		return st.hint
	default:
		return st.info
	}
}

func severityIcon(sev insight.Severity) string {
	switch sev {
	case insight.SeverityWarning:
		return "⚠️"
	case insight.SeverityHint:
		return "💡"
	default:
		return "ℹ️"
	}
}
