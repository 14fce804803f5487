package html

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/mickamy/qprof/internal/insight"
	"github.com/mickamy/qprof/internal/model"
)

// Options configures the HTML renderer.
type Options struct {
	Title         string
	IncludeStyles bool
	ShowPlan      bool
}

// Render writes an HTML report with the query summary and its findings.
func Render(w io.Writer, report *model.Report, opts Options) error {
	if report == nil || report.Record == nil {
		return fmt.Errorf("html render: empty report")
	}
	if opts.Title == "" {
		opts.Title = "qprof report"
	}
	data := buildTemplateData(report, opts)
	tpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("html render: compile template: %w", err)
	}
	if err := tpl.Execute(w, data); err != nil {
		return fmt.Errorf("html render: execute template: %w", err)
	}
	return nil
}

type templateData struct {
	Title         string
	IncludeStyles bool
	QueryID       string
	QueryText     string
	Source        string
	Tiles         []tileView
	Sections      []sectionView
	PlanText      string
}

type tileView struct {
	Label string
	Value string
}

type sectionView struct {
	Title    string
	Findings []findingView
}

type findingView struct {
	Icon     string
	Severity string
	Text     string
	Link     string
}

var sectionTitles = map[insight.Category]string{
	insight.CategoryOutcome:   "Outcome",
	insight.CategoryFrequency: "Workload",
	insight.CategoryDuration:  "Workload",
	insight.CategoryScanRank:  "Workload",
	insight.CategoryContext:   "Context",
	insight.CategoryWarehouse: "Context",
	insight.CategoryRows:      "Rows",
	insight.CategoryQueue:     "Waiting",
	insight.CategoryBlocking:  "Waiting",
	insight.CategorySpill:     "Spilling",
	insight.CategoryScan:      "Scanning",
	insight.CategoryCache:     "Scanning",
	insight.CategoryPruning:   "Scanning",
	insight.CategoryTransfer:  "Data transfer",
	insight.CategoryExternal:  "External functions",
}

func buildTemplateData(report *model.Report, opts Options) templateData {
	rec := report.Record
	data := templateData{
		Title:         opts.Title,
		IncludeStyles: opts.IncludeStyles,
		QueryID:       rec.QueryID,
		QueryText:     strings.TrimRight(rec.QueryText, "\n"),
		Source:        sourceLabel(report),
		Tiles: []tileView{
			{Label: "Status", Value: rec.Status},
			{Label: "Elapsed", Value: insight.Comma(rec.TotalElapsedMs) + " ms"},
			{Label: "Scanned", Value: insight.HumanizeBytes(rec.BytesScanned)},
			{Label: "Rows produced", Value: insight.Comma(rec.RowsProduced)},
		},
	}
	if rec.WarehouseName != "" {
		data.Tiles = append(data.Tiles, tileView{Label: "Warehouse", Value: strings.TrimSpace(rec.WarehouseSize + " " + rec.WarehouseName)})
	}
	if total, ok := rec.PartitionsTotal.Get(); ok {
		data.Tiles = append(data.Tiles, tileView{
			Label: "Partitions",
			Value: fmt.Sprintf("%s / %s", insight.Comma(rec.PartitionsScanned.Or(0)), insight.Comma(total)),
		})
	}
	if opts.ShowPlan {
		data.PlanText = report.PlanText
	}

	for _, f := range report.Findings {
		title := sectionTitles[f.Category]
		if title == "" {
			title = string(f.Category)
		}
		view := findingView{
			Icon:     severityIcon(f.Severity),
			Severity: string(f.Severity),
			Text:     insight.Text(f),
			Link:     insight.Link(f),
		}
		if n := len(data.Sections); n > 0 && data.Sections[n-1].Title == title {
			data.Sections[n-1].Findings = append(data.Sections[n-1].Findings, view)
			continue
		}
		data.Sections = append(data.Sections, sectionView{Title: title, Findings: []findingView{view}})
	}
	return data
}

func sourceLabel(report *model.Report) string {
	label := "full query history"
	if report.Store == model.StoreFast {
		label = "recent query history"
	}
	if report.Executed {
		label += " · executed for this report"
	}
	return label
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

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>{{.Title}}</title>
	{{- if .IncludeStyles }}
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif; margin: 0; padding: 0; background: #f7f7f8; color: #202124; }
		main { max-width: 960px; margin: 0 auto; padding: 32px 24px 48px; }
		header { background: #212a3b; color: #f7f7f8; padding: 32px 24px; }
		header h1 { margin: 0 0 8px; font-size: 28px; }
		header p { margin: 4px 0; opacity: 0.8; }
		section { margin-top: 32px; }
		section h2 { margin-bottom: 12px; font-size: 20px; }
		pre { background: #fff; border-radius: 10px; padding: 16px; overflow-x: auto; box-shadow: 0 4px 12px rgba(13,28,39,0.10); font-size: 13px; }
		.summary-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 12px; }
		.summary-tile { background: #fff; border-radius: 10px; padding: 16px; box-shadow: 0 6px 18px rgba(13,28,39,0.12); }
		.summary-tile strong { display: block; font-size: 14px; text-transform: uppercase; letter-spacing: 0.04em; color: #5b7083; margin-bottom: 6px; }
		.summary-tile span { font-size: 18px; font-weight: 600; }
		.insight-list { list-style: none; margin: 0; padding: 0; display: flex; flex-direction: column; gap: 10px; }
		.insight-list li { background: #fff; border-radius: 12px; padding: 14px 16px; box-shadow: 0 4px 12px rgba(13,28,39,0.10); font-size: 14px; color: #253043; display: flex; align-items: center; gap: 10px; }
		.insight-list li span.icon { font-size: 18px; }
		.insight-list li a { color: #5b7083; font-size: 13px; margin-left: auto; white-space: nowrap; }
		.insight-list li.severity-warning { border-left: 4px solid #faae32; }
		.insight-list li.severity-hint { border-left: 4px solid #20b9b4; }
		.insight-list li.severity-info { border-left: 4px solid rgba(33,42,59,0.15); }
		@media (max-width: 640px) {
			main { padding: 24px 16px 32px; }
			.insight-list li { flex-wrap: wrap; }
		}
	</style>
	{{- end }}
</head>
<body>
	<header>
		<h1>{{.Title}}</h1>
		<p>Query {{.QueryID}}</p>
		<p>{{.Source}}</p>
	</header>
	<main>
		<section>
			<h2>Query</h2>
			<pre>{{.QueryText}}</pre>
		</section>

		<section>
			<h2>Highlights</h2>
			<div class="summary-grid">
				{{- range .Tiles }}
				<div class="summary-tile">
					<strong>{{.Label}}</strong>
					<span>{{.Value}}</span>
				</div>
				{{- end }}
			</div>
		</section>

		{{- range .Sections }}
		<section>
			<h2>{{.Title}}</h2>
			<ul class="insight-list">
				{{- range .Findings }}
				<li class="severity-{{.Severity}}"><span class="icon">{{.Icon}}</span><span class="insight-text">{{.Text}}</span>
					{{- if .Link }}<a href="{{.Link}}">learn more</a>{{- end }}</li>
				{{- end }}
			</ul>
		</section>
		{{- end }}

		{{- if .PlanText }}
		<section>
			<h2>Explain plan</h2>
			<pre>{{.PlanText}}</pre>
		</section>
		{{- end }}
	</main>
</body>
</html>
`
