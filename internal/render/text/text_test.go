package text_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mickamy/qprof/internal/analyzer"
	"github.com/mickamy/qprof/internal/model"
	"github.com/mickamy/qprof/internal/parser"
	"github.com/mickamy/qprof/internal/render/text"
	"github.com/mickamy/qprof/test"
)

func sampleReport(t *testing.T) *model.Report {
	t.Helper()
	planText := test.ReadSample(t, "explain_global_stats.txt")
	plan, err := parser.ParseExplainText(planText)
	if err != nil {
		t.Fatalf("parse plan: %v", err)
	}
	rec := test.FullRecord(t).WithExplain(plan)
	findings, err := analyzer.Analyze(context.Background(), rec, nil, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return &model.Report{
		Identity: model.ByID(rec.QueryID),
		Store:    rec.Source,
		Record:   rec,
		Plan:     &plan,
		PlanText: planText,
		Findings: findings,
	}
}

func TestRenderSampleText(t *testing.T) {
	report := sampleReport(t)

	var buf bytes.Buffer
	if err := text.Render(&buf, report, text.Options{ShowPlan: true}); err != nil {
		t.Fatalf("render text: %v", err)
	}
	output := buf.String()
	for _, want := range []string{
		"select o_orderpriority, count(*) from orders group by 1",
		"Query ID: 01b0f5a2-0602-8a1c-0000-4c1d0003a2f6",
		"full query history",
		"The query ran successfully in 4,389 ms",
		"4 partitions out of a total of 40 have been scanned",
		"See https://community.snowflake.com/s/article/How-to-recognize-unsatisfactory-pruning",
		"Explain plan:",
		"partitionsAssigned=4",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in output:\n%s", want, output)
		}
	}
	if strings.Contains(output, "\x1b[") {
		t.Fatalf("expected no escape sequences without color")
	}
}

func TestRenderColor(t *testing.T) {
	var buf bytes.Buffer
	if err := text.Render(&buf, sampleReport(t), text.Options{EnableColor: true}); err != nil {
		t.Fatalf("render text: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected escape sequences with color enabled")
	}
	if strings.Contains(buf.String(), "Explain plan:") {
		t.Fatalf("plan should be hidden unless requested")
	}
}

func TestRenderEmptyReport(t *testing.T) {
	if err := text.Render(&bytes.Buffer{}, &model.Report{}, text.Options{}); err == nil {
		t.Fatalf("expected error for empty report")
	}
}
