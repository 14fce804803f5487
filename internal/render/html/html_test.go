package html_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/mickamy/qprof/internal/analyzer"
	"github.com/mickamy/qprof/internal/model"
	"github.com/mickamy/qprof/internal/render/html"
	"github.com/mickamy/qprof/test"
)

func TestRenderSampleHTML(t *testing.T) {
	rec := test.FullRecord(t)
	rec.QueryText = "select * from orders where o_comment like '<b>%'"
	findings, err := analyzer.Analyze(context.Background(), rec, nil, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	report := &model.Report{Identity: model.ByID(rec.QueryID), Store: rec.Source, Record: rec, Findings: findings, PlanText: "GlobalStats:"}

	var buf bytes.Buffer
	if err := html.Render(&buf, report, html.Options{Title: "test", IncludeStyles: true}); err != nil {
		t.Fatalf("render html: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected html output")
	}
	for _, want := range []string{"Spilling", "Scanning", "severity-warning", "learn more", "&lt;b&gt;"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("expected %q in html output", want)
		}
	}
	if bytes.Contains(buf.Bytes(), []byte("Explain plan")) {
		t.Fatalf("plan should be hidden unless requested")
	}
}

func TestRenderEmptyReport(t *testing.T) {
	if err := html.Render(&bytes.Buffer{}, nil, html.Options{}); err == nil {
		t.Fatalf("expected error for empty report")
	}
}
