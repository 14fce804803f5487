package model

import "github.com/mickamy/qprof/internal/insight"

// Report is the outcome of profiling one query: the resolved record, the explain plan it was
// augmented with, and the findings derived from both.
type Report struct {
	Identity Identity          `json:"identity"`
	Store    Store             `json:"store"`
	Executed bool              `json:"executed"`
	Record   *Record           `json:"record"`
	Plan     *ExplainStats     `json:"plan,omitempty"`
	PlanText string            `json:"plan_text,omitempty"`
	Findings []insight.Finding `json:"findings"`
}
