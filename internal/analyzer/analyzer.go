package analyzer

import (
	"context"
	"fmt"

	"github.com/mickamy/qprof/internal/insight"
	"github.com/mickamy/qprof/internal/model"
)

// Ranking and threshold policy.
const (
	TopNarrow = 10
	TopWide   = 100

	SpillHeavyBytes int64 = 1_000_000
	ScanHeavyBytes  int64 = 10_000_000

	CacheAllRatio  = 1.0
	CacheHighRatio = 0.8
	CacheLowRatio  = 0.5

	PruningEfficientRatio = 0.2
)

// Ranker answers questions about how a query text compares to the rest of the recent workload.
type Ranker interface {
	ExecutionStats(ctx context.Context, text string) (model.ExecStats, error)
	InTop(ctx context.Context, kind model.RankKind, limit int, text string) (bool, error)
}

// Input is what every rule sees.
type Input struct {
	Record *model.Record
	Ranker Ranker
}

// Rule derives zero or more findings from the input. Rules are independent of each other.
type Rule struct {
	Name  string
	Apply func(ctx context.Context, in *Input) ([]insight.Finding, error)
}

// Pure wraps a rule that only looks at the record.
func Pure(name string, fn func(rec *model.Record) []insight.Finding) Rule {
	return Rule{Name: name, Apply: func(_ context.Context, in *Input) ([]insight.Finding, error) {
		return fn(in.Record), nil
	}}
}

// DefaultRules returns the rule battery in report order.
func DefaultRules() []Rule {
	return []Rule{
		Pure("outcome", outcomeFindings),
		{Name: "frequency", Apply: frequencyFindings},
		{Name: "duration", Apply: rankingRule(model.RankLongest, insight.CategoryDuration, "duration.top")},
		{Name: "scan_ranking", Apply: rankingRule(model.RankHeaviest, insight.CategoryScanRank, "scan_ranking.top")},
		Pure("context", contextFindings),
		Pure("warehouse", warehouseFindings),
		Pure("rows", rowFindings),
		Pure("queue", queueFindings),
		Pure("blocking", blockingFindings),
		Pure("spill", spillFindings),
		Pure("scan", scanFindings),
		Pure("cache", cacheFindings),
		Pure("pruning", pruningFindings),
		Pure("transfer", transferFindings),
		Pure("external_functions", externalFunctionFindings),
	}
}

// Analyze merges the explain statistics into the record, when given, and runs DefaultRules.
// The ranker may be nil, in which case ranking rules are skipped.
func Analyze(ctx context.Context, rec *model.Record, plan *model.ExplainStats, ranker Ranker) ([]insight.Finding, error) {
	if rec == nil {
		return nil, fmt.Errorf("analyze: missing record")
	}
	if plan != nil {
		rec = rec.WithExplain(*plan)
	}
	return Run(ctx, DefaultRules(), &Input{Record: rec, Ranker: ranker})
}

// Run evaluates the rules in order and concatenates their findings. The first rule error aborts.
func Run(ctx context.Context, rules []Rule, in *Input) ([]insight.Finding, error) {
	out := []insight.Finding{}
	for _, rule := range rules {
		findings, err := rule.Apply(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("analyze: %s: %w", rule.Name, err)
		}
		out = append(out, findings...)
	}
	return out, nil
}

func finding(category insight.Category, severity insight.Severity, key string, values map[string]any) insight.Finding {
	return insight.Finding{Category: category, Severity: severity, Key: key, Values: values}
}
