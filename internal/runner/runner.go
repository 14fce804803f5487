package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mickamy/qprof/internal/analyzer"
	"github.com/mickamy/qprof/internal/model"
	"github.com/mickamy/qprof/internal/parser"
	"github.com/mickamy/qprof/internal/resolver"
)

// Source is the warehouse as seen by the pipeline.
type Source interface {
	resolver.Source
	analyzer.Ranker
	Explain(ctx context.Context, statement string) (string, error)
}

// Options customises a profiling run.
type Options struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// Run profiles one query: resolve its telemetry row, normalize it, merge the explain plan and
// analyze the result. Steps run one after another and the first error aborts the run.
func Run(ctx context.Context, src Source, id model.Identity, opts Options) (*model.Report, error) {
	if src == nil {
		return nil, fmt.Errorf("runner: no source")
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	res, err := resolver.New(src, logger).Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, err := parser.NormalizeRow(res.Row, res.Store)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved",
		zap.String("query_id", rec.QueryID),
		zap.String("store", string(rec.Source)),
		zap.Bool("executed", res.Executed),
		zap.String("status", rec.Status),
	)

	report := &model.Report{
		Identity: id,
		Store:    res.Store,
		Executed: res.Executed,
	}

	// A failed statement may not compile, so there is nothing to explain.
	if !rec.Failed() {
		logger.Info("fetching explain plan")
		text, err := src.Explain(ctx, rec.QueryText)
		if err != nil {
			return nil, err
		}
		stats, err := parser.ParseExplainText(text)
		if err != nil {
			return nil, err
		}
		rec = rec.WithExplain(stats)
		report.Plan = &stats
		report.PlanText = text
	}
	report.Record = rec

	findings, err := analyzer.Analyze(ctx, rec, nil, src)
	if err != nil {
		return nil, err
	}
	report.Findings = findings
	return report, nil
}
