package analyzer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/qprof/internal/analyzer"
	"github.com/mickamy/qprof/internal/insight"
	"github.com/mickamy/qprof/internal/model"
	"github.com/mickamy/qprof/test"
)

type fakeRanker struct {
	stats model.ExecStats
	// rank per kind; 0 means unranked
	ranks map[model.RankKind]int
	err   error
	calls int
}

func (f *fakeRanker) ExecutionStats(context.Context, string) (model.ExecStats, error) {
	f.calls++
	return f.stats, f.err
}

func (f *fakeRanker) InTop(_ context.Context, kind model.RankKind, limit int, _ string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	r := f.ranks[kind]
	return r > 0 && r <= limit, nil
}

func keys(findings []insight.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Key)
	}
	return out
}

func keysIn(findings []insight.Finding, category insight.Category) []string {
	var out []string
	for _, f := range findings {
		if f.Category == category {
			out = append(out, f.Key)
		}
	}
	return out
}

func fullRecord() *model.Record {
	return &model.Record{
		Source:             model.StoreFull,
		QueryID:            "q",
		QueryText:          "select 1",
		Status:             model.StatusSuccess,
		UserName:           "ANALYST",
		RoleName:           "REPORTING",
		WarehouseName:      "ANALYTICS_WH",
		WarehouseType:      "STANDARD",
		WarehouseSize:      "X-Small",
		BytesSpilledLocal:  model.Some(int64(0)),
		BytesSpilledRemote: model.Some(int64(0)),
	}
}

func analyze(t *testing.T, rec *model.Record, ranker analyzer.Ranker) []insight.Finding {
	t.Helper()
	findings, err := analyzer.Analyze(context.Background(), rec, nil, ranker)
	require.NoError(t, err)
	for _, f := range findings {
		require.True(t, insight.Known(f.Key), "finding %s has no message", f.Key)
	}
	return findings
}

func TestSpillOrder(t *testing.T) {
	rec := fullRecord()
	rec.BytesSpilledRemote = model.Some(int64(2_000_000))

	findings := analyze(t, rec, nil)
	assert.Equal(t, []string{"spill.local.none", "spill.remote.heavy"}, keysIn(findings, insight.CategorySpill))

	for _, f := range findings {
		if f.Key == "spill.remote.heavy" {
			assert.Equal(t, insight.SeverityWarning, f.Severity)
		}
	}
}

func TestSpillSomeLocal(t *testing.T) {
	rec := fullRecord()
	rec.BytesSpilledLocal = model.Some(int64(999_999))
	findings := analyze(t, rec, nil)
	assert.Equal(t, []string{"spill.local.some", "spill.remote.none"}, keysIn(findings, insight.CategorySpill))
}

func TestCacheBoundaries(t *testing.T) {
	cases := map[float64]string{
		1.0:  "cache.all",
		0.81: "cache.high",
		0.8:  "cache.partial",
		0.5:  "cache.partial",
		0.49: "cache.low",
		0:    "cache.low",
	}
	for ratio, want := range cases {
		rec := fullRecord()
		rec.PercentFromCache = model.Some(ratio)
		got := keysIn(analyze(t, rec, nil), insight.CategoryCache)
		assert.Equal(t, []string{want}, got, "ratio %v", ratio)
	}
}

func TestPruning(t *testing.T) {
	cases := []struct {
		scanned, total int64
		want           []string
	}{
		{1000, 1000, []string{"pruning.full_scan"}},
		{150, 1000, []string{"pruning.efficient"}},
		{200, 1000, []string{"pruning.efficient"}},
		{500, 1000, []string{"pruning.improve"}},
		{0, 0, nil},
	}
	for _, tc := range cases {
		rec := fullRecord()
		rec.PartitionsScanned = model.Some(tc.scanned)
		rec.PartitionsTotal = model.Some(tc.total)
		got := keysIn(analyze(t, rec, nil), insight.CategoryPruning)
		assert.Equal(t, tc.want, got, "%d/%d", tc.scanned, tc.total)
	}
}

func TestPruningFromExplainPlan(t *testing.T) {
	rec := fullRecord()
	plan := &model.ExplainStats{PartitionsTotal: 1000, PartitionsScanned: 150, BytesScanned: 20_000_000}
	findings, err := analyzer.Analyze(context.Background(), rec, plan, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"pruning.efficient"}, keysIn(findings, insight.CategoryPruning))
	assert.Equal(t, []string{"scan.bytes", "scan.bytes.reduce"}, keysIn(findings, insight.CategoryScan))
}

func TestDurationRankTwoTier(t *testing.T) {
	ranker := &fakeRanker{ranks: map[model.RankKind]int{model.RankLongest: 45, model.RankHeaviest: 3}}
	findings := analyze(t, fullRecord(), ranker)

	var duration, scan []insight.Finding
	for _, f := range findings {
		switch f.Category {
		case insight.CategoryDuration:
			duration = append(duration, f)
		case insight.CategoryScanRank:
			scan = append(scan, f)
		}
	}
	require.Len(t, duration, 1)
	assert.Equal(t, analyzer.TopWide, duration[0].Values["limit"])
	require.Len(t, scan, 1)
	assert.Equal(t, analyzer.TopNarrow, scan[0].Values["limit"])
}

func TestFrequency(t *testing.T) {
	ranker := &fakeRanker{
		stats: model.ExecStats{Count: 12, TotalSeconds: 40.5},
		ranks: map[model.RankKind]int{model.RankFrequent: 2},
	}
	findings := analyze(t, fullRecord(), ranker)
	assert.Equal(t, []string{"frequency.executions", "frequency.top"}, keysIn(findings, insight.CategoryFrequency))
	for _, f := range findings {
		if f.Category == insight.CategoryFrequency {
			assert.Equal(t, model.WindowDays, f.Values["days"], f.Key)
		}
	}

	ranker = &fakeRanker{stats: model.ExecStats{Count: 1}, ranks: map[model.RankKind]int{model.RankFrequent: 1}}
	findings = analyze(t, fullRecord(), ranker)
	assert.Empty(t, keysIn(findings, insight.CategoryFrequency))
}

func TestFailedRecord(t *testing.T) {
	rec := fullRecord()
	rec.Status = "FAILED_WITH_ERROR"
	rec.ErrorCode = model.Some("002003")
	rec.ErrorMessage = model.Some("Object 'ORDERS' does not exist")
	ranker := &fakeRanker{ranks: map[model.RankKind]int{model.RankLongest: 1}}

	findings := analyze(t, rec, ranker)
	require.NotEmpty(t, findings)
	assert.Equal(t, "outcome.failed", findings[0].Key)
	assert.Equal(t, insight.SeverityWarning, findings[0].Severity)
	assert.Equal(t, "context.user", findings[1].Key)
	assert.Len(t, keysIn(findings, insight.CategoryOutcome), 1)
	assert.Zero(t, ranker.calls)
	assert.Contains(t, insight.Text(findings[0]), "002003")
}

func TestOtherStatus(t *testing.T) {
	rec := fullRecord()
	rec.Status = "RUNNING"
	findings := analyze(t, rec, &fakeRanker{})
	assert.Equal(t, "outcome.status", findings[0].Key)
}

func TestFastRecordSkipsFullOnlyRules(t *testing.T) {
	rec := test.FastRecord(t)
	ranker := &fakeRanker{stats: model.ExecStats{Count: 5}, ranks: map[model.RankKind]int{model.RankLongest: 1}}
	findings := analyze(t, rec, ranker)

	for _, c := range []insight.Category{insight.CategorySpill, insight.CategoryCache, insight.CategoryPruning, insight.CategoryDuration, insight.CategoryFrequency} {
		assert.Empty(t, keysIn(findings, c), "category %s", c)
	}
	assert.Equal(t, []string{"rows.produced"}, keysIn(findings, insight.CategoryRows))
	assert.Zero(t, ranker.calls)
}

func TestSampleFullRecord(t *testing.T) {
	findings := analyze(t, test.FullRecord(t), nil)
	assert.Equal(t, []string{
		"outcome.success",
		"context.user",
		"context.namespace",
		"warehouse.usage",
		"rows.produced",
		"queue.overload",
		"spill.local.none",
		"spill.remote.none",
		"scan.bytes",
		"scan.bytes.reduce",
		"cache.low",
		"pruning.full_scan",
	}, keys(findings))
}

func TestRowEffectsTransferAndExternal(t *testing.T) {
	rec := fullRecord()
	rec.RowsInserted = model.Some(int64(10))
	rec.BytesWritten = model.Some(int64(2048))
	rec.RowsUnloaded = model.Some(int64(0))
	rec.InboundBytes = 4096
	rec.InboundCloud = "AWS"
	rec.InboundRegion = "us-west-2"
	rec.ExternalInvocations = 3
	rec.TransactionBlockedMs = 15

	findings := analyze(t, rec, nil)
	assert.Equal(t, []string{"rows.produced", "rows.inserted"}, keysIn(findings, insight.CategoryRows))
	assert.Equal(t, []string{"transfer.inbound"}, keysIn(findings, insight.CategoryTransfer))
	assert.Equal(t, []string{"external_functions.calls"}, keysIn(findings, insight.CategoryExternal))
	assert.Equal(t, []string{"blocking.transaction"}, keysIn(findings, insight.CategoryBlocking))
}

func TestRankerErrorAborts(t *testing.T) {
	boom := &model.StoreError{Op: "rank longest", Err: errors.New("timeout")}
	_, err := analyzer.Analyze(context.Background(), fullRecord(), nil, &fakeRanker{err: boom})
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestRunCustomRules(t *testing.T) {
	rules := []analyzer.Rule{
		analyzer.Pure("a", func(*model.Record) []insight.Finding { return []insight.Finding{{Key: "a"}} }),
		analyzer.Pure("b", func(*model.Record) []insight.Finding { return nil }),
		analyzer.Pure("c", func(*model.Record) []insight.Finding { return []insight.Finding{{Key: "c"}} }),
	}
	findings, err := analyzer.Run(context.Background(), rules, &analyzer.Input{Record: fullRecord()})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, keys(findings))
}

func TestQueueTransferAndRowEffectCases(t *testing.T) {
	tests := []struct {
		name     string
		edit     func(rec *model.Record)
		category insight.Category
		want     []string
	}{
		{
			name:     "provisioning",
			edit:     func(rec *model.Record) { rec.QueuedProvisioningMs = 120 },
			category: insight.CategoryQueue,
			want:     []string{"queue.provisioning"},
		},
		{
			name:     "repair",
			edit:     func(rec *model.Record) { rec.QueuedRepairMs = 30 },
			category: insight.CategoryQueue,
			want:     []string{"queue.repair"},
		},
		{
			name: "every queue cause",
			edit: func(rec *model.Record) {
				rec.QueuedProvisioningMs = 1
				rec.QueuedRepairMs = 2
				rec.QueuedOverloadMs = 3
			},
			category: insight.CategoryQueue,
			want:     []string{"queue.provisioning", "queue.repair", "queue.overload"},
		},
		{
			name: "outbound",
			edit: func(rec *model.Record) {
				rec.OutboundBytes = 8192
				rec.OutboundCloud = "AZURE"
				rec.OutboundRegion = "westeurope"
			},
			category: insight.CategoryTransfer,
			want:     []string{"transfer.outbound"},
		},
		{
			name: "inbound and outbound",
			edit: func(rec *model.Record) {
				rec.InboundBytes = 1
				rec.OutboundBytes = 1
			},
			category: insight.CategoryTransfer,
			want:     []string{"transfer.inbound", "transfer.outbound"},
		},
		{
			name: "deleted",
			edit: func(rec *model.Record) {
				rec.RowsDeleted = model.Some(int64(4))
				rec.BytesDeleted = model.Some(int64(1024))
			},
			category: insight.CategoryRows,
			want:     []string{"rows.produced", "rows.deleted"},
		},
		{
			name:     "updated",
			edit:     func(rec *model.Record) { rec.RowsUpdated = model.Some(int64(5)) },
			category: insight.CategoryRows,
			want:     []string{"rows.produced", "rows.updated"},
		},
		{
			name:     "unloaded",
			edit:     func(rec *model.Record) { rec.RowsUnloaded = model.Some(int64(6)) },
			category: insight.CategoryRows,
			want:     []string{"rows.produced", "rows.unloaded"},
		},
		{
			name: "every row effect",
			edit: func(rec *model.Record) {
				rec.RowsInserted = model.Some(int64(1))
				rec.RowsDeleted = model.Some(int64(1))
				rec.RowsUpdated = model.Some(int64(1))
				rec.RowsUnloaded = model.Some(int64(1))
			},
			category: insight.CategoryRows,
			want:     []string{"rows.produced", "rows.inserted", "rows.deleted", "rows.updated", "rows.unloaded"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := fullRecord()
			tc.edit(rec)
			findings := analyze(t, rec, nil)
			assert.Equal(t, tc.want, keysIn(findings, tc.category))
		})
	}
}

func TestOutboundTransferValues(t *testing.T) {
	rec := fullRecord()
	rec.OutboundBytes = 8192
	rec.OutboundCloud = "AZURE"
	rec.OutboundRegion = "westeurope"

	findings := analyze(t, rec, nil)
	for _, f := range findings {
		if f.Key != "transfer.outbound" {
			continue
		}
		assert.Equal(t, "AZURE", f.Values["cloud"])
		assert.Equal(t, "westeurope", f.Values["region"])
		assert.Equal(t, int64(8192), f.Values["bytes"])
		assert.Contains(t, insight.Text(f), "westeurope")
		return
	}
	t.Fatal("expected a transfer.outbound finding")
}
