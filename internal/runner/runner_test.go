package runner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/qprof/internal/insight"
	"github.com/mickamy/qprof/internal/model"
	"github.com/mickamy/qprof/internal/runner"
	"github.com/mickamy/qprof/test"
)

type fakeSource struct {
	full, fast *model.RawRow
	execID     string
	plan       string
	explained  []string
	executed   int
}

func (f *fakeSource) Find(_ context.Context, store model.Store, id model.Identity) (*model.RawRow, error) {
	if store == model.StoreFull {
		return f.full, nil
	}
	if f.execID != "" && id != model.ByID(f.execID) {
		return nil, nil
	}
	return f.fast, nil
}

func (f *fakeSource) Execute(context.Context, string) (string, error) {
	f.executed++
	return f.execID, nil
}

func (f *fakeSource) Explain(_ context.Context, statement string) (string, error) {
	f.explained = append(f.explained, statement)
	return f.plan, nil
}

func (f *fakeSource) ExecutionStats(context.Context, string) (model.ExecStats, error) {
	return model.ExecStats{Count: 4, TotalSeconds: 17.6}, nil
}

func (f *fakeSource) InTop(_ context.Context, kind model.RankKind, limit int, _ string) (bool, error) {
	return kind == model.RankLongest && limit == 100, nil
}

func setColumn(row *model.RawRow, name string, value any) {
	for i, c := range row.Columns {
		if c == name {
			row.Values[i] = value
		}
	}
}

func TestRunFullStore(t *testing.T) {
	src := &fakeSource{
		full: test.LoadSampleRow(t, "account_usage_row.json"),
		plan: test.ReadSample(t, "explain_global_stats.txt"),
	}

	report, err := runner.Run(context.Background(), src, model.ByID("01b0f5a2-0602-8a1c-0000-4c1d0003a2f6"), runner.Options{})
	require.NoError(t, err)

	assert.Equal(t, model.StoreFull, report.Store)
	assert.False(t, report.Executed)
	require.NotNil(t, report.Plan)
	assert.Equal(t, int64(5242880), report.Record.BytesScanned)
	assert.Equal(t, model.Some(int64(4)), report.Record.PartitionsScanned)
	assert.Equal(t, []string{"select o_orderpriority, count(*) from orders group by 1"}, src.explained)

	var keys []string
	for _, f := range report.Findings {
		keys = append(keys, f.Key)
	}
	assert.Contains(t, keys, "frequency.executions")
	assert.Contains(t, keys, "duration.top")
	assert.Contains(t, keys, "pruning.efficient")
	assert.NotContains(t, keys, "scan.bytes.reduce")
}

func TestRunExecutesUnknownText(t *testing.T) {
	src := &fakeSource{
		fast:   test.LoadSampleRow(t, "information_schema_row.json"),
		execID: "01b0f5b7-0602-8a1c-0000-4c1d0003a31e",
		plan:   "GlobalStats:\n partitionsTotal=8\n partitionsAssigned=2\n bytesAssigned=1024\n",
	}

	report, err := runner.Run(context.Background(), src, model.ByText("select o_orderpriority, count(*) from orders group by 1"), runner.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, src.executed)
	assert.True(t, report.Executed)
	assert.Equal(t, model.StoreFast, report.Store)
	assert.Equal(t, "01b0f5b7-0602-8a1c-0000-4c1d0003a31e", report.Record.QueryID)
}

func TestRunExecutedQueryMissing(t *testing.T) {
	src := &fakeSource{execID: "01b0-lost"}
	_, err := runner.Run(context.Background(), src, model.ByText("select 42"), runner.Options{})
	require.ErrorIs(t, err, model.ErrStoreInconsistent)
	assert.Equal(t, 1, src.executed)
}

func TestRunFastStoreSkipsFullOnlyFindings(t *testing.T) {
	src := &fakeSource{
		fast: test.LoadSampleRow(t, "information_schema_row.json"),
		plan: "GlobalStats:\n partitionsTotal=8\n partitionsAssigned=8\n bytesAssigned=1024\n",
	}
	report, err := runner.Run(context.Background(), src, model.ByText("select o_orderpriority, count(*) from orders group by 1"), runner.Options{})
	require.NoError(t, err)
	assert.Equal(t, model.StoreFast, report.Store)
	assert.False(t, report.Record.PartitionsTotal.Valid)
	assert.Equal(t, int64(1024), report.Record.BytesScanned)
	for _, f := range report.Findings {
		assert.NotEqual(t, insight.CategoryPruning, f.Category)
		assert.NotEqual(t, insight.CategoryDuration, f.Category)
	}
}

func TestRunSkipsExplainForFailedQuery(t *testing.T) {
	row := test.LoadSampleRow(t, "account_usage_row.json")
	setColumn(row, "EXECUTION_STATUS", "FAILED_WITH_ERROR")
	setColumn(row, "ERROR_CODE", "002003")
	setColumn(row, "ERROR_MESSAGE", "SQL compilation error: Object 'ORDERS' does not exist.")
	src := &fakeSource{full: row}

	report, err := runner.Run(context.Background(), src, model.ByID("q"), runner.Options{})
	require.NoError(t, err)
	assert.Empty(t, src.explained)
	assert.Nil(t, report.Plan)
	assert.Equal(t, "outcome.failed", report.Findings[0].Key)
}

func TestRunMalformedPlan(t *testing.T) {
	src := &fakeSource{full: test.LoadSampleRow(t, "account_usage_row.json"), plan: "GlobalStats:\n"}
	_, err := runner.Run(context.Background(), src, model.ByID("q"), runner.Options{})
	assert.ErrorIs(t, err, model.ErrMalformedPlan)
}

func TestRunInvalidIdentity(t *testing.T) {
	_, err := runner.Run(context.Background(), &fakeSource{}, model.ByID(""), runner.Options{})
	assert.ErrorIs(t, err, model.ErrInvalidCriterion)
}
