package analyzer

import (
	"context"
	"strings"

	"github.com/mickamy/qprof/internal/insight"
	"github.com/mickamy/qprof/internal/model"
)

func outcomeFindings(rec *model.Record) []insight.Finding {
	switch {
	case rec.Failed():
		return []insight.Finding{finding(insight.CategoryOutcome, insight.SeverityWarning, "outcome.failed", map[string]any{
			"code":    rec.ErrorCode.Or(""),
			"message": rec.ErrorMessage.Or(""),
		})}
	case rec.Succeeded():
		return []insight.Finding{finding(insight.CategoryOutcome, insight.SeverityInfo, "outcome.success", map[string]any{
			"elapsed_ms":     rec.TotalElapsedMs,
			"compilation_ms": rec.CompilationMs,
			"execution_ms":   rec.ExecutionMs,
			"start":          rec.StartTime,
			"end":            rec.EndTime,
		})}
	default:
		return []insight.Finding{finding(insight.CategoryOutcome, insight.SeverityInfo, "outcome.status", map[string]any{
			"status": rec.Status,
		})}
	}
}

// rankable limits workload comparisons to successful runs read from the full store.
func rankable(in *Input) bool {
	return in.Ranker != nil && in.Record.Succeeded() && in.Record.Full()
}

func frequencyFindings(ctx context.Context, in *Input) ([]insight.Finding, error) {
	if !rankable(in) {
		return nil, nil
	}
	stats, err := in.Ranker.ExecutionStats(ctx, in.Record.QueryText)
	if err != nil {
		return nil, err
	}
	if stats.Count <= 1 {
		return nil, nil
	}
	out := []insight.Finding{finding(insight.CategoryFrequency, insight.SeverityInfo, "frequency.executions", map[string]any{
		"count":   stats.Count,
		"days":    model.WindowDays,
		"seconds": stats.TotalSeconds,
	})}

	top, err := in.Ranker.InTop(ctx, model.RankFrequent, TopNarrow, in.Record.QueryText)
	if err != nil {
		return nil, err
	}
	if top {
		out = append(out, finding(insight.CategoryFrequency, insight.SeverityHint, "frequency.top", map[string]any{
			"limit": TopNarrow,
			"days":  model.WindowDays,
		}))
	}
	return out, nil
}

// rankingRule checks the top 10 first and only widens to the top 100 on a miss.
func rankingRule(kind model.RankKind, category insight.Category, key string) func(context.Context, *Input) ([]insight.Finding, error) {
	return func(ctx context.Context, in *Input) ([]insight.Finding, error) {
		if !rankable(in) {
			return nil, nil
		}
		for _, limit := range []int{TopNarrow, TopWide} {
			top, err := in.Ranker.InTop(ctx, kind, limit, in.Record.QueryText)
			if err != nil {
				return nil, err
			}
			if top {
				return []insight.Finding{finding(category, insight.SeverityHint, key, map[string]any{
					"limit": limit,
					"days":  model.WindowDays,
				})}, nil
			}
		}
		return nil, nil
	}
}

func contextFindings(rec *model.Record) []insight.Finding {
	out := []insight.Finding{finding(insight.CategoryContext, insight.SeverityInfo, "context.user", map[string]any{
		"user": rec.UserName,
		"role": rec.RoleName,
	})}
	db, dbOK := rec.DatabaseName.Get()
	schema, schemaOK := rec.SchemaName.Get()
	if dbOK && schemaOK {
		out = append(out, finding(insight.CategoryContext, insight.SeverityInfo, "context.namespace", map[string]any{
			"database": db,
			"schema":   schema,
		}))
	}
	return out
}

func warehouseFindings(rec *model.Record) []insight.Finding {
	if strings.TrimSpace(rec.WarehouseName) == "" {
		return []insight.Finding{finding(insight.CategoryWarehouse, insight.SeverityInfo, "warehouse.none", map[string]any{
			"credits": rec.CreditsCloudServices,
		})}
	}
	values := map[string]any{
		"name":    rec.WarehouseName,
		"type":    rec.WarehouseType,
		"size":    rec.WarehouseSize,
		"credits": rec.CreditsCloudServices,
	}
	if n, ok := rec.ClusterNumber.Get(); ok {
		values["clusters"] = n
	}
	if pct, ok := rec.QueryLoadPercent.Get(); ok {
		values["load_percent"] = pct
	}
	return []insight.Finding{finding(insight.CategoryWarehouse, insight.SeverityInfo, "warehouse.usage", values)}
}

func rowFindings(rec *model.Record) []insight.Finding {
	out := []insight.Finding{finding(insight.CategoryRows, insight.SeverityInfo, "rows.produced", map[string]any{
		"rows": rec.RowsProduced,
	})}
	if !rec.Full() {
		return out
	}
	if n := rec.RowsInserted.Or(0); n > 0 {
		out = append(out, finding(insight.CategoryRows, insight.SeverityInfo, "rows.inserted", map[string]any{
			"rows":  n,
			"bytes": rec.BytesWritten.Or(0),
		}))
	}
	if n := rec.RowsDeleted.Or(0); n > 0 {
		out = append(out, finding(insight.CategoryRows, insight.SeverityInfo, "rows.deleted", map[string]any{
			"rows":  n,
			"bytes": rec.BytesDeleted.Or(0),
		}))
	}
	if n := rec.RowsUpdated.Or(0); n > 0 {
		out = append(out, finding(insight.CategoryRows, insight.SeverityInfo, "rows.updated", map[string]any{"rows": n}))
	}
	if n := rec.RowsUnloaded.Or(0); n > 0 {
		out = append(out, finding(insight.CategoryRows, insight.SeverityInfo, "rows.unloaded", map[string]any{"rows": n}))
	}
	return out
}

func queueFindings(rec *model.Record) []insight.Finding {
	var out []insight.Finding
	for _, q := range []struct {
		key string
		ms  int64
	}{
		{"queue.provisioning", rec.QueuedProvisioningMs},
		{"queue.repair", rec.QueuedRepairMs},
		{"queue.overload", rec.QueuedOverloadMs},
	} {
		if q.ms > 0 {
			out = append(out, finding(insight.CategoryQueue, insight.SeverityWarning, q.key, map[string]any{"ms": q.ms}))
		}
	}
	return out
}

func blockingFindings(rec *model.Record) []insight.Finding {
	if rec.TransactionBlockedMs <= 0 {
		return nil
	}
	return []insight.Finding{finding(insight.CategoryBlocking, insight.SeverityWarning, "blocking.transaction", map[string]any{
		"ms": rec.TransactionBlockedMs,
	})}
}

func spillFindings(rec *model.Record) []insight.Finding {
	if !rec.Full() {
		return nil
	}
	var out []insight.Finding
	for _, s := range []struct {
		where string
		bytes model.Opt[int64]
	}{
		{"local", rec.BytesSpilledLocal},
		{"remote", rec.BytesSpilledRemote},
	} {
		n, ok := s.bytes.Get()
		if !ok {
			continue
		}
		switch {
		case n == 0:
			out = append(out, finding(insight.CategorySpill, insight.SeverityInfo, "spill."+s.where+".none", nil))
		case n >= SpillHeavyBytes:
			out = append(out, finding(insight.CategorySpill, insight.SeverityWarning, "spill."+s.where+".heavy", map[string]any{"bytes": n}))
		default:
			out = append(out, finding(insight.CategorySpill, insight.SeverityInfo, "spill."+s.where+".some", map[string]any{"bytes": n}))
		}
	}
	return out
}

func scanFindings(rec *model.Record) []insight.Finding {
	out := []insight.Finding{finding(insight.CategoryScan, insight.SeverityInfo, "scan.bytes", map[string]any{
		"bytes": rec.BytesScanned,
	})}
	if rec.BytesScanned > ScanHeavyBytes {
		out = append(out, finding(insight.CategoryScan, insight.SeverityHint, "scan.bytes.reduce", nil))
	}
	return out
}

func cacheFindings(rec *model.Record) []insight.Finding {
	if !rec.Full() {
		return nil
	}
	ratio, ok := rec.PercentFromCache.Get()
	if !ok {
		return nil
	}
	values := map[string]any{"ratio": ratio}
	switch {
	case ratio == CacheAllRatio:
		return []insight.Finding{finding(insight.CategoryCache, insight.SeverityInfo, "cache.all", values)}
	case ratio > CacheHighRatio:
		return []insight.Finding{finding(insight.CategoryCache, insight.SeverityInfo, "cache.high", values)}
	case ratio < CacheLowRatio:
		return []insight.Finding{finding(insight.CategoryCache, insight.SeverityHint, "cache.low", values)}
	default:
		return []insight.Finding{finding(insight.CategoryCache, insight.SeverityInfo, "cache.partial", values)}
	}
}

func pruningFindings(rec *model.Record) []insight.Finding {
	if !rec.Full() {
		return nil
	}
	total, ok := rec.PartitionsTotal.Get()
	if !ok || total <= 0 {
		return nil
	}
	scanned := rec.PartitionsScanned.Or(0)
	values := map[string]any{"scanned": scanned, "total": total}
	switch {
	case scanned == total:
		return []insight.Finding{finding(insight.CategoryPruning, insight.SeverityWarning, "pruning.full_scan", values)}
	case float64(scanned) <= PruningEfficientRatio*float64(total):
		return []insight.Finding{finding(insight.CategoryPruning, insight.SeverityInfo, "pruning.efficient", values)}
	default:
		return []insight.Finding{finding(insight.CategoryPruning, insight.SeverityHint, "pruning.improve", values)}
	}
}

func transferFindings(rec *model.Record) []insight.Finding {
	var out []insight.Finding
	if rec.InboundBytes > 0 {
		out = append(out, finding(insight.CategoryTransfer, insight.SeverityInfo, "transfer.inbound", map[string]any{
			"bytes":  rec.InboundBytes,
			"cloud":  rec.InboundCloud,
			"region": rec.InboundRegion,
		}))
	}
	if rec.OutboundBytes > 0 {
		out = append(out, finding(insight.CategoryTransfer, insight.SeverityInfo, "transfer.outbound", map[string]any{
			"bytes":  rec.OutboundBytes,
			"cloud":  rec.OutboundCloud,
			"region": rec.OutboundRegion,
		}))
	}
	return out
}

func externalFunctionFindings(rec *model.Record) []insight.Finding {
	if rec.ExternalInvocations <= 0 {
		return nil
	}
	return []insight.Finding{finding(insight.CategoryExternal, insight.SeverityInfo, "external_functions.calls", map[string]any{
		"invocations":    rec.ExternalInvocations,
		"sent_rows":      rec.ExternalSentRows,
		"received_rows":  rec.ExternalReceivedRows,
		"sent_bytes":     rec.ExternalSentBytes,
		"received_bytes": rec.ExternalReceivedBytes,
	})}
}
