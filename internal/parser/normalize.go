package parser

import (
	"fmt"

	"github.com/mickamy/qprof/internal/model"
)

type column struct {
	name string
	// required columns must be declared by every store's schema.
	required bool
	// fullOnly columns are only trusted when the row comes from the full store.
	fullOnly bool
	set      func(rec *model.Record, val any) error
}

var columns = []column{
	textCol("QUERY_ID", true, func(r *model.Record) *string { return &r.QueryID }),
	textCol("QUERY_TEXT", true, func(r *model.Record) *string { return &r.QueryText }),
	textCol("EXECUTION_STATUS", true, func(r *model.Record) *string { return &r.Status }),
	optTextCol("ERROR_CODE", func(r *model.Record) *model.Opt[string] { return &r.ErrorCode }),
	optTextCol("ERROR_MESSAGE", func(r *model.Record) *model.Opt[string] { return &r.ErrorMessage }),

	intCol("TOTAL_ELAPSED_TIME", func(r *model.Record) *int64 { return &r.TotalElapsedMs }),
	intCol("COMPILATION_TIME", func(r *model.Record) *int64 { return &r.CompilationMs }),
	intCol("EXECUTION_TIME", func(r *model.Record) *int64 { return &r.ExecutionMs }),
	textCol("START_TIME", true, func(r *model.Record) *string { return &r.StartTime }),
	textCol("END_TIME", true, func(r *model.Record) *string { return &r.EndTime }),

	textCol("USER_NAME", true, func(r *model.Record) *string { return &r.UserName }),
	textCol("ROLE_NAME", true, func(r *model.Record) *string { return &r.RoleName }),
	optTextCol("DATABASE_NAME", func(r *model.Record) *model.Opt[string] { return &r.DatabaseName }),
	optTextCol("SCHEMA_NAME", func(r *model.Record) *model.Opt[string] { return &r.SchemaName }),

	textCol("WAREHOUSE_NAME", true, func(r *model.Record) *string { return &r.WarehouseName }),
	textCol("WAREHOUSE_TYPE", true, func(r *model.Record) *string { return &r.WarehouseType }),
	textCol("WAREHOUSE_SIZE", true, func(r *model.Record) *string { return &r.WarehouseSize }),
	optIntCol("CLUSTER_NUMBER", false, func(r *model.Record) *model.Opt[int64] { return &r.ClusterNumber }),
	numCol("CREDITS_USED_CLOUD_SERVICES", func(r *model.Record) *float64 { return &r.CreditsCloudServices }),

	intCol("ROWS_PRODUCED", func(r *model.Record) *int64 { return &r.RowsProduced }),

	intCol("QUEUED_PROVISIONING_TIME", func(r *model.Record) *int64 { return &r.QueuedProvisioningMs }),
	intCol("QUEUED_REPAIR_TIME", func(r *model.Record) *int64 { return &r.QueuedRepairMs }),
	intCol("QUEUED_OVERLOAD_TIME", func(r *model.Record) *int64 { return &r.QueuedOverloadMs }),
	intCol("TRANSACTION_BLOCKED_TIME", func(r *model.Record) *int64 { return &r.TransactionBlockedMs }),

	intCol("BYTES_SCANNED", func(r *model.Record) *int64 { return &r.BytesScanned }),

	intCol("INBOUND_DATA_TRANSFER_BYTES", func(r *model.Record) *int64 { return &r.InboundBytes }),
	textCol("INBOUND_DATA_TRANSFER_CLOUD", false, func(r *model.Record) *string { return &r.InboundCloud }),
	textCol("INBOUND_DATA_TRANSFER_REGION", true, func(r *model.Record) *string { return &r.InboundRegion }),
	intCol("OUTBOUND_DATA_TRANSFER_BYTES", func(r *model.Record) *int64 { return &r.OutboundBytes }),
	textCol("OUTBOUND_DATA_TRANSFER_CLOUD", false, func(r *model.Record) *string { return &r.OutboundCloud }),
	textCol("OUTBOUND_DATA_TRANSFER_REGION", true, func(r *model.Record) *string { return &r.OutboundRegion }),

	intCol("EXTERNAL_FUNCTION_TOTAL_INVOCATIONS", func(r *model.Record) *int64 { return &r.ExternalInvocations }),
	intCol("EXTERNAL_FUNCTION_TOTAL_SENT_ROWS", func(r *model.Record) *int64 { return &r.ExternalSentRows }),
	intCol("EXTERNAL_FUNCTION_TOTAL_RECEIVED_ROWS", func(r *model.Record) *int64 { return &r.ExternalReceivedRows }),
	intCol("EXTERNAL_FUNCTION_TOTAL_SENT_BYTES", func(r *model.Record) *int64 { return &r.ExternalSentBytes }),
	intCol("EXTERNAL_FUNCTION_TOTAL_RECEIVED_BYTES", func(r *model.Record) *int64 { return &r.ExternalReceivedBytes }),

	optIntCol("ROWS_INSERTED", true, func(r *model.Record) *model.Opt[int64] { return &r.RowsInserted }),
	optIntCol("ROWS_DELETED", true, func(r *model.Record) *model.Opt[int64] { return &r.RowsDeleted }),
	optIntCol("ROWS_UPDATED", true, func(r *model.Record) *model.Opt[int64] { return &r.RowsUpdated }),
	optIntCol("ROWS_UNLOADED", true, func(r *model.Record) *model.Opt[int64] { return &r.RowsUnloaded }),
	optIntCol("BYTES_WRITTEN", true, func(r *model.Record) *model.Opt[int64] { return &r.BytesWritten }),
	optIntCol("BYTES_DELETED", true, func(r *model.Record) *model.Opt[int64] { return &r.BytesDeleted }),
	optIntCol("QUERY_LOAD_PERCENT", true, func(r *model.Record) *model.Opt[int64] { return &r.QueryLoadPercent }),
	optIntCol("BYTES_SPILLED_TO_LOCAL_STORAGE", true, func(r *model.Record) *model.Opt[int64] { return &r.BytesSpilledLocal }),
	optIntCol("BYTES_SPILLED_TO_REMOTE_STORAGE", true, func(r *model.Record) *model.Opt[int64] { return &r.BytesSpilledRemote }),
	optNumCol("PERCENTAGE_SCANNED_FROM_CACHE", true, func(r *model.Record) *model.Opt[float64] { return &r.PercentFromCache }),
	optIntCol("PARTITIONS_SCANNED", true, func(r *model.Record) *model.Opt[int64] { return &r.PartitionsScanned }),
	optIntCol("PARTITIONS_TOTAL", true, func(r *model.Record) *model.Opt[int64] { return &r.PartitionsTotal }),
}

// RequiredColumns lists the columns every telemetry row must declare.
func RequiredColumns() []string {
	var out []string
	for _, c := range columns {
		if c.required {
			out = append(out, c.name)
		}
	}
	return out
}

// Normalize maps a telemetry row onto the canonical record by exact column name. Unknown columns
// are ignored and columns the store is not trusted for are left unset.
func Normalize(names []string, values []any, source model.Store) (*model.Record, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("%w: %d columns but %d values", model.ErrIncompleteRecord, len(names), len(values))
	}
	switch source {
	case model.StoreFull, model.StoreFast:
	default:
		return nil, fmt.Errorf("normalize: unknown store %q", source)
	}

	index := make(map[string]int, len(names))
	for i, name := range names {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	rec := &model.Record{Source: source}
	var missing []string
	for _, c := range columns {
		if c.fullOnly && source != model.StoreFull {
			continue
		}
		i, ok := index[c.name]
		if !ok {
			if c.required {
				missing = append(missing, c.name)
			}
			continue
		}
		if err := c.set(rec, values[i]); err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", model.ErrIncompleteRecord, c.name, err)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s row lacks %v", model.ErrIncompleteRecord, source, missing)
	}
	return rec, nil
}

// NormalizeRow is Normalize for a row as returned by a store.
func NormalizeRow(row *model.RawRow, source model.Store) (*model.Record, error) {
	if row == nil {
		return nil, fmt.Errorf("%w: no row", model.ErrIncompleteRecord)
	}
	return Normalize(row.Columns, row.Values, source)
}

func textCol(name string, required bool, field func(*model.Record) *string) column {
	return column{name: name, required: required, set: func(rec *model.Record, val any) error {
		s, _ := asString(val)
		*field(rec) = s
		return nil
	}}
}

func optTextCol(name string, field func(*model.Record) *model.Opt[string]) column {
	return column{name: name, set: func(rec *model.Record, val any) error {
		if s, ok := asString(val); ok {
			*field(rec) = model.Some(s)
		}
		return nil
	}}
}

func intCol(name string, field func(*model.Record) *int64) column {
	return column{name: name, required: true, set: func(rec *model.Record, val any) error {
		n, _, err := asInt64(val)
		if err != nil {
			return err
		}
		*field(rec) = n
		return nil
	}}
}

func optIntCol(name string, fullOnly bool, field func(*model.Record) *model.Opt[int64]) column {
	return column{name: name, fullOnly: fullOnly, set: func(rec *model.Record, val any) error {
		n, ok, err := asInt64(val)
		if err != nil {
			return err
		}
		if ok {
			*field(rec) = model.Some(n)
		}
		return nil
	}}
}

func numCol(name string, field func(*model.Record) *float64) column {
	return column{name: name, required: true, set: func(rec *model.Record, val any) error {
		f, _, err := asFloat(val)
		if err != nil {
			return err
		}
		*field(rec) = f
		return nil
	}}
}

func optNumCol(name string, fullOnly bool, field func(*model.Record) *model.Opt[float64]) column {
	return column{name: name, fullOnly: fullOnly, set: func(rec *model.Record, val any) error {
		f, ok, err := asFloat(val)
		if err != nil {
			return err
		}
		if ok {
			*field(rec) = model.Some(f)
		}
		return nil
	}}
}
