package model

import "strings"

// Store identifies which telemetry relation supplied a record.
type Store string

const (
	// StoreFull is the complete, latency-delayed query history (ACCOUNT_USAGE).
	StoreFull Store = "full"
	// StoreFast is the low-latency, schema-limited query history (INFORMATION_SCHEMA).
	StoreFast Store = "fast"
)

// Execution statuses reported by the warehouse.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// RawRow is a single telemetry row as returned by a store, keyed by column name.
type RawRow struct {
	Columns []string `json:"columns"`
	Values  []any    `json:"values"`
}

// Record is the canonical view of one query execution.
//
// Fields backed by Opt are either optional in both stores or only reported by the full store.
// A record sourced from the fast store never has a full-store-only field set.
type Record struct {
	Source Store `json:"source"`

	QueryID      string      `json:"query_id"`
	QueryText    string      `json:"query_text"`
	Status       string      `json:"execution_status"`
	ErrorCode    Opt[string] `json:"error_code"`
	ErrorMessage Opt[string] `json:"error_message"`

	TotalElapsedMs int64  `json:"total_elapsed_ms"`
	CompilationMs  int64  `json:"compilation_ms"`
	ExecutionMs    int64  `json:"execution_ms"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`

	UserName     string      `json:"user_name"`
	RoleName     string      `json:"role_name"`
	DatabaseName Opt[string] `json:"database_name"`
	SchemaName   Opt[string] `json:"schema_name"`

	WarehouseName        string     `json:"warehouse_name"`
	WarehouseType        string     `json:"warehouse_type"`
	WarehouseSize        string     `json:"warehouse_size"`
	ClusterNumber        Opt[int64] `json:"cluster_number"`
	CreditsCloudServices float64    `json:"credits_used_cloud_services"`

	RowsProduced int64 `json:"rows_produced"`

	QueuedProvisioningMs int64 `json:"queued_provisioning_ms"`
	QueuedRepairMs       int64 `json:"queued_repair_ms"`
	QueuedOverloadMs     int64 `json:"queued_overload_ms"`
	TransactionBlockedMs int64 `json:"transaction_blocked_ms"`

	BytesScanned int64 `json:"bytes_scanned"`

	InboundBytes   int64  `json:"inbound_transfer_bytes"`
	InboundCloud   string `json:"inbound_transfer_cloud"`
	InboundRegion  string `json:"inbound_transfer_region"`
	OutboundBytes  int64  `json:"outbound_transfer_bytes"`
	OutboundCloud  string `json:"outbound_transfer_cloud"`
	OutboundRegion string `json:"outbound_transfer_region"`

	ExternalInvocations   int64 `json:"external_function_invocations"`
	ExternalSentRows      int64 `json:"external_function_sent_rows"`
	ExternalReceivedRows  int64 `json:"external_function_received_rows"`
	ExternalSentBytes     int64 `json:"external_function_sent_bytes"`
	ExternalReceivedBytes int64 `json:"external_function_received_bytes"`

	// Full store only.
	RowsInserted       Opt[int64]   `json:"rows_inserted"`
	RowsDeleted        Opt[int64]   `json:"rows_deleted"`
	RowsUpdated        Opt[int64]   `json:"rows_updated"`
	RowsUnloaded       Opt[int64]   `json:"rows_unloaded"`
	BytesWritten       Opt[int64]   `json:"bytes_written"`
	BytesDeleted       Opt[int64]   `json:"bytes_deleted"`
	QueryLoadPercent   Opt[int64]   `json:"query_load_percent"`
	BytesSpilledLocal  Opt[int64]   `json:"bytes_spilled_local"`
	BytesSpilledRemote Opt[int64]   `json:"bytes_spilled_remote"`
	PercentFromCache   Opt[float64] `json:"percentage_scanned_from_cache"`
	PartitionsScanned  Opt[int64]   `json:"partitions_scanned"`
	PartitionsTotal    Opt[int64]   `json:"partitions_total"`
}

// Full reports whether the record came from the fully-populated store.
func (r *Record) Full() bool {
	return r != nil && r.Source == StoreFull
}

// Succeeded reports whether the profiled query completed successfully.
func (r *Record) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// Failed reports whether the profiled query ended in an error state.
func (r *Record) Failed() bool {
	return r != nil && strings.HasPrefix(r.Status, StatusFailed)
}

// WithExplain returns a copy of the record with scan statistics taken from the explain plan.
// Partition counts are only carried over for full-store records.
func (r *Record) WithExplain(stats ExplainStats) *Record {
	out := *r
	out.BytesScanned = stats.BytesScanned
	if out.Source == StoreFull {
		out.PartitionsTotal = Some(stats.PartitionsTotal)
		out.PartitionsScanned = Some(stats.PartitionsScanned)
	}
	return &out
}

// ExplainStats holds the scan statistics recovered from a textual explain plan.
type ExplainStats struct {
	PartitionsTotal   int64 `json:"partitions_total"`
	PartitionsScanned int64 `json:"partitions_scanned"`
	BytesScanned      int64 `json:"bytes_scanned"`
}
