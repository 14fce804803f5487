package insight

import (
	"fmt"
	"strings"
	"text/template"
)

const (
	linkSpilling = "https://community.snowflake.com/s/article/Performance-impact-from-local-and-remote-disk-spilling"
	linkCaching  = "https://community.snowflake.com/s/article/Understanding-Result-Caching"
	linkPruning  = "https://community.snowflake.com/s/article/How-to-recognize-unsatisfactory-pruning"
)

type entry struct {
	tpl  *template.Template
	link string
}

var funcs = template.FuncMap{
	"bytes": func(v any) string { return HumanizeBytes(toInt64(v)) },
	"comma": func(v any) string { return Comma(toInt64(v)) },
	"pct":   func(v any) string { return Percent(toFloat64(v)) },
	"secs":  func(v any) string { return fmt.Sprintf("%.1f", toFloat64(v)) },
	"lower": strings.ToLower,
	"has": func(values map[string]any, key string) bool {
		_, ok := values[key]
		return ok
	},
}

var messages = map[string]struct {
	text string
	link string
}{
	"outcome.failed":  {text: "The query failed with error code {{.code}}: {{.message}}"},
	"outcome.success": {text: "The query ran successfully in {{comma .elapsed_ms}} ms: it compiled in {{comma .compilation_ms}} ms and executed in {{comma .execution_ms}} ms, between {{.start}} and {{.end}}."},
	"outcome.status":  {text: "The query is in the {{.status}} state."},

	"frequency.executions": {text: "It has been executed {{comma .count}} times in the last {{.days}} days, for a total of {{secs .seconds}} seconds."},
	"frequency.top":        {text: "It is among the top {{.limit}} most frequent queries executed in the last {{.days}} days."},
	"duration.top":         {text: "It is among the top {{.limit}} longest queries executed in the last {{.days}} days."},
	"scan_ranking.top":     {text: "It is among the top {{.limit}} queries with the most data scanned in the last {{.days}} days."},

	"context.user":      {text: "The query was executed by the {{.user}} user, using the {{.role}} role."},
	"context.namespace": {text: "The query was executed within the {{.database}}.{{.schema}} database and schema context."},
	"warehouse.usage":   {text: "The query used the {{with .size}}{{.}} {{end}}{{.name}} {{lower .type}} warehouse, {{if has . \"clusters\"}}with {{.clusters}} nodes, {{end}}{{if has . \"load_percent\"}}{{.load_percent}}% of resources available, {{end}}with {{.credits}} cloud compute credits."},
	"warehouse.none":    {text: "The query did not run on a warehouse and used {{.credits}} cloud compute credits."},

	"rows.produced": {text: "The query produced {{comma .rows}} rows."},
	"rows.inserted": {text: "{{comma .rows}} rows have been inserted, for a total of {{bytes .bytes}}."},
	"rows.deleted":  {text: "{{comma .rows}} rows have been deleted, for a total of {{bytes .bytes}}."},
	"rows.updated":  {text: "{{comma .rows}} rows have been updated."},
	"rows.unloaded": {text: "{{comma .rows}} rows have been unloaded."},

	"queue.provisioning": {text: "The query was queued for {{comma .ms}} ms, waiting for the warehouse to provision after a creation, resume, or resize."},
	"queue.repair":       {text: "The query was queued for {{comma .ms}} ms, waiting for compute resources in the warehouse to be repaired."},
	"queue.overload":     {text: "The query was queued for {{comma .ms}} ms because the warehouse was overloaded by the current workload."},

	"blocking.transaction": {text: "The query was blocked for {{comma .ms}} ms by other transactions."},

	"spill.local.none":   {text: "Nothing spilled to local storage, which is good: the warehouse nodes had enough memory to process it all in RAM.", link: linkSpilling},
	"spill.local.heavy":  {text: "Over 1MB ({{bytes .bytes}}) spilled to local storage. The warehouse nodes may not have enough RAM and swap to the local SSD too often. Hint: you may need a larger warehouse.", link: linkSpilling},
	"spill.local.some":   {text: "{{bytes .bytes}} spilled to local storage.", link: linkSpilling},
	"spill.remote.none":  {text: "Nothing spilled to remote storage, which is good: the warehouse nodes had enough RAM and SSD space to process it all locally.", link: linkSpilling},
	"spill.remote.heavy": {text: "Over 1MB ({{bytes .bytes}}) spilled to remote storage. The warehouse nodes may not have large enough SSD disks and had to reach remote object storage too often. Hint: you may need a larger warehouse.", link: linkSpilling},
	"spill.remote.some":  {text: "{{bytes .bytes}} spilled to remote storage.", link: linkSpilling},

	"scan.bytes":        {text: "The query scanned a total of {{bytes .bytes}}."},
	"scan.bytes.reduce": {text: "Hint: consider reducing the amount of data the query needs to read from the tables."},

	"cache.all":     {text: "All the data was served from the result cache, so the query did not execute again and consumed no compute resources. The cached result stays available for at least 24 hours.", link: linkCaching},
	"cache.high":    {text: "More than 80% ({{pct .ratio}}) of the data was found in the result cache. This is good.", link: linkCaching},
	"cache.low":     {text: "Less than 50% ({{pct .ratio}}) of the data was found in the result cache. Hint: look for consecutive queries that could reuse the query result cache.", link: linkCaching},
	"cache.partial": {text: "{{pct .ratio}} of the data was found in the result cache.", link: linkCaching},

	"pruning.full_scan": {text: "The query did a full table scan over all {{comma .total}} partitions. Hint: improve partition pruning with a cluster key or a filter.", link: linkPruning},
	"pruning.efficient": {text: "{{comma .scanned}} partitions out of a total of {{comma .total}} have been scanned: partition pruning and the current cluster keys look efficient for this query.", link: linkPruning},
	"pruning.improve":   {text: "{{comma .scanned}} partitions out of a total of {{comma .total}} have been scanned. Hint: improve partition pruning with a cluster key or a filter.", link: linkPruning},

	"transfer.inbound":  {text: "The query received {{bytes .bytes}} from the {{.cloud}} inbound account, in the {{.region}} region."},
	"transfer.outbound": {text: "The query sent {{bytes .bytes}} to the {{.cloud}} outbound account, in the {{.region}} region."},

	"external_functions.calls": {text: "The query called external functions {{comma .invocations}} times: {{comma .sent_rows}} rows sent and {{comma .received_rows}} received, {{bytes .sent_bytes}} sent and {{bytes .received_bytes}} received."},
}

var catalog = buildCatalog()

func buildCatalog() map[string]entry {
	out := make(map[string]entry, len(messages))
	for key, msg := range messages {
		out[key] = entry{
			tpl:  template.Must(template.New(key).Funcs(funcs).Parse(msg.text)),
			link: msg.link,
		}
	}
	return out
}
