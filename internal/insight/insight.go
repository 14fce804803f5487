package insight

import (
	"bytes"
	"fmt"
)

// Severity expresses the urgency of a finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityHint    Severity = "hint"
	SeverityWarning Severity = "warning"
)

// Category groups findings by the aspect of the execution they describe.
type Category string

const (
	CategoryOutcome   Category = "outcome"
	CategoryFrequency Category = "frequency"
	CategoryDuration  Category = "duration"
	CategoryScanRank  Category = "scan_ranking"
	CategoryContext   Category = "context"
	CategoryWarehouse Category = "warehouse"
	CategoryRows      Category = "rows"
	CategoryQueue     Category = "queue"
	CategoryBlocking  Category = "blocking"
	CategorySpill     Category = "spill"
	CategoryScan      Category = "scan"
	CategoryCache     Category = "cache"
	CategoryPruning   Category = "pruning"
	CategoryTransfer  Category = "transfer"
	CategoryExternal  Category = "external_functions"
)

// Finding is one diagnostic conclusion about a query execution. Key selects the message
// template and Values carries the numbers and names it refers to.
type Finding struct {
	Category Category       `json:"category"`
	Severity Severity       `json:"severity"`
	Key      string         `json:"key"`
	Values   map[string]any `json:"values,omitempty"`
}

// Text renders the human-readable message for a finding.
func Text(f Finding) string {
	entry, ok := catalog[f.Key]
	if !ok {
		return fallbackText(f)
	}
	var buf bytes.Buffer
	if err := entry.tpl.Execute(&buf, f.Values); err != nil {
		return fallbackText(f)
	}
	return buf.String()
}

// Link returns a documentation URL related to the finding, if any.
func Link(f Finding) string {
	return catalog[f.Key].link
}

// Known reports whether the key has a message template.
func Known(key string) bool {
	_, ok := catalog[key]
	return ok
}

func fallbackText(f Finding) string {
	if len(f.Values) == 0 {
		return f.Key
	}
	return fmt.Sprintf("%s %v", f.Key, f.Values)
}
