package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mickamy/qprof/internal/model"
)

// ParseExplainText reads scan statistics from the header of an `EXPLAIN USING TEXT` plan.
//
// The layout is positional: line 1 is a heading and lines 2, 3 and 4 hold `key=value` pairs for
// partitions total, partitions scanned and bytes scanned, in that order. Key names are not checked.
func ParseExplainText(text string) (model.ExplainStats, error) {
	lines := splitLines(text)
	if len(lines) < 4 {
		return model.ExplainStats{}, fmt.Errorf("%w: expected at least 4 lines, got %d", model.ErrMalformedPlan, len(lines))
	}

	var values [3]int64
	for i := range values {
		v, err := headerValue(lines[i+1], i+2)
		if err != nil {
			return model.ExplainStats{}, err
		}
		values[i] = v
	}

	return model.ExplainStats{
		PartitionsTotal:   values[0],
		PartitionsScanned: values[1],
		BytesScanned:      values[2],
	}, nil
}

func headerValue(line string, lineNo int) (int64, error) {
	_, value, ok := strings.Cut(line, "=")
	if !ok {
		return 0, fmt.Errorf("%w: line %d has no '=': %q", model.ErrMalformedPlan, lineNo, line)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d value %q is not an integer", model.ErrMalformedPlan, lineNo, strings.TrimSpace(value))
	}
	return n, nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
