package insight

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

var byteUnits = []string{"KB", "MB", "GB", "TB", "PB", "EB", "ZB"}

// HumanizeBytes renders a byte count with a 1024-based unit and, once scaled, the exact count.
func HumanizeBytes(n int64) string {
	if n > -1024 && n < 1024 {
		return fmt.Sprintf("%d bytes", n)
	}
	v := float64(n)
	for _, unit := range byteUnits {
		v /= 1024
		if math.Abs(v) < 1024 {
			return fmt.Sprintf("%.1f %s (%s bytes)", v, unit, humanize.Comma(n))
		}
	}
	return fmt.Sprintf("%.1f YB (%s bytes)", v/1024, humanize.Comma(n))
}

// Comma formats an integer with thousands separators.
func Comma(n int64) string {
	return humanize.Comma(n)
}

// Percent renders a 0..1 ratio as a percentage.
func Percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// toInt64 accepts the numeric shapes a finding value can take, including values decoded
// back from a JSON report.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case int32:
		return int64(n)
	case float64:
		return int64(math.Round(n))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		f, _ := n.Float64()
		return int64(math.Round(f))
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}
