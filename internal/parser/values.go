package parser

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Drivers hand back telemetry columns in different shapes: gosnowflake returns NUMBER columns as
// strings, pgx returns native integers, and JSON fixtures decode to float64. The helpers below
// accept all of them and report nil as "no value".

func asString(val any) (string, bool) {
	if val == nil {
		return "", false
	}
	switch v := val.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case json.Number:
		return v.String(), true
	case time.Time:
		return v.Format(time.RFC3339Nano), true
	case *time.Time:
		if v == nil {
			return "", false
		}
		return v.Format(time.RFC3339Nano), true
	default:
		return fmt.Sprint(v), true
	}
}

func asInt64(val any) (int64, bool, error) {
	if val == nil {
		return 0, false, nil
	}
	switch v := val.(type) {
	case int:
		return int64(v), true, nil
	case int8:
		return int64(v), true, nil
	case int16:
		return int64(v), true, nil
	case int32:
		return int64(v), true, nil
	case int64:
		return v, true, nil
	case uint:
		return uintToInt64(uint64(v))
	case uint8:
		return int64(v), true, nil
	case uint16:
		return int64(v), true, nil
	case uint32:
		return int64(v), true, nil
	case uint64:
		return uintToInt64(v)
	case float32:
		return integral(float64(v))
	case float64:
		return integral(v)
	case json.Number:
		return parseIntText(v.String())
	case []byte:
		return parseIntText(string(v))
	case string:
		return parseIntText(v)
	default:
		return 0, false, fmt.Errorf("unsupported integer type %T", val)
	}
}

func uintToInt64(v uint64) (int64, bool, error) {
	if v > math.MaxInt64 {
		return 0, false, fmt.Errorf("value %d overflows int64", v)
	}
	return int64(v), true, nil
}

// integral accepts floats that hold a whole number, such as 2048 decoded from JSON.
func integral(f float64) (int64, bool, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false, fmt.Errorf("value %v is not an integer", f)
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false, fmt.Errorf("value %v overflows int64", f)
	}
	return int64(f), true, nil
}

func parseIntText(s string) (int64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("value %q is not an integer", s)
	}
	return integral(f)
}

func asFloat(val any) (float64, bool, error) {
	if val == nil {
		return 0, false, nil
	}
	switch v := val.(type) {
	case float64:
		return v, true, nil
	case float32:
		return float64(v), true, nil
	case json.Number:
		return parseFloatText(v.String())
	case []byte:
		return parseFloatText(string(v))
	case string:
		return parseFloatText(v)
	default:
		n, ok, err := asInt64(val)
		if err != nil {
			return 0, false, fmt.Errorf("unsupported numeric type %T", val)
		}
		return float64(n), ok, nil
	}
}

func parseFloatText(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("value %q is not a number", s)
	}
	return f, true, nil
}

// StringValue renders a driver value as text. NULL yields "".
func StringValue(val any) string {
	s, _ := asString(val)
	return s
}

// Int64Value coerces a driver value to an integer. NULL yields 0.
func Int64Value(val any) (int64, error) {
	n, _, err := asInt64(val)
	return n, err
}

// FloatValue coerces a driver value to a float. NULL yields 0.
func FloatValue(val any) (float64, error) {
	f, _, err := asFloat(val)
	return f, err
}
