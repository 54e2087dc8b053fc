package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// floatParam reads key from params, returning def when absent.
func floatParam(params map[string]any, key string, def float64) (float64, error) {
	if params == nil {
		return def, nil
	}

	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %q is not a number", ErrInvalidParam, key, v)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %q is not a number", ErrInvalidParam, key, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s: unsupported type %T", ErrInvalidParam, key, raw)
	}
}

// intParam reads an integral value; floats with a fractional part are rejected.
func intParam(params map[string]any, key string, def int) (int, error) {
	if params == nil {
		return def, nil
	}

	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %q is not an integer", ErrInvalidParam, key, v)
		}
		return parsed, nil
	}

	f, err := floatParam(params, key, float64(def))
	if err != nil {
		return 0, err
	}
	if math.Mod(f, 1) != 0 {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidParam, key, f)
	}
	return int(f), nil
}

func boolParam(params map[string]any, key string, def bool) (bool, error) {
	if params == nil {
		return def, nil
	}

	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%w: %s: %q is not a boolean", ErrInvalidParam, key, v)
		}
		return b, nil
	}

	// Toggles may also be given as 0 or 1.
	n, err := intParam(params, key, 0)
	if err != nil {
		return false, err
	}
	if n != 0 && n != 1 {
		return false, fmt.Errorf("%w: %s must be 0 or 1, got %d", ErrInvalidParam, key, n)
	}
	return n == 1, nil
}

func stringParam(params map[string]any, key string, def string) (string, error) {
	if params == nil {
		return def, nil
	}

	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}

	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s: unsupported type %T", ErrInvalidParam, key, raw)
	}
	return s, nil
}

// stringsParam accepts a []string, a []any of strings or a comma separated string.
func stringsParam(params map[string]any, key string, def []string) ([]string, error) {
	if params == nil {
		return def, nil
	}

	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d]: unsupported type %T", ErrInvalidParam, key, i, item)
			}
			out[i] = s
		}
		return out, nil
	case string:
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return nil, fmt.Errorf("%w: %s: unsupported type %T", ErrInvalidParam, key, raw)
	}
}

// fixed formats v with places decimals for file names, e.g. 0.75 -> "0.75".
// Rounding applies to the binary value, so 0.125 -> "0.12" and 0.355 -> "0.35".
func fixed(v float64, places int) string {
	return strconv.FormatFloat(v, 'f', places, 64)
}

// whole formats v as an integer, truncating toward zero: 5.9 -> "5".
func whole(v float64) string {
	return decimal.NewFromFloat(v).Truncate(0).String()
}

// plain formats v in its shortest exact decimal form: 2 -> "2", 1.5 -> "1.5".
func plain(v float64) string {
	return decimal.NewFromFloat(v).String()
}
