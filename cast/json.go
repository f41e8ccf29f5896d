package cast

import (
	"math"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	spfcast "github.com/spf13/cast"
)

// Normalize converts v into the canonical form held by array, object and any
// fields. Integers become int64, every other number a decimal with at least
// one fractional digit, lists []any and maps map[string]any, recursively.
// Other values are replaced by their JSON form. The result is the same
// whether v was built in Go or decoded from JSON, so values survive a
// Serialize and Restore round trip unchanged.
func Normalize(v any) (any, bool) {
	switch t := v.(type) {
	case nil, bool, string, int64:
		return t, true
	case int, int8, int16, int32, uint, uint8, uint16, uint32:
		n, err := spfcast.ToInt64E(t)
		return n, err == nil
	case uint64:
		if t > math.MaxInt64 {
			return fractional(decimal.NewFromUint64(t)), true
		}
		return int64(t), true
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case json.Number:
		if n, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return n, true
		}
		d, err := decimal.NewFromString(string(t))
		if err != nil {
			return nil, false
		}
		return fractional(d), true
	case decimal.Decimal:
		return fractional(t), true
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			n, ok := Normalize(e)
			if !ok {
				return nil, false
			}
			out[i] = n
		}
		return out, true
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			n, ok := Normalize(e)
			if !ok {
				return nil, false
			}
			out[k] = n
		}
		return out, true
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	decoded, err := DecodeJSON(string(data))
	if err != nil {
		return nil, false
	}
	return Normalize(decoded)
}

func normalizeFloat(f float64) (any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return fractional(decimal.NewFromFloat(f)), true
}

// fractional gives d at least one fractional digit so its text never reads
// back as an integer.
func fractional(d decimal.Decimal) decimal.Decimal {
	if d.Exponent() < 0 {
		return d
	}
	return decimal.RequireFromString(d.StringFixed(1))
}

// JSONValue prepares a normalized value for a JSON encoder: decimals become
// json.Number so they are written as plain numbers with their exact digits.
func JSONValue(v any) any {
	switch t := v.(type) {
	case decimal.Decimal:
		return json.Number(decimalText(fractional(t)))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = JSONValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = JSONValue(e)
		}
		return out
	}
	return v
}
