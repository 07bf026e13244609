package core

import (
	"encoding/json"
	"math"
	"strconv"
)

// Document is the flat key/value form of a stored record. Values are
// primitives: string, float64, int64 (millisecond timestamps) or bool.
type Document map[string]any

// Clone returns a shallow copy, which is a full copy for flat documents.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// GetString returns the string at key, or "" when missing or not a string.
func (d Document) GetString(key string) string {
	s, _ := d[key].(string)
	return s
}

// GetFloat returns the number at key as float64, or 0 when missing, not a
// number, or not finite.
func (d Document) GetFloat(key string) float64 {
	var f float64
	switch v := d[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// GetInt returns the number at key as int64, or 0 when missing or not a
// number. Floats are truncated.
func (d Document) GetInt(key string) int64 {
	switch v := d[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case json.Number:
		if n, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
			return n
		}
		return int64(Document{key: v}.GetFloat(key))
	default:
		f := d.GetFloat(key)
		if f > math.MaxInt64 || f < math.MinInt64 {
			return 0
		}
		return int64(f)
	}
}

// GetBool returns the bool at key, or false.
func (d Document) GetBool(key string) bool {
	b, _ := d[key].(bool)
	return b
}
