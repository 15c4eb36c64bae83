// Package values converts loosely typed configuration values, as decoded
// from TOML or set in process, into the types settings need.
package values

import "math"

// String returns v if it is a string.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Int accepts any Go integer and whole floats. TOML decodes integers as
// int64 while values set in process are usually int.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case int32:
		return int(n)
	case float64:
		if n == math.Trunc(n) {
			return int(n)
		}
	}
	return 0
}

// Float accepts floats and widens integers.
func Float(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// Bool returns v if it is a bool.
func Bool(v any) bool {
	b, _ := v.(bool)
	return b
}
