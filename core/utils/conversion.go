package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToString renders scalar driver values as a string. Unsupported types are
// an error rather than a %v rendering.
func ToString(val any) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", val)
	}
}

// ToInt64 converts integer types, integral floats and numeric strings.
func ToInt64(val any) (int64, error) {
	switch v := val.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("value %v is not an integer", v)
		}
		return int64(v), nil
	case string, []byte:
		s, _ := ToString(v)
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse integer %q: %w", s, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", val)
	}
}

// ToBool converts various types to bool.
// It handles bool, numeric types (1=true), and strings ("1", "true", "yes").
func ToBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case int, int64, int32, uint64, float64:
		n, err := ToInt64(v)
		return err == nil && n == 1
	case string, []byte:
		s, _ := ToString(v)
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "yes":
			return true
		}
		return false
	default:
		return false
	}
}
