package driver

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Capabilities is a W3C-style capability map. Vendor-prefixed keys (“appium:deviceName”) are
// treated as equivalent to their unprefixed form.
type Capabilities map[string]any

// Lookup returns the raw value for key, trying the bare key first and then the “appium:” prefix.
func (c Capabilities) Lookup(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	if v, ok := c[key]; ok && v != nil {
		return v, true
	}
	if v, ok := c["appium:"+key]; ok && v != nil {
		return v, true
	}
	return nil, false
}

// String returns the value for key formatted as a string, or "" if it is absent.
func (c Capabilities) String(key string) string {
	v, ok := c.Lookup(key)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Float parses the value for key as a float64. Numeric and numeric-string values are accepted.
func (c Capabilities) Float(key string) (float64, error) {
	v, ok := c.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("capability %q not present", key)
	}
	return ToFloat(v)
}

// ToFloat converts a JSON-decoded scalar (number or numeric string) to a float64.
func ToFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}
