package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FormatCell renders a decoded JSON value as a flat table cell.
// Strings are written unquoted, numbers keep their literal, null is blank and
// objects/arrays become compact JSON.
func FormatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			return fmt.Sprintf("%v", val)
		}
		return strings.TrimRight(buf.String(), "\n")
	}
}

// JoinValues joins a list value with ", ". A plain string is returned as is;
// anything else (including a missing value) yields "".
func JoinValues(v interface{}) string {
	switch val := v.(type) {
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, FormatCell(item))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	case string:
		return val
	default:
		return ""
	}
}

// IsBlank reports whether a cell holds only whitespace
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// SafeFileName replaces characters that would let a value escape its folder
// or are rejected by common filesystems.
func SafeFileName(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"\x00", "_",
	)
	name := replacer.Replace(s)
	if name == "." || name == ".." {
		name = strings.Repeat("_", len(name))
	}
	return name
}
