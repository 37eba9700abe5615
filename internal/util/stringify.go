package util

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Stringify renders a JSON-compatible value the way it would appear inside a
// request path or query string. Numbers decoded from JSON arrive as float64;
// integral values are rendered without a trailing fraction so that an id like
// 42 substitutes as "42", not "42.000000".
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}
