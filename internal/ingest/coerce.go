package ingest

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Field coercion is deliberately forgiving: a telemetry field that
// cannot be coerced to its expected type is treated as absent, never
// an error. Lookup keys are the only fields that reject a message.

func coerceFloat(v interface{}) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return &t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		return &f
	case bool:
		f := 0.0
		if t {
			f = 1.0
		}
		return &f
	default:
		return nil
	}
}

func coerceInt(v interface{}) *int64 {
	f := coerceFloat(v)
	if f == nil {
		return nil
	}
	n := int64(*f)
	return &n
}

func coerceBool(v interface{}) *bool {
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		return &t
	case float64:
		b := t != 0
		return &b
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		return &b
	default:
		return nil
	}
}

func coerceString(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
