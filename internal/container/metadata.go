package container

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Metadata is the container-level attribute map. Strings, bools,
// integers and floats round-trip exactly (integers come back as int64,
// floats as float64); any other value is stored as JSON text and comes
// back as the decoded JSON value.
type Metadata map[string]any

// #region attr-kinds
const (
	kindString = "string"
	kindBool   = "bool"
	kindInt    = "int"
	kindFloat  = "float"
	kindJSON   = "json"
)

func encodeAttr(v any) (kind, text string, err error) {
	switch x := v.(type) {
	case string:
		return kindString, x, nil
	case bool:
		return kindBool, strconv.FormatBool(x), nil
	case int:
		return kindInt, strconv.FormatInt(int64(x), 10), nil
	case int8:
		return kindInt, strconv.FormatInt(int64(x), 10), nil
	case int16:
		return kindInt, strconv.FormatInt(int64(x), 10), nil
	case int32:
		return kindInt, strconv.FormatInt(int64(x), 10), nil
	case int64:
		return kindInt, strconv.FormatInt(x, 10), nil
	case uint8:
		return kindInt, strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return kindInt, strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return kindInt, strconv.FormatUint(uint64(x), 10), nil
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return kindInt, strconv.FormatUint(uint64(x), 10), nil
		}
	case uint64:
		if x <= math.MaxInt64 {
			return kindInt, strconv.FormatUint(x, 10), nil
		}
	case float32:
		return kindFloat, strconv.FormatFloat(float64(x), 'g', -1, 64), nil
	case float64:
		return kindFloat, strconv.FormatFloat(x, 'g', -1, 64), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("marshal attr: %w", err)
	}
	return kindJSON, string(b), nil
}

func decodeAttr(kind, text string) (any, error) {
	switch kind {
	case kindString:
		return text, nil
	case kindBool:
		return strconv.ParseBool(text)
	case kindInt:
		return strconv.ParseInt(text, 10, 64)
	case kindFloat:
		return strconv.ParseFloat(text, 64)
	case kindJSON:
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, fmt.Errorf("unknown attr kind %q", kind)
}
// #endregion attr-kinds

// #region typed-getters
// Int returns an integer attribute.
func (m Metadata) Int(key string) (int64, bool) {
	switch v := m[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v == math.Trunc(v) {
			return int64(v), true
		}
	}
	return 0, false
}

// String returns a string attribute.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok
}
// #endregion typed-getters
