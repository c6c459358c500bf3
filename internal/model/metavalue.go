package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SerializeMeta converts a value to its stored text form.
//
// Strings are stored as-is unless they already look serialized, in which case
// they are serialized once more so that UnserializeMeta hands back the original
// string. Booleans become "1" or "", numbers their decimal form, nil the empty
// string, and everything else JSON.
func SerializeMeta(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		if isSerialized(x) {
			return marshal(x)
		}
		return x, nil
	case []byte:
		return SerializeMeta(string(x))
	case bool:
		if x {
			return "1", nil
		}
		return "", nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case json.Number:
		return x.String(), nil
	default:
		return marshal(x)
	}
}

// UnserializeMeta reverses SerializeMeta. Text that is not serialized comes
// back as a string. Numbers nested in arrays and maps come back as
// json.Number so integers beyond 2^53 keep every digit.
func UnserializeMeta(s string) any {
	if !isSerialized(s) {
		return s
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return s
	}
	return v
}

// SameMetaValue reports whether a and b serialize to the same text.
func SameMetaValue(a, b any) bool {
	sa, errA := SerializeMeta(a)
	sb, errB := SerializeMeta(b)
	return errA == nil && errB == nil && sa == sb
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("serialize meta: %w", err)
	}
	return string(b), nil
}

func isSerialized(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	if !(first == '{' && last == '}') && !(first == '[' && last == ']') && !(first == '"' && last == '"') {
		return false
	}
	return json.Valid([]byte(s))
}
