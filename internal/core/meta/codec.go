package meta

import (
	"encoding/json"
	"fmt"

	"github.com/agencyhq/agencysite/internal/core/docstore"
)

// Encode turns a value into its stored string form. nil becomes "",
// strings are kept as-is, booleans and numbers become decimal text and
// everything else is JSON.
func Encode(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return docstore.TextValue(v), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode meta value: %w", err)
	}
	if string(b) == "null" {
		return "", nil
	}
	return string(b), nil
}

// Decode reverses Encode without type information: JSON when the text
// parses, otherwise the raw string. "123" therefore decodes to a number;
// use Key[T] where the type matters.
func Decode(raw string) any {
	if raw == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// DecodeInto decodes raw into T. String targets receive the raw text, and
// an empty value yields the zero T.
func DecodeInto[T any](raw string) (T, error) {
	var out T
	if s, ok := any(&out).(*string); ok {
		*s = raw
		return out, nil
	}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("failed to decode meta value: %w", err)
	}
	return out, nil
}
