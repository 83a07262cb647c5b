package validate

import (
	"fmt"
	"strings"
)

// Keys every note record must carry
var requiredKeys = []string{"title", "summary", "tags"}

// IsValid reports whether parsed is a well-formed batch of note records.
// It accepts any value produced by decoding JSON into an interface{} and never panics.
func IsValid(parsed any) bool {
	return Check(parsed) == nil
}

// Check returns nil for a well-formed batch, or an error describing the first
// violation found. An empty batch is structurally valid.
//
// A record is valid when it is an object with "title" and "summary" as
// non-blank strings and "tags" as an array. Tag elements and extra keys are
// not inspected.
func Check(parsed any) error {
	switch batch := parsed.(type) {
	case []any:
		for i, item := range batch {
			record, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("note %d: expected object, got %s", i, describe(item))
			}
			if err := checkRecord(record); err != nil {
				return fmt.Errorf("note %d: %w", i, err)
			}
		}
		return nil
	case []map[string]any:
		for i, record := range batch {
			if err := checkRecord(record); err != nil {
				return fmt.Errorf("note %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("expected array of notes, got %s", describe(parsed))
	}
}

func checkRecord(record map[string]any) error {
	if record == nil {
		return fmt.Errorf("expected object, got null")
	}

	for _, key := range requiredKeys {
		if _, ok := record[key]; !ok {
			return fmt.Errorf("missing %q", key)
		}
	}

	if !isNonBlankString(record["title"]) {
		return fmt.Errorf("\"title\" must be a non-empty string, got %s", describe(record["title"]))
	}
	if !isNonBlankString(record["summary"]) {
		return fmt.Errorf("\"summary\" must be a non-empty string, got %s", describe(record["summary"]))
	}

	switch record["tags"].(type) {
	case []any, []string:
	default:
		return fmt.Errorf("\"tags\" must be an array, got %s", describe(record["tags"]))
	}

	return nil
}

func isNonBlankString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

// describe names the JSON kind of v for error messages
func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(x) == "" {
			return "blank string"
		}
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
