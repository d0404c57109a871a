package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// extractJSONObject returns the JSON object embedded in a free-text model
// response. It strips Markdown fences, tries the span from the first '{' to
// the last '}', then falls back to the first balanced {...} region.
func extractJSONObject(raw string) (map[string]interface{}, bool) {
	s := stripCodeFences(raw)

	start := strings.Index(s, "{")
	if start == -1 {
		return nil, false
	}
	if end := strings.LastIndex(s, "}"); end > start {
		if m, ok := decodeObject(s[start : end+1]); ok {
			return m, true
		}
	}

	if candidate, ok := firstBalancedObject(s[start:]); ok {
		return decodeObject(candidate)
	}
	return nil, false
}

func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// firstBalancedObject scans s, which starts with '{', for the matching
// closing brace, ignoring braces inside string literals.
func firstBalancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

func decodeObject(s string) (map[string]interface{}, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

// getOptionalFloat64Field accepts JSON numbers and numeric strings.
func getOptionalFloat64Field(m map[string]interface{}, key string) (*float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}

	var s string
	switch val := v.(type) {
	case float64:
		return &val, nil
	case json.Number:
		s = val.String()
	case string:
		s = strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
	default:
		return nil, fmt.Errorf("field %q has type %T, want number or null", key, v)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("field %q is not numeric: %q", key, s)
	}
	return &f, nil
}
