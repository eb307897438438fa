package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFence removes a surrounding markdown code fence (``` or ```json)
// from a model response, if present.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(strings.TrimSpace(s), "```") {
		s = strings.TrimSpace(s)
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}

// ExtractItems validates a generative response: after fence stripping the
// payload must be a JSON list, or a JSON object whose well-known key (e.g.
// "quiz" or "flashcards") holds a list. Anything else is an error; callers
// treat it as a terminal job failure, never a partial success.
func ExtractItems(raw, key string) ([]json.RawMessage, error) {
	cleaned := StripCodeFence(raw)

	// json.Unmarshal accepts the literal null into a slice, which is not a
	// list payload.
	if cleaned == "null" {
		return nil, fmt.Errorf("response is null, not a list")
	}

	var direct []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &direct); err == nil {
		return direct, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &wrapper); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}

	inner, ok := wrapper[key]
	if !ok {
		return nil, fmt.Errorf("response object is missing the %q key", key)
	}
	if string(inner) == "null" {
		return nil, fmt.Errorf("%q key is null, not a list", key)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, fmt.Errorf("%q key does not hold a list: %w", key, err)
	}
	return items, nil
}
