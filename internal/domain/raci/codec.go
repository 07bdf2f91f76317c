package raci

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tallgren/gatecheck/internal/domain/answers"
)

// Encode serializes the assignment map in the flat keyed shape.
func Encode(m AssignmentMap) (string, error) {
	if m == nil {
		m = AssignmentMap{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding assignments: %w", err)
	}
	return string(data), nil
}

// Decode parses the assignments field. Both the flat keyed shape and the
// earlier nested question/entry shape are accepted; the nested shape is
// flattened to question/entry keys (migrate-on-read). An empty field yields
// an empty map; a malformed one an error for the caller to log and discard.
func Decode(field string) (AssignmentMap, error) {
	if strings.TrimSpace(field) == "" {
		return AssignmentMap{}, nil
	}

	decoded := answers.DecodeHTMLEntities(field)

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(decoded), &probe); err != nil {
		return nil, fmt.Errorf("parsing assignments: %w", err)
	}

	out := AssignmentMap{}
	for key, raw := range probe {
		var flat []Assignment
		if err := json.Unmarshal(raw, &flat); err == nil {
			out[key] = flat
			continue
		}

		var nested map[string][]Assignment
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, fmt.Errorf("parsing assignments for %q: %w", key, err)
		}
		for label, assignments := range nested {
			out[EntryKey(key, label)] = assignments
		}
	}
	return out, nil
}
