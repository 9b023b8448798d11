package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSONObject is returned when raw model text carries no JSON object.
var ErrNoJSONObject = errors.New("no json object in model output")

// ExtractJSONObject trims any prose or code fences around the outermost
// JSON object in raw model output.
func ExtractJSONObject(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSONObject
	}
	return clean[start : end+1], nil
}

// DecodeJSONObject extracts the outermost JSON object from raw and decodes it into v.
func DecodeJSONObject(raw string, v any) error {
	clean, err := ExtractJSONObject(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return fmt.Errorf("failed to parse model output: %w", err)
	}
	return nil
}
