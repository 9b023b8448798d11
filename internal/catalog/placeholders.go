package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

// LoadPlaceholderMap reads a JSON object keyed by code.
func LoadPlaceholderMap(path string) (types.PlaceholderMap, error) {
	data, err := readCatalog(path)
	if err != nil {
		return nil, err
	}
	var m types.PlaceholderMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse placeholder map %s: %w", path, err)
	}
	if m == nil {
		m = types.PlaceholderMap{}
	}
	return m, nil
}

// SavePlaceholderMap writes m as indented JSON, creating parent directories.
func SavePlaceholderMap(path string, m types.PlaceholderMap) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode placeholder map: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write placeholder map %s: %w", path, err)
	}
	return nil
}

// LoadFirstTurns reads one opening line per non-empty line.
func LoadFirstTurns(path string) ([]string, error) {
	data, err := readCatalog(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read first turns %s: %w", path, err)
	}
	return lines, nil
}
