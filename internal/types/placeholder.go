package types

// PlaceholderEntry is one code in a placeholder map.
type PlaceholderEntry struct {
	Tag           string   `json:"tag"`
	Substitutions []string `json:"substitutions"`
	Translations  []string `json:"translations,omitempty"`
	Description   string   `json:"description,omitempty"`
}

// PlaceholderMap is keyed by five-digit code.
type PlaceholderMap map[string]PlaceholderEntry

// ByTag indexes the map by tag. When two codes share a tag the
// lexicographically smallest code wins so the result is stable.
func (m PlaceholderMap) ByTag() map[string]PlaceholderEntry {
	codes := make(map[string]string, len(m))
	out := make(map[string]PlaceholderEntry, len(m))
	for code, entry := range m {
		if entry.Tag == "" {
			continue
		}
		if prev, ok := codes[entry.Tag]; ok && prev < code {
			continue
		}
		codes[entry.Tag] = code
		out[entry.Tag] = entry
	}
	return out
}
