package placeholder

import (
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

// Source resolves a code to an entry.
type Source interface {
	Name() string
	Lookup(code string) (types.PlaceholderEntry, bool)
}

// MapSource serves entries from a PlaceholderMap.
type MapSource struct {
	name    string
	entries types.PlaceholderMap
}

// NewMapSource wraps m.
func NewMapSource(name string, m types.PlaceholderMap) *MapSource {
	return &MapSource{name: name, entries: m}
}

func (s *MapSource) Name() string {
	return s.name
}

func (s *MapSource) Lookup(code string) (types.PlaceholderEntry, bool) {
	entry, ok := s.entries[code]
	return entry, ok
}

// Len returns the number of codes.
func (s *MapSource) Len() int {
	return len(s.entries)
}

// Chain tries sources in order and returns the first entry that has at
// least one substitution. An entry without substitutions means "try next".
type Chain []Source

// Lookup returns the first usable entry and the name of the source it came from.
func (c Chain) Lookup(code string) (types.PlaceholderEntry, string, bool) {
	for _, src := range c {
		if src == nil {
			continue
		}
		entry, ok := src.Lookup(code)
		if !ok || len(entry.Substitutions) == 0 {
			continue
		}
		return entry, src.Name(), true
	}
	return types.PlaceholderEntry{}, "", false
}
