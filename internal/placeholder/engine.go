// Package placeholder fills five-digit placeholder codes in dialogue text.
package placeholder

import (
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"sync"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

var codePattern = regexp.MustCompile(`\{(\d{5})\}`)

// Engine resolves placeholder codes. The first value chosen for a code in
// a conversation is reused for every later occurrence in that conversation.
type Engine struct {
	sources  Chain
	sampler  *Sampler
	nameTags map[string]struct{}

	mu         sync.Mutex
	rng        *rand.Rand
	selections map[string]map[string]string
}

// NewEngine creates an Engine. Entries whose tag is listed in nameTags are
// drawn through sampler; the rest are drawn uniformly.
func NewEngine(sources Chain, sampler *Sampler, nameTags []string, rng *rand.Rand) *Engine {
	if sampler == nil {
		sampler = NewSampler(DefaultWindow)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	tags := make(map[string]struct{}, len(nameTags))
	for _, t := range nameTags {
		tags[normalizeTag(t)] = struct{}{}
	}
	return &Engine{
		sources:    sources,
		sampler:    sampler,
		nameTags:   tags,
		rng:        rng,
		selections: make(map[string]map[string]string),
	}
}

// Resolve replaces every {NNNNN} code in text. Unknown codes are left in
// place with a warning.
func (e *Engine) Resolve(text, conversationID string) string {
	if !strings.Contains(text, "{") {
		return text
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	return codePattern.ReplaceAllStringFunc(text, func(match string) string {
		code := match[1 : len(match)-1]
		if value, ok := e.selections[conversationID][code]; ok {
			return value
		}
		entry, source, ok := e.sources.Lookup(code)
		if !ok {
			slog.Warn("placeholder code not found", "code", code, "conversation_id", conversationID)
			return match
		}
		value := e.choose(entry)
		if value == "" {
			slog.Warn("placeholder has no usable substitution", "code", code, "tag", entry.Tag, "source", source)
			return match
		}
		if e.selections[conversationID] == nil {
			e.selections[conversationID] = make(map[string]string)
		}
		e.selections[conversationID][code] = value
		return value
	})
}

// ResolveTurns resolves every turn in place.
func (e *Engine) ResolveTurns(turns []types.DialogueTurn, conversationID string) {
	for i := range turns {
		turns[i].Text = e.Resolve(turns[i].Text, conversationID)
	}
}

// choose must be called with mu held.
func (e *Engine) choose(entry types.PlaceholderEntry) string {
	if _, ok := e.nameTags[normalizeTag(entry.Tag)]; ok {
		return e.sampler.Pick(entry.Substitutions, e.rng)
	}
	return entry.Substitutions[e.rng.Intn(len(entry.Substitutions))]
}

// ConversationValues returns the code→value choices made for a conversation.
func (e *Engine) ConversationValues(conversationID string) map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	chosen := e.selections[conversationID]
	if len(chosen) == 0 {
		return nil
	}
	out := make(map[string]string, len(chosen))
	for k, v := range chosen {
		out[k] = v
	}
	return out
}

// Reset forgets the choices of one conversation.
func (e *Engine) Reset(conversationID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.selections, conversationID)
}

// ResetAll forgets every conversation's choices. The diversity window is kept.
func (e *Engine) ResetAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selections = make(map[string]map[string]string)
}

// Sampler returns the diversity sampler.
func (e *Engine) Sampler() *Sampler {
	return e.sampler
}

// Stats counts placeholder entries.
type Stats struct {
	Total             int `json:"total_placeholders"`
	WithSubstitutions int `json:"with_substitutions"`
	Empty             int `json:"empty"`
}

// MapStats counts entries with and without substitutions.
func MapStats(m types.PlaceholderMap) Stats {
	stats := Stats{Total: len(m)}
	for _, entry := range m {
		if len(entry.Substitutions) > 0 {
			stats.WithSubstitutions++
		} else {
			stats.Empty++
		}
	}
	return stats
}

// Codes returns the distinct codes found in text, in order of appearance.
func Codes(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, m := range codePattern.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

func normalizeTag(tag string) string {
	return strings.Trim(strings.TrimSpace(tag), "<>")
}
