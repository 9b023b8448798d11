package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

// TurnBounds is the inclusive range of allowed turn counts.
type TurnBounds struct {
	Min int
	Max int
}

// Contains reports whether n is inside the bounds.
func (b TurnBounds) Contains(n int) bool {
	return n >= b.Min && n <= b.Max
}

// Templates is the read-only scenario template catalog.
type Templates struct {
	ordered []types.ScenarioTemplate
	byID    map[string]types.ScenarioTemplate
}

// NewTemplates validates and indexes templates. Invalid templates are
// skipped with a warning.
func NewTemplates(templates []types.ScenarioTemplate, bounds TurnBounds) *Templates {
	c := &Templates{byID: make(map[string]types.ScenarioTemplate, len(templates))}
	for _, t := range templates {
		if err := validateTemplate(t, bounds); err != nil {
			slog.Warn("skipping invalid scenario template", "template_id", t.ID, "error", err)
			continue
		}
		if _, dup := c.byID[t.ID]; dup {
			slog.Warn("duplicate scenario template id, keeping first", "template_id", t.ID)
			continue
		}
		c.byID[t.ID] = t
		c.ordered = append(c.ordered, t)
	}
	return c
}

func validateTemplate(t types.ScenarioTemplate, bounds TurnBounds) error {
	if t.ID == "" {
		return fmt.Errorf("missing template_id")
	}
	if t.Weight <= 0 {
		return fmt.Errorf("weight must be positive, got %v", t.Weight)
	}
	if _, err := types.ParseAwareness(string(t.Awareness)); err != nil {
		return err
	}
	if !bounds.Contains(t.NumTurns) {
		return fmt.Errorf("num_turns %d outside [%d,%d]", t.NumTurns, bounds.Min, bounds.Max)
	}
	if t.ScammerProfileID == "" || t.VictimProfileID == "" {
		return fmt.Errorf("missing profile id")
	}
	return nil
}

// LoadTemplates reads {"templates": [...]}.
func LoadTemplates(path string, bounds TurnBounds) (*Templates, error) {
	data, err := readCatalog(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Templates []json.RawMessage `json:"templates"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario templates %s: %w", path, err)
	}
	templates := make([]types.ScenarioTemplate, 0, len(doc.Templates))
	for i, raw := range doc.Templates {
		var t types.ScenarioTemplate
		if err := json.Unmarshal(raw, &t); err != nil {
			slog.Warn("failed to parse scenario template", "index", i, "error", err)
			continue
		}
		templates = append(templates, t)
	}
	catalog := NewTemplates(templates, bounds)
	slog.Info("loaded scenario templates", "path", path, "count", catalog.Len())
	return catalog, nil
}

// Len returns the number of templates.
func (c *Templates) Len() int {
	return len(c.ordered)
}

// Get returns a template by id.
func (c *Templates) Get(id string) (types.ScenarioTemplate, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// ByCategory groups templates by category, preserving load order.
func (c *Templates) ByCategory() map[string][]types.ScenarioTemplate {
	out := make(map[string][]types.ScenarioTemplate)
	for _, t := range c.ordered {
		out[t.Category] = append(out[t.Category], t)
	}
	return out
}

// LoadAssignments reads {"seed_scenarios": {seedID: [templateID, ...]}} and
// drops template ids that are not in templates.
func LoadAssignments(path string, templates *Templates) (types.ScenarioAssignment, error) {
	data, err := readCatalog(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		SeedScenarios map[string][]string `json:"seed_scenarios"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario assignments %s: %w", path, err)
	}
	assignments := ValidateAssignments(doc.SeedScenarios, templates)
	slog.Info("loaded scenario assignments", "path", path, "seeds", len(assignments))
	return assignments, nil
}

// ValidateAssignments removes template ids unknown to templates.
func ValidateAssignments(raw map[string][]string, templates *Templates) types.ScenarioAssignment {
	out := make(types.ScenarioAssignment, len(raw))
	for seedID, ids := range raw {
		kept := make([]string, 0, len(ids))
		for _, id := range ids {
			if templates != nil {
				if _, ok := templates.Get(id); !ok {
					slog.Warn("assignment references unknown template", "seed_id", seedID, "template_id", id)
					continue
				}
			}
			kept = append(kept, id)
		}
		out[seedID] = kept
	}
	return out
}

// BuildAssignments picks up to perSeed templates for every seed from the
// seed's category, weighted by template weight and without replacement.
// Seeds whose category has no templates fall back to fallbackCategory.
func BuildAssignments(seeds []types.Seed, templates *Templates, perSeed int, fallbackCategory string, rng *rand.Rand) types.ScenarioAssignment {
	byCategory := templates.ByCategory()
	out := make(types.ScenarioAssignment, len(seeds))
	for _, seed := range seeds {
		pool := byCategory[seed.Category]
		if len(pool) == 0 {
			slog.Warn("no templates for seed category, using fallback", "seed_id", seed.Key(), "category", seed.Category, "fallback", fallbackCategory)
			pool = byCategory[fallbackCategory]
		}
		pool = append([]types.ScenarioTemplate(nil), pool...)
		var picked []string
		for len(picked) < perSeed && len(pool) > 0 {
			idx := weightedIndex(pool, rng)
			picked = append(picked, pool[idx].ID)
			pool = append(pool[:idx], pool[idx+1:]...)
		}
		out[seed.Key()] = picked
	}
	return out
}

func weightedIndex(pool []types.ScenarioTemplate, rng *rand.Rand) int {
	total := 0.0
	for _, t := range pool {
		total += t.Weight
	}
	target := rng.Float64() * total
	for i, t := range pool {
		target -= t.Weight
		if target < 0 {
			return i
		}
	}
	return len(pool) - 1
}

// SeedIDs returns the assignment keys sorted.
func SeedIDs(a types.ScenarioAssignment) []string {
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
