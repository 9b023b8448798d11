package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

// Profiles is the read-only character profile catalog.
type Profiles struct {
	ordered []types.CharacterProfile
	byID    map[string]types.CharacterProfile
}

// NewProfiles builds a catalog, filling role_preference defaults and
// dropping duplicate ids.
func NewProfiles(profiles []types.CharacterProfile) *Profiles {
	c := &Profiles{byID: make(map[string]types.CharacterProfile, len(profiles))}
	for _, p := range profiles {
		if p.ID == "" {
			slog.Warn("skipping character profile without id", "name", p.Name)
			continue
		}
		if _, dup := c.byID[p.ID]; dup {
			slog.Warn("duplicate character profile id, keeping first", "profile_id", p.ID)
			continue
		}
		switch p.RolePreference {
		case types.RoleScammer, types.RoleVictim, types.RoleAny:
		case "":
			p.RolePreference = types.RoleAny
		default:
			slog.Warn("skipping character profile with unknown role", "profile_id", p.ID, "role", p.RolePreference)
			continue
		}
		c.byID[p.ID] = p
		c.ordered = append(c.ordered, p)
	}
	return c
}

// LoadProfiles reads {"profiles": [...]}. An empty path or a missing file
// yields the built-in archetypes.
func LoadProfiles(path string) (*Profiles, error) {
	if path == "" {
		slog.Info("no character profile catalog configured, using defaults")
		return NewProfiles(DefaultProfiles()), nil
	}
	data, err := readCatalog(path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			slog.Warn("character profiles file not found, using defaults", "path", path)
			return NewProfiles(DefaultProfiles()), nil
		}
		return nil, err
	}

	var doc struct {
		Profiles []json.RawMessage `json:"profiles"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse character profiles %s: %w", path, err)
	}
	profiles := make([]types.CharacterProfile, 0, len(doc.Profiles))
	for i, raw := range doc.Profiles {
		var p types.CharacterProfile
		if err := json.Unmarshal(raw, &p); err != nil {
			slog.Warn("failed to parse character profile", "index", i, "error", err)
			continue
		}
		profiles = append(profiles, p)
	}
	catalog := NewProfiles(profiles)
	slog.Info("loaded character profiles", "path", path, "count", catalog.Len())
	return catalog, nil
}

// Len returns the number of profiles.
func (c *Profiles) Len() int {
	return len(c.ordered)
}

// Get returns a profile by id.
func (c *Profiles) Get(id string) (types.CharacterProfile, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// ForRole returns the profiles eligible for role in locale, in load order.
func (c *Profiles) ForRole(role, locale string) []types.CharacterProfile {
	var out []types.CharacterProfile
	for _, p := range c.ordered {
		if p.EligibleFor(role, locale) {
			out = append(out, p)
		}
	}
	return out
}

// ProfileStats summarizes the catalog.
type ProfileStats struct {
	Total              int            `json:"total_profiles"`
	RoleDistribution   map[string]int `json:"role_distribution"`
	GenderDistribution map[string]int `json:"gender_distribution"`
	AgeDistribution    map[string]int `json:"age_distribution"`
}

// Stats computes ProfileStats.
func (c *Profiles) Stats() ProfileStats {
	stats := ProfileStats{
		Total:              len(c.ordered),
		RoleDistribution:   map[string]int{types.RoleScammer: 0, types.RoleVictim: 0, types.RoleAny: 0},
		GenderDistribution: map[string]int{},
		AgeDistribution:    map[string]int{},
	}
	for _, p := range c.ordered {
		stats.RoleDistribution[p.RolePreference]++
		stats.GenderDistribution[p.Gender]++
		stats.AgeDistribution[p.AgeRange]++
	}
	return stats
}

// IDs returns the sorted profile ids.
func (c *Profiles) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultProfiles returns the built-in scammer and victim archetypes.
func DefaultProfiles() []types.CharacterProfile {
	return []types.CharacterProfile{
		{
			ID: "authoritative_scammer_01", Name: "Authority Figure Scammer", Gender: "any", AgeRange: "middle-aged",
			PersonalityTraits: []string{"authoritative", "confident", "urgent", "professional"},
			SpeakingStyle:     []string{"formal", "commanding", "technical-terms"},
			EducationLevel:    "college", RolePreference: types.RoleScammer,
		},
		{
			ID: "friendly_scammer_01", Name: "Friendly Helper Scammer", Gender: "any", AgeRange: "young",
			PersonalityTraits: []string{"friendly", "helpful", "reassuring", "patient"},
			SpeakingStyle:     []string{"conversational", "empathetic", "casual"},
			EducationLevel:    "high_school", RolePreference: types.RoleScammer,
		},
		{
			ID: "urgent_scammer_01", Name: "Time-Pressure Scammer", Gender: "any", AgeRange: "middle-aged",
			PersonalityTraits: []string{"urgent", "impatient", "persistent", "alarming"},
			SpeakingStyle:     []string{"fast-paced", "interrupting", "repetitive"},
			EducationLevel:    "any", RolePreference: types.RoleScammer,
		},
		{
			ID: "trusting_victim_01", Name: "Trusting Individual", Gender: "any", AgeRange: "senior",
			PersonalityTraits: []string{"trusting", "polite", "concerned", "cooperative"},
			SpeakingStyle:     []string{"hesitant", "questioning", "polite"},
			EducationLevel:    "high_school", RolePreference: types.RoleVictim,
		},
		{
			ID: "skeptical_victim_01", Name: "Skeptical Person", Gender: "any", AgeRange: "middle-aged",
			PersonalityTraits: []string{"skeptical", "cautious", "analytical", "questioning"},
			SpeakingStyle:     []string{"probing", "demanding-proof", "suspicious"},
			EducationLevel:    "college", RolePreference: types.RoleVictim,
		},
		{
			ID: "busy_victim_01", Name: "Busy Professional", Gender: "any", AgeRange: "young",
			PersonalityTraits: []string{"busy", "distracted", "efficient", "impatient"},
			SpeakingStyle:     []string{"brief", "multitasking", "rushed"},
			EducationLevel:    "graduate", RolePreference: types.RoleVictim,
		},
		{
			ID: "confused_victim_01", Name: "Confused Individual", Gender: "any", AgeRange: "senior",
			PersonalityTraits: []string{"confused", "anxious", "seeking-help", "vulnerable"},
			SpeakingStyle:     []string{"slow", "repetitive-questions", "uncertain"},
			EducationLevel:    "any", RolePreference: types.RoleVictim,
		},
	}
}
