package types

import "fmt"

// Awareness is the victim's suspicion level inside a dialogue.
type Awareness string

const (
	AwarenessNot  Awareness = "not"
	AwarenessTiny Awareness = "tiny"
	AwarenessVery Awareness = "very"
)

// AwarenessLevels lists every valid Awareness in canonical order.
var AwarenessLevels = []Awareness{AwarenessNot, AwarenessTiny, AwarenessVery}

// ParseAwareness validates a raw awareness label.
func ParseAwareness(raw string) (Awareness, error) {
	switch Awareness(raw) {
	case AwarenessNot, AwarenessTiny, AwarenessVery:
		return Awareness(raw), nil
	default:
		return "", fmt.Errorf("invalid awareness level: %q", raw)
	}
}

// ScenarioTemplate is a pre-computed pairing of profiles with dialogue parameters.
type ScenarioTemplate struct {
	ID               string    `json:"template_id"`
	ScammerProfileID string    `json:"scammer_profile_id"`
	VictimProfileID  string    `json:"victim_profile_id"`
	Awareness        Awareness `json:"victim_awareness"`
	NumTurns         int       `json:"num_turns"`
	Weight           float64   `json:"weight"`
	Category         string    `json:"category"`
	Tags             []string  `json:"tags,omitempty"`
}

// ScenarioAssignment maps a seed id to an ordered list of template ids.
type ScenarioAssignment map[string][]string

// GenerationScenario is one fully resolved generation instruction.
type GenerationScenario struct {
	ID             string           `json:"scenario_id"`
	SeedTag        string           `json:"seed_tag"`
	Seed           Seed             `json:"-"`
	ScammerProfile CharacterProfile `json:"scammer_profile"`
	VictimProfile  CharacterProfile `json:"victim_profile"`
	Locale         string           `json:"locale"`
	Awareness      Awareness        `json:"victim_awareness"`
	NumTurns       int              `json:"num_turns"`
	TemplateID     string           `json:"template_id,omitempty"`
}
