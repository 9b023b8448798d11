package types

// Seed is a quality-scored scam scenario skeleton.
type Seed struct {
	ID           string   `json:"seed_id"`
	Tag          string   `json:"scam_tag"`
	Category     string   `json:"scam_category"`
	Summary      string   `json:"scam_summary"`
	ScenarioText string   `json:"conversation_seed"`
	QualityScore int      `json:"quality_score"`
	Placeholders []string `json:"placeholders,omitempty"`
}

// Key returns the identifier assignments and scenarios use for the seed.
func (s Seed) Key() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Tag
}
