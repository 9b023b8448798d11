package types

// Role affinities a CharacterProfile may declare.
const (
	RoleScammer = "scammer"
	RoleVictim  = "victim"
	RoleAny     = "any"
)

// CharacterProfile is a reusable participant archetype.
type CharacterProfile struct {
	ID                string   `json:"profile_id"`
	Name              string   `json:"name"`
	Gender            string   `json:"gender"`
	AgeRange          string   `json:"age_range"`
	PersonalityTraits []string `json:"personality_traits"`
	SpeakingStyle     []string `json:"speaking_style"`
	EducationLevel    string   `json:"education_level"`
	LocaleAffinity    []string `json:"locale_affinity,omitempty"`
	RolePreference    string   `json:"role_preference"`
}

// EligibleFor reports whether the profile may play role in locale.
// An empty locale or an empty affinity list matches every locale.
func (p CharacterProfile) EligibleFor(role, locale string) bool {
	if p.RolePreference != role && p.RolePreference != RoleAny {
		return false
	}
	if locale == "" || len(p.LocaleAffinity) == 0 {
		return true
	}
	for _, l := range p.LocaleAffinity {
		if l == locale {
			return true
		}
	}
	return false
}
