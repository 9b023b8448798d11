// Package prompt renders the system and user sections of generation requests.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/config"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

// Builder renders prompts for one locale. The system sections are rendered
// once in NewBuilder and shared by every request of the batch.
type Builder struct {
	locale      config.Locale
	scamSystem  string
	legitSystem string
}

// NewBuilder renders the locale-static system sections.
func NewBuilder(locale config.Locale) (*Builder, error) {
	scam, err := render(systemTemplate, struct {
		Locale config.Locale
		Legit  bool
	}{Locale: locale})
	if err != nil {
		return nil, err
	}
	legit, err := render(systemTemplate, struct {
		Locale config.Locale
		Legit  bool
	}{Locale: locale, Legit: true})
	if err != nil {
		return nil, err
	}
	return &Builder{locale: locale, scamSystem: scam, legitSystem: legit}, nil
}

// System returns the cached system section for a conversation type.
func (b *Builder) System(conversationType string) string {
	if conversationType == types.ConversationLegit {
		return b.legitSystem
	}
	return b.scamSystem
}

// Scenario renders the user section for a resolved scenario.
func (b *Builder) Scenario(s types.GenerationScenario) (string, error) {
	if s.NumTurns <= 0 {
		return "", fmt.Errorf("scenario %s: turn count must be positive", s.ID)
	}
	if strings.TrimSpace(s.Seed.ScenarioText) == "" && strings.TrimSpace(s.Seed.Summary) == "" {
		return "", fmt.Errorf("scenario %s: seed %s has no scenario text", s.ID, s.SeedTag)
	}
	return render(scenarioTemplate, struct {
		Seed      types.Seed
		Scammer   types.CharacterProfile
		Victim    types.CharacterProfile
		Awareness types.Awareness
		NumTurns  int
	}{
		Seed:      s.Seed,
		Scammer:   s.ScammerProfile,
		Victim:    s.VictimProfile,
		Awareness: s.Awareness,
		NumTurns:  s.NumTurns,
	})
}

// FirstTurn renders the user section that continues a given opening line.
func (b *Builder) FirstTurn(firstTurn string, awareness types.Awareness, numTurns int) (string, error) {
	if strings.TrimSpace(firstTurn) == "" {
		return "", fmt.Errorf("first turn cannot be empty")
	}
	return render(firstTurnTemplate, struct {
		FirstTurn string
		Awareness types.Awareness
		NumTurns  int
	}{FirstTurn: firstTurn, Awareness: awareness, NumTurns: numTurns})
}

// Legit renders the user section for a legitimate call about category.
func (b *Builder) Legit(category string, numTurns int) (string, error) {
	return render(legitTemplate, struct {
		Language string
		Region   string
		Category string
		NumTurns int
	}{
		Language: b.locale.Language,
		Region:   b.locale.Region,
		Category: displayCategory(category),
		NumTurns: numTurns,
	})
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}
	return buf.String(), nil
}
