package prompt

import (
	"strings"
	"testing"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/config"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

func testScenario() types.GenerationScenario {
	return types.GenerationScenario{
		ID:      "bank_impersonation_T001",
		SeedTag: "bank_impersonation",
		Seed: types.Seed{
			Tag:          "bank_impersonation",
			Category:     "Banking Fraud",
			Summary:      "Caller claims to be from {00001} and asks for a TAC code.",
			ScenarioText: "Hello, I am calling from {00001} about suspicious activity.",
		},
		ScammerProfile: types.CharacterProfile{
			ID:                "authoritative_officer",
			Name:              "Authoritative Officer",
			Gender:            "male",
			AgeRange:          "35-45",
			PersonalityTraits: []string{"confident", "impatient"},
			SpeakingStyle:     []string{"formal"},
			EducationLevel:    "tertiary",
		},
		VictimProfile: types.CharacterProfile{
			ID:       "retiree",
			Name:     "Cautious Retiree",
			Gender:   "female",
			AgeRange: "60-70",
		},
		Awareness: types.AwarenessTiny,
		NumTurns:  22,
	}
}

func TestSystemSectionRenderedOnce(t *testing.T) {
	b, err := NewBuilder(config.DefaultLocale())
	if err != nil {
		t.Fatalf("NewBuilder returned error: %v", err)
	}
	scam := b.System(types.ConversationScam)
	if scam != b.System(types.ConversationScam) {
		t.Fatalf("expected identical system section across calls")
	}
	if !strings.Contains(scam, "Language: Malay") || !strings.Contains(scam, "Ringgit") {
		t.Fatalf("expected locale details in system section, got %q", scam)
	}
	if strings.Contains(scam, "legitimate") {
		t.Fatalf("scam system section must not describe legitimate calls")
	}
	if !strings.Contains(b.System(types.ConversationLegit), "legitimate") {
		t.Fatalf("expected legit system section")
	}
}

func TestScenarioPrompt(t *testing.T) {
	b, _ := NewBuilder(config.DefaultLocale())
	got, err := b.Scenario(testScenario())
	if err != nil {
		t.Fatalf("Scenario returned error: %v", err)
	}
	for _, want := range []string{
		"The victim is tiny aware of the scam.",
		"Scam category: Banking Fraud",
		"{00001}",
		"- Authoritative Officer (male, 35-45, tertiary education)",
		"- Personality: confident, impatient",
		"- Cautious Retiree (female, 60-70)",
		"exactly 22 individual turns",
		`Generate exactly 22 dialogue turns, starting with "caller" role.`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected prompt to contain %q, got:\n%s", want, got)
		}
	}
}

func TestScenarioPromptRejectsEmptySeed(t *testing.T) {
	b, _ := NewBuilder(config.DefaultLocale())
	s := testScenario()
	s.Seed.ScenarioText = ""
	s.Seed.Summary = " "
	if _, err := b.Scenario(s); err == nil {
		t.Fatalf("expected error for seed without text")
	}
	s = testScenario()
	s.NumTurns = 0
	if _, err := b.Scenario(s); err == nil {
		t.Fatalf("expected error for zero turns")
	}
}

func TestFirstTurnPrompt(t *testing.T) {
	b, _ := NewBuilder(config.DefaultLocale())
	got, err := b.FirstTurn("Selamat pagi, saya {00002} dari {00001}.", types.AwarenessVery, 20)
	if err != nil {
		t.Fatalf("FirstTurn returned error: %v", err)
	}
	if !strings.Contains(got, `Turn 1: "Selamat pagi, saya {00002} dari {00001}."`) {
		t.Fatalf("expected first sentence in prompt, got:\n%s", got)
	}
	if !strings.Contains(got, "The victim is very aware") {
		t.Fatalf("expected awareness in prompt")
	}
	if _, err := b.FirstTurn("  ", types.AwarenessNot, 20); err == nil {
		t.Fatalf("expected error for empty first turn")
	}
}

func TestLegitPrompt(t *testing.T) {
	b, _ := NewBuilder(config.DefaultLocale())
	got, err := b.Legit("delivery_confirmation", 21)
	if err != nil {
		t.Fatalf("Legit returned error: %v", err)
	}
	if !strings.Contains(got, "Malay phone call dialogue between a caller and a callee from Malaysia.") {
		t.Fatalf("expected language and region, got:\n%s", got)
	}
	if !strings.Contains(got, "about Delivery Confirmation.") {
		t.Fatalf("expected display category, got:\n%s", got)
	}
}
