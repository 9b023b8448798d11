package catalog

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFilterByQualityThreshold(t *testing.T) {
	seeds := []types.Seed{
		{ID: "a", QualityScore: 60},
		{ID: "b", QualityScore: 70},
		{ID: "c", QualityScore: 85},
		{ID: "d", QualityScore: 99},
	}
	got := FilterByQuality(seeds, 70)
	require.Len(t, got, 3)
	assert.Equal(t, []int{70, 85, 99}, []int{got[0].QualityScore, got[1].QualityScore, got[2].QualityScore})
}

func TestLoadSeedsByTag(t *testing.T) {
	path := writeFile(t, "scam_samples.json", `{
	  "samples_by_tag": {
	    "parcel": {"record_id": 7, "scam_tag": "parcel", "scam_category": "delivery", "scam_summary": "fake courier", "conversation_seed": "Courier {00001} calls", "quality_score": 88},
	    "broken": {"record_id": 8, "scam_tag": "broken", "quality_score": 50},
	    "loan": {"record_id": 9, "scam_category": "loan", "conversation_seed": "Loan offer", "quality_score": 101}
	  }
	}`)
	seeds, err := LoadSeeds(path)
	require.NoError(t, err)
	require.Equal(t, 1, seeds.Len())

	seed, ok := seeds.Get("parcel")
	require.True(t, ok)
	assert.Equal(t, "7", seed.ID)
	assert.Equal(t, "delivery", seed.Category)

	byID, ok := seeds.Get("7")
	require.True(t, ok)
	assert.Equal(t, "parcel", byID.Tag)
}

func TestLoadSeedsList(t *testing.T) {
	path := writeFile(t, "seeds.json", `[
	  {"seed_id": "MY-001", "meta_tag": "Macau Scam", "summary": "police impersonation", "conversation_seed": "Officer calls", "quality_score": 90},
	  {"seed_id": "MY-002", "meta_tag": "Loan Fraud", "conversation_seed": "Loan", "quality_score": 65}
	]`)
	seeds, err := LoadSeeds(path)
	require.NoError(t, err)
	assert.Equal(t, 2, seeds.Len())
	assert.Equal(t, []string{"Loan Fraud", "Macau Scam"}, seeds.Categories())
	assert.Len(t, seeds.HighQuality(70), 1)

	stats := seeds.Stats()
	assert.Equal(t, 65, stats.MinQuality)
	assert.Equal(t, 90, stats.MaxQuality)
	assert.InDelta(t, 77.5, stats.AvgQuality, 1e-9)
}

func TestLoadSeedsMissingFile(t *testing.T) {
	_, err := LoadSeeds(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadProfilesDefaults(t *testing.T) {
	profiles, err := LoadProfiles("")
	require.NoError(t, err)
	assert.Equal(t, 7, profiles.Len())
	assert.Len(t, profiles.ForRole(types.RoleScammer, "ms-my"), 3)
	assert.Len(t, profiles.ForRole(types.RoleVictim, "ms-my"), 4)

	stats := profiles.Stats()
	assert.Equal(t, 3, stats.RoleDistribution[types.RoleScammer])
	assert.Equal(t, 4, stats.RoleDistribution[types.RoleVictim])
}

func TestProfilesForRoleLocaleAffinity(t *testing.T) {
	profiles := NewProfiles([]types.CharacterProfile{
		{ID: "sg_only", RolePreference: types.RoleScammer, LocaleAffinity: []string{"en-sg"}},
		{ID: "anyone"},
		{ID: "bad", RolePreference: "bystander"},
	})
	assert.Equal(t, 2, profiles.Len())

	got := profiles.ForRole(types.RoleScammer, "ms-my")
	require.Len(t, got, 1)
	assert.Equal(t, "anyone", got[0].ID)
	assert.Len(t, profiles.ForRole(types.RoleScammer, "en-sg"), 2)
	assert.Len(t, profiles.ForRole(types.RoleVictim, ""), 1)
}

func TestNewTemplatesValidation(t *testing.T) {
	bounds := TurnBounds{Min: 20, Max: 24}
	templates := NewTemplates([]types.ScenarioTemplate{
		{ID: "T1", ScammerProfileID: "s", VictimProfileID: "v", Awareness: types.AwarenessNot, NumTurns: 22, Weight: 0.2, Category: "Loan"},
		{ID: "T2", ScammerProfileID: "s", VictimProfileID: "v", Awareness: types.AwarenessNot, NumTurns: 22, Weight: 0},
		{ID: "T3", ScammerProfileID: "s", VictimProfileID: "v", Awareness: "maybe", NumTurns: 22, Weight: 1},
		{ID: "T4", ScammerProfileID: "s", VictimProfileID: "v", Awareness: types.AwarenessVery, NumTurns: 30, Weight: 1},
	}, bounds)
	assert.Equal(t, 1, templates.Len())
	_, ok := templates.Get("T1")
	assert.True(t, ok)
}

func TestLoadAssignmentsDropsUnknownTemplates(t *testing.T) {
	templates := NewTemplates([]types.ScenarioTemplate{
		{ID: "T0001", ScammerProfileID: "s", VictimProfileID: "v", Awareness: types.AwarenessTiny, NumTurns: 20, Weight: 1},
	}, TurnBounds{Min: 20, Max: 24})
	path := writeFile(t, "assignments.json", `{"version": "2.0", "seed_scenarios": {"MY-001": ["T0001", "T9999"]}}`)

	assignments, err := LoadAssignments(path, templates)
	require.NoError(t, err)
	assert.Equal(t, []string{"T0001"}, assignments["MY-001"])
}

func TestBuildAssignmentsWithoutReplacement(t *testing.T) {
	templates := NewTemplates([]types.ScenarioTemplate{
		{ID: "A", ScammerProfileID: "s", VictimProfileID: "v", Awareness: types.AwarenessNot, NumTurns: 20, Weight: 0.5, Category: "Loan Fraud"},
		{ID: "B", ScammerProfileID: "s", VictimProfileID: "v", Awareness: types.AwarenessNot, NumTurns: 20, Weight: 0.3, Category: "Loan Fraud"},
		{ID: "C", ScammerProfileID: "s", VictimProfileID: "v", Awareness: types.AwarenessNot, NumTurns: 20, Weight: 0.2, Category: "E-commerce Fraud"},
	}, TurnBounds{Min: 20, Max: 24})
	seeds := []types.Seed{
		{ID: "s1", Category: "Loan Fraud"},
		{ID: "s2", Category: "Unknown"},
	}

	got := BuildAssignments(seeds, templates, 5, "E-commerce Fraud", rand.New(rand.NewSource(42)))
	assert.ElementsMatch(t, []string{"A", "B"}, got["s1"])
	assert.Equal(t, []string{"C"}, got["s2"])
}

func TestLoadFirstTurnsSkipsBlankLines(t *testing.T) {
	path := writeFile(t, "first_turns.txt", "Hello {00001}\n\n  \nThis is {00002} bank\n")
	lines, err := LoadFirstTurns(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello {00001}", "This is {00002} bank"}, lines)
}

func TestPlaceholderMapRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "map.json")
	m := types.PlaceholderMap{"00001": {Tag: "<bank_name_local>", Substitutions: []string{"Maybank"}}}
	require.NoError(t, SavePlaceholderMap(path, m))

	loaded, err := LoadPlaceholderMap(path)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)
}
