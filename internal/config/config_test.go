package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

func TestParseWeights(t *testing.T) {
	weights, err := parseWeights("not:0.6, tiny:0.3,very:0.1")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, weights[types.AwarenessNot], 1e-9)
	assert.InDelta(t, 0.3, weights[types.AwarenessTiny], 1e-9)
	assert.InDelta(t, 0.1, weights[types.AwarenessVery], 1e-9)
	assert.Equal(t, "not:0.6,tiny:0.3,very:0.1", WeightString(weights))
}

func TestParseWeightsRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"not", "maybe:0.5", "not:-1", "not:0,tiny:0", "not:abc"} {
		_, err := parseWeights(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseDefaults(t *testing.T) {
	t.Setenv("LOCALE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxConcurrent)
	assert.Equal(t, 20, cfg.NumTurnsMin)
	assert.Equal(t, 24, cfg.NumTurnsMax)
	assert.Equal(t, 70, cfg.SeedMinQuality)
	assert.Equal(t, 200, cfg.DiversityWindow)
	assert.InDelta(t, 0.10, cfg.InterruptionRate, 1e-9)
	assert.True(t, cfg.EnableRedaction)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "ms-my", cfg.Locale.ID)
	assert.Equal(t, "atau", cfg.Locale.OrWord)
	require.NoError(t, cfg.Validate())
}

func TestValidateMissingCredential(t *testing.T) {
	cfg := Config{LLMProvider: "openai", NumTurnsMin: 4, NumTurnsMax: 6, MaxConcurrent: 1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestValidateLocalProviderNeedsHost(t *testing.T) {
	cfg := Config{LLMProvider: "vllm", NumTurnsMin: 4, NumTurnsMax: 6, MaxConcurrent: 1}
	require.Error(t, cfg.Validate())
	cfg.HostIP = "10.0.0.2"
	require.NoError(t, cfg.Validate())
}

func TestValidateMissingPlaceholderFile(t *testing.T) {
	cfg := Config{
		LLMProvider:                  "openai",
		APIKey:                       "k",
		NumTurnsMin:                  4,
		NumTurnsMax:                  6,
		MaxConcurrent:                1,
		PrepopulatedPlaceholdersPath: filepath.Join(t.TempDir(), "nope.json"),
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PREPOPULATED_PLACEHOLDERS_PATH")
}

func TestLoadLocaleMergesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "en-sg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: en-sg\nor_word: or\ncurrency_markers: [\"S$\"]\n"), 0o644))

	locale, err := LoadLocale(path, "en-sg")
	require.NoError(t, err)
	assert.Equal(t, "en-sg", locale.ID)
	assert.Equal(t, "or", locale.OrWord)
	assert.Equal(t, []string{"S$"}, locale.CurrencyMarkers)
	assert.NotEmpty(t, locale.NameTags)
}
