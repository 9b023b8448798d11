package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/config"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/generation"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/placeholder"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/similarity"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/usage"
)

type fakeGenerator struct {
	mu       sync.Mutex
	fail     map[string]bool
	requests []generation.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req generation.Request) (generation.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.fail[req.ScenarioID] {
		return generation.Result{}, errors.New("upstream unavailable")
	}
	turns := make([]types.DialogueTurn, req.NumTurns)
	for i := range turns {
		text := "Baik, saya faham."
		if i%2 == 0 {
			text = "Saya dari {00001}, akaun anda ada masalah."
		}
		turns[i] = types.DialogueTurn{SentID: i + 1, Role: types.ExpectedRole(i), Text: text}
	}
	return generation.Result{
		Turns: turns,
		Usage: usage.Record{Model: "gpt-4.1-mini", ScenarioID: req.ScenarioID, InputTokens: 100, OutputTokens: 50, TotalTokens: 150},
	}, nil
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeStore struct {
	runs          []types.RunSummary
	conversations int
	embeddings    map[int][]float32
	usage         int
}

func (s *fakeStore) Save(_ context.Context, run types.RunSummary) error {
	s.runs = append(s.runs, run)
	return nil
}

func (s *fakeStore) SaveBatch(_ context.Context, _ string, records []types.ConversationRecord, embeddings map[int][]float32) error {
	s.conversations += len(records)
	s.embeddings = embeddings
	return nil
}

func (s *fakeStore) SaveRecords(_ context.Context, _ string, records []usage.Record) error {
	s.usage += len(records)
	return nil
}

type fakeAuditor struct{}

func (fakeAuditor) Audit(_ context.Context, runID string, records []types.ConversationRecord) (similarity.Result, error) {
	result := similarity.Result{Threshold: 0.9, Checked: len(records), Embeddings: map[int][]float32{}}
	for _, rec := range records {
		result.Embeddings[rec.ConversationID] = []float32{1, 0}
	}
	result.Findings = []similarity.Finding{{
		ConversationID: records[0].ConversationID,
		Matches:        []types.SimilarConversation{{RunID: runID, ConversationID: records[1].ConversationID, Similarity: 1}},
	}}
	return result, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		LLMModel:         "gpt-4.1-mini",
		MaxConcurrent:    2,
		NumTurnsMin:      6,
		NumTurnsMax:      6,
		AwarenessWeights: map[types.Awareness]float64{types.AwarenessNot: 1},
		SeedMinQuality:   70,
		ScenariosPerSeed: 2,
		LegitCount:       3,
		RandomSeed:       42,
		DiversityWindow:  10,
		SeedsPath: writeFile(t, dir, "seeds.json", `{"samples_by_tag": {
		  "parcel": {"seed_id": "parcel", "scam_category": "delivery", "conversation_seed": "Courier from {00001} asks for a fee", "quality_score": 90},
		  "loan": {"seed_id": "loan", "scam_category": "loan", "conversation_seed": "Loan approval from {00001}", "quality_score": 80},
		  "weak": {"seed_id": "weak", "scam_category": "loan", "conversation_seed": "Weak seed", "quality_score": 40}
		}}`),
		DynamicPlaceholdersPath:      writeFile(t, dir, "dynamic.json", `{"00001": {"tag": "bank_name", "substitutions": []}}`),
		PrepopulatedPlaceholdersPath: writeFile(t, dir, "prepopulated.json", `{"10001": {"tag": "bank_name", "substitutions": ["Maybank", "CIMB", "RHB"]}}`),
		OutputDir:                    filepath.Join(dir, "output"),
		Locale:                       config.DefaultLocale(),
	}
}

func readDataset(t *testing.T, path string) Dataset {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var ds Dataset
	require.NoError(t, json.Unmarshal(data, &ds))
	return ds
}

func TestRunScamScenarioMode(t *testing.T) {
	cfg := testConfig(t)
	gen := &fakeGenerator{fail: map[string]bool{"loan_ms-my_002": true}}
	store := &fakeStore{}
	runner, err := New(cfg, gen,
		WithPersistence(Persistence{Runs: store, Conversations: store, Usage: store}),
		WithAuditor(fakeAuditor{}),
	)
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), types.ConversationScam)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Requested)
	assert.Equal(t, 3, summary.Produced)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"loan_ms-my_002"}, summary.FailedScenarios)
	assert.Equal(t, 3, summary.Usage.Calls)
	assert.Equal(t, 1, summary.SimilarityFindings)
	assert.True(t, summary.Persisted)
	require.NotNil(t, summary.PlaceholderValidation)
	assert.True(t, summary.PlaceholderValidation.Valid)

	ds := readDataset(t, summary.OutputPath)
	require.Len(t, ds.Conversations, 3)
	// Seeds load in tag order, so the failed loan task leaves a gap at 2.
	assert.Equal(t, []int{1, 3, 4}, []int{ds.Conversations[0].ConversationID, ds.Conversations[1].ConversationID, ds.Conversations[2].ConversationID})
	for _, rec := range ds.Conversations {
		assert.Equal(t, types.ConversationScam, rec.Type)
		assert.Equal(t, "ms-my", rec.Locale)
		assert.Equal(t, 6, rec.NumTurns)
		assert.Positive(t, rec.EstimatedMinutes)
		value := rec.Placeholders["00001"]
		require.Contains(t, []string{"Maybank", "CIMB", "RHB"}, value)
		for _, turn := range rec.Dialogue {
			assert.NotContains(t, turn.Text, "{00001}")
			if turn.Role == types.SpeakerCaller {
				assert.True(t, strings.Contains(turn.Text, value), "turn %q should mention %q", turn.Text, value)
			}
		}
	}

	outDir := runner.OutputDir()
	for _, name := range []string{usage.ReportFileName, DiversityFileName, SimilarityFileName, SummaryFileName} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(filepath.Dir(cfg.DynamicPlaceholdersPath), placeholder.ReconciledFileName))
	assert.NoError(t, err)

	require.Len(t, store.runs, 1)
	assert.Equal(t, summary.RunID, store.runs[0].RunID)
	assert.Equal(t, 3, store.conversations)
	assert.Len(t, store.embeddings, 3)
	assert.Equal(t, 3, store.usage)
}

func TestRunStrictModeRejectsInvalidMap(t *testing.T) {
	cfg := testConfig(t)
	cfg.PlaceholderStrict = true
	cfg.DynamicPlaceholdersPath = writeFile(t, filepath.Dir(cfg.DynamicPlaceholdersPath), "dynamic_bad.json",
		`{"00001": {"tag": "bank_name"}, "00002": {"tag": "officer_name"}}`)
	gen := &fakeGenerator{}
	runner, err := New(cfg, gen)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), types.ConversationScam)
	require.ErrorIs(t, err, placeholder.ErrInvalidMap)
	assert.Zero(t, gen.calls())
}

func TestPreparePlaceholdersBestEffort(t *testing.T) {
	cfg := testConfig(t)
	dynamic := writeFile(t, filepath.Dir(cfg.DynamicPlaceholdersPath), "dynamic_bad.json",
		`{"00001": {"tag": "bank_name"}, "00002": {"tag": "officer_name"}}`)

	setup, err := PreparePlaceholders(dynamic, cfg.PrepopulatedPlaceholdersPath, cfg.OutputDir, false)
	require.NoError(t, err)
	require.NotNil(t, setup.Validation)
	assert.False(t, setup.Validation.Valid)
	require.Len(t, setup.Chain, 1)
	assert.Equal(t, "reconciled", setup.Chain[0].Name())
	assert.Equal(t, []string{"officer_name"}, setup.Reconcile.MissingTags)
}

func TestMissingTagStaysLiteralDespiteCodeCollision(t *testing.T) {
	dir := t.TempDir()
	dynamic := writeFile(t, dir, "dynamic.json", `{
	  "00001": {"tag": "<courier_company_name_local>", "substitutions": []},
	  "00002": {"tag": "<bank_name>", "substitutions": []}
	}`)
	prepopulated := writeFile(t, dir, "prepopulated.json", `{
	  "00001": {"tag": "<caller_name>", "substitutions": ["Ali"]},
	  "00009": {"tag": "<bank_name>", "substitutions": ["Maybank"]}
	}`)

	setup, err := PreparePlaceholders(dynamic, prepopulated, dir, false)
	require.NoError(t, err)
	require.NotNil(t, setup.Validation)
	assert.False(t, setup.Validation.Valid)

	engine := placeholder.NewEngine(setup.Chain, placeholder.NewSampler(10), nil, rand.New(rand.NewSource(1)))
	assert.Equal(t, "Your parcel from {00001} is held", engine.Resolve("Your parcel from {00001} is held", "1"))
	assert.Equal(t, "Maybank", engine.Resolve("{00002}", "1"))
}

func TestPreparePlaceholdersMissingDynamicFallsBack(t *testing.T) {
	cfg := testConfig(t)
	setup, err := PreparePlaceholders(filepath.Join(t.TempDir(), "missing.json"), cfg.PrepopulatedPlaceholdersPath, cfg.OutputDir, true)
	require.NoError(t, err)
	require.Len(t, setup.Chain, 1)
	assert.Equal(t, "prepopulated", setup.Chain[0].Name())
	assert.Nil(t, setup.Validation)
}

func TestRunFirstTurnMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.SeedsPath = ""
	cfg.FirstTurnsPath = writeFile(t, t.TempDir(), "first_turns.txt", "Hello, this is {00001}.\n\nYour parcel is held.\n")
	gen := &fakeGenerator{}
	runner, err := New(cfg, gen)
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), types.ConversationScam)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Produced)

	ds := readDataset(t, summary.OutputPath)
	require.Len(t, ds.Conversations, 2)
	assert.Equal(t, "first_turn_001", ds.Conversations[0].ScenarioID)
	assert.Equal(t, "Hello, this is "+ds.Conversations[0].Placeholders["00001"]+".", ds.Conversations[0].FirstTurn)
	assert.Equal(t, "Your parcel is held.", ds.Conversations[1].FirstTurn)
}

func TestRunLegitMode(t *testing.T) {
	cfg := testConfig(t)
	gen := &fakeGenerator{}
	runner, err := New(cfg, gen)
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), types.ConversationLegit)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Requested)
	assert.Equal(t, filepath.Join(runner.OutputDir(), DatasetFileName(types.ConversationLegit)), summary.OutputPath)

	ds := readDataset(t, summary.OutputPath)
	for _, rec := range ds.Conversations {
		assert.Equal(t, types.ConversationLegit, rec.Type)
		assert.Equal(t, "Malaysia", rec.Region)
		assert.Contains(t, cfg.Locale.LegitCategories, rec.Category)
	}
	for _, req := range gen.requests {
		assert.Equal(t, runner.prompts.System(types.ConversationLegit), req.System)
	}
}

func TestRunScamNeedsInput(t *testing.T) {
	cfg := testConfig(t)
	cfg.SeedsPath = ""
	runner, err := New(cfg, &fakeGenerator{})
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), types.ConversationScam)
	require.Error(t, err)
}

func TestSampleLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.SampleLimit = 1
	gen := &fakeGenerator{}
	runner, err := New(cfg, gen)
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), types.ConversationScam)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Requested)
	assert.Equal(t, 1, gen.calls())
}
