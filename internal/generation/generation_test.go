package generation

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/usage"
)

func dialogueJSON(n int) string {
	parts := make([]string, n)
	for i := range n {
		parts[i] = fmt.Sprintf(`{"text":"line %d","role":"%s"}`, i+1, types.ExpectedRole(i))
	}
	return `{"dialogue":[` + strings.Join(parts, ",") + `]}`
}

type fakeGenerator struct {
	mu      sync.Mutex
	fail    map[string]bool
	active  int
	maxSeen int
}

func (f *fakeGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	f.mu.Lock()
	f.active++
	f.maxSeen = max(f.maxSeen, f.active)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	// Later tasks finish first to exercise reordering.
	var idx int
	fmt.Sscanf(req.ScenarioID, "s%d", &idx)
	time.Sleep(time.Duration(6-idx) * 5 * time.Millisecond)

	if f.fail[req.ScenarioID] {
		return Result{}, errors.New("boom")
	}
	turns, err := ParseDialogue(dialogueJSON(req.NumTurns), req.NumTurns)
	if err != nil {
		return Result{}, err
	}
	return Result{Turns: turns, Usage: usage.Record{Model: "fake", InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}, nil
}

func TestOrchestratorIsolatesFailuresAndKeepsOrder(t *testing.T) {
	gen := &fakeGenerator{fail: map[string]bool{"s3": true}}
	ledger := usage.NewLedger()
	orch := NewOrchestrator(gen, ledger, 2)

	var tasks []Task
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("s%d", i)
		tasks = append(tasks, Task{
			Request: Request{ScenarioID: id, User: "u", NumTurns: 6},
			Record:  types.ConversationRecord{ConversationID: i, ScenarioID: id, NumTurns: 6},
		})
	}

	records, report := orch.Run(context.Background(), tasks)

	require.Len(t, records, 4)
	var ids []string
	for _, rec := range records {
		ids = append(ids, rec.ScenarioID)
		assert.Len(t, rec.Dialogue, 6)
		assert.True(t, types.Alternates(rec.Dialogue))
	}
	assert.Equal(t, []string{"s1", "s2", "s4", "s5"}, ids)
	assert.Equal(t, BatchReport{Requested: 5, Produced: 4, Failed: 1, FailedScenarios: []string{"s3"}, DurationSeconds: report.DurationSeconds}, report)
	assert.LessOrEqual(t, gen.maxSeen, 2)
	assert.Equal(t, 4, ledger.Len())

	completed, failed, total := orch.Progress().Snapshot()
	assert.Equal(t, int64(5), completed)
	assert.Equal(t, int64(1), failed)
	assert.Equal(t, int64(5), total)
}

func TestOrchestratorEmptyBatch(t *testing.T) {
	records, report := NewOrchestrator(&fakeGenerator{}, nil, 0).Run(context.Background(), nil)
	assert.Empty(t, records)
	assert.Equal(t, 0, report.Requested)
}

func TestParseDialogue(t *testing.T) {
	turns, err := ParseDialogue("Here you go:\n"+dialogueJSON(4), 5)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, 1, turns[0].SentID)
	assert.Equal(t, 4, turns[3].SentID)
	assert.Equal(t, types.SpeakerCallee, turns[3].Role)
}

func TestParseDialogueRejectsMalformed(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want int
	}{
		"not json":         {raw: "sorry, I cannot help", want: 2},
		"empty dialogue":   {raw: `{"dialogue":[]}`, want: 2},
		"starts callee":    {raw: `{"dialogue":[{"text":"hi","role":"callee"},{"text":"yo","role":"caller"}]}`, want: 2},
		"repeated speaker": {raw: `{"dialogue":[{"text":"hi","role":"caller"},{"text":"again","role":"caller"}]}`, want: 2},
		"blank turn":       {raw: `{"dialogue":[{"text":"  ","role":"caller"}]}`, want: 1},
		"too short":        {raw: dialogueJSON(17), want: 20},
		"too long":         {raw: dialogueJSON(23), want: 20},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDialogue(tc.raw, tc.want)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestParseDialogueNormalizesRoles(t *testing.T) {
	turns, err := ParseDialogue(`{"dialogue":[{"text":"Helo","role":" Caller "},{"text":"Ya","role":"CALLEE"}]}`, 0)
	require.NoError(t, err)
	assert.Equal(t, types.SpeakerCaller, turns[0].Role)
	assert.Equal(t, types.SpeakerCallee, turns[1].Role)
}

type fakeLLM struct {
	text string
	err  error
	last *model.LLMRequest
}

func (f *fakeLLM) Name() string { return "fake-model" }

func (f *fakeLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	f.last = req
	return func(yield func(*model.LLMResponse, error) bool) {
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		yield(&model.LLMResponse{
			Content: genai.NewContentFromText(f.text, "model"),
			UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
				PromptTokenCount:     100,
				CandidatesTokenCount: 40,
				TotalTokenCount:      140,
			},
		}, nil)
	}
}

func TestLLMGenerator(t *testing.T) {
	llm := &fakeLLM{text: dialogueJSON(4)}
	gen := NewLLMGenerator(llm, Sampling{Temperature: 1, TopP: 0.95, MaxTokens: 2048})

	res, err := gen.Generate(context.Background(), Request{ScenarioID: "s1", System: "system text", User: "user text", NumTurns: 4})
	require.NoError(t, err)
	assert.Len(t, res.Turns, 4)
	assert.Equal(t, "fake-model", res.Usage.Model)
	assert.Equal(t, "s1", res.Usage.ScenarioID)
	assert.Equal(t, int64(140), res.Usage.TotalTokens)

	require.NotNil(t, llm.last)
	cfg := llm.last.Config
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "system text", cfg.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.Equal(t, genai.TypeObject, cfg.ResponseSchema.Type)
	assert.InDelta(t, 0.95, *cfg.TopP, 1e-6)
	assert.Equal(t, int32(2048), cfg.MaxOutputTokens)
	assert.Equal(t, "user text", llm.last.Contents[0].Parts[0].Text)
}

func TestLLMGeneratorErrors(t *testing.T) {
	_, err := NewLLMGenerator(&fakeLLM{err: errors.New("network down")}, Sampling{}).Generate(context.Background(), Request{User: "u"})
	assert.ErrorContains(t, err, "network down")

	_, err = NewLLMGenerator(&fakeLLM{text: "no json"}, Sampling{}).Generate(context.Background(), Request{User: "u"})
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = NewLLMGenerator(&fakeLLM{}, Sampling{}).Generate(context.Background(), Request{User: " "})
	assert.Error(t, err)
}
