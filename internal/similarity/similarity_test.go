package similarity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vectors[text]
	}
	return out, nil
}

type fakeIndex struct {
	excluded []string
	hits     []types.SimilarConversation
}

func (f *fakeIndex) SearchSimilar(_ context.Context, runID string, _ []float32, _ int, _ float64) ([]types.SimilarConversation, error) {
	f.excluded = append(f.excluded, runID)
	return f.hits, nil
}

func record(id int, text string) types.ConversationRecord {
	return types.ConversationRecord{
		ConversationID: id,
		ScenarioID:     "s" + text,
		Dialogue:       []types.DialogueTurn{{SentID: 1, Role: types.SpeakerCaller, Text: text}},
	}
}

func key(text string) string {
	return DialogueText(record(0, text))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestAuditFindsInBatchDuplicates(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		key("a"): {1, 0, 0},
		key("b"): {0.99, 0.01, 0},
		key("c"): {0, 1, 0},
	}}
	auditor := NewAuditor(embedder, nil, 0.9)

	result, err := auditor.Audit(context.Background(), "run-1", []types.ConversationRecord{record(1, "a"), record(2, "b"), record(3, "c")})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Checked)
	assert.Len(t, result.Embeddings, 3)
	require.Len(t, result.Findings, 2)
	assert.Equal(t, 1, result.Findings[0].ConversationID)
	assert.Equal(t, 2, result.Findings[0].Matches[0].ConversationID)
	assert.Equal(t, "run-1", result.Findings[0].Matches[0].RunID)
	assert.Equal(t, 2, result.Findings[1].ConversationID)
	assert.Equal(t, 1, result.Findings[1].Matches[0].ConversationID)
}

func TestAuditQueriesIndexExcludingCurrentRun(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{key("a"): {1, 0}}}
	index := &fakeIndex{hits: []types.SimilarConversation{{RunID: "old", ConversationID: 7, Similarity: 0.95}}}
	auditor := NewAuditor(embedder, index, 0)

	result, err := auditor.Audit(context.Background(), "run-2", []types.ConversationRecord{record(1, "a")})
	require.NoError(t, err)
	assert.Equal(t, DefaultThreshold, result.Threshold)
	assert.Equal(t, []string{"run-2"}, index.excluded)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "old", result.Findings[0].Matches[0].RunID)
}

func TestAuditSkipsEmptyEmbeddings(t *testing.T) {
	auditor := NewAuditor(&fakeEmbedder{vectors: map[string][]float32{}}, nil, 0.9)
	result, err := auditor.Audit(context.Background(), "run", []types.ConversationRecord{record(1, "x")})
	require.NoError(t, err)
	assert.Zero(t, result.Checked)
	assert.Empty(t, result.Findings)
}

func TestAuditEmbedError(t *testing.T) {
	auditor := NewAuditor(&fakeEmbedder{err: errors.New("quota")}, nil, 0.9)
	_, err := auditor.Audit(context.Background(), "run", []types.ConversationRecord{record(1, "x")})
	require.Error(t, err)
}
