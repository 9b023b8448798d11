package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

const (
	DefaultThreshold = 0.92
	defaultTopK      = 3
)

// Index searches conversations stored by other runs.
type Index interface {
	SearchSimilar(ctx context.Context, excludeRunID string, embedding []float32, topK int, threshold float64) ([]types.SimilarConversation, error)
}

// Finding lists the near-duplicates of one conversation.
type Finding struct {
	ConversationID int                         `json:"conversation_id"`
	ScenarioID     string                      `json:"scenario_id,omitempty"`
	Matches        []types.SimilarConversation `json:"matches"`
}

// Result is the outcome of auditing one batch. Embeddings are keyed by
// conversation ID so callers can persist them.
type Result struct {
	Threshold  float64           `json:"threshold"`
	Checked    int               `json:"checked"`
	Findings   []Finding         `json:"findings"`
	Embeddings map[int][]float32 `json:"-"`
}

type Auditor struct {
	embedder  Embedder
	index     Index
	threshold float64
	topK      int
}

// NewAuditor returns an auditor. index may be nil, in which case only
// in-batch duplicates are reported.
func NewAuditor(embedder Embedder, index Index, threshold float64) *Auditor {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Auditor{
		embedder:  embedder,
		index:     index,
		threshold: threshold,
		topK:      defaultTopK,
	}
}

// Audit embeds every record and reports pairs above the threshold.
func (a *Auditor) Audit(ctx context.Context, runID string, records []types.ConversationRecord) (Result, error) {
	result := Result{Threshold: a.threshold, Embeddings: make(map[int][]float32, len(records))}
	if len(records) == 0 {
		return result, nil
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = DialogueText(rec)
	}
	vectors, err := a.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return result, fmt.Errorf("failed to embed conversations: %w", err)
	}
	if len(vectors) != len(records) {
		return result, fmt.Errorf("embedding count mismatch: got %d want %d", len(vectors), len(records))
	}

	matches := make(map[int][]types.SimilarConversation)
	for i, rec := range records {
		if len(vectors[i]) == 0 {
			continue
		}
		result.Embeddings[rec.ConversationID] = vectors[i]
		result.Checked++
		for j := i + 1; j < len(records); j++ {
			score := Cosine(vectors[i], vectors[j])
			if score < a.threshold {
				continue
			}
			other := records[j]
			matches[rec.ConversationID] = append(matches[rec.ConversationID], types.SimilarConversation{
				RunID: runID, ConversationID: other.ConversationID, ScenarioID: other.ScenarioID, Similarity: score,
			})
			matches[other.ConversationID] = append(matches[other.ConversationID], types.SimilarConversation{
				RunID: runID, ConversationID: rec.ConversationID, ScenarioID: rec.ScenarioID, Similarity: score,
			})
		}
		if a.index == nil {
			continue
		}
		stored, err := a.index.SearchSimilar(ctx, runID, vectors[i], a.topK, a.threshold)
		if err != nil {
			slog.Warn("similarity search failed", "conversation_id", rec.ConversationID, "error", err)
			continue
		}
		matches[rec.ConversationID] = append(matches[rec.ConversationID], stored...)
	}

	for _, rec := range records {
		found := matches[rec.ConversationID]
		if len(found) == 0 {
			continue
		}
		sort.SliceStable(found, func(i, j int) bool { return found[i].Similarity > found[j].Similarity })
		result.Findings = append(result.Findings, Finding{
			ConversationID: rec.ConversationID,
			ScenarioID:     rec.ScenarioID,
			Matches:        found,
		})
	}
	return result, nil
}

// Cosine returns the cosine similarity of two vectors, or 0 when either is
// empty or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
