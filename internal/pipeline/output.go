package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/placeholder"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/similarity"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/usage"
)

const (
	SummaryFileName    = "run_summary.json"
	DiversityFileName  = "diversity_report.json"
	SimilarityFileName = "similarity_report.json"
)

// DatasetFileName is the conversations file for a conversation type.
func DatasetFileName(conversationType string) string {
	return conversationType + "_conversations.json"
}

// Dataset is the document holding the records of one run.
type Dataset struct {
	RunID              string                     `json:"run_id"`
	GeneratedAt        time.Time                  `json:"generation_timestamp"`
	Type               string                     `json:"conversation_type"`
	Locale             string                     `json:"locale"`
	TotalConversations int                        `json:"total_conversations"`
	Conversations      []types.ConversationRecord `json:"conversations"`
}

// Summary is the run report written last. Produced versus requested is
// always stated, so a partial dataset never goes unnoticed.
type Summary struct {
	types.RunSummary
	DurationSeconds       float64                       `json:"duration_seconds"`
	Usage                 usage.Summary                 `json:"usage"`
	Cost                  usage.Cost                    `json:"cost_estimate"`
	PlaceholderValidation *placeholder.ValidationReport `json:"placeholder_validation,omitempty"`
	ReconciledMapPath     string                        `json:"reconciled_map_path,omitempty"`
	SimilarityFindings    int                           `json:"similarity_findings"`
	Persisted             bool                          `json:"persisted"`
}

// DiversityOutput is the diversity audit of the placeholder sampler.
type DiversityOutput struct {
	RunID     string                      `json:"run_id"`
	Diversity placeholder.DiversityReport `json:"diversity"`
}

// SimilarityOutput is the near-duplicate audit of a run.
type SimilarityOutput struct {
	RunID  string            `json:"run_id"`
	Result similarity.Result `json:"result"`
}

func writeJSON(dir, name string, value any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
