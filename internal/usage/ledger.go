// Package usage tracks token usage and estimated cost for a generation run.
package usage

import (
	"sync"
	"time"

	"google.golang.org/genai"
)

// Record is the usage of one generation call.
type Record struct {
	Timestamp       time.Time `json:"timestamp"`
	Model           string    `json:"model"`
	ScenarioID      string    `json:"scenario_id,omitempty"`
	InputTokens     int64     `json:"input_tokens"`
	CachedTokens    int64     `json:"cached_tokens"`
	OutputTokens    int64     `json:"output_tokens"`
	ReasoningTokens int64     `json:"reasoning_tokens"`
	TotalTokens     int64     `json:"total_tokens"`
}

// FromMetadata converts genai usage metadata. Output tokens include
// thinking tokens, which are also reported separately as reasoning.
func FromMetadata(modelName, scenarioID string, md *genai.GenerateContentResponseUsageMetadata) Record {
	rec := Record{Timestamp: time.Now(), Model: modelName, ScenarioID: scenarioID}
	if md == nil {
		return rec
	}
	rec.InputTokens = int64(md.PromptTokenCount)
	rec.CachedTokens = int64(md.CachedContentTokenCount)
	rec.ReasoningTokens = int64(md.ThoughtsTokenCount)
	rec.OutputTokens = int64(md.CandidatesTokenCount) + rec.ReasoningTokens
	rec.TotalTokens = int64(md.TotalTokenCount)
	if rec.TotalTokens == 0 {
		rec.TotalTokens = rec.InputTokens + rec.OutputTokens
	}
	return rec
}

// Ledger is a run-scoped, concurrency-safe list of usage records.
type Ledger struct {
	mu      sync.Mutex
	started time.Time
	records []Record
}

func NewLedger() *Ledger {
	return &Ledger{started: time.Now()}
}

// Add appends a record.
func (l *Ledger) Add(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
}

// Records returns a copy of all records in insertion order.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// Len returns the number of recorded calls.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Summary aggregates a ledger.
type Summary struct {
	Calls           int      `json:"total_calls"`
	InputTokens     int64    `json:"total_input_tokens"`
	CachedTokens    int64    `json:"total_cached_tokens"`
	OutputTokens    int64    `json:"total_output_tokens"`
	ReasoningTokens int64    `json:"total_reasoning_tokens"`
	TotalTokens     int64    `json:"total_tokens"`
	AvgInputTokens  float64  `json:"avg_input_tokens"`
	AvgOutputTokens float64  `json:"avg_output_tokens"`
	AvgTotalTokens  float64  `json:"avg_total_tokens"`
	DurationSeconds float64  `json:"duration_seconds"`
	Models          []string `json:"models"`
}

// Summary returns totals and per-call averages.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Summary{Calls: len(l.records), DurationSeconds: time.Since(l.started).Seconds()}
	seen := map[string]struct{}{}
	for _, r := range l.records {
		s.InputTokens += r.InputTokens
		s.CachedTokens += r.CachedTokens
		s.OutputTokens += r.OutputTokens
		s.ReasoningTokens += r.ReasoningTokens
		s.TotalTokens += r.TotalTokens
		if _, ok := seen[r.Model]; !ok && r.Model != "" {
			seen[r.Model] = struct{}{}
			s.Models = append(s.Models, r.Model)
		}
	}
	if s.Calls > 0 {
		n := float64(s.Calls)
		s.AvgInputTokens = float64(s.InputTokens) / n
		s.AvgOutputTokens = float64(s.OutputTokens) / n
		s.AvgTotalTokens = float64(s.TotalTokens) / n
	}
	return s
}
