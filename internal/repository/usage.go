package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/usage"
)

type usageModel struct {
	ID              int
	RunID           string `gorm:"index"`
	ScenarioID      string
	Model           string
	InputTokens     int64
	CachedTokens    int64
	OutputTokens    int64
	ReasoningTokens int64
	TotalTokens     int64
	CreatedAt       time.Time
}

func (usageModel) TableName() string {
	return "token_usage"
}

// UsageRepo stores per-call token usage.
type UsageRepo struct {
	db *gorm.DB
}

// NewUsageRepo returns a UsageRepo.
func NewUsageRepo(db *gorm.DB) *UsageRepo {
	return &UsageRepo{db: db}
}

// SaveRecords inserts the usage records of a run.
func (r *UsageRepo) SaveRecords(ctx context.Context, runID string, records []usage.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]usageModel, 0, len(records))
	for _, rec := range records {
		rows = append(rows, usageModel{
			RunID:           runID,
			ScenarioID:      rec.ScenarioID,
			Model:           rec.Model,
			InputTokens:     rec.InputTokens,
			CachedTokens:    rec.CachedTokens,
			OutputTokens:    rec.OutputTokens,
			ReasoningTokens: rec.ReasoningTokens,
			TotalTokens:     rec.TotalTokens,
			CreatedAt:       rec.Timestamp,
		})
	}
	if err := r.db.WithContext(ctx).CreateInBatches(rows, 100).Error; err != nil {
		return fmt.Errorf("failed to insert token usage: %w", err)
	}
	return nil
}

// RunRecords returns the usage records of one run in insertion order.
func (r *UsageRepo) RunRecords(ctx context.Context, runID string) ([]usage.Record, error) {
	var rows []usageModel
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query token usage: %w", err)
	}
	results := make([]usage.Record, 0, len(rows))
	for _, row := range rows {
		results = append(results, usage.Record{
			Timestamp:       row.CreatedAt,
			Model:           row.Model,
			ScenarioID:      row.ScenarioID,
			InputTokens:     row.InputTokens,
			CachedTokens:    row.CachedTokens,
			OutputTokens:    row.OutputTokens,
			ReasoningTokens: row.ReasoningTokens,
			TotalTokens:     row.TotalTokens,
		})
	}
	return results, nil
}
