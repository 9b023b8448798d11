package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

type runModel struct {
	RunID           string `gorm:"primaryKey"`
	Mode            string
	Locale          string
	Model           string
	Requested       int
	Produced        int
	Failed          int
	FailedScenarios json.RawMessage `gorm:"type:jsonb"`
	OutputPath      string
	StartedAt       time.Time
	FinishedAt      time.Time
}

func (runModel) TableName() string {
	return "generation_runs"
}

// RunRepo accesses generation run rows.
type RunRepo struct {
	db *gorm.DB
}

// NewRunRepo returns a RunRepo.
func NewRunRepo(db *gorm.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Save inserts the run or updates it when the run ID already exists.
func (r *RunRepo) Save(ctx context.Context, run types.RunSummary) error {
	failed, err := marshalJSON(run.FailedScenarios)
	if err != nil {
		return fmt.Errorf("failed to marshal failed scenarios: %w", err)
	}
	record := runModel{
		RunID:           run.RunID,
		Mode:            run.Mode,
		Locale:          run.Locale,
		Model:           run.Model,
		Requested:       run.Requested,
		Produced:        run.Produced,
		Failed:          run.Failed,
		FailedScenarios: failed,
		OutputPath:      run.OutputPath,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error; err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (r *RunRepo) Recent(ctx context.Context, limit int) ([]types.RunSummary, error) {
	var records []runModel
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	results := make([]types.RunSummary, 0, len(records))
	for _, record := range records {
		results = append(results, runFromModel(record))
	}
	return results, nil
}

func runFromModel(model runModel) types.RunSummary {
	run := types.RunSummary{
		RunID:      model.RunID,
		Mode:       model.Mode,
		Locale:     model.Locale,
		Model:      model.Model,
		Requested:  model.Requested,
		Produced:   model.Produced,
		Failed:     model.Failed,
		OutputPath: model.OutputPath,
		StartedAt:  model.StartedAt,
		FinishedAt: model.FinishedAt,
	}
	if len(model.FailedScenarios) > 0 {
		_ = json.Unmarshal(model.FailedScenarios, &run.FailedScenarios)
	}
	return run
}
