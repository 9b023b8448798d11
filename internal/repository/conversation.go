package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

type conversationModel struct {
	ID                 int
	RunID              string `gorm:"index:idx_conversation_run,unique,priority:1"`
	ConversationID     int    `gorm:"index:idx_conversation_run,unique,priority:2"`
	Type               string `gorm:"index"`
	ScenarioID         string
	SeedTag            string
	TemplateID         string
	Category           string
	Locale             string
	NumTurns           int
	Interrupted        bool
	InterruptionReason string
	EstimatedMinutes   float64
	Record             json.RawMessage  `gorm:"type:jsonb"`
	Embedding          *pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt          time.Time
}

func (conversationModel) TableName() string {
	return "conversations"
}

// TypeStats aggregates stored conversations per type and locale.
type TypeStats struct {
	Type        string  `json:"conversation_type"`
	Locale      string  `json:"locale"`
	Count       int64   `json:"count"`
	AvgTurns    float64 `json:"avg_turns"`
	AvgMinutes  float64 `json:"avg_minutes"`
	Interrupted int64   `json:"interrupted"`
}

// ConversationRepo accesses stored conversations.
type ConversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo returns a ConversationRepo.
func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// SaveBatch stores the records of a run. Embeddings are keyed by
// conversation ID and may be nil.
func (r *ConversationRepo) SaveBatch(ctx context.Context, runID string, records []types.ConversationRecord, embeddings map[int][]float32) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]conversationModel, 0, len(records))
	for _, rec := range records {
		row, err := conversationToModel(runID, rec, embeddings[rec.ConversationID])
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if err := r.db.WithContext(ctx).CreateInBatches(rows, 100).Error; err != nil {
		return fmt.Errorf("failed to insert conversations: %w", err)
	}
	return nil
}

// ListByRun returns the records of one run ordered by conversation ID.
func (r *ConversationRepo) ListByRun(ctx context.Context, runID string) ([]types.ConversationRecord, error) {
	var rows []conversationModel
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("conversation_id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	results := make([]types.ConversationRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := conversationFromModel(row)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, nil
}

// SearchSimilar returns stored conversations from other runs whose cosine
// similarity to embedding exceeds threshold.
func (r *ConversationRepo) SearchSimilar(ctx context.Context, excludeRunID string, embedding []float32, topK int, threshold float64) ([]types.SimilarConversation, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	query := `
		SELECT run_id, conversation_id, scenario_id, 1 - (embedding <=> $1) AS similarity
		FROM conversations
		WHERE run_id <> $2
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $3
		ORDER BY similarity DESC
		LIMIT $4`

	vector := pgvector.NewVector(embedding)
	var results []types.SimilarConversation
	if err := r.db.WithContext(ctx).
		Raw(query, vector, excludeRunID, threshold, topK).
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to search similar conversations: %w", err)
	}
	return results, nil
}

// Stats groups stored conversations by type and locale.
func (r *ConversationRepo) Stats(ctx context.Context) ([]TypeStats, error) {
	var results []TypeStats
	if err := r.db.WithContext(ctx).
		Model(&conversationModel{}).
		Select("type, locale, COUNT(*) AS count, AVG(num_turns) AS avg_turns, AVG(estimated_minutes) AS avg_minutes, " +
			"SUM(CASE WHEN interrupted THEN 1 ELSE 0 END) AS interrupted").
		Group("type, locale").
		Order("type, locale").
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate conversations: %w", err)
	}
	return results, nil
}

func conversationToModel(runID string, rec types.ConversationRecord, embedding []float32) (conversationModel, error) {
	raw, err := marshalJSON(rec)
	if err != nil {
		return conversationModel{}, fmt.Errorf("failed to marshal conversation %d: %w", rec.ConversationID, err)
	}
	var vector *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vector = &v
	}
	return conversationModel{
		RunID:              runID,
		ConversationID:     rec.ConversationID,
		Type:               rec.Type,
		ScenarioID:         rec.ScenarioID,
		SeedTag:            rec.SeedTag,
		TemplateID:         rec.TemplateID,
		Category:           rec.Category,
		Locale:             rec.Locale,
		NumTurns:           rec.NumTurns,
		Interrupted:        rec.Interrupted,
		InterruptionReason: rec.InterruptionReason,
		EstimatedMinutes:   rec.EstimatedMinutes,
		Record:             raw,
		Embedding:          vector,
	}, nil
}

func conversationFromModel(model conversationModel) (types.ConversationRecord, error) {
	var rec types.ConversationRecord
	if len(model.Record) > 0 {
		if err := json.Unmarshal(model.Record, &rec); err != nil {
			return rec, fmt.Errorf("failed to decode conversation %d: %w", model.ConversationID, err)
		}
	}
	rec.ConversationID = model.ConversationID
	return rec, nil
}
