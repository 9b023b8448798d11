// Package pipeline runs one generation batch end to end: catalogs, placeholder
// reconciliation, scenario resolution, generation, placeholder fill,
// post-processing, output files and optional persistence.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/config"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/generation"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/placeholder"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/postprocess"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/prompt"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/similarity"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/usage"
)

const diversityTopN = 20

type RunRepo interface {
	Save(ctx context.Context, run types.RunSummary) error
}

type ConversationRepo interface {
	SaveBatch(ctx context.Context, runID string, records []types.ConversationRecord, embeddings map[int][]float32) error
}

type UsageRepo interface {
	SaveRecords(ctx context.Context, runID string, records []usage.Record) error
}

// Persistence groups the repositories a run writes to.
type Persistence struct {
	Runs          RunRepo
	Conversations ConversationRepo
	Usage         UsageRepo
}

// Auditor flags near-duplicate conversations.
type Auditor interface {
	Audit(ctx context.Context, runID string, records []types.ConversationRecord) (similarity.Result, error)
}

type Option func(*Runner)

// WithPersistence stores the run, its records and usage after writing files.
func WithPersistence(p Persistence) Option {
	return func(r *Runner) { r.store = &p }
}

// WithAuditor enables the near-duplicate audit.
func WithAuditor(a Auditor) Option {
	return func(r *Runner) { r.auditor = a }
}

// WithPrices overrides the default price table.
func WithPrices(prices usage.PriceTable) Option {
	return func(r *Runner) { r.prices = prices }
}

// Runner executes generation runs for one configuration.
type Runner struct {
	cfg       config.Config
	generator generation.Generator
	prompts   *prompt.Builder
	prices    usage.PriceTable
	store     *Persistence
	auditor   Auditor
	seed      int64
}

func New(cfg config.Config, generator generation.Generator, opts ...Option) (*Runner, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	prompts, err := prompt.NewBuilder(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompts: %w", err)
	}
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := &Runner{
		cfg:       cfg,
		generator: generator,
		prompts:   prompts,
		prices:    usage.DefaultPrices(),
		seed:      seed,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// OutputDir is where a run writes its files.
func (r *Runner) OutputDir() string {
	return filepath.Join(r.cfg.OutputDir, r.cfg.Locale.ID)
}

// Run generates one batch of the given conversation type. Configuration and
// catalog errors abort before any generation call. Per-record failures only
// shrink the dataset; the summary states produced versus requested.
func (r *Runner) Run(ctx context.Context, mode string) (Summary, error) {
	started := time.Now()
	runID := uuid.NewString()
	outDir := r.OutputDir()
	logger := slog.With("run_id", runID, "mode", mode, "locale", r.cfg.Locale.ID)

	setup, err := PreparePlaceholders(r.cfg.DynamicPlaceholdersPath, r.cfg.PrepopulatedPlaceholdersPath, r.cfg.OutputDir, r.cfg.PlaceholderStrict)
	if err != nil {
		return Summary{}, err
	}

	builder := &taskBuilder{cfg: r.cfg, prompts: r.prompts, rng: rand.New(rand.NewSource(r.seed))}
	tasks, err := builder.build(mode)
	if err != nil {
		return Summary{}, err
	}
	logger.Info("starting generation batch", "tasks", len(tasks), "concurrency", r.cfg.MaxConcurrent, "model", r.cfg.LLMModel)

	ledger := usage.NewLedger()
	orchestrator := generation.NewOrchestrator(r.generator, ledger, r.cfg.MaxConcurrent)
	records, batch := orchestrator.Run(ctx, tasks)

	engine := placeholder.NewEngine(setup.Chain, placeholder.NewSampler(r.cfg.DiversityWindow), r.cfg.Locale.NameTags, rand.New(rand.NewSource(r.seed+1)))
	processor := postprocess.New(postprocess.Options{
		InterruptionRate:    r.cfg.InterruptionRate,
		EnableInterruptions: r.cfg.EnableInterruptions,
		EnableRedaction:     r.cfg.EnableRedaction,
		EnableSymbolCleanup: r.cfg.EnableSymbolCleanup,
		OrWord:              r.cfg.Locale.OrWord,
		CurrencyMarkers:     r.cfg.Locale.CurrencyMarkers,
	}, rand.New(rand.NewSource(r.seed+2)))
	for i := range records {
		records[i] = processor.Process(fillPlaceholders(engine, records[i]))
	}

	summary := Summary{
		RunSummary: types.RunSummary{
			RunID:           runID,
			Mode:            mode,
			Locale:          r.cfg.Locale.ID,
			Model:           r.cfg.LLMModel,
			Requested:       batch.Requested,
			Produced:        batch.Produced,
			Failed:          batch.Failed,
			FailedScenarios: batch.FailedScenarios,
			StartedAt:       started,
		},
		PlaceholderValidation: setup.Validation,
		ReconciledMapPath:     setup.ReconciledPath,
	}

	path, err := writeJSON(outDir, DatasetFileName(mode), Dataset{
		RunID:              runID,
		GeneratedAt:        time.Now(),
		Type:               mode,
		Locale:             r.cfg.Locale.ID,
		TotalConversations: len(records),
		Conversations:      records,
	})
	if err != nil {
		return summary, err
	}
	summary.OutputPath = path
	logger.Info("wrote conversations", "path", path, "count", len(records))

	report := usage.BuildReport(runID, ledger, r.prices)
	summary.Usage = report.Summary
	summary.Cost = report.Cost
	if _, err := usage.WriteReport(outDir, report); err != nil {
		logger.Warn("failed to write usage report", "error", err)
	}
	if len(report.Cost.UnknownModels) > 0 {
		logger.Warn("no price for models, cost estimate is partial", "models", report.Cost.UnknownModels)
	}

	diversity := placeholder.Diversity(engine.Sampler().Frequencies(), diversityTopN)
	if _, err := writeJSON(outDir, DiversityFileName, DiversityOutput{RunID: runID, Diversity: diversity}); err != nil {
		logger.Warn("failed to write diversity report", "error", err)
	}

	var embeddings map[int][]float32
	if r.auditor != nil && len(records) > 0 {
		result, err := r.auditor.Audit(ctx, runID, records)
		if err != nil {
			logger.Warn("similarity audit failed", "error", err)
		} else {
			embeddings = result.Embeddings
			summary.SimilarityFindings = len(result.Findings)
			if _, err := writeJSON(outDir, SimilarityFileName, SimilarityOutput{RunID: runID, Result: result}); err != nil {
				logger.Warn("failed to write similarity report", "error", err)
			}
			if len(result.Findings) > 0 {
				logger.Warn("near-duplicate conversations found", "count", len(result.Findings), "threshold", result.Threshold)
			}
		}
	}

	summary.FinishedAt = time.Now()
	summary.DurationSeconds = summary.FinishedAt.Sub(started).Seconds()
	if r.store != nil {
		summary.Persisted = r.persist(ctx, summary.RunSummary, records, embeddings, ledger.Records())
	}

	if _, err := writeJSON(outDir, SummaryFileName, summary); err != nil {
		return summary, err
	}
	logger.Info("run finished",
		"requested", summary.Requested,
		"produced", summary.Produced,
		"failed", summary.Failed,
		"total_tokens", summary.Usage.TotalTokens,
		"estimated_cost_usd", summary.Cost.TotalCost,
		"duration_seconds", summary.DurationSeconds,
	)
	return summary, nil
}

// fillPlaceholders substitutes codes in the opening line and the dialogue
// with values that stay fixed for the whole conversation.
func fillPlaceholders(engine *placeholder.Engine, rec types.ConversationRecord) types.ConversationRecord {
	id := strconv.Itoa(rec.ConversationID)
	defer engine.Reset(id)

	rec.Dialogue = append([]types.DialogueTurn(nil), rec.Dialogue...)
	if rec.FirstTurn != "" {
		rec.FirstTurn = engine.Resolve(rec.FirstTurn, id)
	}
	engine.ResolveTurns(rec.Dialogue, id)
	if values := engine.ConversationValues(id); len(values) > 0 {
		rec.Placeholders = values
	}
	return rec
}

func (r *Runner) persist(ctx context.Context, run types.RunSummary, records []types.ConversationRecord, embeddings map[int][]float32, calls []usage.Record) bool {
	ok := true
	if r.store.Runs != nil {
		if err := r.store.Runs.Save(ctx, run); err != nil {
			slog.Error("failed to persist run", "run_id", run.RunID, "error", err)
			ok = false
		}
	}
	if r.store.Conversations != nil {
		if err := r.store.Conversations.SaveBatch(ctx, run.RunID, records, embeddings); err != nil {
			slog.Error("failed to persist conversations", "run_id", run.RunID, "error", err)
			ok = false
		}
	}
	if r.store.Usage != nil {
		if err := r.store.Usage.SaveRecords(ctx, run.RunID, calls); err != nil {
			slog.Error("failed to persist token usage", "run_id", run.RunID, "error", err)
			ok = false
		}
	}
	return ok
}
