package generation

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/usage"
)

// DefaultConcurrency is used when no positive limit is configured.
const DefaultConcurrency = 10

// Task pairs a generation request with the record metadata it fills.
type Task struct {
	Request Request
	Record  types.ConversationRecord
}

// BatchReport states what a batch produced versus what was requested.
type BatchReport struct {
	Requested       int      `json:"requested"`
	Produced        int      `json:"produced"`
	Failed          int      `json:"failed"`
	FailedScenarios []string `json:"failed_scenarios,omitempty"`
	DurationSeconds float64  `json:"duration_seconds"`
}

// Progress counts finished tasks. It is safe to read while a batch runs.
type Progress struct {
	total     atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// Snapshot returns completed, failed and total task counts.
func (p *Progress) Snapshot() (completed, failed, total int64) {
	return p.completed.Load(), p.failed.Load(), p.total.Load()
}

// Orchestrator runs tasks under a concurrency cap. A failed task is logged
// and dropped; it never cancels its siblings. The orchestrator does not
// retry; retries belong to the model adapter.
type Orchestrator struct {
	generator Generator
	ledger    *usage.Ledger
	limit     int
	progress  *Progress
	logEvery  int64
}

func NewOrchestrator(generator Generator, ledger *usage.Ledger, limit int) *Orchestrator {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	if ledger == nil {
		ledger = usage.NewLedger()
	}
	return &Orchestrator{
		generator: generator,
		ledger:    ledger,
		limit:     limit,
		progress:  &Progress{},
	}
}

// Progress returns the live progress counters.
func (o *Orchestrator) Progress() *Progress {
	return o.progress
}

// Ledger returns the usage ledger successful calls are recorded in.
func (o *Orchestrator) Ledger() *usage.Ledger {
	return o.ledger
}

// Run generates one record per task. Records keep the relative order of
// their tasks regardless of completion order.
func (o *Orchestrator) Run(ctx context.Context, tasks []Task) ([]types.ConversationRecord, BatchReport) {
	start := time.Now()
	o.progress.total.Add(int64(len(tasks)))
	o.logEvery = max(int64(len(tasks))/10, 1)

	results := make([]*types.ConversationRecord, len(tasks))
	failed := make([]bool, len(tasks))

	var g errgroup.Group
	g.SetLimit(o.limit)
	for i, task := range tasks {
		g.Go(func() error {
			rec, err := o.runTask(ctx, task)
			if err != nil {
				slog.Error("generation task failed", "scenario_id", task.Request.ScenarioID, "conversation_id", task.Record.ConversationID, "error", err)
				failed[i] = true
				o.progress.failed.Inc()
			} else {
				results[i] = &rec
			}
			o.reportProgress()
			return nil
		})
	}
	_ = g.Wait()

	report := BatchReport{Requested: len(tasks)}
	records := make([]types.ConversationRecord, 0, len(tasks))
	for i, rec := range results {
		if rec != nil {
			records = append(records, *rec)
			continue
		}
		if failed[i] {
			report.FailedScenarios = append(report.FailedScenarios, tasks[i].Request.ScenarioID)
		}
	}
	report.Produced = len(records)
	report.Failed = len(tasks) - len(records)
	report.DurationSeconds = time.Since(start).Seconds()

	slog.Info("generation batch finished", "requested", report.Requested, "produced", report.Produced, "failed", report.Failed)
	return records, report
}

func (o *Orchestrator) runTask(ctx context.Context, task Task) (types.ConversationRecord, error) {
	res, err := o.generator.Generate(ctx, task.Request)
	if err != nil {
		return types.ConversationRecord{}, err
	}
	o.ledger.Add(res.Usage)

	rec := task.Record
	rec.Dialogue = res.Turns
	if rec.NumTurns == 0 {
		rec.NumTurns = len(res.Turns)
	}
	return rec, nil
}

func (o *Orchestrator) reportProgress() {
	done := o.progress.completed.Inc()
	total := o.progress.total.Load()
	if done%o.logEvery == 0 || done == total {
		slog.Info("generation progress", "completed", done, "total", total, "failed", o.progress.failed.Load())
	}
}
