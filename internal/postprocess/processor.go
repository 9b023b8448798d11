// Package postprocess normalizes generated dialogue before it is written.
package postprocess

import (
	"log/slog"
	"math/rand"
	"sync"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

// Options toggles and tunes the transforms.
type Options struct {
	InterruptionRate    float64
	EnableInterruptions bool
	EnableRedaction     bool
	EnableSymbolCleanup bool
	OrWord              string
	CurrencyMarkers     []string
}

// DefaultOptions enables everything with the Malaysian vocabulary.
func DefaultOptions() Options {
	return Options{
		InterruptionRate:    0.10,
		EnableInterruptions: true,
		EnableRedaction:     true,
		EnableSymbolCleanup: true,
		OrWord:              "atau",
		CurrencyMarkers:     []string{"RM", "$"},
	}
}

// Processor applies interruption, symbol cleanup and numeric redaction in
// that order. Interruption runs first because it may drop turns.
type Processor struct {
	opts     Options
	redactor *Redactor
	cleaner  *SymbolCleaner

	mu  sync.Mutex
	rng *rand.Rand
}

func New(opts Options, rng *rand.Rand) *Processor {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Processor{
		opts:     opts,
		redactor: NewRedactor(opts.CurrencyMarkers),
		cleaner:  NewSymbolCleaner(opts.OrWord),
		rng:      rng,
	}
}

// Process returns a transformed copy of rec and sets its length estimate.
func (p *Processor) Process(rec types.ConversationRecord) types.ConversationRecord {
	rec.Dialogue = append([]types.DialogueTurn(nil), rec.Dialogue...)

	if p.opts.EnableInterruptions && p.roll() < p.opts.InterruptionRate {
		rec, _ = p.Interrupt(rec)
	}

	for i := range rec.Dialogue {
		text := rec.Dialogue[i].Text
		if p.opts.EnableSymbolCleanup {
			text = p.cleaner.Clean(text)
		}
		if p.opts.EnableRedaction {
			text = p.redactor.Redact(text)
		}
		rec.Dialogue[i].Text = text
	}

	rec.EstimatedMinutes = EstimateMinutes(rec.Dialogue)
	return rec
}

// Interrupt truncates a dialogue of at least MinInterruptTurns turns at a
// point drawn uniformly from [ceil(0.4N), floor(0.8N)] and records why.
// It reports whether the dialogue was cut.
func (p *Processor) Interrupt(rec types.ConversationRecord) (types.ConversationRecord, bool) {
	n := len(rec.Dialogue)
	if n < MinInterruptTurns {
		return rec, false
	}
	lo, hi := truncationBounds(n)

	p.mu.Lock()
	point := lo + p.rng.Intn(hi-lo+1)
	reason := reasonsFor(rec.Type)[p.rng.Intn(len(reasonsFor(rec.Type)))]
	p.mu.Unlock()

	rec.Dialogue = rec.Dialogue[:point]
	rec.Interrupted = true
	rec.InterruptionReason = reason.Code
	rec.InterruptionNote = reason.Note
	rec.OriginalNumTurns = n
	rec.NumTurns = len(rec.Dialogue)

	slog.Debug("applied interruption", "conversation_id", rec.ConversationID, "turn", point, "reason", reason.Code)
	return rec, true
}

func (p *Processor) roll() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()
}

// truncationBounds computes ceil(0.4n) and floor(0.8n) in integers.
func truncationBounds(n int) (int, int) {
	return (4*n + 9) / 10, (8 * n) / 10
}
