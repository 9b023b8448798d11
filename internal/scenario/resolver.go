// Package scenario turns seeds and character profiles into generation scenarios.
package scenario

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/catalog"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

// ErrNoEligibleProfile means no profile matches a role for the locale.
var ErrNoEligibleProfile = errors.New("no eligible character profile")

// Options configures random fallback resolution.
type Options struct {
	Turns   catalog.TurnBounds
	Weights map[types.Awareness]float64
}

// Resolver combines seeds with profiles into GenerationScenarios.
type Resolver struct {
	profiles    *catalog.Profiles
	templates   *catalog.Templates
	assignments types.ScenarioAssignment
	turns       catalog.TurnBounds
	awareness   *WeightedAwareness

	mu  sync.Mutex
	rng *rand.Rand
}

// NewResolver builds a Resolver. templates and assignments may be nil.
func NewResolver(profiles *catalog.Profiles, templates *catalog.Templates, assignments types.ScenarioAssignment, opts Options, rng *rand.Rand) (*Resolver, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profiles catalog is required")
	}
	if opts.Turns.Min <= 0 || opts.Turns.Max < opts.Turns.Min {
		return nil, fmt.Errorf("invalid turn bounds [%d,%d]", opts.Turns.Min, opts.Turns.Max)
	}
	awareness, err := NewWeightedAwareness(opts.Weights)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Resolver{
		profiles:    profiles,
		templates:   templates,
		assignments: assignments,
		turns:       opts.Turns,
		awareness:   awareness,
		rng:         rng,
	}, nil
}

// Resolve returns up to n scenarios for seed in locale. Assigned templates
// are consumed in order first; the remainder is drawn at random. Scenarios
// that cannot be resolved are skipped with a warning, so the result may be
// shorter than n.
func (r *Resolver) Resolve(seed types.Seed, locale string, n int) []types.GenerationScenario {
	if n <= 0 {
		return nil
	}
	scenarios := make([]types.GenerationScenario, 0, n)

	assigned := r.assignments[seed.Key()]
	if len(assigned) == 0 && seed.Tag != seed.Key() {
		assigned = r.assignments[seed.Tag]
	}
	consumed := 0
	for _, templateID := range assigned {
		if consumed >= n {
			break
		}
		consumed++
		sc, err := r.fromTemplate(seed, locale, templateID)
		if err != nil {
			slog.Warn("skipping scenario template", "seed_id", seed.Key(), "template_id", templateID, "error", err)
			continue
		}
		scenarios = append(scenarios, sc)
	}

	for i := consumed; i < n; i++ {
		id := fmt.Sprintf("%s_%s_%03d", seed.Tag, locale, i+1)
		sc, err := r.random(seed, locale, id)
		if err != nil {
			slog.Warn("skipping scenario", "seed_id", seed.Key(), "scenario_id", id, "error", err)
			continue
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios
}

// ResolveAll resolves perSeed scenarios for every seed, in seed order.
func (r *Resolver) ResolveAll(seeds []types.Seed, locale string, perSeed int) []types.GenerationScenario {
	var out []types.GenerationScenario
	for _, seed := range seeds {
		out = append(out, r.Resolve(seed, locale, perSeed)...)
	}
	slog.Info("resolved scenarios", "seeds", len(seeds), "requested", len(seeds)*perSeed, "resolved", len(out))
	return out
}

func (r *Resolver) fromTemplate(seed types.Seed, locale, templateID string) (types.GenerationScenario, error) {
	if r.templates == nil {
		return types.GenerationScenario{}, fmt.Errorf("no template catalog loaded")
	}
	tmpl, ok := r.templates.Get(templateID)
	if !ok {
		return types.GenerationScenario{}, fmt.Errorf("template %s not found", templateID)
	}
	scammer, ok := r.profiles.Get(tmpl.ScammerProfileID)
	if !ok {
		return types.GenerationScenario{}, fmt.Errorf("scammer profile %s not found", tmpl.ScammerProfileID)
	}
	victim, ok := r.profiles.Get(tmpl.VictimProfileID)
	if !ok {
		return types.GenerationScenario{}, fmt.Errorf("victim profile %s not found", tmpl.VictimProfileID)
	}
	return types.GenerationScenario{
		ID:             fmt.Sprintf("%s_%s", seed.Tag, tmpl.ID),
		SeedTag:        seed.Tag,
		Seed:           seed,
		ScammerProfile: scammer,
		VictimProfile:  victim,
		Locale:         locale,
		Awareness:      tmpl.Awareness,
		NumTurns:       tmpl.NumTurns,
		TemplateID:     tmpl.ID,
	}, nil
}

func (r *Resolver) random(seed types.Seed, locale, id string) (types.GenerationScenario, error) {
	scammers := r.profiles.ForRole(types.RoleScammer, locale)
	if len(scammers) == 0 {
		return types.GenerationScenario{}, fmt.Errorf("%w: role=%s locale=%s", ErrNoEligibleProfile, types.RoleScammer, locale)
	}
	victims := r.profiles.ForRole(types.RoleVictim, locale)
	if len(victims) == 0 {
		return types.GenerationScenario{}, fmt.Errorf("%w: role=%s locale=%s", ErrNoEligibleProfile, types.RoleVictim, locale)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return types.GenerationScenario{
		ID:             id,
		SeedTag:        seed.Tag,
		Seed:           seed,
		ScammerProfile: scammers[r.rng.Intn(len(scammers))],
		VictimProfile:  victims[r.rng.Intn(len(victims))],
		Locale:         locale,
		Awareness:      r.awareness.Draw(r.rng),
		NumTurns:       r.turns.Min + r.rng.Intn(r.turns.Max-r.turns.Min+1),
	}, nil
}

// DrawParameters draws an awareness level and a turn count the same way
// random fallback does. First-turn and legit modes use it directly.
func (r *Resolver) DrawParameters() (types.Awareness, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.awareness.Draw(r.rng), r.turns.Min + r.rng.Intn(r.turns.Max-r.turns.Min+1)
}
