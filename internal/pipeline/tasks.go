package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/catalog"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/config"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/generation"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/prompt"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/scenario"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

// ErrNoTasks means the configured catalogs yielded nothing to generate.
var ErrNoTasks = errors.New("no generation tasks")

type taskBuilder struct {
	cfg     config.Config
	prompts *prompt.Builder
	rng     *rand.Rand
}

func (b *taskBuilder) build(mode string) ([]generation.Task, error) {
	var (
		tasks []generation.Task
		err   error
	)
	switch mode {
	case types.ConversationScam:
		switch {
		case b.cfg.SeedsPath != "":
			tasks, err = b.scenarioTasks()
		case b.cfg.FirstTurnsPath != "":
			tasks, err = b.firstTurnTasks()
		default:
			return nil, fmt.Errorf("SEEDS_PATH or FIRST_TURNS_PATH environment variable is required for scam generation")
		}
	case types.ConversationLegit:
		tasks, err = b.legitTasks()
	default:
		return nil, fmt.Errorf("unsupported generation mode: %s", mode)
	}
	if err != nil {
		return nil, err
	}

	if limit := b.cfg.SampleLimit; limit > 0 && len(tasks) > limit {
		slog.Info("applying sample limit", "available", len(tasks), "limit", limit)
		tasks = tasks[:limit]
	}
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	for i := range tasks {
		tasks[i].Record.ConversationID = i + 1
	}
	return tasks, nil
}

func (b *taskBuilder) resolver(templates *catalog.Templates, assignments types.ScenarioAssignment) (*scenario.Resolver, error) {
	profiles, err := catalog.LoadProfiles(b.cfg.ProfilesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load character profiles: %w", err)
	}
	return scenario.NewResolver(profiles, templates, assignments, scenario.Options{
		Turns:   b.turnBounds(),
		Weights: b.cfg.AwarenessWeights,
	}, rand.New(rand.NewSource(b.rng.Int63())))
}

func (b *taskBuilder) turnBounds() catalog.TurnBounds {
	return catalog.TurnBounds{Min: b.cfg.NumTurnsMin, Max: b.cfg.NumTurnsMax}
}

func (b *taskBuilder) scenarioTasks() ([]generation.Task, error) {
	if err := config.RequireFile("SEEDS_PATH", b.cfg.SeedsPath); err != nil {
		return nil, err
	}
	seeds, err := catalog.LoadSeeds(b.cfg.SeedsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load seeds: %w", err)
	}
	eligible := seeds.HighQuality(b.cfg.SeedMinQuality)
	slog.Info("filtered seeds by quality", "loaded", seeds.Len(), "eligible", len(eligible), "min_quality", b.cfg.SeedMinQuality)

	var templates *catalog.Templates
	if b.cfg.TemplatesPath != "" {
		templates, err = catalog.LoadTemplates(b.cfg.TemplatesPath, b.turnBounds())
		if err != nil {
			return nil, fmt.Errorf("failed to load scenario templates: %w", err)
		}
	}
	var assignments types.ScenarioAssignment
	switch {
	case b.cfg.AssignmentsPath != "":
		assignments, err = catalog.LoadAssignments(b.cfg.AssignmentsPath, templates)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenario assignments: %w", err)
		}
	case templates != nil:
		assignments = catalog.BuildAssignments(eligible, templates, b.cfg.ScenariosPerSeed, "", b.rng)
	}

	resolver, err := b.resolver(templates, assignments)
	if err != nil {
		return nil, err
	}
	scenarios := resolver.ResolveAll(eligible, b.cfg.Locale.ID, b.cfg.ScenariosPerSeed)

	system := b.prompts.System(types.ConversationScam)
	tasks := make([]generation.Task, 0, len(scenarios))
	for _, sc := range scenarios {
		user, err := b.prompts.Scenario(sc)
		if err != nil {
			slog.Warn("skipping scenario", "scenario_id", sc.ID, "error", err)
			continue
		}
		tasks = append(tasks, generation.Task{
			Request: generation.Request{ScenarioID: sc.ID, System: system, User: user, NumTurns: sc.NumTurns},
			Record: types.ConversationRecord{
				Type:             types.ConversationScam,
				ScenarioID:       sc.ID,
				SeedTag:          sc.SeedTag,
				TemplateID:       sc.TemplateID,
				Category:         sc.Seed.Category,
				Locale:           sc.Locale,
				Region:           b.cfg.Locale.Region,
				VictimAwareness:  sc.Awareness,
				ScammerProfileID: sc.ScammerProfile.ID,
				VictimProfileID:  sc.VictimProfile.ID,
			},
		})
	}
	return tasks, nil
}

func (b *taskBuilder) firstTurnTasks() ([]generation.Task, error) {
	if err := config.RequireFile("FIRST_TURNS_PATH", b.cfg.FirstTurnsPath); err != nil {
		return nil, err
	}
	lines, err := catalog.LoadFirstTurns(b.cfg.FirstTurnsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load first turns: %w", err)
	}
	resolver, err := b.resolver(nil, nil)
	if err != nil {
		return nil, err
	}

	system := b.prompts.System(types.ConversationScam)
	tasks := make([]generation.Task, 0, len(lines))
	for i, line := range lines {
		awareness, numTurns := resolver.DrawParameters()
		user, err := b.prompts.FirstTurn(line, awareness, numTurns)
		if err != nil {
			slog.Warn("skipping first turn", "index", i, "error", err)
			continue
		}
		id := fmt.Sprintf("first_turn_%03d", i+1)
		tasks = append(tasks, generation.Task{
			Request: generation.Request{ScenarioID: id, System: system, User: user, NumTurns: numTurns},
			Record: types.ConversationRecord{
				Type:            types.ConversationScam,
				ScenarioID:      id,
				Locale:          b.cfg.Locale.ID,
				Region:          b.cfg.Locale.Region,
				FirstTurn:       line,
				VictimAwareness: awareness,
			},
		})
	}
	return tasks, nil
}

func (b *taskBuilder) legitTasks() ([]generation.Task, error) {
	categories := b.cfg.Locale.LegitCategories
	if len(categories) == 0 {
		return nil, fmt.Errorf("locale %s has no legit categories", b.cfg.Locale.ID)
	}
	resolver, err := b.resolver(nil, nil)
	if err != nil {
		return nil, err
	}

	system := b.prompts.System(types.ConversationLegit)
	tasks := make([]generation.Task, 0, max(b.cfg.LegitCount, 0))
	for i := range b.cfg.LegitCount {
		category := categories[b.rng.Intn(len(categories))]
		_, numTurns := resolver.DrawParameters()
		user, err := b.prompts.Legit(category, numTurns)
		if err != nil {
			return nil, fmt.Errorf("failed to render legit prompt: %w", err)
		}
		id := fmt.Sprintf("legit_%s_%03d", category, i+1)
		tasks = append(tasks, generation.Task{
			Request: generation.Request{ScenarioID: id, System: system, User: user, NumTurns: numTurns},
			Record: types.ConversationRecord{
				Type:       types.ConversationLegit,
				ScenarioID: id,
				Category:   category,
				Locale:     b.cfg.Locale.ID,
				Region:     b.cfg.Locale.Region,
			},
		})
	}
	return tasks, nil
}
