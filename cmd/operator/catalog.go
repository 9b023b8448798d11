package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/catalog"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/config"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/pipeline"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/placeholder"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/repository"
)

// reconcileCmd writes the reconciled placeholder map and prints the validation report.
func reconcileCmd(args []string) {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	dynamic := fs.String("dynamic", os.Getenv("DYNAMIC_PLACEHOLDERS_PATH"), "Dynamic placeholder map")
	prepopulated := fs.String("prepopulated", os.Getenv("PREPOPULATED_PLACEHOLDERS_PATH"), "Prepopulated placeholder map")
	output := fs.String("output", envOr("OUTPUT_DIR", "output"), "Output directory used when no dynamic map is given")
	strict := fs.Bool("strict", false, "Exit non-zero when the reconciled map is invalid")
	_ = fs.Parse(args)

	if *prepopulated == "" {
		log.Fatal("PREPOPULATED_PLACEHOLDERS_PATH or --prepopulated is required")
	}
	if *dynamic == "" {
		log.Fatal("DYNAMIC_PLACEHOLDERS_PATH or --dynamic is required")
	}
	if err := config.RequireFile("dynamic placeholder map", *dynamic); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Reconciling placeholder maps...")
	setup, err := pipeline.PreparePlaceholders(*dynamic, *prepopulated, *output, *strict)
	if setup.Reconcile != nil {
		fmt.Printf("  Matched tags: %d\n", setup.Reconcile.Matched)
		fmt.Printf("  Missing tags: %d\n", len(setup.Reconcile.MissingTags))
		for _, tag := range setup.Reconcile.MissingTags {
			fmt.Printf("    - %s\n", tag)
		}
		fmt.Printf("  Unused prepopulated tags: %d\n", len(setup.Reconcile.UnusedTags))
	}
	if setup.ReconciledPath != "" {
		fmt.Printf("  ✓ Reconciled map written to %s\n", setup.ReconciledPath)
	}
	if setup.Validation != nil {
		if setup.Validation.Valid {
			fmt.Printf("  ✓ All %d entries have substitutions\n", setup.Validation.Total)
		} else {
			fmt.Printf("  ✗ %d of %d entries have no substitutions\n", len(setup.Validation.Issues), setup.Validation.Total)
			for _, issue := range setup.Validation.Issues {
				fmt.Printf("    - %s\n", issue)
			}
		}
	}
	if err != nil {
		if errors.Is(err, placeholder.ErrInvalidMap) {
			fmt.Println("\nReconciliation failed in strict mode!")
			os.Exit(1)
		}
		log.Fatalf("failed to reconcile placeholders: %v", err)
	}
	fmt.Println("\nReconciliation completed!")
}

// statsCmd prints catalog statistics and, with --db, stored dataset statistics.
func statsCmd(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	withDB := fs.Bool("db", false, "Include statistics of stored conversations")
	minQuality := fs.Int("min-quality", 70, "Quality threshold to report eligible seeds for")
	_ = fs.Parse(args)

	if path := os.Getenv("SEEDS_PATH"); path != "" {
		seeds, err := catalog.LoadSeeds(path)
		if err != nil {
			log.Fatalf("failed to load seeds: %v", err)
		}
		s := seeds.Stats()
		fmt.Printf("Seeds (%s)\n", path)
		fmt.Printf("  Total: %d, eligible at %d: %d\n", s.Total, *minQuality, len(seeds.HighQuality(*minQuality)))
		fmt.Printf("  Quality: min %d, max %d, avg %.1f\n", s.MinQuality, s.MaxQuality, s.AvgQuality)
		fmt.Println("  Categories:")
		for _, row := range seedCategoryRows(seeds, *minQuality) {
			fmt.Printf("    %-32s %d (eligible %d, avg quality %.1f)\n", row.Category, row.Total, row.Eligible, row.AvgQuality)
		}
	} else {
		fmt.Println("Seeds: SEEDS_PATH not set")
	}

	profiles, err := catalog.LoadProfiles(os.Getenv("PROFILES_PATH"))
	if err != nil {
		log.Fatalf("failed to load character profiles: %v", err)
	}
	p := profiles.Stats()
	fmt.Printf("\nCharacter profiles: %d\n", p.Total)
	printDistribution("Roles", p.RoleDistribution)
	printDistribution("Genders", p.GenderDistribution)
	printDistribution("Ages", p.AgeDistribution)

	if path := os.Getenv("TEMPLATES_PATH"); path != "" {
		cfg, err := config.Parse()
		if err != nil {
			log.Fatalf("failed to parse configuration: %v", err)
		}
		templates, err := catalog.LoadTemplates(path, catalog.TurnBounds{Min: cfg.NumTurnsMin, Max: cfg.NumTurnsMax})
		if err != nil {
			log.Fatalf("failed to load scenario templates: %v", err)
		}
		counts := make(map[string]int)
		for category, list := range templates.ByCategory() {
			counts[category] = len(list)
		}
		fmt.Printf("\nScenario templates: %d\n", templates.Len())
		printDistribution("Categories", counts)
	}

	if !*withDB {
		return
	}
	cfg := loadConfigForOperator()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	store, err := repository.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	stats, err := store.Conversations.Stats(ctx)
	if err != nil {
		log.Fatalf("failed to load conversation stats: %v", err)
	}
	fmt.Println("\nStored conversations:")
	if len(stats) == 0 {
		fmt.Println("  none")
	}
	for _, s := range stats {
		fmt.Printf("  %-6s %-6s %6d conversations, avg %.1f turns, avg %.2f min, %d interrupted\n",
			s.Type, s.Locale, s.Count, s.AvgTurns, s.AvgMinutes, s.Interrupted)
	}

	runs, err := store.Runs.Recent(ctx, 5)
	if err != nil {
		log.Fatalf("failed to load runs: %v", err)
	}
	fmt.Println("\nRecent runs:")
	for _, run := range runs {
		fmt.Printf("  %s %s %-5s %s: %d/%d produced\n",
			run.StartedAt.Format(time.RFC3339), run.RunID, run.Mode, run.Model, run.Produced, run.Requested)
	}
}

type seedCategoryRow struct {
	Category   string
	Total      int
	Eligible   int
	AvgQuality float64
}

func seedCategoryRows(seeds *catalog.Seeds, minQuality int) []seedCategoryRow {
	categories := seeds.Categories()
	rows := make([]seedCategoryRow, 0, len(categories))
	for _, category := range categories {
		list := seeds.ByCategory(category)
		row := seedCategoryRow{
			Category: category,
			Total:    len(list),
			Eligible: len(catalog.FilterByQuality(list, minQuality)),
		}
		sum := 0
		for _, seed := range list {
			sum += seed.QualityScore
		}
		if len(list) > 0 {
			row.AvgQuality = float64(sum) / float64(len(list))
		}
		rows = append(rows, row)
	}
	return rows
}

func printDistribution(title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("  %s:\n", title)
	for _, k := range keys {
		fmt.Printf("    %-32s %d\n", k, counts[k])
	}
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
