// Package main generates one batch of synthetic scam or legitimate call
// transcripts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/config"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/generation"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/models"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/pipeline"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/repository"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/similarity"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/usage"
)

func main() {
	limit := flag.Int("limit", -1, "Override SAMPLE_LIMIT (0 = all)")
	output := flag.String("output", "", "Override OUTPUT_DIR")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: generate [flags] <scam|legit>\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	mode := types.ConversationScam
	if flag.NArg() > 0 {
		mode = flag.Arg(0)
	}
	if mode != types.ConversationScam && mode != types.ConversationLegit {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	if *limit >= 0 {
		cfg.SampleLimit = *limit
	}
	if *output != "" {
		cfg.OutputDir = *output
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Warn("interrupt received, cancelling in-flight requests")
		cancel()
	}()

	llm, err := models.New(ctx, models.Options{
		Provider:   cfg.LLMProvider,
		Model:      cfg.LLMModel,
		APIKey:     cfg.APIKey,
		HostIP:     cfg.HostIP,
		Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: time.Duration(cfg.RetryDelayMS) * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("failed to create model: %v", err)
	}
	generator := generation.NewLLMGenerator(llm, generation.Sampling{
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		MaxTokens:   cfg.MaxTokens,
	})

	var opts []pipeline.Option
	if cfg.PricingPath != "" {
		prices, err := usage.LoadPrices(cfg.PricingPath)
		if err != nil {
			log.Fatalf("failed to load price table: %v", err)
		}
		opts = append(opts, pipeline.WithPrices(prices))
	}

	var index similarity.Index
	if cfg.DatabaseURL != "" {
		store, err := repository.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer store.Close()
		index = store.Conversations
		opts = append(opts, pipeline.WithPersistence(pipeline.Persistence{
			Runs:          store.Runs,
			Conversations: store.Conversations,
			Usage:         store.Usage,
		}))
	}
	if cfg.GoogleAPIKey != "" && cfg.DatabaseURL != "" {
		embedder, err := similarity.NewEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
		if err != nil {
			log.Fatalf("failed to create embedder: %v", err)
		}
		opts = append(opts, pipeline.WithAuditor(similarity.NewAuditor(embedder, index, cfg.SimilarityThreshold)))
	}

	runner, err := pipeline.New(cfg, generator, opts...)
	if err != nil {
		log.Fatalf("failed to create pipeline: %v", err)
	}
	summary, err := runner.Run(ctx, mode)
	if err != nil {
		log.Fatalf("generation failed: %v", err)
	}

	fmt.Printf("Run %s: produced %d of %d requested %s conversations (%d failed)\n",
		summary.RunID, summary.Produced, summary.Requested, mode, summary.Failed)
	fmt.Printf("Output: %s\n", summary.OutputPath)
	fmt.Printf("Tokens: %d total, estimated cost $%.4f\n", summary.Usage.TotalTokens, summary.Cost.TotalCost)
}
