package models

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// Supported providers.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderGrok       = "grok"
	ProviderVLLM       = "vllm"
	ProviderLMStudio   = "lm-studio"
)

var providerBaseURLs = map[string]string{
	ProviderAnthropic:  "https://api.anthropic.com/v1/",
	ProviderOpenRouter: "https://openrouter.ai/api/v1",
	ProviderGrok:       "https://api.x.ai/v1",
}

// Local OpenAI-compatible servers accept any key but require one.
var localProviders = map[string]struct {
	port int
	key  string
}{
	ProviderVLLM:     {port: 8000, key: "EMPTY"},
	ProviderLMStudio: {port: 1234, key: "lm-studio"},
}

// Options selects and configures a provider.
type Options struct {
	Provider   string
	Model      string
	APIKey     string
	HostIP     string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// New builds the model for opts.Provider, wrapped in a retry loop when
// MaxRetries > 0.
func New(ctx context.Context, opts Options) (model.LLM, error) {
	cfg := &genai.ClientConfig{APIKey: opts.APIKey}
	if opts.Timeout > 0 {
		timeout := opts.Timeout
		cfg.HTTPOptions.Timeout = &timeout
	}

	var (
		llm model.LLM
		err error
	)
	switch opts.Provider {
	case ProviderGemini:
		llm, err = NewGeminiModel(ctx, opts.Model, cfg)
	case ProviderOpenAI, "":
		llm, err = NewOpenAIModel(ctx, ProviderOpenAI, opts.Model, cfg)
	case ProviderAnthropic, ProviderOpenRouter, ProviderGrok:
		cfg.HTTPOptions.BaseURL = providerBaseURLs[opts.Provider]
		llm, err = NewOpenAIModel(ctx, opts.Provider, opts.Model, cfg)
	case ProviderVLLM, ProviderLMStudio:
		local := localProviders[opts.Provider]
		if opts.HostIP == "" {
			return nil, fmt.Errorf("host IP is required for %s", opts.Provider)
		}
		cfg.HTTPOptions.BaseURL = fmt.Sprintf("http://%s:%d/v1", opts.HostIP, local.port)
		if cfg.APIKey == "" {
			cfg.APIKey = local.key
		}
		llm, err = NewOpenAIModel(ctx, opts.Provider, opts.Model, cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("generation model ready", "provider", opts.Provider, "model", opts.Model, "base_url", cfg.HTTPOptions.BaseURL)
	if opts.MaxRetries > 0 {
		llm = NewRetryModel(llm, opts.MaxRetries, opts.RetryDelay)
	}
	return llm, nil
}
