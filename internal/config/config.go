// Package config loads configuration from environment variables and locale documents.
package config

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

// Config holds runtime settings.
type Config struct {
	LLMProvider    string
	LLMModel       string
	APIKey         string
	HostIP         string
	Temperature    float64
	TopP           float64
	MaxTokens      int
	MaxRetries     int
	RetryDelayMS   int
	TimeoutSeconds int

	MaxConcurrent    int
	NumTurnsMin      int
	NumTurnsMax      int
	AwarenessWeights map[types.Awareness]float64
	SeedMinQuality   int
	ScenariosPerSeed int
	SampleLimit      int
	LegitCount       int
	RandomSeed       int64

	SeedsPath                    string
	ProfilesPath                 string
	TemplatesPath                string
	AssignmentsPath              string
	FirstTurnsPath               string
	DynamicPlaceholdersPath      string
	PrepopulatedPlaceholdersPath string
	OutputDir                    string
	PricingPath                  string

	PlaceholderStrict bool
	DiversityWindow   int

	InterruptionRate    float64
	EnableInterruptions bool
	EnableRedaction     bool
	EnableSymbolCleanup bool

	DatabaseURL         string
	GoogleAPIKey        string
	EmbeddingModel      string
	SimilarityThreshold float64

	LogLevel string
	Locale   Locale
}

// providerKeys maps a provider to the env var carrying its credential.
var providerKeys = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"gemini":     "GOOGLE_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"grok":       "XAI_API_KEY",
}

// Load reads env vars, applies defaults, and validates required fields.
func Load() Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Parse reads env vars (and an optional .env file) and applies defaults
// without checking that referenced files exist.
func Parse() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := Config{
		LLMProvider:                  strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMModel:                     getEnv("LLM_MODEL", "gpt-4.1-mini"),
		HostIP:                       os.Getenv("HOST_IP"),
		SeedsPath:                    os.Getenv("SEEDS_PATH"),
		ProfilesPath:                 os.Getenv("PROFILES_PATH"),
		TemplatesPath:                os.Getenv("TEMPLATES_PATH"),
		AssignmentsPath:              os.Getenv("ASSIGNMENTS_PATH"),
		FirstTurnsPath:               os.Getenv("FIRST_TURNS_PATH"),
		DynamicPlaceholdersPath:      os.Getenv("DYNAMIC_PLACEHOLDERS_PATH"),
		PrepopulatedPlaceholdersPath: os.Getenv("PREPOPULATED_PLACEHOLDERS_PATH"),
		OutputDir:                    getEnv("OUTPUT_DIR", "output"),
		PricingPath:                  os.Getenv("PRICING_PATH"),
		DatabaseURL:                  os.Getenv("DATABASE_URL"),
		GoogleAPIKey:                 os.Getenv("GOOGLE_API_KEY"),
		EmbeddingModel:               getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		LogLevel:                     strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
	if key, ok := providerKeys[cfg.LLMProvider]; ok {
		cfg.APIKey = os.Getenv(key)
	}

	cfg.Temperature = getEnvFloat("LLM_TEMPERATURE", 1.0)
	cfg.TopP = getEnvFloat("LLM_TOP_P", 0.95)
	cfg.MaxTokens = getEnvInt("LLM_MAX_TOKENS", 0)
	cfg.MaxRetries = getEnvInt("LLM_MAX_RETRIES", 3)
	cfg.RetryDelayMS = getEnvInt("LLM_RETRY_DELAY_MS", 1000)
	cfg.TimeoutSeconds = getEnvInt("LLM_TIMEOUT_SECONDS", 60)
	cfg.MaxConcurrent = getEnvInt("MAX_CONCURRENT_REQUESTS", 10)
	cfg.NumTurnsMin = getEnvInt("NUM_TURNS_MIN", 20)
	cfg.NumTurnsMax = getEnvInt("NUM_TURNS_MAX", 24)
	cfg.SeedMinQuality = getEnvInt("SEED_MIN_QUALITY", 70)
	cfg.ScenariosPerSeed = getEnvInt("SCENARIOS_PER_SEED", 1)
	cfg.SampleLimit = getEnvInt("SAMPLE_LIMIT", 0)
	cfg.LegitCount = getEnvInt("NUM_LEGIT_CONVERSATIONS", 10)
	cfg.RandomSeed = int64(getEnvInt("RANDOM_SEED", 0))
	cfg.PlaceholderStrict = getEnvBool("PLACEHOLDER_STRICT", false)
	cfg.DiversityWindow = getEnvInt("DIVERSITY_WINDOW", 200)
	cfg.InterruptionRate = getEnvFloat("INTERRUPTION_RATE", 0.10)
	cfg.EnableInterruptions = getEnvBool("ENABLE_INTERRUPTIONS", true)
	cfg.EnableRedaction = getEnvBool("ENABLE_REDACTION", true)
	cfg.EnableSymbolCleanup = getEnvBool("ENABLE_SYMBOL_CLEANUP", true)
	cfg.SimilarityThreshold = getEnvFloat("SIMILARITY_THRESHOLD", 0.92)

	weights, err := parseWeights(getEnv("AWARENESS_WEIGHTS", "not:0.6,tiny:0.3,very:0.1"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid AWARENESS_WEIGHTS: %w", err)
	}
	cfg.AwarenessWeights = weights

	localeID := getEnv("LOCALE", "ms-my")
	localePath := getEnv("LOCALE_CONFIG", filepath.Join("configs", "locales", localeID+".yaml"))
	locale, err := LoadLocale(localePath, localeID)
	if err != nil {
		return Config{}, err
	}
	cfg.Locale = locale

	return cfg, nil
}

// Validate reports fatal configuration errors. It must pass before any
// batch work starts.
func (c Config) Validate() error {
	var errs []error
	switch c.LLMProvider {
	case "vllm", "lm-studio":
		if c.HostIP == "" {
			errs = append(errs, fmt.Errorf("HOST_IP environment variable is required for %s", c.LLMProvider))
		}
	default:
		key, ok := providerKeys[c.LLMProvider]
		if !ok {
			errs = append(errs, fmt.Errorf("unsupported LLM_PROVIDER: %s", c.LLMProvider))
		} else if c.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s environment variable is required", key))
		}
	}
	if c.NumTurnsMin <= 0 || c.NumTurnsMax < c.NumTurnsMin {
		errs = append(errs, fmt.Errorf("invalid turn bounds: min=%d max=%d", c.NumTurnsMin, c.NumTurnsMax))
	}
	if c.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENT_REQUESTS must be positive, got %d", c.MaxConcurrent))
	}
	if c.InterruptionRate < 0 || c.InterruptionRate > 1 {
		errs = append(errs, fmt.Errorf("INTERRUPTION_RATE must be in [0,1], got %v", c.InterruptionRate))
	}
	if c.PrepopulatedPlaceholdersPath != "" {
		if err := requireFile("PREPOPULATED_PLACEHOLDERS_PATH", c.PrepopulatedPlaceholdersPath); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RequireFile is exposed for mode-specific checks done by the pipeline.
func RequireFile(name, path string) error {
	return requireFile(name, path)
}

func requireFile(name, path string) error {
	if path == "" {
		return fmt.Errorf("%s environment variable is required", name)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s file not found: %s", name, path)
	}
	if info.IsDir() {
		return fmt.Errorf("%s must be a file: %s", name, path)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseWeights parses "not:0.6,tiny:0.3,very:0.1".
func parseWeights(raw string) (map[types.Awareness]float64, error) {
	weights := make(map[types.Awareness]float64)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("expected level:weight, got %q", pair)
		}
		level, err := types.ParseAwareness(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %s: %w", level, err)
		}
		if w < 0 {
			return nil, fmt.Errorf("negative weight for %s", level)
		}
		weights[level] = w
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("weights must sum to a positive value")
	}
	return weights, nil
}

// WeightString renders weights in canonical order, for logs and reports.
func WeightString(weights map[types.Awareness]float64) string {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%g", k, weights[types.Awareness(k)]))
	}
	return strings.Join(parts, ",")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
