// Package models adapts text-generation providers to the adk model.LLM interface.
package models

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// openaiModel wraps an OpenAI-compatible chat completions client.
type openaiModel struct {
	client             *openai.Client
	name               string
	provider           string
	versionHeaderValue string
}

// NewOpenAIModel creates a model backed by an OpenAI-compatible endpoint.
// cfg.HTTPOptions.BaseURL selects the endpoint and cfg.HTTPOptions.Timeout
// bounds each request. The client never retries on its own; see NewRetryModel.
func NewOpenAIModel(ctx context.Context, provider, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPOptions.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.HTTPOptions.BaseURL))
	}
	if cfg.HTTPOptions.Timeout != nil && *cfg.HTTPOptions.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(*cfg.HTTPOptions.Timeout))
	}

	headerValue := fmt.Sprintf("%s-go/%s go/%s",
		provider, "1.0.0", strings.TrimPrefix(runtime.Version(), "go"))
	opts = append(opts, option.WithHeader("user-agent", headerValue))

	client := openai.NewClient(opts...)
	return &openaiModel{
		client:             &client,
		name:               modelName,
		provider:           provider,
		versionHeaderValue: headerValue,
	}, nil
}

func (m *openaiModel) Name() string {
	return m.name
}

// GenerateContent always issues a single non-streaming completion; the
// dialogue is only usable once the whole JSON document has arrived.
func (m *openaiModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	m.maybeAppendUserContent(req)

	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

func (m *openaiModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	params := buildOpenAIParams(req, m.name)

	resp, err := m.client.Chat.Completions.New(ctx, *params)
	if err != nil {
		slog.Debug("llm API call failed", "provider", m.provider, "model", m.name, "error", err.Error())
		return nil, fmt.Errorf("failed to call %s API: %w", m.provider, err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return &model.LLMResponse{}, nil
	}

	choice := resp.Choices[0]
	content := &genai.Content{
		Role:  "model",
		Parts: []*genai.Part{},
	}
	if choice.Message.Content != "" {
		content.Parts = append(content.Parts, &genai.Part{Text: choice.Message.Content})
	}

	return &model.LLMResponse{
		Content:       content,
		UsageMetadata: usageMetadata(resp.Usage),
		FinishReason:  finishReason(choice.FinishReason),
		TurnComplete:  true,
	}, nil
}

// usageMetadata maps OpenAI usage onto genai's shape. Reasoning tokens are
// reported as thoughts and excluded from the candidate count.
func usageMetadata(u openai.CompletionUsage) *genai.GenerateContentResponseUsageMetadata {
	reasoning := u.CompletionTokensDetails.ReasoningTokens
	return &genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:        int32(u.PromptTokens),
		CachedContentTokenCount: int32(u.PromptTokensDetails.CachedTokens),
		CandidatesTokenCount:    int32(u.CompletionTokens - reasoning),
		ThoughtsTokenCount:      int32(reasoning),
		TotalTokenCount:         int32(u.TotalTokens),
	}
}

func finishReason(reason string) genai.FinishReason {
	switch reason {
	case "length":
		return genai.FinishReasonMaxTokens
	case "content_filter":
		return genai.FinishReasonSafety
	case "":
		return genai.FinishReasonUnspecified
	default:
		return genai.FinishReasonStop
	}
}

func (m *openaiModel) maybeAppendUserContent(req *model.LLMRequest) {
	if len(req.Contents) == 0 {
		req.Contents = append(req.Contents, genai.NewContentFromText("Generate the dialogue as specified in the System Instruction.", "user"))
	}

	if last := req.Contents[len(req.Contents)-1]; last != nil && last.Role != "user" {
		req.Contents = append(req.Contents, genai.NewContentFromText("Continue generating as instructed.", "user"))
	}
}
