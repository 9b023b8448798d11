// Package generation drives the external text-generation service.
package generation

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/usage"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/utils"
)

// Request is one dialogue generation call.
type Request struct {
	ScenarioID string
	System     string
	User       string
	NumTurns   int
}

// Result is a parsed dialogue and the usage of the call that produced it.
type Result struct {
	Turns []types.DialogueTurn
	Usage usage.Record
}

// Generator produces one dialogue per request.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Sampling holds the generation parameters shared by a batch.
type Sampling struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// LLMGenerator calls a model.LLM with the dialogue response schema.
type LLMGenerator struct {
	llm      model.LLM
	sampling Sampling
}

func NewLLMGenerator(llm model.LLM, sampling Sampling) *LLMGenerator {
	return &LLMGenerator{llm: llm, sampling: sampling}
}

func (g *LLMGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.User) == "" {
		return Result{}, fmt.Errorf("user prompt cannot be empty")
	}

	llmReq := &model.LLMRequest{
		Model:    g.llm.Name(),
		Contents: []*genai.Content{genai.NewContentFromText(req.User, genai.RoleUser)},
		Config:   g.config(req.System),
	}

	var (
		resp *model.LLMResponse
		err  error
	)
	g.llm.GenerateContent(ctx, llmReq, false)(func(r *model.LLMResponse, e error) bool {
		resp = r
		err = e
		return false
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate dialogue: %w", err)
	}
	if resp == nil || resp.Content == nil {
		return Result{}, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	if resp.ErrorCode != "" {
		return Result{}, fmt.Errorf("%w: %s %s", ErrMalformedResponse, resp.ErrorCode, resp.ErrorMessage)
	}

	turns, err := ParseDialogue(utils.ExtractContentText(resp.Content), req.NumTurns)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Turns: turns,
		Usage: usage.FromMetadata(g.llm.Name(), req.ScenarioID, resp.UsageMetadata),
	}, nil
}

func (g *LLMGenerator) config(system string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   dialogueSchema(),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if g.sampling.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(g.sampling.Temperature))
	}
	if g.sampling.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(g.sampling.TopP))
	}
	if g.sampling.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.sampling.MaxTokens)
	}
	return cfg
}

func dialogueSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"dialogue": {
				Type:        genai.TypeArray,
				Description: "Ordered dialogue turns, alternating caller and callee, starting with caller.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"text": {
							Type:        genai.TypeString,
							Description: "The spoken line.",
						},
						"role": {
							Type: genai.TypeString,
							Enum: []string{types.SpeakerCaller, types.SpeakerCallee},
						},
					},
					Required:         []string{"text", "role"},
					PropertyOrdering: []string{"text", "role"},
				},
			},
		},
		Required: []string{"dialogue"},
	}
}
