package models

import (
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go/v3"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/utils"
)

const responseSchemaName = "structured_response"

// buildOpenAIParams converts an ADK request to OpenAI parameters.
func buildOpenAIParams(req *model.LLMRequest, name string) *openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: req.Model,
	}
	if req.Model == "" {
		params.Model = name
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.Config != nil && req.Config.SystemInstruction != nil {
		if system := utils.ExtractContentText(req.Config.SystemInstruction); system != "" {
			messages = append(messages, openai.SystemMessage(system))
		}
	}
	messages = append(messages, convertContentsToMessages(req.Contents)...)
	params.Messages = messages

	if req.Config != nil {
		if req.Config.Temperature != nil {
			params.Temperature = openai.Float(float64(*req.Config.Temperature))
		}
		if req.Config.MaxOutputTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(req.Config.MaxOutputTokens))
		}
		if req.Config.TopP != nil {
			params.TopP = openai.Float(float64(*req.Config.TopP))
		}
		if req.Config.ResponseSchema != nil {
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
					JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
						Name:   responseSchemaName,
						Schema: convertSchemaToJSONSchema(genaiToJSONSchema(req.Config.ResponseSchema)),
						Strict: openai.Bool(true),
					},
				},
			}
		}
	}

	return &params
}

// genaiToJSONSchema converts the genai response shape used for Gemini into
// a JSON Schema document.
func genaiToJSONSchema(s *genai.Schema) *jsonschema.Schema {
	if s == nil {
		return nil
	}
	out := &jsonschema.Schema{
		Type:        strings.ToLower(string(s.Type)),
		Description: s.Description,
		Format:      s.Format,
		Required:    s.Required,
		Items:       genaiToJSONSchema(s.Items),
	}
	for _, v := range s.Enum {
		out.Enum = append(out.Enum, v)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*jsonschema.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = genaiToJSONSchema(prop)
		}
	}
	return out
}

// convertSchemaToJSONSchema renders the root schema. Strict structured
// output requires every object to list all properties as required and to
// forbid additional properties.
func convertSchemaToJSONSchema(schema *jsonschema.Schema) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object"}
	}
	return convertSchemaProperty(schema)
}

// convertSchemaProperty converts a single jsonschema.Schema property to JSON Schema format
func convertSchemaProperty(schema *jsonschema.Schema) map[string]any {
	if schema == nil {
		return nil
	}

	prop := make(map[string]any)

	if len(schema.Types) > 0 {
		prop["type"] = schema.Types[0]
	} else if schema.Type != "" {
		prop["type"] = schema.Type
	}

	if schema.Description != "" {
		prop["description"] = schema.Description
	}

	if schema.Format != "" {
		prop["format"] = schema.Format
	}

	if len(schema.Enum) > 0 {
		prop["enum"] = schema.Enum
	}

	if schema.Items != nil {
		prop["items"] = convertSchemaProperty(schema.Items)
	}

	if prop["type"] == "object" {
		properties := make(map[string]any, len(schema.Properties))
		required := make([]string, 0, len(schema.Properties))
		for name, propSchema := range schema.Properties {
			if propSchema != nil {
				properties[name] = convertSchemaProperty(propSchema)
				required = append(required, name)
			}
		}
		prop["properties"] = properties
		prop["required"] = sortedRequired(schema.Required, required)
		prop["additionalProperties"] = false
	}

	return prop
}

// sortedRequired keeps the declared order and appends remaining property
// names alphabetically.
func sortedRequired(declared, all []string) []string {
	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, name := range declared {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	var rest []string
	for _, name := range all {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// convertContentsToMessages converts genai.Content to OpenAI messages
func convertContentsToMessages(contents []*genai.Content) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion

	for _, content := range contents {
		if content == nil {
			continue
		}
		textContent := utils.ExtractContentText(content)

		switch content.Role {
		case "user":
			messages = append(messages, openai.UserMessage(textContent))
		case "model":
			messages = append(messages, openai.AssistantMessage(textContent))
		case "system":
			messages = append(messages, openai.SystemMessage(textContent))
		default:
			messages = append(messages, openai.UserMessage(textContent))
		}
	}

	return messages
}
