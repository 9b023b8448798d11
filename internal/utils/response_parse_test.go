package utils

import (
	"errors"
	"testing"

	"google.golang.org/genai"
)

type dialogueProbe struct {
	Dialogue []struct {
		Text string `json:"text"`
		Role string `json:"role"`
	} `json:"dialogue"`
}

func TestDecodeJSONObject(t *testing.T) {
	var got dialogueProbe
	if err := DecodeJSONObject(`{"dialogue":[{"text":"Helo","role":"caller"}]}`, &got); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got.Dialogue) != 1 || got.Dialogue[0].Role != "caller" {
		t.Fatalf("unexpected dialogue: %+v", got.Dialogue)
	}
}

func TestDecodeJSONObjectWithWrapper(t *testing.T) {
	var got dialogueProbe
	raw := "```json\n{\"dialogue\":[{\"text\":\"Ya?\",\"role\":\"callee\"}]}\n```"
	if err := DecodeJSONObject(raw, &got); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Dialogue[0].Text != "Ya?" {
		t.Fatalf("unexpected text: %s", got.Dialogue[0].Text)
	}
}

func TestDecodeJSONObjectInvalid(t *testing.T) {
	var got dialogueProbe
	if err := DecodeJSONObject("no json here", &got); !errors.Is(err, ErrNoJSONObject) {
		t.Fatalf("expected ErrNoJSONObject, got %v", err)
	}
	if err := DecodeJSONObject(`{"dialogue": [}`, &got); err == nil {
		t.Fatalf("expected error for broken json")
	}
}

func TestExtractContentTextSkipsThoughts(t *testing.T) {
	content := &genai.Content{Parts: []*genai.Part{
		{Text: "thinking...", Thought: true},
		{Text: "{\"a\":"},
		nil,
		{Text: "1}"},
	}}
	if got := ExtractContentText(content); got != `{"a":1}` {
		t.Fatalf("expected joined text, got %q", got)
	}
	if got := ExtractContentText(nil); got != "" {
		t.Fatalf("expected empty text for nil content, got %q", got)
	}
}

func TestNormalizeTurnText(t *testing.T) {
	got := NormalizeTurnText("  Encik,\\nsaya dari bank.\n  Boleh  sahkan? ")
	if got != "Encik, saya dari bank. Boleh sahkan?" {
		t.Fatalf("unexpected normalized text: %q", got)
	}
}
