package utils

import (
	"strings"

	"google.golang.org/genai"
)

func ExtractContentText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// NormalizeTurnText flattens escaped and literal line breaks in one spoken
// turn and collapses runs of whitespace.
func NormalizeTurnText(text string) string {
	text = strings.ReplaceAll(text, "\\r\\n", " ")
	text = strings.ReplaceAll(text, "\\n", " ")
	text = strings.ReplaceAll(text, "\\\"", "\"")
	return strings.Join(strings.Fields(text), " ")
}
