package postprocess

import (
	"math"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

// SyllablesPerMinute is the assumed speaking rate.
const SyllablesPerMinute = 325.0

// EstimateSyllables counts vowel groups, with a floor of one for non-empty text.
func EstimateSyllables(text string) int {
	if text == "" {
		return 0
	}
	count := 0
	prevVowel := false
	for _, r := range text {
		vowel := isVowel(r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	return max(count, 1)
}

// EstimateMinutes approximates spoken duration, rounded to two decimals.
func EstimateMinutes(turns []types.DialogueTurn) float64 {
	total := 0
	for _, t := range turns {
		total += EstimateSyllables(t.Text)
	}
	return math.Round(float64(total)/SyllablesPerMinute*100) / 100
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}
