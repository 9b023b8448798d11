package generation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/utils"
)

// TurnTolerance is how far a response may deviate from the requested turn count.
const TurnTolerance = 2

// ErrMalformedResponse marks a model response that cannot become a dialogue.
var ErrMalformedResponse = errors.New("malformed dialogue response")

type dialogueResponse struct {
	Dialogue []struct {
		Text string `json:"text"`
		Role string `json:"role"`
	} `json:"dialogue"`
}

// ParseDialogue decodes a structured dialogue response, checks that roles
// alternate starting with the caller and that the turn count is within
// TurnTolerance of want, and assigns sequential sent ids from 1. A want of
// zero disables the count check.
func ParseDialogue(raw string, want int) ([]types.DialogueTurn, error) {
	var resp dialogueResponse
	if err := utils.DecodeJSONObject(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(resp.Dialogue) == 0 {
		return nil, fmt.Errorf("%w: empty dialogue", ErrMalformedResponse)
	}

	turns := make([]types.DialogueTurn, 0, len(resp.Dialogue))
	for i, t := range resp.Dialogue {
		role := strings.ToLower(strings.TrimSpace(t.Role))
		if role != types.ExpectedRole(i) {
			return nil, fmt.Errorf("%w: turn %d has role %q, expected %q", ErrMalformedResponse, i+1, t.Role, types.ExpectedRole(i))
		}
		text := utils.NormalizeTurnText(t.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: turn %d is empty", ErrMalformedResponse, i+1)
		}
		turns = append(turns, types.DialogueTurn{SentID: i + 1, Text: text, Role: role})
	}

	if want > 0 {
		if diff := len(turns) - want; diff > TurnTolerance || diff < -TurnTolerance {
			return nil, fmt.Errorf("%w: got %d turns, requested %d", ErrMalformedResponse, len(turns), want)
		}
	}
	return turns, nil
}
