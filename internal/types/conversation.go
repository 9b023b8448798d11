package types

// Speaker roles in a dialogue.
const (
	SpeakerCaller = "caller"
	SpeakerCallee = "callee"
)

// Conversation types.
const (
	ConversationScam  = "scam"
	ConversationLegit = "legit"
)

// DialogueTurn is a single spoken line.
type DialogueTurn struct {
	SentID int    `json:"sent_id"`
	Text   string `json:"text"`
	Role   string `json:"role"`
}

// ConversationRecord is the final labeled transcript.
type ConversationRecord struct {
	ConversationID     int               `json:"conversation_id"`
	Type               string            `json:"conversation_type"`
	ScenarioID         string            `json:"scenario_id,omitempty"`
	SeedTag            string            `json:"seed_tag,omitempty"`
	TemplateID         string            `json:"template_id,omitempty"`
	Category           string            `json:"category,omitempty"`
	Locale             string            `json:"locale,omitempty"`
	Region             string            `json:"region,omitempty"`
	FirstTurn          string            `json:"first_turn,omitempty"`
	VictimAwareness    Awareness         `json:"victim_awareness,omitempty"`
	ScammerProfileID   string            `json:"scammer_profile_id,omitempty"`
	VictimProfileID    string            `json:"victim_profile_id,omitempty"`
	NumTurns           int               `json:"num_turns"`
	Dialogue           []DialogueTurn    `json:"dialogue"`
	Placeholders       map[string]string `json:"placeholders,omitempty"`
	EstimatedMinutes   float64           `json:"estimated_minutes,omitempty"`
	Interrupted        bool              `json:"interrupted,omitempty"`
	InterruptionReason string            `json:"interruption_reason,omitempty"`
	InterruptionNote   string            `json:"interruption_note,omitempty"`
	OriginalNumTurns   int               `json:"original_num_turns,omitempty"`
}

// ExpectedRole returns the role a turn at index i must carry.
func ExpectedRole(i int) string {
	if i%2 == 0 {
		return SpeakerCaller
	}
	return SpeakerCallee
}

// Alternates reports whether turns strictly alternate starting with the caller.
func Alternates(turns []DialogueTurn) bool {
	for i, turn := range turns {
		if turn.Role != ExpectedRole(i) {
			return false
		}
	}
	return true
}

// SimilarConversation is a stored conversation close to a new one.
type SimilarConversation struct {
	RunID          string  `json:"run_id"`
	ConversationID int     `json:"conversation_id"`
	ScenarioID     string  `json:"scenario_id,omitempty"`
	Similarity     float64 `json:"similarity"`
}
