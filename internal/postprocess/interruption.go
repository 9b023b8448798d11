package postprocess

import "github.com/Chen-zexi/synthetic-voice-dataset/internal/types"

// MinInterruptTurns is the shortest dialogue that may be interrupted.
const MinInterruptTurns = 6

// Reason explains an interrupted call.
type Reason struct {
	Code string
	Note string
}

var scamReasons = []Reason{
	{Code: "victim_suspicion", Note: "Victim hung up after becoming suspicious"},
	{Code: "victim_verification_attempt", Note: "Victim said they would verify and hung up"},
	{Code: "scammer_detected_resistance", Note: "Scammer ended call after detecting too much resistance"},
	{Code: "external_interruption", Note: "Call was interrupted unexpectedly"},
}

var legitReasons = []Reason{
	{Code: "network_issue", Note: "Call dropped due to network issues"},
	{Code: "caller_needed_to_go", Note: "Caller needed to attend to something else"},
	{Code: "issue_resolved_early", Note: "Issue was resolved, call ended naturally"},
	{Code: "call_back_requested", Note: "Caller said they would call back"},
}

func reasonsFor(conversationType string) []Reason {
	if conversationType == types.ConversationLegit {
		return legitReasons
	}
	return scamReasons
}
