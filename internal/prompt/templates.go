package prompt

import (
	"strings"
	"text/template"
)

// systemTemplateText depends only on the locale and the conversation
// type, so it renders identically for every request in a batch.
const systemTemplateText = `You are a dialogue generator for creating realistic phone conversations.
Your task is to generate structured dialogues with alternating turns between caller and callee.
{{- if .Legit}}
The conversations are legitimate (non-scam) phone calls and should be natural, contextually appropriate and culturally relevant.
{{- else}}
Follow all formatting requirements exactly and preserve any special codes in the input.
{{- end}}

Locale: {{.Locale.ID}}
Language: {{.Locale.Language}}
Region: {{.Locale.Region}}
{{- if .Locale.Guidance}}

Locale guidance:
{{- range .Locale.Guidance}}
- {{.}}
{{- end}}
{{- end}}

Output format: a JSON object with a "dialogue" array. Each element has "text" (the spoken line) and "role" ("caller" or "callee").
Turns alternate strictly, starting with "caller".`

const codeRulesText = `**STRICT RULE - SPECIAL CODE**:
Special codes (e.g., {00001}, {00002}, etc.) represent fixed values (e.g., names, organizations, or amounts).
If the source text includes special codes, you **must reuse** the exact same codes throughout the dialogue - but only in the same types of places where they were originally used, and they must appear in those places.
If the source text does not include special codes, that's okay. Do **not** use any codes in this case.
Do **not** invent or introduce any new codes under any circumstances.`

const scenarioTemplateText = `Generate a scam phone call dialogue between the caller (scammer) and callee (victim). The victim is {{.Awareness}} aware of the scam.

Scam category: {{.Seed.Category}}
{{- if .Seed.Summary}}
Scam summary: {{.Seed.Summary}}
{{- end}}
Scenario: {{.Seed.ScenarioText}}

Caller (scammer) profile:
{{template "profile" .Scammer}}

Callee (victim) profile:
{{template "profile" .Victim}}

The total number of turns must be exactly {{.NumTurns}} individual turns (i.e., lines), alternating between caller and callee.
Let each speaker's personality and speaking style shape their lines.

` + codeRulesText + `

Shorter sentences are preferred.

Generate exactly {{.NumTurns}} dialogue turns, starting with "caller" role.`

const profileTemplateText = `{{define "profile"}}- {{.Name}} ({{.Gender}}, {{.AgeRange}}{{if .EducationLevel}}, {{.EducationLevel}} education{{end}})
{{- if .PersonalityTraits}}
- Personality: {{join .PersonalityTraits}}
{{- end}}
{{- if .SpeakingStyle}}
- Speaking style: {{join .SpeakingStyle}}
{{- end}}{{end}}`

const firstTurnTemplateText = `Continue the scam phone call dialogue between the caller (scammer) and callee (victim). The victim is {{.Awareness}} aware of the scam.

The total number of turns must be exactly {{.NumTurns}} individual turns (i.e., lines), alternating between caller and callee.

**STRICT RULE - FIRST SENTENCE**:
The conversation **must begin** with a **shortened version** of the first sentence below.
This means using fewer words while preserving the original intent and **keeping all special codes unchanged and in the same position**.
First sentence to shorten and use as Turn 1: "{{.FirstTurn}}"

` + codeRulesText + `

Shorter sentences are preferred.

Generate exactly {{.NumTurns}} dialogue turns, starting with "caller" role.`

const legitTemplateText = `Generate realistic {{.Language}} phone call dialogue between a caller and a callee from {{.Region}}.
The call content is about {{.Category}}.
The total number of turns must be exactly {{.NumTurns}} individual turns (i.e., lines), alternating between caller and callee.

Avoid overly generic or repetitive phrasing - the dialogue should feel natural and realistic.

To protect privacy, do not use real personal data. Instead, generate synthetic but plausible realistic-looking values.

Shorter sentences are preferred.

Generate exactly {{.NumTurns}} dialogue turns, starting with "caller" role.`

var funcs = template.FuncMap{
	"join": func(items []string) string { return strings.Join(items, ", ") },
}

var (
	systemTemplate    = template.Must(template.New("system").Parse(systemTemplateText))
	scenarioTemplate  = template.Must(template.Must(template.New("scenario").Funcs(funcs).Parse(profileTemplateText)).Parse(scenarioTemplateText))
	firstTurnTemplate = template.Must(template.New("first_turn").Parse(firstTurnTemplateText))
	legitTemplate     = template.Must(template.New("legit").Parse(legitTemplateText))
)

// displayCategory turns "bank_account_inquiry" into "Bank Account Inquiry".
func displayCategory(category string) string {
	words := strings.Fields(strings.ReplaceAll(category, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
