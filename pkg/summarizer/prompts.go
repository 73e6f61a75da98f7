package summarizer

import (
	"encoding/json"
	"strings"

	"mercator-hq/ganymede/pkg/prompt"
)

// Extraction instructions. Each call distills one facet of the same bounded
// history; failures are independent and non-fatal.
const (
	profileInstruction = `Analyze the conversation below and extract what the user is trying to ` +
		`achieve and how they prefer to work. Respond ONLY with valid JSON of the form ` +
		`{"goal": "...", "preferences": "..."}. Use empty strings for anything the ` +
		`conversation does not establish.`

	projectInstruction = `Analyze the conversation below and extract what project the user is ` +
		`working on. Respond ONLY with valid JSON of the form ` +
		`{"name": "...", "techStack": "...", "status": "..."}. Use empty strings for ` +
		`anything the conversation does not establish.`

	technicalInstruction = `Analyze the conversation below and extract durable technical context: ` +
		`decisions made, errors encountered, and architecture discussed. Respond ONLY with ` +
		`valid JSON of the form {"context": "..."}. Use an empty string if nothing durable ` +
		`was discussed.`

	summaryInstruction = `Write a short narrative summary (3-5 sentences) of the conversation ` +
		`below, suitable as context for a future conversation. Respond with plain text only.`
)

// profileFacts is the expected shape of the profile extraction response.
type profileFacts struct {
	Goal        string `json:"goal"`
	Preferences string `json:"preferences"`
}

// projectFacts is the expected shape of the project extraction response.
type projectFacts struct {
	Name      string `json:"name"`
	TechStack string `json:"techStack"`
	Status    string `json:"status"`
}

// technicalFacts is the expected shape of the technical extraction response.
type technicalFacts struct {
	Context string `json:"context"`
}

// renderTranscript flattens the bounded history into the text block appended
// to every extraction instruction.
func renderTranscript(history []prompt.Turn) string {
	var sb strings.Builder
	for _, turn := range history {
		if turn.Content == "" {
			continue
		}
		sb.WriteString("[")
		sb.WriteString(turn.Role)
		sb.WriteString("]: ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// trimSummary normalizes the plain-text summary response.
func trimSummary(response string) string {
	return strings.TrimSpace(response)
}

// extractJSON unmarshals a model response into v, tolerating prose around the
// JSON object by trimming to the outermost braces.
func extractJSON(response string, v any) error {
	text := strings.TrimSpace(response)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return json.Unmarshal([]byte(text), v)
}
