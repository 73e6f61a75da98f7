package prompt

import (
	"fmt"
	"strings"
	"time"

	"mercator-hq/ganymede/pkg/memory"
	"mercator-hq/ganymede/pkg/upstream"
)

// SafeHistoryTurns is the bounded recent-history window sent upstream. Older
// turns are assumed already folded into the memory summary.
const SafeHistoryTurns = 8

// Turn roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// InlineImage is an optional base64-encoded image attached to a turn.
type InlineImage struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Turn is one message in a conversation, authored by "user" or "model".
type Turn struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	InlineImage *InlineImage `json:"inlineImage,omitempty"`
}

// ValidRole reports whether role is a known turn role.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleModel
}

// systemInstruction is the fixed developer instruction block, emitted first so
// the model treats it as binding.
const systemInstruction = `You are a helpful, concise assistant. Answer in plain language, ` +
	`prefer short responses, and use Markdown only where it aids readability. If context ` +
	`about the user or their project is provided below, use it silently; never recite it back.`

// SafeHistory truncates client-supplied history to the most recent
// SafeHistoryTurns turns.
func SafeHistory(history []Turn) []Turn {
	if len(history) <= SafeHistoryTurns {
		return history
	}
	return history[len(history)-SafeHistoryTurns:]
}

// Assemble composes the outbound request payload from system instructions,
// fresh memory context, and bounded recent history. It is a pure function of
// its inputs; now feeds the freshness gate.
//
// Emission order matters: instructions first so the model treats them as
// binding, summary before granular context to avoid redundant repetition,
// history last before the live message to preserve recency bias.
func Assemble(rec *memory.Record, history []Turn, message string, now time.Time) *upstream.Payload {
	var blocks []string
	blocks = append(blocks, systemInstruction)

	if rec.Summary != "" {
		// The summary has no freshness gate: it is always included if present.
		blocks = append(blocks, "Earlier conversation summary (do not repeat this back):\n"+rec.Summary)
	}

	if ctx := contextBlock(rec, now); ctx != "" {
		blocks = append(blocks, ctx)
	}

	safe := SafeHistory(history)

	contents := make([]upstream.Content, 0, len(safe)+1)
	for _, turn := range safe {
		contents = append(contents, toContent(turn))
	}
	contents = append(contents, upstream.Content{Role: RoleUser, Text: message})

	return &upstream.Payload{
		SystemInstruction: strings.Join(blocks, "\n\n"),
		Contents:          contents,
	}
}

// contextBlock renders the freshness-gated memory context. Returns the empty
// string when no sub-record passes the gate.
func contextBlock(rec *memory.Record, now time.Time) string {
	var lines []string

	if rec.Profile.Fresh(now) {
		if rec.Profile.Goal != "" {
			lines = append(lines, "User goal: "+rec.Profile.Goal)
		}
		if rec.Profile.Preferences != "" {
			lines = append(lines, "User preferences: "+rec.Profile.Preferences)
		}
	}

	if rec.Project.Fresh(now) {
		detail := rec.Project.Name
		if rec.Project.TechStack != "" {
			detail = fmt.Sprintf("%s (%s)", detail, rec.Project.TechStack)
		}
		if rec.Project.Status != "" {
			detail = fmt.Sprintf("%s, status: %s", detail, rec.Project.Status)
		}
		if detail != "" {
			lines = append(lines, "Current project: "+detail)
		}
	}

	if rec.Technical.Fresh(now) && rec.Technical.Context != "" {
		lines = append(lines, "Technical context: "+rec.Technical.Context)
	}

	if len(lines) == 0 {
		return ""
	}

	return "Known context about the user:\n" + strings.Join(lines, "\n")
}

// toContent converts a conversation turn to the upstream content shape.
func toContent(turn Turn) upstream.Content {
	c := upstream.Content{Role: turn.Role, Text: turn.Content}
	if turn.InlineImage != nil {
		c.InlineImage = &upstream.InlineImage{
			MimeType: turn.InlineImage.MimeType,
			Data:     turn.InlineImage.Data,
		}
	}
	return c
}
