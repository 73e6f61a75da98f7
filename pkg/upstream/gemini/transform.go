package gemini

import (
	"encoding/json"
	"strings"

	"mercator-hq/ganymede/pkg/upstream"
)

// geminiRequest is the wire format for generateContent requests.
type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenCfg   `json:"generationConfig,omitempty"`
}

// geminiContent is one conversational turn in Gemini format.
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// geminiPart is a part of a turn: text or inline image data.
type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

// geminiInlineData carries a base64-encoded attachment.
type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// geminiGenCfg is the generation configuration block.
type geminiGenCfg struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// geminiResponse covers both the unary response body and individual streaming
// chunks; the shapes are identical.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text,omitempty"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// buildRequest converts an assembled payload into the Gemini wire format.
func buildRequest(payload *upstream.Payload, cfg GenerationConfig) *geminiRequest {
	req := &geminiRequest{
		Contents: make([]geminiContent, 0, len(payload.Contents)),
	}

	for _, c := range payload.Contents {
		content := geminiContent{Role: c.Role}
		if c.Text != "" {
			content.Parts = append(content.Parts, geminiPart{Text: c.Text})
		}
		if c.InlineImage != nil {
			content.Parts = append(content.Parts, geminiPart{
				InlineData: &geminiInlineData{
					MimeType: c.InlineImage.MimeType,
					Data:     c.InlineImage.Data,
				},
			})
		}
		if len(content.Parts) == 0 {
			continue
		}
		req.Contents = append(req.Contents, content)
	}

	if payload.SystemInstruction != "" {
		req.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: payload.SystemInstruction}},
		}
	}

	if cfg.Temperature > 0 || cfg.MaxOutputTokens > 0 {
		req.GenerationConfig = &geminiGenCfg{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
		}
	}

	return req
}

// extractText joins the text parts of the first candidate into one fragment.
// Returns the empty string if the chunk carries no text.
func extractText(resp *geminiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// parseResponse decodes a response or chunk body.
func parseResponse(data []byte) (*geminiResponse, error) {
	var resp geminiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
