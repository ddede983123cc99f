package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/AliZeynalov/keybridge/internal/conversation"
	"github.com/AliZeynalov/keybridge/internal/models"
)

// anthropicVersion pins the Messages API wire format.
const anthropicVersion = "2023-06-01"

/*
	ANTHROPIC MESSAGES WIRE FORMAT
*/

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicBlock struct {
	Type   string           `json:"type"`
	Text   *string          `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"` // always "base64" here
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func anthropicText(text string) anthropicBlock {
	return anthropicBlock{Type: "text", Text: &text}
}

// anthropicMessages pulls system turns into one newline-joined string and
// attaches images to the turn that was the last user turn before extraction.
func anthropicMessages(turns []models.Turn, attachments []models.Attachment) (string, []anthropicMessage) {
	target := -1
	if len(attachments) > 0 {
		target = conversation.LastUserIndex(turns)
	}

	var system []string
	msgs := make([]anthropicMessage, 0, len(turns))
	for i, t := range turns {
		switch t.Role {
		case models.RoleSystem:
			system = append(system, t.Content)
		case models.RoleUser, models.RoleAssistant:
			if i != target {
				msgs = append(msgs, anthropicMessage{Role: string(t.Role), Content: []anthropicBlock{anthropicText(t.Content)}})
				continue
			}
			var blocks []anthropicBlock
			if strings.TrimSpace(t.Content) != "" {
				blocks = append(blocks, anthropicText(t.Content))
			}
			for _, a := range conversation.FilterImages(attachments) {
				blocks = append(blocks, anthropicBlock{
					Type:   "image",
					Source: &anthropicSource{Type: "base64", MediaType: a.MIME, Data: a.Data},
				})
			}
			if len(blocks) == 0 {
				blocks = []anthropicBlock{anthropicText(t.Content)}
			}
			msgs = append(msgs, anthropicMessage{Role: string(models.RoleUser), Content: blocks})
		}
	}
	return strings.Join(system, "\n"), msgs
}

// Anthropic talks to the Anthropic Messages API.
type Anthropic struct {
	base
}

// NewAnthropic returns the Anthropic adapter. Anthropic has no public model
// listing, so resolution always yields the configured default.
func NewAnthropic(opts Options) *Anthropic {
	opts = opts.withDefaults(models.ProviderAnthropic)
	a := &Anthropic{base: base{id: models.ProviderAnthropic, name: "Anthropic", opts: opts}}
	a.resolver = newResolver(models.ProviderAnthropic, opts, nil, ranking{})
	return a
}

func (a *Anthropic) headers(apiKey string) map[string]string {
	h := map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": anthropicVersion,
	}
	for k, v := range a.opts.Endpoint.Headers {
		h[k] = v
	}
	return h
}

// Call implements [Adapter].
func (a *Anthropic) Call(ctx context.Context, turns []models.Turn, apiKey, model string, attachments []models.Attachment) models.Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.opts.GenerationTimeout)
	defer cancel()

	system, msgs := anthropicMessages(turns, attachments)
	req := anthropicRequest{
		Model:       model,
		MaxTokens:   a.opts.Generation.MaxTokens,
		Temperature: a.opts.Generation.Temperature,
		System:      system,
		Messages:    msgs,
	}

	var resp anthropicResponse
	url := a.opts.Endpoint.BaseURL + "/messages"
	if err := doJSON(ctx, a.opts.HTTPClient, http.MethodPost, url, a.headers(apiKey), req, &resp); err != nil {
		return a.failure(model, start, err)
	}

	var texts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	return a.success(model, start, strings.Join(texts, "\n"))
}
