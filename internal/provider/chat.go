package provider

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/AliZeynalov/keybridge/internal/conversation"
	"github.com/AliZeynalov/keybridge/internal/models"
)

/*
	CHAT COMPLETIONS WIRE FORMAT (OpenAI, xAI, OpenRouter)
*/

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// chatMessage content is either a plain string or a []contentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     *string   `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func textPart(text string) contentPart {
	return contentPart{Type: "text", Text: &text}
}

func buildDataURL(a models.Attachment) string {
	return "data:" + a.MIME + ";base64," + a.Data
}

// chatMessages converts turns into chat-completions messages. When attachments
// are present only the last user turn changes: it becomes a part list with the
// non-blank text first and one image_url part per valid attachment.
func chatMessages(turns []models.Turn, attachments []models.Attachment) []chatMessage {
	msgs := make([]chatMessage, len(turns))
	for i, t := range turns {
		msgs[i] = chatMessage{Role: string(t.Role), Content: t.Content}
	}
	if len(attachments) == 0 {
		return msgs
	}

	idx := conversation.LastUserIndex(turns)
	if idx < 0 {
		return msgs
	}

	var parts []contentPart
	if text := turns[idx].Content; strings.TrimSpace(text) != "" {
		parts = append(parts, textPart(text))
	}
	for _, a := range conversation.FilterImages(attachments) {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: buildDataURL(a)}})
	}
	if len(parts) == 0 {
		parts = []contentPart{textPart("")}
	}
	msgs[idx].Content = parts
	return msgs
}

// ChatCompletions talks to any OpenAI-compatible chat completions API.
type ChatCompletions struct {
	base
}

var (
	openAIRanking = ranking{families: []*regexp.Regexp{
		regexp.MustCompile(`^gpt-4o(\b|[-.])`),
		regexp.MustCompile(`^gpt-4\.1(\b|[-.])`),
		regexp.MustCompile(`^gpt-4(\b|[-.])`),
		regexp.MustCompile(`^gpt-3\.5(\b|[-.])`),
	}}
	xaiRanking = ranking{exact: []string{"grok-2", "grok-2-mini", "grok-2-1212", "grok-beta"}}

	openRouterRanking = ranking{exact: []string{
		"anthropic/claude-3.7-sonnet",
		"anthropic/claude-3.5-sonnet",
		"openai/gpt-4o",
		"openai/gpt-4.1-mini",
		"google/gemini-2.0-pro",
		"google/gemini-1.5-pro",
	}}
)

// NewOpenAI returns the OpenAI adapter.
func NewOpenAI(opts Options) *ChatCompletions {
	return newChatCompletions(models.ProviderOpenAI, "OpenAI", opts, openAIRanking)
}

// NewXAI returns the xAI (Grok) adapter.
func NewXAI(opts Options) *ChatCompletions {
	return newChatCompletions(models.ProviderXAI, "xAI", opts, xaiRanking)
}

// NewOpenRouter returns the OpenRouter adapter.
func NewOpenRouter(opts Options) *ChatCompletions {
	return newChatCompletions(models.ProviderOpenRouter, "OpenRouter", opts, openRouterRanking)
}

func newChatCompletions(id models.ProviderID, name string, opts Options, rank ranking) *ChatCompletions {
	opts = opts.withDefaults(id)
	a := &ChatCompletions{base: base{id: id, name: name, opts: opts}}
	a.resolver = newResolver(id, opts, a.listModels, rank)
	return a
}

func (a *ChatCompletions) headers(apiKey string) map[string]string {
	h := map[string]string{"Authorization": "Bearer " + apiKey}
	for k, v := range a.opts.Endpoint.Headers {
		h[k] = v
	}
	return h
}

func (a *ChatCompletions) listModels(ctx context.Context, apiKey string) ([]string, error) {
	var list modelList
	if err := doJSON(ctx, a.opts.HTTPClient, http.MethodGet, a.opts.Endpoint.BaseURL+"/models", a.headers(apiKey), nil, &list); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

// Call implements [Adapter].
func (a *ChatCompletions) Call(ctx context.Context, turns []models.Turn, apiKey, model string, attachments []models.Attachment) models.Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.opts.GenerationTimeout)
	defer cancel()

	req := chatRequest{
		Model:       model,
		Messages:    chatMessages(turns, attachments),
		Temperature: a.opts.Generation.Temperature,
	}

	var resp chatResponse
	url := a.opts.Endpoint.BaseURL + "/chat/completions"
	if err := doJSON(ctx, a.opts.HTTPClient, http.MethodPost, url, a.headers(apiKey), req, &resp); err != nil {
		return a.failure(model, start, err)
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	return a.success(model, start, text)
}
