package provider

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/AliZeynalov/keybridge/internal/conversation"
	"github.com/AliZeynalov/keybridge/internal/models"
)

/*
	GEMINI generateContent WIRE FORMAT
*/

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" or "model"
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiModelList struct {
	Models []struct {
		Name string `json:"name"` // "models/gemini-1.5-pro"
	} `json:"models"`
}

// geminiContents extracts system turns and maps assistant to model. Images go
// to the pre-extraction last user turn.
func geminiContents(turns []models.Turn, attachments []models.Attachment) (*geminiContent, []geminiContent) {
	target := -1
	if len(attachments) > 0 {
		target = conversation.LastUserIndex(turns)
	}

	var system []string
	contents := make([]geminiContent, 0, len(turns))
	for i, t := range turns {
		if t.Role == models.RoleSystem {
			system = append(system, t.Content)
			continue
		}

		parts := make([]geminiPart, 0, 1)
		if strings.TrimSpace(t.Content) != "" {
			parts = append(parts, geminiPart{Text: t.Content})
		}
		if i == target {
			for _, a := range conversation.FilterImages(attachments) {
				parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: a.MIME, Data: a.Data}})
			}
		}

		role := "user"
		if t.Role == models.RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: parts})
	}

	if len(system) == 0 {
		return nil, contents
	}
	return &geminiContent{Role: "user", Parts: []geminiPart{{Text: strings.Join(system, "\n")}}}, contents
}

// Google talks to the Gemini generateContent API.
type Google struct {
	base
}

var googleRanking = ranking{
	exact:    []string{"gemini-2.5-pro", "gemini-2.0-pro", "gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash"},
	families: []*regexp.Regexp{regexp.MustCompile(`^gemini-`)},
}

// NewGoogle returns the Google Gemini adapter.
func NewGoogle(opts Options) *Google {
	opts = opts.withDefaults(models.ProviderGoogle)
	a := &Google{base: base{id: models.ProviderGoogle, name: "Google", opts: opts}}
	a.resolver = newResolver(models.ProviderGoogle, opts, a.listModels, googleRanking)
	return a
}

// headers authenticates with x-goog-api-key so keys never appear in URLs.
func (a *Google) headers(apiKey string) map[string]string {
	h := map[string]string{"x-goog-api-key": apiKey}
	for k, v := range a.opts.Endpoint.Headers {
		h[k] = v
	}
	return h
}

func (a *Google) listModels(ctx context.Context, apiKey string) ([]string, error) {
	var list geminiModelList
	if err := doJSON(ctx, a.opts.HTTPClient, http.MethodGet, a.opts.Endpoint.BaseURL+"/models?pageSize=1000", a.headers(apiKey), nil, &list); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		name := m.Name[strings.LastIndex(m.Name, "/")+1:]
		if name != "" {
			ids = append(ids, name)
		}
	}
	return ids, nil
}

// Call implements [Adapter].
func (a *Google) Call(ctx context.Context, turns []models.Turn, apiKey, model string, attachments []models.Attachment) models.Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.opts.GenerationTimeout)
	defer cancel()

	system, contents := geminiContents(turns, attachments)
	req := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     a.opts.Generation.Temperature,
			TopP:            a.opts.Generation.TopP,
			MaxOutputTokens: a.opts.Generation.MaxTokens,
		},
		SystemInstruction: system,
	}

	var resp geminiResponse
	endpoint := a.opts.Endpoint.BaseURL + "/models/" + url.PathEscape(strings.TrimPrefix(model, "models/")) + ":generateContent"
	if err := doJSON(ctx, a.opts.HTTPClient, http.MethodPost, endpoint, a.headers(apiKey), req, &resp); err != nil {
		return a.failure(model, start, err)
	}

	var texts []string
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
	}
	return a.success(model, start, strings.Join(texts, "\n"))
}
