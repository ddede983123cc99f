// Package provider adapts the canonical conversation to each upstream LLM API.
//
// Every adapter resolves a model for an API key when none is pinned and turns a
// single generation call into a [models.Result]. Adapters never return errors:
// transport and provider failures become failed results.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/AliZeynalov/keybridge/internal/models"
)

//go:generate mockgen -source=provider.go -destination=providermock/mock_adapter.go -package=providermock

// Adapter is the capability the dispatcher is written against.
type Adapter interface {
	// ID returns the provider identifier used in requests and results.
	ID() models.ProviderID
	// DisplayName is the human readable provider name used in error messages.
	DisplayName() string
	// ResolveModel picks a model for apiKey. It never fails; discovery errors
	// fall back to the provider default.
	ResolveModel(ctx context.Context, apiKey string) string
	// ValidateKey runs model discovery without the fallback so callers can
	// tell a working key from a broken one.
	ValidateKey(ctx context.Context, apiKey string) (string, error)
	// Call sends the conversation to the provider and reports the outcome.
	Call(ctx context.Context, turns []models.Turn, apiKey, model string, attachments []models.Attachment) models.Result
}

const (
	DefaultDiscoveryTimeout  = 12 * time.Second
	DefaultGenerationTimeout = 60 * time.Second
)

// GenerationParams are the sampling settings sent with every call.
type GenerationParams struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// DefaultGeneration mirrors the settings the web client was tuned against.
var DefaultGeneration = GenerationParams{Temperature: 0.2, MaxTokens: 1024, TopP: 0.95}

// Endpoint describes where a provider lives and what it falls back to.
type Endpoint struct {
	BaseURL      string
	DefaultModel string
	Headers      map[string]string
}

// Options configure an adapter. Zero values are replaced with defaults.
type Options struct {
	HTTPClient        *http.Client
	Cache             *ModelCache
	DiscoveryTimeout  time.Duration
	GenerationTimeout time.Duration
	Generation        GenerationParams
	Endpoint          Endpoint
}

func (o Options) withDefaults(id models.ProviderID) Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	if o.Cache == nil {
		o.Cache = NewModelCache(0)
	}
	if o.DiscoveryTimeout <= 0 {
		o.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if o.GenerationTimeout <= 0 {
		o.GenerationTimeout = DefaultGenerationTimeout
	}
	if o.Generation == (GenerationParams{}) {
		o.Generation = DefaultGeneration
	}
	def := defaultEndpoints[id]
	if o.Endpoint.BaseURL == "" {
		o.Endpoint.BaseURL = def.BaseURL
	}
	if o.Endpoint.DefaultModel == "" {
		o.Endpoint.DefaultModel = def.DefaultModel
	}
	if o.Endpoint.Headers == nil {
		o.Endpoint.Headers = def.Headers
	}
	return o
}

var defaultEndpoints = map[models.ProviderID]Endpoint{
	models.ProviderOpenAI: {
		BaseURL:      "https://api.openai.com/v1",
		DefaultModel: "gpt-4o",
	},
	models.ProviderAnthropic: {
		BaseURL:      "https://api.anthropic.com/v1",
		DefaultModel: "claude-3-5-sonnet-20240620",
	},
	models.ProviderGoogle: {
		BaseURL:      "https://generativelanguage.googleapis.com/v1beta",
		DefaultModel: "gemini-1.5-pro",
	},
	models.ProviderXAI: {
		BaseURL:      "https://api.x.ai/v1",
		DefaultModel: "grok-2",
	},
	models.ProviderOpenRouter: {
		BaseURL:      "https://openrouter.ai/api/v1",
		DefaultModel: "openai/gpt-4o",
		Headers: map[string]string{
			"X-Title":      "KeyBridge",
			"HTTP-Referer": "http://localhost:5173",
		},
	},
}

// DefaultEndpoint returns the built-in endpoint for id.
func DefaultEndpoint(id models.ProviderID) Endpoint {
	return defaultEndpoints[id]
}

// base holds what every adapter shares: identity, options and the resolver.
type base struct {
	id       models.ProviderID
	name     string
	opts     Options
	resolver *resolver
}

func (b *base) ID() models.ProviderID { return b.id }

func (b *base) DisplayName() string { return b.name }

func (b *base) ResolveModel(ctx context.Context, apiKey string) string {
	return b.resolver.resolve(ctx, apiKey)
}

func (b *base) ValidateKey(ctx context.Context, apiKey string) (string, error) {
	return b.resolver.validate(ctx, apiKey)
}

func (b *base) success(model string, start time.Time, text string) models.Result {
	return models.Result{OK: true, Provider: b.id, Model: model, Text: text, Ms: time.Since(start).Milliseconds()}
}

func (b *base) failure(model string, start time.Time, err error) models.Result {
	return models.Result{OK: false, Provider: b.id, Model: model, Error: err.Error(), Ms: time.Since(start).Milliseconds()}
}

// RedactKey shortens an API key to something safe to log.
func RedactKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "******"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
