package models

import json "github.com/goccy/go-json"

// ProviderID names one of the supported upstream LLM services
type ProviderID string

const (
	ProviderOpenAI     ProviderID = "openai"
	ProviderAnthropic  ProviderID = "anthropic"
	ProviderGoogle     ProviderID = "google"
	ProviderXAI        ProviderID = "xai"
	ProviderOpenRouter ProviderID = "openrouter"
)

// AllProviders lists every supported provider in dispatch order
var AllProviders = []ProviderID{
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderGoogle,
	ProviderXAI,
	ProviderOpenRouter,
}

// Known reports whether id is a supported provider
func (id ProviderID) Known() bool {
	for _, p := range AllProviders {
		if p == id {
			return true
		}
	}
	return false
}

// Result is the uniform outcome of one provider call.
//
// A terminal result carries Text when OK and Error otherwise. Partial results
// are interim observations that a later result for the same provider supersedes.
type Result struct {
	OK       bool       `json:"ok"`
	Provider ProviderID `json:"provider"`
	Model    string     `json:"model"`
	Text     string     `json:"text,omitempty"`
	Error    string     `json:"error,omitempty"`
	Ms       int64      `json:"ms"`
	Partial  bool       `json:"partial,omitempty"`
}

// Terminal reports whether r is the final frame for its provider
func (r Result) Terminal() bool {
	return !r.Partial || !r.OK
}

// MarshalJSON keeps text present on successful terminal results even when empty,
// so consumers always see exactly one of text or error.
func (r Result) MarshalJSON() ([]byte, error) {
	type wire struct {
		OK       bool       `json:"ok"`
		Provider ProviderID `json:"provider"`
		Model    string     `json:"model"`
		Text     *string    `json:"text,omitempty"`
		Error    *string    `json:"error,omitempty"`
		Ms       int64      `json:"ms"`
		Partial  bool       `json:"partial,omitempty"`
	}
	w := wire{OK: r.OK, Provider: r.Provider, Model: r.Model, Ms: r.Ms, Partial: r.Partial && r.OK}
	switch {
	case !r.OK:
		w.Error = &r.Error
	case !r.Partial || r.Text != "":
		w.Text = &r.Text
	}
	return json.Marshal(w)
}

// Response is the non-streaming /api/chat body
type Response struct {
	Results []Result `json:"results"`
}

// FrameTypeResult is the only frame type the relay emits
const FrameTypeResult = "result"

// Frame is one newline-delimited unit of a streamed response
type Frame struct {
	Type   string `json:"type"`
	Result Result `json:"result"`
}

// ValidateResponse is the /api/validate body
type ValidateResponse struct {
	OK       bool       `json:"ok"`
	Provider ProviderID `json:"provider"`
	Model    string     `json:"model,omitempty"`
	Error    string     `json:"error,omitempty"`
}
