package models

// Role identifies who authored a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the three known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Turn represents a single chat message
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Attachment is an inline base64 image sent along with the last user turn
type Attachment struct {
	MIME string `json:"mime" validate:"required"`
	Data string `json:"data" validate:"required"`
}

// ProviderConfig carries the caller's credentials for one provider
type ProviderConfig struct {
	APIKey string `json:"apiKey"`
	Model  string `json:"model,omitempty"` // empty means auto-resolve
}

// ChatRequest represents an incoming /api/chat request body
type ChatRequest struct {
	Messages    any                       `json:"messages"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Attachments any                       `json:"attachments"` // non-arrays mean no attachments
	Stream      bool                      `json:"stream,omitempty"`
}

// DispatchRequest is the normalized form of a ChatRequest
type DispatchRequest struct {
	Turns       []Turn
	Providers   map[ProviderID]ProviderConfig
	Attachments []Attachment
}

// ValidateRequest represents an incoming /api/validate request body
type ValidateRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
}
