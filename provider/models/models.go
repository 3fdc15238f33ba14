package models

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params are per-call decoding parameters. Zero values fall back to the client defaults.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
}
