package ai

import "context"

// Insight is the optional enrichment attached to an incoming message.
// CleanedContent falls back to the raw content when analysis fails.
type Insight struct {
	CleanedContent string `json:"cleaned_content"`
	Summary        string `json:"summary,omitempty"`
	Urgency        string `json:"urgency,omitempty"`
	Category       string `json:"category,omitempty"`
}

// InsightService is the interface for message analysis providers.
// Implement this interface to add new AI providers (Ollama, Gemini, OpenAI, etc.)
type InsightService interface {
	AnalyzeMessage(ctx context.Context, content string) (*Insight, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderOllama ProviderType = "ollama"
	ProviderNone   ProviderType = "none"
)
