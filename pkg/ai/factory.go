package ai

import "fmt"

// NewInsightService builds the configured provider. ProviderNone returns a
// nil service; callers treat a nil service as "no enrichment".
func NewInsightService(provider ProviderType, ollamaBaseURL, ollamaModel string) (InsightService, error) {
	switch provider {
	case ProviderOllama:
		return NewOllamaService(ollamaBaseURL, ollamaModel), nil
	case ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %s", provider)
	}
}
