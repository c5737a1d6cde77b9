package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaService analyzes messages with a local Ollama instance
type OllamaService struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaService(baseURL, model string) *OllamaService {
	return &OllamaService{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

const analyzePrompt = `Analyze the following message. Respond with JSON only, using keys
"summary" (one sentence), "urgency" (low|normal|high) and "category"
(personal|work|promotional|notification|other).

Message:
%s`

// AnalyzeMessage asks the model for a summary/urgency/category verdict.
// The original content is always returned as CleanedContent so callers can
// persist it unchanged if anything downstream fails.
func (s *OllamaService) AnalyzeMessage(ctx context.Context, content string) (*Insight, error) {
	trimmed := content
	if len(trimmed) > 4000 {
		trimmed = trimmed[:4000]
	}

	reqBody, err := json.Marshal(ollamaRequest{
		Model:  s.model,
		Prompt: fmt.Sprintf(analyzePrompt, trimmed),
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}

	var parsed struct {
		Summary  string `json:"summary"`
		Urgency  string `json:"urgency"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(ollamaResp.Response), &parsed); err != nil {
		return nil, fmt.Errorf("model returned non-JSON analysis: %w", err)
	}

	return &Insight{
		CleanedContent: strings.TrimSpace(content),
		Summary:        parsed.Summary,
		Urgency:        normalizeUrgency(parsed.Urgency),
		Category:       parsed.Category,
	}, nil
}

func normalizeUrgency(u string) string {
	switch strings.ToLower(strings.TrimSpace(u)) {
	case "high":
		return "high"
	case "low":
		return "low"
	default:
		return "normal"
	}
}
