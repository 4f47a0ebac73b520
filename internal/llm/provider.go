package llm

import (
	"context"
	"fmt"

	"github.com/gridbill/gridbill/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Fill resolves the requested fields from the invoice text
	Fill(ctx context.Context, req FillRequest) (*FillResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// FillRequest contains the input for one LLM fill call
type FillRequest struct {
	// Text is the full extracted invoice text
	Text string

	// Fields is the STRICT allowlist of fields the LLM may answer for.
	// Values for any other field are discarded, and every accepted value is
	// re-parsed under the same rules the matchers use.
	Fields []model.Field

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// FillResponse contains the LLM's field values
type FillResponse struct {
	// Values maps requested fields to their raw string values
	Values map[model.Field]string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   30,
		MaxTokens: 800,
	}
}

// BuildPrompt constructs the fill prompt. The model sees the invoice text and
// the exact fields it may answer for; anything outside the list is discarded
// by the caller.
func BuildPrompt(text string, fields []model.Field) string {
	prompt := fmt.Sprintf(`You are reading a utility invoice. The rule-based extractor could not resolve some fields; answer for those and nothing else.

CRITICAL RULES:
1. Answer ONLY for these fields:
%s

2. Respond with a single JSON object mapping field names to string values.
3. Report values exactly as the invoice states them. DO NOT compute, infer or combine.
4. Omit a field entirely if the invoice does not state it. Never guess.
5. No prose, no markdown, JSON only.

Invoice text:
%s`, joinFields(fields), text)

	return prompt
}

// Helper functions

func joinFields(fields []model.Field) string {
	if len(fields) == 0 {
		return "(no fields requested)"
	}
	result := ""
	for _, f := range fields {
		result += fmt.Sprintf("\n- %s: %s", f, kindHint(f.Kind()))
	}
	return result
}

func kindHint(k model.Kind) string {
	switch k {
	case model.KindAmount:
		return "monetary amount (e.g. 128.45)"
	case model.KindRate:
		return "per-unit rate (e.g. 0.8250)"
	case model.KindDate:
		return "calendar date"
	case model.KindPeriod:
		return "billing month (e.g. 07/2024)"
	case model.KindReading:
		return "meter reading"
	case model.KindCount:
		return "whole number of units"
	default:
		return "text exactly as printed"
	}
}
