package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gridbill/gridbill/internal/model"
	"github.com/gridbill/gridbill/internal/util"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI models. It also
// backs the ollama provider, which serves the same chat completion API.
type OpenAIProvider struct {
	client *openai.Client
	config Config
	name   string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy),
		},
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		name:   "openai",
	}, nil
}

// NewOllamaProvider creates a provider for a local Ollama server, reached
// through its OpenAI-compatible endpoint under /v1.
func NewOllamaProvider(config Config) (*OpenAIProvider, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434/v1"
	}
	if config.APIKey == "" {
		config.APIKey = "ollama" // the server ignores it, the client requires one
	}

	provider, err := NewOpenAIProvider(config)
	if err != nil {
		return nil, err
	}
	provider.name = "ollama"
	return provider, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	// Simple check: try to list models (lightweight API call)
	_, err := p.client.ListModels(ctx)
	if err != nil {
		// Log the actual error for debugging (this helps users diagnose API key issues)
		fmt.Fprintf(os.Stderr, "%s API check failed: %v\n", p.name, err)
		return false
	}
	return true
}

// Fill resolves the requested fields using the Chat Completions API
func (p *OpenAIProvider) Fill(ctx context.Context, req FillRequest) (*FillResponse, error) {
	// Determine model
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = openai.GPT4oMini // Default to gpt-4o-mini
	}

	// Determine max tokens
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 800
	}

	// Create timeout context
	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Make API call
	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a careful invoice reader. You only report values stated in the provided text, as JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(req.Text, req.Fields),
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.1, // Low temperature for faithful transcription
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.name)
	}

	values, err := decodeValues(resp.Choices[0].Message.Content, req.Fields)
	if err != nil {
		return nil, err
	}

	return &FillResponse{
		Values:     values,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// decodeValues parses the model output into field values. Only requested
// fields survive; everything else the model volunteered is dropped.
func decodeValues(content string, fields []model.Field) (map[model.Field]string, error) {
	raw := jsonObject(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}

	requested := make(map[model.Field]bool, len(fields))
	for _, f := range fields {
		requested[f] = true
	}

	values := make(map[model.Field]string)
	for name, v := range payload {
		f := model.Field(strings.ToLower(strings.TrimSpace(name)))
		if !requested[f] {
			continue
		}
		s := stringValue(v)
		if s == "" {
			continue
		}
		values[f] = s
	}
	return values, nil
}

// jsonObject isolates the first JSON object in the model output, tolerating
// markdown fences and prose around it.
func jsonObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

// stringValue renders a decoded JSON value as a raw field string. Models
// sometimes answer with bare numbers; anything else is rejected.
func stringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
