package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gridbill/gridbill/internal/model"
	"github.com/sashabaranov/go-openai"
)

// chatServer fakes the Chat Completions API, answering every request with
// the given message content.
func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}

		resp := openai.ChatCompletionResponse{
			ID:      "chatcmpl-123",
			Object:  "chat.completion",
			Created: 1677652288,
			Model:   "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Index: 0,
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: content,
					},
					FinishReason: "stop",
				},
			},
			Usage: openai.Usage{
				TotalTokens: 100,
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIProvider_Fill_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		resp := openai.ChatCompletionResponse{
			ID:     "chatcmpl-123",
			Object: "chat.completion",
			Model:  "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Index: 0,
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: `{"tax": "19.45", "grand_total": "128.45"}`,
					},
					FinishReason: "stop",
				},
			},
			Usage: openai.Usage{TotalTokens: 100},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	config := Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4o-mini",
		Timeout: 5,
	}
	provider, err := NewOpenAIProvider(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	req := FillRequest{
		Text:   "VAT: 19.45\nGrand Total: 128.45",
		Fields: []model.Field{model.FieldTax, model.FieldGrandTotal},
	}

	resp, err := provider.Fill(context.Background(), req)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	if resp.Values[model.FieldTax] != "19.45" {
		t.Errorf("Unexpected tax value: %q", resp.Values[model.FieldTax])
	}
	if resp.Values[model.FieldGrandTotal] != "128.45" {
		t.Errorf("Unexpected grand total value: %q", resp.Values[model.FieldGrandTotal])
	}
	if resp.Model != "gpt-4o-mini" {
		t.Errorf("Unexpected model: %s", resp.Model)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("Unexpected token count: %d", resp.TokensUsed)
	}
}

func TestOpenAIProvider_Fill_MarkdownFences(t *testing.T) {
	server := chatServer(t, "```json\n{\"tax\": \"19.45\"}\n```")
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Fill(context.Background(), FillRequest{
		Text:   "VAT: 19.45",
		Fields: []model.Field{model.FieldTax},
	})
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	if resp.Values[model.FieldTax] != "19.45" {
		t.Errorf("Expected fenced JSON to decode, got %v", resp.Values)
	}
}

func TestOpenAIProvider_Fill_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "Internal Server Error", "type": "server_error"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Fill(context.Background(), FillRequest{Text: "x"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestOpenAIProvider_Fill_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit exceeded", "type": "rate_limit_error"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Fill(context.Background(), FillRequest{Text: "x"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestOpenAIProvider_Fill_NoJSON(t *testing.T) {
	server := chatServer(t, "I could not find any of the requested fields.")
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Fill(context.Background(), FillRequest{
		Text:   "x",
		Fields: []model.Field{model.FieldTax},
	})
	if err == nil {
		t.Fatal("Expected error for prose response, got nil")
	}
}

func TestOpenAIProvider_Fill_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = provider.Fill(ctx, FillRequest{Text: "x"})
	if err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o-mini"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	// Test failure
	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(Config{})
	if err == nil {
		t.Fatal("Expected error without API key")
	}
}

func TestNewOllamaProvider(t *testing.T) {
	_, err := NewOllamaProvider(Config{})
	if err == nil {
		t.Fatal("Expected error when model is missing")
	}

	provider, err := NewOllamaProvider(Config{Model: "llama3.1:8b"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	if provider.Name() != "ollama" {
		t.Errorf("Expected name ollama, got %s", provider.Name())
	}
	if provider.config.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("Unexpected base URL: %s", provider.config.BaseURL)
	}
}

func TestOllamaProvider_Fill(t *testing.T) {
	server := chatServer(t, `{"tax": "19.45"}`)
	defer server.Close()

	provider, err := NewOllamaProvider(Config{Model: "llama3.1:8b", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Fill(context.Background(), FillRequest{
		Text:   "VAT: 19.45",
		Fields: []model.Field{model.FieldTax},
	})
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	if resp.Values[model.FieldTax] != "19.45" {
		t.Errorf("Unexpected values: %v", resp.Values)
	}
	if resp.Model != "llama3.1:8b" {
		t.Errorf("Expected configured model, got %s", resp.Model)
	}
}

func TestDecodeValues(t *testing.T) {
	fields := []model.Field{model.FieldTax, model.FieldGrandTotal, model.FieldSubtotal}
	content := "```json\n{\"Tax\": \" 19.45\", \"grand_total\": 128.45, \"subtotal\": null, \"invoice_number\": \"INV-9\"}\n```"

	values, err := decodeValues(content, fields)
	if err != nil {
		t.Fatalf("decodeValues failed: %v", err)
	}

	if values[model.FieldTax] != "19.45" {
		t.Errorf("Expected trimmed, lowercased key match, got %v", values)
	}
	if values[model.FieldGrandTotal] != "128.45" {
		t.Errorf("Expected bare number kept verbatim, got %v", values)
	}
	if len(values) != 2 {
		t.Errorf("Expected null and unrequested entries dropped, got %v", values)
	}
}

func TestDecodeValues_Malformed(t *testing.T) {
	if _, err := decodeValues("{malformed}", nil); err == nil {
		t.Fatal("Expected error for malformed JSON")
	}

	if _, err := decodeValues("no object here", nil); err == nil {
		t.Fatal("Expected error without a JSON object")
	}
}
