package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultOpenAIEndpoint is the chat completions URL used when none is configured.
const DefaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4"

type openAIProvider struct {
	apiKey     string
	model      string
	endpoint   string
	options    map[string]interface{}
	httpClient *http.Client
}

func newOpenAIProvider(_ context.Context, s Settings) (Provider, error) {
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultOpenAIEndpoint
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &openAIProvider{
		apiKey:     s.APIKey,
		model:      s.Model,
		endpoint:   endpoint,
		options:    s.Options,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (p *openAIProvider) Name() string { return "openai" }

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete posts a chat completion request.
func (p *openAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	body := map[string]interface{}{}
	for k, v := range p.options {
		body[k] = v
	}
	for k, v := range req.Options {
		body[k] = v
	}
	body["model"] = model
	body["messages"] = req.Messages
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.ResponseFormat != "" {
		body["response_format"] = map[string]string{"type": req.ResponseFormat}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read openai response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode openai response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai response has no choices")
	}

	if parsed.Model != "" {
		model = parsed.Model
	}
	return &Response{
		Content:  parsed.Choices[0].Message.Content,
		Model:    model,
		Provider: p.Name(),
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}
