package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/config"
)

// DeepSeekProvider calls the DeepSeek chat completions API.
type DeepSeekProvider struct {
	apiKey string
	apiURL string
	model  string
	client *http.Client
	logger *zap.Logger
}

// NewDeepSeekProvider creates a provider from the llm configuration.
func NewDeepSeekProvider(cfg config.LLMConfig, logger *zap.Logger) (*DeepSeekProvider, error) {
	if cfg.DeepSeekAPIKey == "" {
		return nil, fmt.Errorf("deepseek api key must be set")
	}
	apiURL := cfg.DeepSeekURL
	if apiURL == "" {
		apiURL = "https://api.deepseek.com/v1/chat/completions"
	}
	model := cfg.DeepSeekModel
	if model == "" {
		model = "deepseek-chat"
	}
	return &DeepSeekProvider{
		apiKey: cfg.DeepSeekAPIKey,
		apiURL: apiURL,
		model:  model,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("deepseek"),
	}, nil
}

// Message represents a message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents a request to the DeepSeek API
type Request struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *DeepSeekProvider) Name() string { return "deepseek" }

// Complete implements Provider.
func (p *DeepSeekProvider) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	var messages []Message
	if params.System != "" {
		messages = append(messages, Message{Role: "system", Content: params.System})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	reqBody := Request{
		Model:       p.model,
		Messages:    messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	}
	if params.JSON {
		reqBody.ResponseFormat = map[string]string{"type": "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepseek returned status %d: %s", resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	p.logger.Debug("completion finished",
		zap.Int("prompt_tokens", result.Usage.PromptTokens),
		zap.Int("completion_tokens", result.Usage.CompletionTokens))
	return result.Choices[0].Message.Content, nil
}
