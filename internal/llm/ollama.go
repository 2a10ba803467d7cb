package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaProvider generates text with a locally hosted Ollama model.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// NewOllamaProvider creates a provider for model served at baseURL.
func NewOllamaProvider(baseURL, model string, timeout time.Duration, logger *zap.Logger) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("ollama"),
	}
}

// Ollama API structures
type GenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	System  string                 `json:"system,omitempty"`
	Stream  bool                   `json:"stream"`
	Format  string                 `json:"format,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type GenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

func (p *OllamaProvider) Name() string { return "ollama" }

// Complete implements Provider.
func (p *OllamaProvider) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	reqBody := GenerateRequest{
		Model:  p.model,
		Prompt: prompt,
		System: params.System,
		Options: map[string]interface{}{
			"temperature": params.Temperature,
		},
	}
	if params.MaxTokens > 0 {
		reqBody.Options["num_predict"] = params.MaxTokens
	}
	if params.JSON {
		reqBody.Format = "json"
	}

	var result GenerateResponse
	if err := postJSON(ctx, p.client, p.baseURL+"/api/generate", reqBody, &result); err != nil {
		return "", fmt.Errorf("ollama generate failed: %w", err)
	}
	if strings.TrimSpace(result.Response) == "" {
		return "", ErrEmptyResponse
	}

	p.logger.Debug("generation finished",
		zap.String("model", result.Model),
		zap.Int("eval_count", result.EvalCount))
	return result.Response, nil
}

// HealthCheck verifies the Ollama service is reachable.
func (p *OllamaProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check failed with status %d", resp.StatusCode)
	}
	return nil
}

// OllamaEmbedder produces embeddings with an Ollama embedding model.
type OllamaEmbedder struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaEmbedder(baseURL, model string, timeout time.Duration) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed implements Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var result embeddingResponse
	if err := postJSON(ctx, e.client, e.baseURL+"/api/embeddings", embeddingRequest{Model: e.model, Prompt: text}, &result); err != nil {
		return nil, fmt.Errorf("ollama embedding failed: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, ErrEmptyResponse
	}
	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

func postJSON(ctx context.Context, client *http.Client, url string, in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
