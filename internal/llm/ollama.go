package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaConfig holds configuration for local inference via Ollama.
type OllamaConfig struct {
	BaseURL        string        // default: http://localhost:11434
	Model          string        // default: qwen2.5:7b
	EmbeddingModel string        // default: nomic-embed-text
	Timeout        time.Duration // default: 120s, local models are slow
}

func (cfg *OllamaConfig) applyDefaults() {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "qwen2.5:7b"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
}

// OllamaClient implements both TextGenerator and EmbeddingGenerator against a
// local Ollama server.
type OllamaClient struct {
	cfg     OllamaConfig
	client  *http.Client
	breaker *CircuitBreaker
}

// NewOllamaClient creates an Ollama client.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	cfg.applyDefaults()
	return &OllamaClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: NewCircuitBreaker("ollama"),
	}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// The embeddings field is a 2D array; a single input yields one row.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Complete sends a non-streaming generate request and returns the reply text.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.breaker.Execute(ctx, func() (any, error) {
		var resp ollamaGenerateResponse
		err := c.post(ctx, "/api/generate", ollamaGenerateRequest{
			Model:  c.cfg.Model,
			Prompt: prompt,
			Stream: false,
		}, &resp)
		if err != nil {
			return nil, err
		}
		return resp.Response, nil
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return "", fmt.Errorf("ollama: %w", err)
		}
		return "", err
	}
	return result.(string), nil
}

// Embed generates an embedding vector for the given text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := c.breaker.Execute(ctx, func() (any, error) {
		var resp ollamaEmbedResponse
		err := c.post(ctx, "/api/embed", ollamaEmbedRequest{
			Model: c.cfg.EmbeddingModel,
			Input: text,
		}, &resp)
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
			return nil, fmt.Errorf("ollama: empty embedding returned")
		}
		return resp.Embeddings[0], nil
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("ollama: %w", err)
		}
		return nil, err
	}
	return result.([]float32), nil
}

func (c *OllamaClient) post(ctx context.Context, path string, reqBody, respBody any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ollama: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama: status %d: %s", resp.StatusCode, string(msg))
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("ollama: failed to decode response: %w", err)
	}
	return nil
}

// GetModel returns the configured completion model name.
func (c *OllamaClient) GetModel() string { return c.cfg.Model }

var (
	_ TextGenerator      = (*OllamaClient)(nil)
	_ EmbeddingGenerator = (*OllamaClient)(nil)
)
