// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

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

	"studio-analytics/internal/resilience"
)

const (
	// DefaultBaseURL is the standard local Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"
	// DefaultModel is the model the prompts were written against.
	DefaultModel = "gemma3:4b"
	// DefaultTimeout bounds a single generation request. CPU-only
	// machines need generous headroom for long answers.
	DefaultTimeout = 120 * time.Second

	maxErrorBody = 2048
)

// Config holds connection settings for the inference server.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OllamaClient talks to an Ollama-compatible /api/generate endpoint.
// Transient failures are retried with backoff; repeated failures open a
// circuit breaker so a dead backend fails fast instead of stalling every
// chat turn.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// NewOllamaClient builds a client, filling zero config fields with
// defaults.
func NewOllamaClient(cfg Config) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
		retry:   resilience.LLMRetryConfig(),
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("llm")),
	}
}

// Model reports the configured model name.
func (c *OllamaClient) Model() string { return c.model }

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// Generate requests a completion and returns the trimmed response text.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
			TopK:        opts.TopK,
			Stop:        opts.Stop,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding generate request: %w", err)
	}

	var text string
	err = resilience.RetryWithCircuitBreaker(ctx, c.retry, c.breaker, func(ctx context.Context) error {
		var opErr error
		text, opErr = c.generateOnce(ctx, body)
		return opErr
	})
	return text, err
}

func (c *OllamaClient) generateOnce(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling inference server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("inference server returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding generate response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("inference server error: %s", out.Error)
	}
	return strings.TrimSpace(out.Response), nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Ping verifies the server is reachable and reports whether the
// configured model is installed.
func (c *OllamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("inference server unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference server returned status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("decoding model list: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == c.model || strings.TrimSuffix(m.Name, ":latest") == c.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not found on server; pull it first", c.model)
}
