// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-analytics/internal/resilience"
)

// fastRetry keeps backoff sleeps out of unit tests.
func fastRetry() resilience.RetryConfig {
	cfg := resilience.LLMRetryConfig()
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 2 * time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestGenerate_Success(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// assert, not require: the handler runs outside the test goroutine.
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{"response": "  The busiest day is Monday.\n", "done": true})
	}))
	defer srv.Close()

	c := NewOllamaClient(Config{BaseURL: srv.URL, Model: "test-model"})
	c.retry = fastRetry()

	got, err := c.Generate(context.Background(), "Which day is busiest?", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "The busiest day is Monday.", got)

	assert.Equal(t, "test-model", gotReq.Model)
	assert.False(t, gotReq.Stream)
	assert.Equal(t, 1024, gotReq.Options.NumPredict)
	assert.Equal(t, 40, gotReq.Options.TopK)
	assert.NotEmpty(t, gotReq.Options.Stop, "stop markers missing from request")
}

func TestGenerate_ServerReportsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "model 'nope' not found"})
	}))
	defer srv.Close()

	c := NewOllamaClient(Config{BaseURL: srv.URL, Model: "nope"})
	c.retry = fastRetry()

	_, err := c.Generate(context.Background(), "hi", DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inference server error")
}

func TestGenerate_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"response": "ok", "done": true})
	}))
	defer srv.Close()

	c := NewOllamaClient(Config{BaseURL: srv.URL})
	c.retry = fastRetry()

	got, err := c.Generate(context.Background(), "hi", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.EqualValues(t, 3, hits.Load(), "two failures then success")
}

func TestGenerate_DoesNotRetryNotFound(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, `model "missing" not found`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaClient(Config{BaseURL: srv.URL, Model: "missing"})
	c.retry = fastRetry()

	_, err := c.Generate(context.Background(), "hi", DefaultOptions())
	require.Error(t, err)
	assert.EqualValues(t, 1, hits.Load(), "no retries for a missing model")
}

func TestGenerate_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOllamaClient(Config{BaseURL: srv.URL})
	c.retry = fastRetry()

	ctx := context.Background()
	c.Generate(ctx, "one", DefaultOptions())
	c.Generate(ctx, "two", DefaultOptions())

	before := hits.Load()
	_, err := c.Generate(ctx, "three", DefaultOptions())
	require.True(t, resilience.IsCircuitBreakerError(err), "err = %v, want circuit breaker error", err)
	assert.Equal(t, before, hits.Load(), "open circuit still reached the server")
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{{"name": "gemma3:4b"}, {"name": "llama3:latest"}},
		})
	}))
	defer srv.Close()

	installed := NewOllamaClient(Config{BaseURL: srv.URL, Model: "gemma3:4b"})
	assert.NoError(t, installed.Ping(context.Background()))

	tagged := NewOllamaClient(Config{BaseURL: srv.URL, Model: "llama3"})
	assert.NoError(t, tagged.Ping(context.Background()), "latest-tagged model should match bare name")

	missing := NewOllamaClient(Config{BaseURL: srv.URL, Model: "vicuna"})
	err := missing.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found on server")
}

func TestPing_Unreachable(t *testing.T) {
	c := NewOllamaClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	require.Error(t, c.Ping(context.Background()))
}

func TestNewOllamaClient_Defaults(t *testing.T) {
	c := NewOllamaClient(Config{})
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultTimeout, c.client.Timeout)
}
