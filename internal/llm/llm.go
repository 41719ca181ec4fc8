// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package llm is the boundary to the local inference server. Chat code
// depends only on the Generator interface; the Ollama-compatible HTTP
// client lives behind it.
package llm

import "context"

// Options controls a single generation call.
type Options struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	TopK        int
	Stop        []string
}

// DefaultOptions mirrors the tuning the assistant was calibrated with.
// The stop markers keep a model from rambling past its answer or opening
// a code fence mid-response.
func DefaultOptions() Options {
	return Options{
		MaxTokens:   1024,
		Temperature: 0.7,
		TopP:        0.9,
		TopK:        40,
		Stop:        []string{"<end_of_turn>model\n", "```", "END_OF_RESPONSE"},
	}
}

// Generator produces a completion for a fully assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}
