// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package json

import (
	"encoding/json"
	"fmt"

	"studio-analytics/internal/formatters"
	"studio-analytics/internal/formatters/shared"
)

// Formatter implements JSON output formatting
type Formatter struct{}

// NewFormatter creates a new JSON formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "json"
}

func (f *Formatter) Description() string {
	return "Structured JSON output for programmatic consumption"
}

func (f *Formatter) FileExtension() string {
	return ".json"
}

func (f *Formatter) Format(report *formatters.Report, options formatters.Options) (string, error) {
	filtered := shared.ApplyFilter(report, options)

	jsonData, err := json.MarshalIndent(filtered, "", "  ")
	if err != nil {
		return "", fmt.Errorf("formatting JSON: %w", err)
	}
	return string(jsonData), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
