// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// DebugObserver provides detailed step-by-step debugging of the
// anonymization, scan and chat pipelines
type DebugObserver struct {
	*StandardObserver
	indent int
}

// NewDebugObserver creates a debug observer with step-by-step logging
func NewDebugObserver(writer io.Writer) *DebugObserver {
	return &DebugObserver{
		StandardObserver: NewStandardObserver(ObservabilityDebug, writer),
		indent:           0,
	}
}

// StartStep begins a processing step with indentation. The returned
// completion function prints the human-readable outcome line and then
// emits the matching operation record.
func (d *DebugObserver) StartStep(component, step, source string) func(success bool, details string) {
	start := time.Now()
	indentStr := strings.Repeat("  ", d.indent)

	fmt.Fprintf(d.writer, "%s🔄 %s: %s (%s)\n", indentStr, component, step, source)
	d.indent++

	return func(success bool, details string) {
		d.indent--
		duration := time.Since(start)
		indentStr := strings.Repeat("  ", d.indent)

		if success {
			fmt.Fprintf(d.writer, "%s✅ %s: %s completed (%dms) %s\n",
				indentStr, component, step, duration.Milliseconds(), details)
		} else {
			fmt.Fprintf(d.writer, "%s❌ %s: %s failed (%dms) %s\n",
				indentStr, component, step, duration.Milliseconds(), details)
		}

		d.LogOperation(OperationRecord{
			Component:  component,
			Operation:  step,
			Source:     source,
			DurationMs: duration.Milliseconds(),
			Success:    success,
			Details:    details,
		})
	}
}

// LogDetail logs a detail within the current step
func (d *DebugObserver) LogDetail(component, detail string) {
	indentStr := strings.Repeat("  ", d.indent)
	fmt.Fprintf(d.writer, "%s   → %s: %s\n", indentStr, component, detail)
}

// LogMetric logs a metric value
func (d *DebugObserver) LogMetric(component, metric string, value interface{}) {
	indentStr := strings.Repeat("  ", d.indent)
	fmt.Fprintf(d.writer, "%s   📊 %s: %s = %v\n", indentStr, component, metric, value)
}
