// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// StandardObserver writes machine-readable operation records as JSON
// lines. DebugObserver layers human-readable output on top of it; a
// level of ObservabilityOff silences the records without changing any
// call sites.
type StandardObserver struct {
	level  ObservabilityLevel
	writer io.Writer
	seq    uint64
}

type ObservabilityLevel int

const (
	ObservabilityOff   ObservabilityLevel = 0
	ObservabilityDebug ObservabilityLevel = 1
)

// NewStandardObserver creates observability component
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	return &StandardObserver{
		level:  level,
		writer: writer,
	}
}

// LogOperation writes one operation record as a JSON line, stamping a
// request ID unique within the process. No-op when the level is off.
func (o *StandardObserver) LogOperation(rec OperationRecord) {
	if o.level == ObservabilityOff {
		return
	}

	rec.RequestID = o.nextRequestID()
	json.NewEncoder(o.writer).Encode(rec)
}

func (o *StandardObserver) nextRequestID() string {
	n := atomic.AddUint64(&o.seq, 1)
	return fmt.Sprintf("req-%s-%d", time.Now().Format("20060102-150405"), n)
}

// OperationRecord is the machine-readable trace of one pipeline step:
// which component ran, over which source, how long it took and how it
// ended. Written after the human-readable completion line so scripts
// can parse debug runs.
type OperationRecord struct {
	Component  string `json:"component"`
	Operation  string `json:"operation"`
	RequestID  string `json:"request_id"`
	Source     string `json:"source,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Success    bool   `json:"success"`
	Details    string `json:"details,omitempty"`
}
