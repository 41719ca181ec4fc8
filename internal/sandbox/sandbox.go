// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package sandbox validates and executes model-generated query code against
// an in-memory dataset. Code is parsed with the standard toolchain's AST,
// checked against an allow-list of node kinds and names, and interpreted
// directly; nothing in the snippet can reach the filesystem, the network,
// or any binding that was not injected.
//
// Every failure mode is a value, never a panic or an error that escapes:
// rejected syntax, oversized datasets, timeouts, and runtime faults all
// come back as a Result the chat flow can degrade on.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"studio-analytics/internal/dataset"
)

const (
	// DefaultTimeout bounds one execution's wall-clock time.
	DefaultTimeout = 4 * time.Second
	// DefaultMaxRows rejects oversized datasets before any execution.
	DefaultMaxRows = 250000
	// DefaultMaxCodeBytes bounds generated snippets before parsing.
	DefaultMaxCodeBytes = 4000

	historyLimit = 200
)

// Options configures an Executor. Zero values fall back to the defaults.
type Options struct {
	Timeout      time.Duration
	MaxRows      int
	MaxCodeBytes int
}

// Result is the outcome of one execution attempt.
type Result struct {
	OK    bool
	Value any
	Err   string
}

// HistoryEntry records one execution attempt for audit and debugging.
type HistoryEntry struct {
	Code    string
	OK      bool
	Outcome string
}

// Executor runs generated code against a private copy of a dataset.
type Executor struct {
	frame    *dataset.Frame
	timeout  time.Duration
	maxRows  int
	maxCode  int

	mu      sync.Mutex
	history []HistoryEntry
}

// New builds an executor over its own copy of the frame.
func New(f *dataset.Frame, opts Options) *Executor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if opts.MaxCodeBytes <= 0 {
		opts.MaxCodeBytes = DefaultMaxCodeBytes
	}
	return &Executor{
		frame:   f.Clone(),
		timeout: opts.Timeout,
		maxRows: opts.MaxRows,
		maxCode: opts.MaxCodeBytes,
	}
}

// Execute validates and runs one code snippet. The attempt is recorded in
// the history whether or not it succeeds.
func (e *Executor) Execute(ctx context.Context, code string) Result {
	res := e.execute(ctx, code)
	e.record(code, res)
	return res
}

func (e *Executor) execute(ctx context.Context, code string) Result {
	if e.frame.NumRows() > e.maxRows {
		return failure(fmt.Sprintf("Dataset too large for code execution (%d rows > %d limit)",
			e.frame.NumRows(), e.maxRows))
	}

	stmts, err := validate(code, e.maxCode)
	if err != nil {
		return failure(err.Error())
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("runtime fault: %v", r)}
			}
		}()
		v, err := newEvaluator(runCtx, e.frame).run(stmts)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return failure(e.deadlineMessage(ctx, runCtx, out.err.Error()))
		}
		return Result{OK: true, Value: out.value}
	case <-runCtx.Done():
		return failure(e.deadlineMessage(ctx, runCtx, "execution failed without a result"))
	}
}

// deadlineMessage keeps timeout and cancellation reporting consistent no
// matter which side of the select observed them first.
func (e *Executor) deadlineMessage(ctx, runCtx context.Context, fallback string) string {
	if ctx.Err() != nil {
		return "execution cancelled"
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("execution timed out after %.1fs", e.timeout.Seconds())
	}
	return fallback
}

func failure(msg string) Result {
	return Result{Err: msg}
}

// record appends to the bounded history, dropping the oldest entries once
// the cap is reached.
func (e *Executor) record(code string, res Result) {
	entry := HistoryEntry{Code: code, OK: res.OK}
	if res.OK {
		entry.Outcome = FormatValue(res.Value)
	} else {
		entry.Outcome = res.Err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, entry)
	if len(e.history) > historyLimit {
		e.history = e.history[len(e.history)-historyLimit:]
	}
}

// History returns a copy of the recorded execution attempts.
func (e *Executor) History() []HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]HistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}

// Rows reports the size of the executor's private dataset copy.
func (e *Executor) Rows() int {
	return e.frame.NumRows()
}

// FormatValue renders an execution result for prompts, history, and chat
// answers.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "(no value)"
	case float64:
		return formatNumber(v)
	case string:
		return v
	case bool:
		return fmt.Sprintf("%t", v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, FormatValue(item))
		}
		return "[" + joinLimited(parts, 20) + "]"
	case Counts:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, fmt.Sprintf("%s: %d", p.Value, p.Count))
		}
		return joinLimited(parts, 15)
	case *frameHandle:
		return fmt.Sprintf("(dataframe with %d rows)", v.f.NumRows())
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.2f", f)
}

func joinLimited(parts []string, limit int) string {
	if len(parts) > limit {
		rest := len(parts) - limit
		parts = append(parts[:limit], fmt.Sprintf("... and %d more", rest))
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
