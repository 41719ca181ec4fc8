// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package audit writes an append-only JSON-lines trail of privacy-relevant
// events: chat queries and their verdicts, filtered responses, anonymization
// runs, and codebook access. One event per line, each with a timestamp and
// a unique event id.
package audit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"studio-analytics/internal/guard"
	"studio-analytics/internal/paths"
)

// Logger records audit events to a file. A nil *Logger is valid and
// drops every event, so call sites never need their own nil checks.
type Logger struct {
	zl   *zap.Logger
	file *os.File
}

var _ guard.AuditSink = (*Logger)(nil)

// Open appends to the audit log at path, creating it (and its directory)
// owner-only if needed.
func Open(path string) (*Logger, error) {
	if err := paths.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}

	enc := zapcore.EncoderConfig{
		TimeKey:    "ts",
		MessageKey: "event",
		EncodeTime: zapcore.RFC3339TimeEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), zapcore.InfoLevel)
	return &Logger{zl: zap.New(core), file: f}, nil
}

// OpenDefault opens the audit log at its platform location.
func OpenDefault() (*Logger, error) {
	return Open(paths.GetAuditLogFile())
}

// Close flushes buffered events and closes the file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	err := l.zl.Sync()
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (l *Logger) event(name string, fields ...zap.Field) {
	if l == nil {
		return
	}
	all := make([]zap.Field, 0, len(fields)+1)
	all = append(all, zap.String("event_id", uuid.NewString()))
	all = append(all, fields...)
	l.zl.Info(name, all...)
}

// QueryValidated records a chat query verdict. The query text is stored
// verbatim: it was typed by the operator, never derived from the dataset.
func (l *Logger) QueryValidated(query string, allowed bool, reason string, score int) {
	l.event("query_validated",
		zap.String("query", query),
		zap.Bool("allowed", allowed),
		zap.String("reason", reason),
		zap.Int("score", score),
	)
}

// ResponseFiltered records a response filter verdict. Response text is
// deliberately not stored; it may contain what the filter just blocked.
func (l *Logger) ResponseFiltered(allowed bool, reason string) {
	l.event("response_filtered",
		zap.Bool("allowed", allowed),
		zap.String("reason", reason),
	)
}

// AnonymizationRun records a completed anonymization pass.
func (l *Logger) AnonymizationRun(sessionType string, rows, students, tutors int) {
	l.event("anonymization_run",
		zap.String("session_type", sessionType),
		zap.Int("rows", rows),
		zap.Int("students", students),
		zap.Int("tutors", tutors),
	)
}

// CodebookSaved records writing an encrypted codebook.
func (l *Logger) CodebookSaved(path string, students, tutors int) {
	l.event("codebook_saved",
		zap.String("file", path),
		zap.Int("students", students),
		zap.Int("tutors", tutors),
	)
}

// CodebookOpened records a successful decrypt of a codebook file.
func (l *Logger) CodebookOpened(path string) {
	l.event("codebook_opened", zap.String("file", path))
}

// CodebookLookup records a re-identification attempt. The anonymous ID
// is safe to store; the resolved identity never is.
func (l *Logger) CodebookLookup(anonID string, found bool) {
	l.event("codebook_lookup",
		zap.String("anon_id", anonID),
		zap.Bool("found", found),
	)
}

// LeakScan records an artifact scan outcome.
func (l *Logger) LeakScan(path string, findings int) {
	l.event("leak_scan",
		zap.String("file", path),
		zap.Int("findings", findings),
	)
}
