// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestStartStep_Success(t *testing.T) {
	var buf bytes.Buffer
	obs := NewDebugObserver(&buf)

	done := obs.StartStep("scanner", "scan", "out/")
	obs.LogDetail("scanner", "3 files queued")
	done(true, "2 findings in 3 files")

	out := buf.String()
	if !strings.Contains(out, "🔄 scanner: scan (out/)") {
		t.Errorf("missing start line:\n%s", out)
	}
	if !strings.Contains(out, "✅ scanner: scan completed") {
		t.Errorf("missing completion line:\n%s", out)
	}
	if !strings.Contains(out, "→ scanner: 3 files queued") {
		t.Errorf("missing detail line:\n%s", out)
	}

	rec := lastRecord(t, out)
	if rec.Component != "scanner" || rec.Operation != "scan" || rec.Source != "out/" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if !rec.Success {
		t.Error("record should report success")
	}
	if rec.Details != "2 findings in 3 files" {
		t.Errorf("unexpected details: %q", rec.Details)
	}
	if !strings.HasPrefix(rec.RequestID, "req-") {
		t.Errorf("unexpected request id: %q", rec.RequestID)
	}
}

func TestStartStep_Failure(t *testing.T) {
	var buf bytes.Buffer
	obs := NewDebugObserver(&buf)

	done := obs.StartStep("anonymizer", "anonymize", "sessions.csv")
	done(false, "unknown session type")

	if !strings.Contains(buf.String(), "❌ anonymizer: anonymize failed") {
		t.Errorf("missing failure line:\n%s", buf.String())
	}
	rec := lastRecord(t, buf.String())
	if rec.Success {
		t.Error("record should report failure")
	}
	if rec.Details != "unknown session type" {
		t.Errorf("unexpected details: %q", rec.Details)
	}
}

func TestStartStep_NestedIndent(t *testing.T) {
	var buf bytes.Buffer
	obs := NewDebugObserver(&buf)

	outer := obs.StartStep("report", "build", "clean.csv")
	inner := obs.StartStep("metrics", "compute", "clean.csv")
	inner(true, "")
	outer(true, "")

	lines := strings.Split(buf.String(), "\n")
	if strings.HasPrefix(lines[0], " ") {
		t.Errorf("outer step should not be indented: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  🔄 metrics") {
		t.Errorf("inner step should be indented one level: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "  ✅ metrics") {
		t.Errorf("inner completion should keep the inner indent: %q", lines[2])
	}
}

func TestLogOperation_OffLevelSilent(t *testing.T) {
	var buf bytes.Buffer
	obs := NewStandardObserver(ObservabilityOff, &buf)

	obs.LogOperation(OperationRecord{Component: "scanner", Operation: "scan"})

	if buf.Len() != 0 {
		t.Errorf("expected no output at off level, got %q", buf.String())
	}
}

func TestLogOperation_RequestIDsUnique(t *testing.T) {
	var buf bytes.Buffer
	obs := NewStandardObserver(ObservabilityDebug, &buf)

	obs.LogOperation(OperationRecord{Component: "a"})
	obs.LogOperation(OperationRecord{Component: "b"})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d:\n%s", len(lines), buf.String())
	}
	var first, second OperationRecord
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first record does not parse: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("second record does not parse: %v", err)
	}
	if first.RequestID == second.RequestID {
		t.Errorf("request ids should be unique, both %q", first.RequestID)
	}
}

func TestLogMetric(t *testing.T) {
	var buf bytes.Buffer
	obs := NewDebugObserver(&buf)

	obs.LogMetric("scanner", "suppressed", 3)

	if !strings.Contains(buf.String(), "scanner: suppressed = 3") {
		t.Errorf("unexpected metric line: %q", buf.String())
	}
}

func lastRecord(t *testing.T, out string) OperationRecord {
	t.Helper()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	var rec OperationRecord
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &rec); err != nil {
		t.Fatalf("last line is not a JSON record: %v\n%s", err, out)
	}
	return rec
}
