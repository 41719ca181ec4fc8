// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"reflect"
	"strings"
	"testing"
)

func TestSummarize_HealthyDataset(t *testing.T) {
	r := Compute(scheduledFrame(t), "scheduled")
	s := Summarize(r)

	if !strings.Contains(s.Overview, "6 tutoring sessions") {
		t.Errorf("overview = %q", s.Overview)
	}
	joined := strings.Join(s.KeyFindings, "\n")
	for _, want := range []string{
		"In House: 50.0% (CORD)",
		"Session outcomes: 50.0% completed, 16.7% cancelled, 33.3% no-show",
		"book 2.0 days in advance",
		"Busiest day of week: Monday",
		"Peak usage hour: 14:00",
		"Overall student satisfaction: 5.00/7.00",
		"50.0% of students showed increased confidence",
		"Tutor workload distribution: balanced (CV: 28.3%)",
		"Average session length: 56.2 minutes",
		"Student mix: 60.0% first-timers, 40.0% repeat visitors",
		"Latest semester growth: +100.0%",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("findings missing %q:\n%s", want, joined)
		}
	}
}

func TestSummarize_FlagsProblems(t *testing.T) {
	r := &Report{
		Volume: Volume{
			Available:     true,
			TotalSessions: 200,
			GrowthRates:   []LabelRate{{"Spring 2025", -15}},
		},
		Booking: Booking{
			Available:    true,
			LeadTimeDays: Stats{Count: 200, Median: 0.4},
		},
		Attendance: Attendance{
			Available:        true,
			CompletionRate:   55,
			NoShowRate:       20,
			CancellationRate: 25,
		},
		Satisfaction: Satisfaction{
			Available:    true,
			Overall:      Stats{Count: 80, Mean: 3.5},
			ResponseRate: 40,
			Change:       ConfidenceChange{Available: true, ImprovedPct: 45},
		},
		Tutors: Tutors{
			Available:         true,
			CV:                62.1,
			BalanceAssessment: "highly unbalanced",
		},
		Students: Students{
			Available:      true,
			FirstTimeCount: 20,
			RepeatCount:    180,
			FirstTimePct:   10,
			RepeatPct:      90,
		},
	}
	s := Summarize(r)

	wantConcerns := []string{
		"High no-show rate (20.0%) - consider reminder system",
		"High cancellation rate (25.0%) - review booking policies",
		"Below-average satisfaction (3.50) - investigate session quality",
		"Low survey response rate (40.0%) - improve student engagement",
		"Highly unbalanced tutor workload - review scheduling practices",
		"Significant decline in sessions - investigate causes",
	}
	if !reflect.DeepEqual(s.Concerns, wantConcerns) {
		t.Errorf("concerns = %v, want %v", s.Concerns, wantConcerns)
	}

	wantRecs := []string{
		"Students are booking very last minute - consider promoting advance booking",
		"Low confidence improvement rate - review session content and tutoring techniques",
		"Implement workload balancing strategies for fair consultant assignment",
		"Low first-timer rate - consider outreach programs to new students",
	}
	if !reflect.DeepEqual(s.Recommendations, wantRecs) {
		t.Errorf("recommendations = %v, want %v", s.Recommendations, wantRecs)
	}

	joined := strings.Join(s.KeyFindings, "\n")
	if !strings.Contains(joined, "Latest semester decline: -15.0%") {
		t.Errorf("findings missing decline line:\n%s", joined)
	}
}

func TestSummarize_EmptyReport(t *testing.T) {
	s := Summarize(&Report{})
	if len(s.KeyFindings) != 0 || len(s.Concerns) != 0 || len(s.Recommendations) != 0 {
		t.Errorf("empty report produced output: %+v", s)
	}
	if !strings.Contains(s.Overview, "0 tutoring sessions") {
		t.Errorf("overview = %q", s.Overview)
	}
}

func TestDedup(t *testing.T) {
	got := dedup([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("dedup = %v, want %v", got, want)
	}
}

func TestGroupThousands(t *testing.T) {
	cases := map[int]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		12345:    "12,345",
		1234567:  "1,234,567",
		-1234:    "-1,234",
		-12:      "-12",
		10000000: "10,000,000",
	}
	for n, want := range cases {
		if got := groupThousands(n); got != want {
			t.Errorf("groupThousands(%d) = %q, want %q", n, got, want)
		}
	}
}
