// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"fmt"
	"strconv"
)

// Summary is the executive view of a Report: a short overview paragraph
// plus deduplicated findings, concerns, and recommendations.
type Summary struct {
	Overview        string   `json:"overview" yaml:"overview"`
	KeyFindings     []string `json:"key_findings" yaml:"key_findings"`
	Concerns        []string `json:"concerns" yaml:"concerns"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
}

// Summarize distills a Report into headline observations. Thresholds:
// no-show above 15% and cancellations above 20% raise concerns, mean
// satisfaction below 4.0 flags session quality, a confidence-improvement
// rate under 50% and a survey response rate under 50% flag engagement,
// and a latest-semester decline beyond 10% flags volume.
func Summarize(r *Report) Summary {
	var s Summary

	s.Overview = fmt.Sprintf(
		"This report analyzes %d tutoring sessions, with an overall completion rate of %.1f%%. "+
			"The analysis covers booking behavior, student satisfaction, tutor performance, and session quality metrics.",
		r.Volume.TotalSessions, r.Attendance.CompletionRate)

	if r.Locations.Available {
		s.KeyFindings = append(s.KeyFindings, fmt.Sprintf(
			"Total Sessions: %s | In House: %.1f%% (CORD) | Online: %.1f%% (ZOOM)",
			groupThousands(r.Volume.TotalSessions), r.Locations.InHousePct, r.Locations.OnlinePct))
	}

	if r.Attendance.Available {
		s.KeyFindings = append(s.KeyFindings, fmt.Sprintf(
			"Session outcomes: %.1f%% completed, %.1f%% cancelled, %.1f%% no-show",
			r.Attendance.CompletionRate, r.Attendance.CancellationRate, r.Attendance.NoShowRate))
		if r.Attendance.NoShowRate > 15 {
			s.Concerns = append(s.Concerns, fmt.Sprintf(
				"High no-show rate (%.1f%%) - consider reminder system", r.Attendance.NoShowRate))
		}
		if r.Attendance.CancellationRate > 20 {
			s.Concerns = append(s.Concerns, fmt.Sprintf(
				"High cancellation rate (%.1f%%) - review booking policies", r.Attendance.CancellationRate))
		}
	}

	if r.Booking.Available {
		s.KeyFindings = append(s.KeyFindings, fmt.Sprintf(
			"Students typically book %.1f days in advance (median)", r.Booking.LeadTimeDays.Median))
		if r.Booking.LeadTimeDays.Median < 1 {
			s.Recommendations = append(s.Recommendations,
				"Students are booking very last minute - consider promoting advance booking")
		}
	}

	if r.Peaks.Available {
		s.KeyFindings = append(s.KeyFindings, "Busiest day of week: "+r.Peaks.BusiestDay)
		if r.Peaks.PeakHour >= 0 {
			s.KeyFindings = append(s.KeyFindings, fmt.Sprintf("Peak usage hour: %d:00", r.Peaks.PeakHour))
		}
	}

	if r.Satisfaction.Overall.Count > 0 {
		s.KeyFindings = append(s.KeyFindings, fmt.Sprintf(
			"Overall student satisfaction: %.2f/7.00", r.Satisfaction.Overall.Mean))
		if r.Satisfaction.Overall.Mean < 4.0 {
			s.Concerns = append(s.Concerns, fmt.Sprintf(
				"Below-average satisfaction (%.2f) - investigate session quality", r.Satisfaction.Overall.Mean))
		}
		if r.Satisfaction.ResponseRate < 50 {
			s.Concerns = append(s.Concerns, fmt.Sprintf(
				"Low survey response rate (%.1f%%) - improve student engagement", r.Satisfaction.ResponseRate))
		}
	}
	if r.Satisfaction.Change.Available {
		s.KeyFindings = append(s.KeyFindings, fmt.Sprintf(
			"%.1f%% of students showed increased confidence after sessions", r.Satisfaction.Change.ImprovedPct))
		if r.Satisfaction.Change.ImprovedPct < 50 {
			s.Recommendations = append(s.Recommendations,
				"Low confidence improvement rate - review session content and tutoring techniques")
		}
	}

	if r.Tutors.Available {
		s.KeyFindings = append(s.KeyFindings, fmt.Sprintf(
			"Tutor workload distribution: %s (CV: %.1f%%)", r.Tutors.BalanceAssessment, r.Tutors.CV))
		if r.Tutors.BalanceAssessment == "highly unbalanced" {
			s.Concerns = append(s.Concerns,
				"Highly unbalanced tutor workload - review scheduling practices")
			s.Recommendations = append(s.Recommendations,
				"Implement workload balancing strategies for fair consultant assignment")
		}
	}

	if r.Duration.Available {
		s.KeyFindings = append(s.KeyFindings, fmt.Sprintf(
			"Average session length: %.1f minutes", r.Duration.Minutes.Mean))
	}

	if r.Students.FirstTimeCount+r.Students.RepeatCount > 0 {
		s.KeyFindings = append(s.KeyFindings, fmt.Sprintf(
			"Student mix: %.1f%% first-timers, %.1f%% repeat visitors",
			r.Students.FirstTimePct, r.Students.RepeatPct))
		if r.Students.FirstTimePct < 30 {
			s.Recommendations = append(s.Recommendations,
				"Low first-timer rate - consider outreach programs to new students")
		}
	}

	if n := len(r.Volume.GrowthRates); n > 0 {
		latest := r.Volume.GrowthRates[n-1].Rate
		if latest != 0 {
			direction := "growth"
			if latest < 0 {
				direction = "decline"
			}
			s.KeyFindings = append(s.KeyFindings, fmt.Sprintf(
				"Latest semester %s: %+.1f%%", direction, latest))
			if latest < -10 {
				s.Concerns = append(s.Concerns, "Significant decline in sessions - investigate causes")
			}
		}
	}

	s.KeyFindings = dedup(s.KeyFindings)
	s.Concerns = dedup(s.Concerns)
	s.Recommendations = dedup(s.Recommendations)
	return s
}

// dedup drops repeated lines while keeping first-seen order.
func dedup(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	out := lines[:0]
	for _, line := range lines {
		if seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	return out
}

// groupThousands renders 1234567 as "1,234,567".
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
