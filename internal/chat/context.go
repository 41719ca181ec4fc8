// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"fmt"
	"strconv"
	"strings"

	"studio-analytics/internal/dataset"
	"studio-analytics/internal/ingest"
)

const (
	contextHeadRows   = 10
	contextSampleRows = 20
	contextBannerLen  = 60
)

// dataContext renders a compact plain-text summary of the frame for the
// model: record count, columns, date range, basic stats for the first
// few numeric columns, and a small table of sample rows. Anonymization
// runs before chat, so the frame holds no direct identifiers by the
// time this is built.
func dataContext(f *dataset.Frame) string {
	banner := strings.Repeat("=", contextBannerLen)
	var b strings.Builder

	b.WriteString(banner + "\n")
	b.WriteString("WRITING STUDIO DATA SUMMARY\n")
	b.WriteString(banner + "\n")
	fmt.Fprintf(&b, "Total Records: %s\n", groupThousands(f.NumRows()))
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(f.Columns(), ", "))
	b.WriteString("\n")

	if dr := contextDateRange(f); dr != "" {
		fmt.Fprintf(&b, "Date Range: %s\n", dr)
	}

	if numeric := numericColumns(f); len(numeric) > 0 {
		b.WriteString("\nKEY STATISTICS:\n")
		if len(numeric) > 5 {
			numeric = numeric[:5]
		}
		for _, col := range numeric {
			vals := f.Floats(col)
			if len(vals) == 0 {
				continue
			}
			var sum float64
			minV, maxV := vals[0], vals[0]
			for _, v := range vals {
				sum += v
				if v < minV {
					minV = v
				}
				if v > maxV {
					maxV = v
				}
			}
			fmt.Fprintf(&b, "  - %s: avg=%.2f, min=%s, max=%s\n",
				col, sum/float64(len(vals)), trimFloat(minV), trimFloat(maxV))
		}
	}

	b.WriteString("\n" + banner + "\n")
	b.WriteString("SAMPLE DATA\n")
	b.WriteString(banner + "\n")

	head := f.NumRows()
	if head > contextHeadRows {
		head = contextHeadRows
	}
	fmt.Fprintf(&b, "\nFirst %d rows:\n", head)
	indices := make([]int, head)
	for i := range indices {
		indices[i] = i
	}
	b.WriteString(renderRows(f, indices))

	// For large frames a handful of leading rows is unrepresentative;
	// add evenly spaced rows from across the whole range.
	if f.NumRows() > 100 {
		spread := spreadIndices(f.NumRows(), contextSampleRows)
		fmt.Fprintf(&b, "\n\nAdditional sample (%d rows):\n", len(spread))
		b.WriteString(renderRows(f, spread))
	}

	return strings.TrimRight(b.String(), "\n")
}

// contextDateRange formats the min and max of the first column whose
// name contains "date", or "" when no such column parses.
func contextDateRange(f *dataset.Frame) string {
	for _, col := range f.Columns() {
		if !strings.Contains(strings.ToLower(col), "date") {
			continue
		}
		vals, err := f.Column(col)
		if err != nil {
			return ""
		}
		var haveAny bool
		var minT, maxT = int64(0), int64(0)
		var minS, maxS string
		for _, v := range vals {
			t, ok := ingest.ParseDateTime(v)
			if !ok {
				continue
			}
			u := t.Unix()
			if !haveAny || u < minT {
				minT = u
				minS = t.Format("January 2, 2006")
			}
			if !haveAny || u > maxT {
				maxT = u
				maxS = t.Format("January 2, 2006")
			}
			haveAny = true
		}
		if haveAny {
			return minS + " to " + maxS
		}
		return ""
	}
	return ""
}

// numericColumns returns the columns whose non-null cells all parse as
// numbers, in frame order.
func numericColumns(f *dataset.Frame) []string {
	var out []string
	for _, col := range f.Columns() {
		vals, err := f.Column(col)
		if err != nil {
			continue
		}
		nonNull, numeric := 0, 0
		for _, v := range vals {
			if dataset.IsNull(v) {
				continue
			}
			nonNull++
			if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				numeric++
			}
		}
		if nonNull > 0 && numeric == nonNull {
			out = append(out, col)
		}
	}
	return out
}

// renderRows lays the selected rows out as a fixed-width text table.
func renderRows(f *dataset.Frame, indices []int) string {
	cols := f.Columns()
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	rows := make([][]string, len(indices))
	for r, idx := range indices {
		cells := f.Row(idx)
		rows[r] = cells
		for i, v := range cells {
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, v := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(v)
			if pad := widths[i] - len(v); pad > 0 && i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		b.WriteString("\n")
	}
	writeRow(cols)
	for _, cells := range rows {
		writeRow(cells)
	}
	return strings.TrimRight(b.String(), "\n")
}

// spreadIndices picks n row indices evenly spaced over total rows,
// always including the first and last row.
func spreadIndices(total, n int) []int {
	if n >= total {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, 0, n)
	last := -1
	for i := 0; i < n; i++ {
		idx := i * (total - 1) / (n - 1)
		if idx != last {
			out = append(out, idx)
			last = idx
		}
	}
	return out
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
