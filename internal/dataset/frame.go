// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package dataset provides the in-memory tabular frame that session exports
// are loaded into. Cells are strings; the empty string and the usual CSV
// null spellings count as missing values.
package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Frame is an ordered set of named columns over row-major string cells.
// It is not safe for concurrent mutation.
type Frame struct {
	cols  []string
	index map[string]int
	rows  [][]string
}

// NewFrame creates an empty frame with the given column order.
// Duplicate column names are rejected.
func NewFrame(cols []string) (*Frame, error) {
	f := &Frame{
		cols:  make([]string, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if _, dup := f.index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		f.cols[i] = c
		f.index[c] = i
	}
	return f, nil
}

// IsNull reports whether a cell value counts as missing.
func IsNull(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "na", "n/a", "nan", "null", "none":
		return true
	}
	return false
}

// Columns returns a copy of the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// NumRows returns the row count.
func (f *Frame) NumRows() int { return len(f.rows) }

// NumCols returns the column count.
func (f *Frame) NumCols() int { return len(f.cols) }

// AppendRow adds a row. Short rows are padded with nulls, long rows rejected.
func (f *Frame) AppendRow(cells []string) error {
	if len(cells) > len(f.cols) {
		return fmt.Errorf("row has %d cells, frame has %d columns", len(cells), len(f.cols))
	}
	row := make([]string, len(f.cols))
	copy(row, cells)
	f.rows = append(f.rows, row)
	return nil
}

// Row returns the cells of row i. The slice is shared; callers must not
// mutate it.
func (f *Frame) Row(i int) []string { return f.rows[i] }

// Cell returns the value at (row, column name). Missing column is an error.
func (f *Frame) Cell(row int, name string) (string, error) {
	idx, ok := f.index[name]
	if !ok {
		return "", fmt.Errorf("no column %q", name)
	}
	if row < 0 || row >= len(f.rows) {
		return "", fmt.Errorf("row %d out of range", row)
	}
	return f.rows[row][idx], nil
}

// Column returns a copy of the named column's cells in row order.
func (f *Frame) Column(name string) ([]string, error) {
	idx, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("no column %q", name)
	}
	out := make([]string, len(f.rows))
	for i, row := range f.rows {
		out[i] = row[idx]
	}
	return out, nil
}

// SetColumn replaces the named column's cells, or appends a new column when
// the name is unknown. The value count must match the row count, except on
// an empty frame where it defines the row count.
func (f *Frame) SetColumn(name string, values []string) error {
	if len(f.rows) > 0 && len(values) != len(f.rows) {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(values), len(f.rows))
	}

	idx, exists := f.index[name]
	if !exists {
		idx = len(f.cols)
		f.cols = append(f.cols, name)
		f.index[name] = idx
		if len(f.rows) == 0 && len(values) > 0 {
			f.rows = make([][]string, len(values))
			for i := range f.rows {
				f.rows[i] = make([]string, len(f.cols))
			}
		} else {
			for i := range f.rows {
				f.rows[i] = append(f.rows[i], "")
			}
		}
	}

	for i := range values {
		f.rows[i][idx] = values[i]
	}
	return nil
}

// RenameColumn renames a column in place. Renaming onto an existing name is
// an error; renaming a missing column is a no-op.
func (f *Frame) RenameColumn(oldName, newName string) error {
	idx, ok := f.index[oldName]
	if !ok {
		return nil
	}
	if oldName == newName {
		return nil
	}
	if _, exists := f.index[newName]; exists {
		return fmt.Errorf("cannot rename %q: column %q already exists", oldName, newName)
	}
	f.cols[idx] = newName
	delete(f.index, oldName)
	f.index[newName] = idx
	return nil
}

// Select returns a new frame containing only the given columns, preserving
// this frame's column order. Unknown names are ignored.
func (f *Frame) Select(names []string) *Frame {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}

	var cols []string
	for _, c := range f.cols {
		if keep[c] {
			cols = append(cols, c)
		}
	}

	out, _ := NewFrame(cols)
	for _, row := range f.rows {
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = row[f.index[c]]
		}
		out.rows = append(out.rows, cells)
	}
	return out
}

// DropColumns returns a new frame without the given columns.
func (f *Frame) DropColumns(names []string) *Frame {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var keep []string
	for _, c := range f.cols {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	return f.Select(keep)
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out, _ := NewFrame(f.cols)
	out.rows = make([][]string, len(f.rows))
	for i, row := range f.rows {
		cells := make([]string, len(row))
		copy(cells, row)
		out.rows[i] = cells
	}
	return out
}

// NonNullCount returns the number of non-missing cells in the column.
func (f *Frame) NonNullCount(name string) int {
	idx, ok := f.index[name]
	if !ok {
		return 0
	}
	n := 0
	for _, row := range f.rows {
		if !IsNull(row[idx]) {
			n++
		}
	}
	return n
}

// NullRatio returns the fraction of missing cells in the column.
// An empty frame or unknown column reports 1.0 (entirely missing).
func (f *Frame) NullRatio(name string) float64 {
	if len(f.rows) == 0 {
		return 1.0
	}
	if !f.HasColumn(name) {
		return 1.0
	}
	return 1.0 - float64(f.NonNullCount(name))/float64(len(f.rows))
}

// SampleNonNull returns up to n non-missing values from the column in row
// order, trimmed of surrounding whitespace.
func (f *Frame) SampleNonNull(name string, n int) []string {
	idx, ok := f.index[name]
	if !ok || n <= 0 {
		return nil
	}
	var out []string
	for _, row := range f.rows {
		if IsNull(row[idx]) {
			continue
		}
		out = append(out, strings.TrimSpace(row[idx]))
		if len(out) == n {
			break
		}
	}
	return out
}

// Floats parses the column's non-missing cells as float64, skipping values
// that do not parse.
func (f *Frame) Floats(name string) []float64 {
	idx, ok := f.index[name]
	if !ok {
		return nil
	}
	var out []float64
	for _, row := range f.rows {
		if IsNull(row[idx]) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// UniqueNonNull returns the sorted distinct non-missing values of a column.
func (f *Frame) UniqueNonNull(name string) []string {
	idx, ok := f.index[name]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	for _, row := range f.rows {
		if !IsNull(row[idx]) {
			seen[row[idx]] = true
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
