// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"studio-analytics/internal/dataset"
)

// frameHandle exposes a fixed method surface over a dataset frame. It holds
// the executor's private copy; generated code can derive filtered views but
// never touches the live frame.
type frameHandle struct {
	ctx context.Context
	f   *dataset.Frame
}

func (h *frameHandle) invoke(name string, args []any) (any, error) {
	switch name {
	case "Rows":
		if err := expectArgs(name, args, 0); err != nil {
			return nil, err
		}
		return float64(h.f.NumRows()), nil
	case "Columns":
		if err := expectArgs(name, args, 0); err != nil {
			return nil, err
		}
		cols := h.f.Columns()
		out := make([]any, len(cols))
		for i, c := range cols {
			out[i] = c
		}
		return out, nil
	case "Count":
		return h.count(args)
	case "Nunique":
		col, err := columnArg(name, args)
		if err != nil {
			return nil, err
		}
		values, err := h.uniqueValues(col)
		if err != nil {
			return nil, err
		}
		return float64(len(values)), nil
	case "Unique":
		col, err := columnArg(name, args)
		if err != nil {
			return nil, err
		}
		values, err := h.uniqueValues(col)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = v
		}
		return out, nil
	case "Column":
		col, err := columnArg(name, args)
		if err != nil {
			return nil, err
		}
		values, err := h.f.Column(col)
		if err != nil {
			return nil, fmt.Errorf("unknown column %q", col)
		}
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = v
		}
		return out, nil
	case "Sum", "Mean", "Median", "Min", "Max", "Std":
		col, err := columnArg(name, args)
		if err != nil {
			return nil, err
		}
		return h.stat(name, col)
	case "ValueCounts":
		col, err := columnArg(name, args)
		if err != nil {
			return nil, err
		}
		return h.valueCounts(col)
	case "Filter":
		return h.filter(args)
	case "Head":
		return h.head(args)
	default:
		return nil, fmt.Errorf("method call not allowed: %s", name)
	}
}

// count returns the row count with no argument, or the non-null count of a
// column with one.
func (h *frameHandle) count(args []any) (any, error) {
	if len(args) == 0 {
		return float64(h.f.NumRows()), nil
	}
	col, err := columnArg("Count", args)
	if err != nil {
		return nil, err
	}
	if !h.f.HasColumn(col) {
		return nil, fmt.Errorf("unknown column %q", col)
	}
	return float64(h.f.NonNullCount(col)), nil
}

func (h *frameHandle) uniqueValues(col string) ([]string, error) {
	if !h.f.HasColumn(col) {
		return nil, fmt.Errorf("unknown column %q", col)
	}
	return h.f.UniqueNonNull(col), nil
}

func (h *frameHandle) stat(name, col string) (any, error) {
	if !h.f.HasColumn(col) {
		return nil, fmt.Errorf("unknown column %q", col)
	}
	nums := h.f.Floats(col)
	if len(nums) == 0 {
		return nil, fmt.Errorf("column %q has no numeric values", col)
	}
	switch name {
	case "Sum", "Mean", "Min", "Max":
		return aggregate(strings.ToLower(name), nums)
	case "Median":
		return median(nums), nil
	case "Std":
		if len(nums) < 2 {
			return nil, fmt.Errorf("standard deviation of column %q needs at least two values", col)
		}
		m := 0.0
		for _, f := range nums {
			m += f
		}
		m /= float64(len(nums))
		ss := 0.0
		for _, f := range nums {
			ss += (f - m) * (f - m)
		}
		return math.Sqrt(ss / float64(len(nums)-1)), nil
	default:
		return nil, fmt.Errorf("method call not allowed: %s", name)
	}
}

// valueCounts tallies non-null values, descending by count with ties broken
// by value so the order is reproducible.
func (h *frameHandle) valueCounts(col string) (any, error) {
	values, err := h.f.Column(col)
	if err != nil {
		return nil, fmt.Errorf("unknown column %q", col)
	}

	tally := make(map[string]int)
	for i, v := range values {
		if i%1024 == 0 && h.ctx.Err() != nil {
			return nil, fmt.Errorf("execution cancelled")
		}
		v = strings.TrimSpace(v)
		if dataset.IsNull(v) {
			continue
		}
		tally[v]++
	}

	out := make(Counts, 0, len(tally))
	for v, n := range tally {
		out = append(out, CountPair{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out, nil
}

// filter derives a new frame keeping rows where the column satisfies the
// operator. Numeric comparisons skip rows whose cell does not parse.
func (h *frameHandle) filter(args []any) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf(`Filter expects (column, operator, value), e.g. Filter("Status", "==", "completed")`)
	}
	col, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("Filter column must be a string, got %s", typeName(args[0]))
	}
	op, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("Filter operator must be a string, got %s", typeName(args[1]))
	}

	values, err := h.f.Column(col)
	if err != nil {
		return nil, fmt.Errorf("unknown column %q", col)
	}

	match, err := buildMatcher(op, args[2])
	if err != nil {
		return nil, err
	}

	out, err := dataset.NewFrame(h.f.Columns())
	if err != nil {
		return nil, err
	}
	for i, cell := range values {
		if i%1024 == 0 && h.ctx.Err() != nil {
			return nil, fmt.Errorf("execution cancelled")
		}
		if match(cell) {
			if err := out.AppendRow(h.f.Row(i)); err != nil {
				return nil, err
			}
		}
	}
	return &frameHandle{ctx: h.ctx, f: out}, nil
}

func buildMatcher(op string, target any) (func(string) bool, error) {
	switch t := target.(type) {
	case float64:
		cmp, err := numericComparator(op)
		if err != nil {
			return nil, err
		}
		return func(cell string) bool {
			f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return false
			}
			return cmp(f, t)
		}, nil
	case string:
		switch op {
		case "==":
			return func(cell string) bool { return strings.TrimSpace(cell) == t }, nil
		case "!=":
			return func(cell string) bool { return strings.TrimSpace(cell) != t }, nil
		case "contains":
			lower := strings.ToLower(t)
			return func(cell string) bool {
				return strings.Contains(strings.ToLower(cell), lower)
			}, nil
		default:
			return nil, fmt.Errorf("operator %q needs a numeric value", op)
		}
	default:
		return nil, fmt.Errorf("Filter value must be a number or a string, got %s", typeName(target))
	}
}

func numericComparator(op string) (func(a, b float64) bool, error) {
	switch op {
	case "==":
		return func(a, b float64) bool { return a == b }, nil
	case "!=":
		return func(a, b float64) bool { return a != b }, nil
	case ">":
		return func(a, b float64) bool { return a > b }, nil
	case ">=":
		return func(a, b float64) bool { return a >= b }, nil
	case "<":
		return func(a, b float64) bool { return a < b }, nil
	case "<=":
		return func(a, b float64) bool { return a <= b }, nil
	default:
		return nil, fmt.Errorf("unsupported filter operator %q", op)
	}
}

func (h *frameHandle) head(args []any) (any, error) {
	if err := expectArgs("Head", args, 1); err != nil {
		return nil, err
	}
	n, ok := args[0].(float64)
	if !ok || n < 0 || n != math.Trunc(n) {
		return nil, fmt.Errorf("Head expects a non-negative whole number")
	}
	limit := int(n)
	if limit > h.f.NumRows() {
		limit = h.f.NumRows()
	}

	out, err := dataset.NewFrame(h.f.Columns())
	if err != nil {
		return nil, err
	}
	for i := 0; i < limit; i++ {
		if err := out.AppendRow(h.f.Row(i)); err != nil {
			return nil, err
		}
	}
	return &frameHandle{ctx: h.ctx, f: out}, nil
}

func expectArgs(name string, args []any, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func columnArg(name string, args []any) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s expects a column name", name)
	}
	col, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("%s expects a column name, got %s", name, typeName(args[0]))
	}
	return col, nil
}
