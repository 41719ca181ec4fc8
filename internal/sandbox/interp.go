// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"math"
	"sort"
	"strconv"
	"strings"

	"studio-analytics/internal/dataset"
)

// CountPair is one entry of a value distribution, descending by count.
type CountPair struct {
	Value string
	Count int
}

// Counts is the result of a ValueCounts call.
type Counts []CountPair

// evaluator runs a validated statement list. Values are nil, bool, float64,
// string, []any, Counts, or a frame handle; every number is a float64.
type evaluator struct {
	ctx context.Context
	env map[string]any
}

func newEvaluator(ctx context.Context, f *dataset.Frame) *evaluator {
	return &evaluator{
		ctx: ctx,
		env: map[string]any{"df": &frameHandle{ctx: ctx, f: f}},
	}
}

// run executes the statements and returns the final 'result' value.
func (ev *evaluator) run(stmts []ast.Stmt) (any, error) {
	for _, s := range stmts {
		if err := ev.ctx.Err(); err != nil {
			return nil, fmt.Errorf("execution cancelled")
		}
		if err := ev.stmt(s); err != nil {
			return nil, err
		}
	}
	result, ok := ev.env["result"]
	if !ok {
		return nil, fmt.Errorf("code did not produce a result")
	}
	return result, nil
}

func (ev *evaluator) stmt(s ast.Stmt) error {
	switch s := s.(type) {
	case *ast.AssignStmt:
		v, err := ev.expr(s.Rhs[0])
		if err != nil {
			return err
		}
		ev.env[s.Lhs[0].(*ast.Ident).Name] = v
		return nil
	case *ast.IfStmt:
		return ev.ifStmt(s)
	case *ast.ExprStmt:
		_, err := ev.expr(s.X)
		return err
	default:
		return fmt.Errorf("unsupported statement: %s", nodeName(s))
	}
}

func (ev *evaluator) ifStmt(s *ast.IfStmt) error {
	cond, err := ev.expr(s.Cond)
	if err != nil {
		return err
	}
	b, ok := cond.(bool)
	if !ok {
		return fmt.Errorf("if condition must be a boolean, got %s", typeName(cond))
	}
	if b {
		for _, inner := range s.Body.List {
			if err := ev.stmt(inner); err != nil {
				return err
			}
		}
		return nil
	}
	switch el := s.Else.(type) {
	case nil:
		return nil
	case *ast.BlockStmt:
		for _, inner := range el.List {
			if err := ev.stmt(inner); err != nil {
				return err
			}
		}
		return nil
	case *ast.IfStmt:
		return ev.ifStmt(el)
	default:
		return fmt.Errorf("unsupported statement: %s", nodeName(el))
	}
}

func (ev *evaluator) expr(e ast.Expr) (any, error) {
	switch e := e.(type) {
	case *ast.Ident:
		switch e.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "nil":
			return nil, nil
		}
		v, ok := ev.env[e.Name]
		if !ok {
			return nil, fmt.Errorf("unknown name: %s", e.Name)
		}
		return v, nil
	case *ast.BasicLit:
		return literal(e)
	case *ast.ParenExpr:
		return ev.expr(e.X)
	case *ast.UnaryExpr:
		return ev.unary(e)
	case *ast.BinaryExpr:
		return ev.binary(e)
	case *ast.CallExpr:
		return ev.call(e)
	default:
		return nil, fmt.Errorf("unsupported expression: %s", nodeName(e))
	}
}

func literal(e *ast.BasicLit) (any, error) {
	switch e.Kind {
	case token.INT, token.FLOAT:
		f, err := strconv.ParseFloat(e.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number literal %q", e.Value)
		}
		return f, nil
	case token.STRING:
		s, err := strconv.Unquote(e.Value)
		if err != nil {
			return nil, fmt.Errorf("bad string literal %s", e.Value)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported literal kind %s", e.Kind)
	}
}

func (ev *evaluator) unary(e *ast.UnaryExpr) (any, error) {
	v, err := ev.expr(e.X)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case token.NOT:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("operator ! needs a boolean, got %s", typeName(v))
		}
		return !b, nil
	case token.SUB:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("operator - needs a number, got %s", typeName(v))
		}
		return -f, nil
	default:
		return nil, fmt.Errorf("unsupported operator %s", e.Op)
	}
}

func (ev *evaluator) binary(e *ast.BinaryExpr) (any, error) {
	// Logical operators short-circuit.
	if e.Op == token.LAND || e.Op == token.LOR {
		left, err := ev.expr(e.X)
		if err != nil {
			return nil, err
		}
		lb, ok := left.(bool)
		if !ok {
			return nil, fmt.Errorf("operator %s needs booleans, got %s", e.Op, typeName(left))
		}
		if e.Op == token.LAND && !lb {
			return false, nil
		}
		if e.Op == token.LOR && lb {
			return true, nil
		}
		right, err := ev.expr(e.Y)
		if err != nil {
			return nil, err
		}
		rb, ok := right.(bool)
		if !ok {
			return nil, fmt.Errorf("operator %s needs booleans, got %s", e.Op, typeName(right))
		}
		return rb, nil
	}

	left, err := ev.expr(e.X)
	if err != nil {
		return nil, err
	}
	right, err := ev.expr(e.Y)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case token.EQL:
		return equal(left, right), nil
	case token.NEQ:
		return !equal(left, right), nil
	}

	if ls, lok := left.(string); lok {
		rs, rok := right.(string)
		if !rok {
			return nil, fmt.Errorf("operator %s needs matching types, got string and %s", e.Op, typeName(right))
		}
		switch e.Op {
		case token.ADD:
			return ls + rs, nil
		case token.LSS:
			return ls < rs, nil
		case token.LEQ:
			return ls <= rs, nil
		case token.GTR:
			return ls > rs, nil
		case token.GEQ:
			return ls >= rs, nil
		}
		return nil, fmt.Errorf("operator %s is not defined for strings", e.Op)
	}

	lf, lok := left.(float64)
	rf, rok := right.(float64)
	if !lok || !rok {
		return nil, fmt.Errorf("operator %s needs numbers, got %s and %s", e.Op, typeName(left), typeName(right))
	}
	switch e.Op {
	case token.ADD:
		return lf + rf, nil
	case token.SUB:
		return lf - rf, nil
	case token.MUL:
		return lf * rf, nil
	case token.QUO:
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return lf / rf, nil
	case token.REM:
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return math.Mod(lf, rf), nil
	case token.LSS:
		return lf < rf, nil
	case token.LEQ:
		return lf <= rf, nil
	case token.GTR:
		return lf > rf, nil
	case token.GEQ:
		return lf >= rf, nil
	default:
		return nil, fmt.Errorf("unsupported operator %s", e.Op)
	}
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

func (ev *evaluator) call(e *ast.CallExpr) (any, error) {
	args := make([]any, len(e.Args))
	for i, a := range e.Args {
		v, err := ev.expr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch fn := e.Fun.(type) {
	case *ast.Ident:
		return ev.builtin(fn.Name, args)
	case *ast.SelectorExpr:
		recv, err := ev.expr(fn.X)
		if err != nil {
			return nil, err
		}
		return ev.method(recv, fn.Sel.Name, args)
	default:
		return nil, fmt.Errorf("unsupported call type")
	}
}

func (ev *evaluator) method(recv any, name string, args []any) (any, error) {
	h, ok := recv.(*frameHandle)
	if !ok {
		return nil, fmt.Errorf("%s is not defined for %s", name, typeName(recv))
	}
	return h.invoke(name, args)
}

func (ev *evaluator) builtin(name string, args []any) (any, error) {
	switch name {
	case "len", "count":
		if len(args) != 1 {
			return nil, fmt.Errorf("%s expects one argument", name)
		}
		return length(args[0])
	case "abs":
		f, err := oneNumber(name, args)
		if err != nil {
			return nil, err
		}
		return math.Abs(f), nil
	case "round":
		return roundBuiltin(args)
	case "sum", "mean", "median", "min", "max":
		nums, err := numberArgs(name, args)
		if err != nil {
			return nil, err
		}
		return aggregate(name, nums)
	case "unique":
		if len(args) != 1 {
			return nil, fmt.Errorf("unique expects one argument")
		}
		list, ok := args[0].([]any)
		if !ok {
			return nil, fmt.Errorf("unique expects a list, got %s", typeName(args[0]))
		}
		return uniqueList(list), nil
	default:
		return nil, fmt.Errorf("function call not allowed: %s", name)
	}
}

func length(v any) (any, error) {
	switch v := v.(type) {
	case string:
		return float64(len(v)), nil
	case []any:
		return float64(len(v)), nil
	case Counts:
		return float64(len(v)), nil
	case *frameHandle:
		return float64(v.f.NumRows()), nil
	default:
		return nil, fmt.Errorf("len is not defined for %s", typeName(v))
	}
}

func oneNumber(name string, args []any) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s expects one argument", name)
	}
	f, ok := args[0].(float64)
	if !ok {
		return 0, fmt.Errorf("%s expects a number, got %s", name, typeName(args[0]))
	}
	return f, nil
}

func roundBuiltin(args []any) (any, error) {
	if len(args) != 1 && len(args) != 2 {
		return nil, fmt.Errorf("round expects one or two arguments")
	}
	f, ok := args[0].(float64)
	if !ok {
		return nil, fmt.Errorf("round expects a number, got %s", typeName(args[0]))
	}
	digits := 0.0
	if len(args) == 2 {
		d, ok := args[1].(float64)
		if !ok {
			return nil, fmt.Errorf("round digits must be a number, got %s", typeName(args[1]))
		}
		digits = d
	}
	scale := math.Pow(10, digits)
	return math.Round(f*scale) / scale, nil
}

// numberArgs accepts either a single list argument or two-or-more scalar
// numbers, so both sum(list) and max(a, b) work.
func numberArgs(name string, args []any) ([]float64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s expects at least one argument", name)
	}
	if len(args) == 1 {
		list, ok := args[0].([]any)
		if !ok {
			return nil, fmt.Errorf("%s expects a list, got %s", name, typeName(args[0]))
		}
		nums := make([]float64, 0, len(list))
		for _, v := range list {
			f, err := coerceNumber(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %v", name, err)
			}
			nums = append(nums, f)
		}
		return nums, nil
	}
	nums := make([]float64, 0, len(args))
	for _, v := range args {
		f, err := coerceNumber(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", name, err)
		}
		nums = append(nums, f)
	}
	return nums, nil
}

// coerceNumber accepts numbers and numeric strings, since frame columns
// surface as strings.
func coerceNumber(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value of type %s is not numeric", typeName(v))
	}
}

func aggregate(name string, nums []float64) (any, error) {
	if len(nums) == 0 {
		return nil, fmt.Errorf("%s of an empty list", name)
	}
	switch name {
	case "sum":
		total := 0.0
		for _, f := range nums {
			total += f
		}
		return total, nil
	case "mean":
		total := 0.0
		for _, f := range nums {
			total += f
		}
		return total / float64(len(nums)), nil
	case "median":
		return median(nums), nil
	case "min":
		m := nums[0]
		for _, f := range nums[1:] {
			if f < m {
				m = f
			}
		}
		return m, nil
	case "max":
		m := nums[0]
		for _, f := range nums[1:] {
			if f > m {
				m = f
			}
		}
		return m, nil
	default:
		return nil, fmt.Errorf("function call not allowed: %s", name)
	}
}

func median(nums []float64) float64 {
	sorted := make([]float64, len(nums))
	copy(sorted, nums)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func uniqueList(list []any) []any {
	seen := make(map[string]bool, len(list))
	out := make([]any, 0, len(list))
	for _, v := range list {
		key := fmt.Sprintf("%T:%v", v, v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "list"
	case Counts:
		return "value counts"
	case *frameHandle:
		return "dataframe"
	default:
		return fmt.Sprintf("%T", v)
	}
}
