// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// builtinFuncs are the only free functions callable from generated code.
var builtinFuncs = map[string]bool{
	"len": true, "sum": true, "mean": true, "median": true,
	"min": true, "max": true, "abs": true, "round": true,
	"count": true, "unique": true,
}

// safeMethods are the only methods callable on any receiver.
var safeMethods = map[string]bool{
	"Rows": true, "Columns": true, "Column": true,
	"Count": true, "Nunique": true, "Unique": true,
	"Sum": true, "Mean": true, "Median": true, "Min": true, "Max": true,
	"Std": true, "ValueCounts": true, "Filter": true, "Head": true,
}

var allowedBinaryOps = map[token.Token]bool{
	token.ADD: true, token.SUB: true, token.MUL: true, token.QUO: true, token.REM: true,
	token.EQL: true, token.NEQ: true, token.LSS: true, token.LEQ: true,
	token.GTR: true, token.GEQ: true, token.LAND: true, token.LOR: true,
}

// validator walks a parsed snippet, allow-listing node kinds and names.
// Names become visible only after they are assigned, so generated code can
// build intermediate values but cannot reach anything that was not
// explicitly injected.
type validator struct {
	allowed       map[string]bool
	assignsResult bool
}

// validate checks size and syntax, then returns the statement list ready
// for evaluation. Generated code is a flat statement sequence: loops,
// declarations, goroutines, channels, pointers, and function literals are
// all outside the allowed surface.
func validate(code string, maxBytes int) ([]ast.Stmt, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" || len(code) > maxBytes {
		return nil, fmt.Errorf("generated code is empty or too large")
	}

	src := "package q\n\nfunc run() {\n" + code + "\n}\n"
	file, err := parser.ParseFile(token.NewFileSet(), "query.go", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("invalid or disallowed syntax: %v", firstParseError(err))
	}

	var body *ast.BlockStmt
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Name.Name == "run" {
			body = fn.Body
		}
	}
	if body == nil {
		return nil, fmt.Errorf("invalid or disallowed syntax: no executable statements")
	}

	v := &validator{allowed: map[string]bool{
		"df": true, "result": true, "true": true, "false": true, "nil": true,
	}}
	for _, stmt := range body.List {
		if err := v.stmt(stmt); err != nil {
			return nil, err
		}
	}
	if !v.assignsResult {
		return nil, fmt.Errorf("generated code must assign a value to 'result'")
	}
	return body.List, nil
}

func (v *validator) stmt(s ast.Stmt) error {
	switch s := s.(type) {
	case *ast.AssignStmt:
		return v.assign(s)
	case *ast.IfStmt:
		return v.ifStmt(s)
	case *ast.ExprStmt:
		return v.expr(s.X)
	default:
		return fmt.Errorf("disallowed syntax: %s", nodeName(s))
	}
}

func (v *validator) ifStmt(s *ast.IfStmt) error {
	if s.Init != nil {
		return fmt.Errorf("disallowed syntax: if statement with init clause")
	}
	if err := v.expr(s.Cond); err != nil {
		return err
	}
	for _, inner := range s.Body.List {
		if err := v.stmt(inner); err != nil {
			return err
		}
	}
	switch el := s.Else.(type) {
	case nil:
		return nil
	case *ast.BlockStmt:
		for _, inner := range el.List {
			if err := v.stmt(inner); err != nil {
				return err
			}
		}
		return nil
	case *ast.IfStmt:
		return v.ifStmt(el)
	default:
		return fmt.Errorf("disallowed syntax: %s", nodeName(el))
	}
}

func (v *validator) assign(s *ast.AssignStmt) error {
	if s.Tok != token.ASSIGN && s.Tok != token.DEFINE {
		return fmt.Errorf("disallowed syntax: %s assignment", s.Tok)
	}
	if len(s.Lhs) != 1 || len(s.Rhs) != 1 {
		return fmt.Errorf("only single-variable assignments are allowed")
	}
	target, ok := s.Lhs[0].(*ast.Ident)
	if !ok {
		return fmt.Errorf("only simple variable assignments are allowed")
	}
	if strings.HasPrefix(target.Name, "_") {
		return fmt.Errorf("private names are not allowed")
	}
	if err := v.expr(s.Rhs[0]); err != nil {
		return err
	}
	v.allowed[target.Name] = true
	if target.Name == "result" {
		v.assignsResult = true
	}
	return nil
}

func (v *validator) expr(e ast.Expr) error {
	switch e := e.(type) {
	case *ast.Ident:
		if strings.HasPrefix(e.Name, "_") {
			return fmt.Errorf("private names are not allowed")
		}
		if !v.allowed[e.Name] && !builtinFuncs[e.Name] {
			return fmt.Errorf("unknown name: %s", e.Name)
		}
		return nil
	case *ast.BasicLit:
		switch e.Kind {
		case token.INT, token.FLOAT, token.STRING:
			return nil
		default:
			return fmt.Errorf("disallowed literal: %s", e.Kind)
		}
	case *ast.ParenExpr:
		return v.expr(e.X)
	case *ast.UnaryExpr:
		if e.Op != token.NOT && e.Op != token.SUB {
			return fmt.Errorf("disallowed operator: %s", e.Op)
		}
		return v.expr(e.X)
	case *ast.BinaryExpr:
		if !allowedBinaryOps[e.Op] {
			return fmt.Errorf("disallowed operator: %s", e.Op)
		}
		if err := v.expr(e.X); err != nil {
			return err
		}
		return v.expr(e.Y)
	case *ast.CallExpr:
		return v.call(e)
	default:
		return fmt.Errorf("disallowed syntax: %s", nodeName(e))
	}
}

func (v *validator) call(e *ast.CallExpr) error {
	switch fn := e.Fun.(type) {
	case *ast.Ident:
		if strings.HasPrefix(fn.Name, "_") {
			return fmt.Errorf("private names are not allowed")
		}
		if !builtinFuncs[fn.Name] {
			return fmt.Errorf("function call not allowed: %s", fn.Name)
		}
	case *ast.SelectorExpr:
		if strings.HasPrefix(fn.Sel.Name, "_") {
			return fmt.Errorf("private method calls are not allowed")
		}
		if !safeMethods[fn.Sel.Name] {
			return fmt.Errorf("method call not allowed: %s", fn.Sel.Name)
		}
		if err := v.expr(fn.X); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported call type")
	}
	for _, arg := range e.Args {
		if err := v.expr(arg); err != nil {
			return err
		}
	}
	return nil
}

// nodeName renders an AST node type for error messages, without the
// package prefix.
func nodeName(n ast.Node) string {
	name := fmt.Sprintf("%T", n)
	return strings.TrimPrefix(name, "*ast.")
}

// firstParseError unwraps a scanner error list down to its first entry so
// users see one concrete problem, not a cascade.
func firstParseError(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, " (and "); i > 0 {
		msg = msg[:i]
	}
	// Strip the synthetic file position from the wrapper source.
	if i := strings.Index(msg, ": "); i > 0 && strings.HasPrefix(msg, "query.go:") {
		msg = msg[i+2:]
	}
	return msg
}
