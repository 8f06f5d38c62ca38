// Package filter compiles the textual list-query predicate into a storage
// condition.
//
// The grammar is deliberately a single comparison clause:
//
//	attribute SP operator SP "value"
//
// with operator one of eq (equality), co (substring), sw (prefix), and
// ew (suffix). Boolean composition (and/or/not) and grouping are not
// supported and are rejected explicitly rather than silently truncated.
// Matching is case-sensitive.
//
// Attribute names are resolved through a per-kind whitelist mapping the
// external attribute name to its storage column; anything unmapped fails
// compilation.
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Operator is a comparison operator of the filter grammar.
type Operator string

const (
	OpEqual      Operator = "eq"
	OpContains   Operator = "co"
	OpStartsWith Operator = "sw"
	OpEndsWith   Operator = "ew"
)

var operators = map[string]Operator{
	"eq": OpEqual,
	"co": OpContains,
	"sw": OpStartsWith,
	"ew": OpEndsWith,
}

var attrPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// CompileError reports a filter expression that could not be compiled:
// bad syntax, an unsupported operator, more than one clause, or an
// attribute outside the whitelist.
type CompileError struct {
	Expr   string
	Detail string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("cannot compile filter %q: %s", e.Expr, e.Detail)
}

// Expression is one parsed comparison clause.
type Expression struct {
	Attribute string
	Operator  Operator
	Value     string
}

// Parse parses a single-clause filter expression.
func Parse(expr string) (*Expression, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, &CompileError{Expr: expr, Detail: "empty expression"}
	}
	if strings.HasPrefix(trimmed, "(") {
		return nil, &CompileError{Expr: expr, Detail: "grouping is not supported"}
	}

	attr, rest, ok := strings.Cut(trimmed, " ")
	if !ok {
		return nil, &CompileError{Expr: expr, Detail: "expected: attribute operator \"value\""}
	}
	if !attrPattern.MatchString(attr) {
		return nil, &CompileError{Expr: expr, Detail: fmt.Sprintf("invalid attribute name %q", attr)}
	}

	opToken, rest, ok := strings.Cut(strings.TrimLeft(rest, " "), " ")
	if !ok {
		return nil, &CompileError{Expr: expr, Detail: "expected: attribute operator \"value\""}
	}
	op, known := operators[opToken]
	if !known {
		return nil, &CompileError{Expr: expr, Detail: fmt.Sprintf("unsupported operator %q", opToken)}
	}

	rest = strings.TrimLeft(rest, " ")
	if len(rest) < 2 || rest[0] != '"' {
		return nil, &CompileError{Expr: expr, Detail: "value must be a quoted string"}
	}
	closing := strings.IndexByte(rest[1:], '"')
	if closing < 0 {
		return nil, &CompileError{Expr: expr, Detail: "unterminated quoted value"}
	}
	value := rest[1 : 1+closing]

	// One clause per expression. Anything after the closing quote means
	// boolean composition, which the grammar rejects outright.
	if trailing := strings.TrimSpace(rest[closing+2:]); trailing != "" {
		return nil, &CompileError{Expr: expr, Detail: "only a single comparison clause is supported"}
	}

	return &Expression{Attribute: attr, Operator: op, Value: value}, nil
}

// Condition is a compiled predicate over one storage column.
type Condition struct {
	Column   string
	Operator Operator
	Value    string
}

// Match evaluates the condition against a field value in memory.
// Comparison is case-sensitive throughout.
func (c *Condition) Match(value string) bool {
	switch c.Operator {
	case OpEqual:
		return value == c.Value
	case OpContains:
		return strings.Contains(value, c.Value)
	case OpStartsWith:
		return strings.HasPrefix(value, c.Value)
	case OpEndsWith:
		return strings.HasSuffix(value, c.Value)
	}
	return false
}

// Compiler resolves parsed expressions against one resource kind's
// attribute whitelist.
type Compiler struct {
	columns map[string]string // external attribute → storage column
}

func NewCompiler(columns map[string]string) *Compiler {
	return &Compiler{columns: columns}
}

// Compile parses the expression and maps its attribute to a storage column.
func (c *Compiler) Compile(expr string) (*Condition, error) {
	parsed, err := Parse(expr)
	if err != nil {
		return nil, err
	}

	column, ok := c.columns[parsed.Attribute]
	if !ok {
		return nil, &CompileError{
			Expr:   expr,
			Detail: fmt.Sprintf("attribute %q is not filterable", parsed.Attribute),
		}
	}

	return &Condition{Column: column, Operator: parsed.Operator, Value: parsed.Value}, nil
}
