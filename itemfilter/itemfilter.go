// Package itemfilter evaluates expression filters against search
// items on the client side. Expressions use the expr language and see
// the item's JSON fields as variables:
//
//	properties.cloud_cover < 0.1 && properties.gsd <= 4.0
//	date(properties.acquired) > now() - duration("720h")
package itemfilter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// CompileError describes a filter expression that failed to compile.
type CompileError struct {
	Expression string
	Reason     string
	Err        error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid filter %q: %s: %v", e.Expression, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid filter %q: %s", e.Expression, e.Reason)
}

// Unwrap returns the underlying compiler error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// Filter is a compiled item filter, reusable across items.
type Filter struct {
	expression string
	program    *vm.Program
}

// Compile parses and validates a filter expression.
func Compile(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompileError{Expression: expression, Reason: "empty expression"}
	}

	program, err := expr.Compile(expression,
		expr.AllowUndefinedVariables(), // item fields vary per item type
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompileError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	return &Filter{expression: expression, program: program}, nil
}

// Expression returns the source expression.
func (f *Filter) Expression() string {
	return f.expression
}

// Match reports whether the item satisfies the filter. The item's
// top-level JSON fields become expression variables.
func (f *Filter) Match(item json.RawMessage) (bool, error) {
	var env map[string]any
	if err := json.Unmarshal(item, &env); err != nil {
		return false, fmt.Errorf("decoding item: %w", err)
	}

	out, err := expr.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluating filter %q: %w", f.expression, err)
	}

	match, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("filter %q did not evaluate to a boolean", f.expression)
	}
	return match, nil
}
