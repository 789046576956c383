// Package attributes evaluates user-supplied custom attribute expressions
// against emitted trace records using the expr language. Each expression
// sees the record's schema name and its payload fields.
package attributes

import (
	"fmt"
	"log"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.opentelemetry.io/otel/attribute"

	"trc2otlp/internal/config"
)

// Evaluator handles compilation and evaluation of custom attribute expressions.
type Evaluator struct {
	customAttrs   []config.CustomAttribute
	compiledExprs []*vm.Program
}

// NewEvaluator creates a new attribute evaluator.
// It pre-compiles all custom attribute expressions for efficiency.
func NewEvaluator(customAttrs []config.CustomAttribute) (*Evaluator, error) {
	// Define the environment for expression type checking
	exprEnv := map[string]interface{}{
		"schema": "",
		"fields": map[string]interface{}{},
	}

	compiledExprs := make([]*vm.Program, len(customAttrs))
	for i, attr := range customAttrs {
		program, err := expr.Compile(attr.Expression, expr.Env(exprEnv))
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression for attribute %q: %w", attr.Name, err)
		}
		compiledExprs[i] = program
	}

	return &Evaluator{
		customAttrs:   customAttrs,
		compiledExprs: compiledExprs,
	}, nil
}

// Evaluate runs every expression against one record and returns the
// resulting attributes. Evaluation errors are logged and skipped so a bad
// expression never aborts the export.
func (e *Evaluator) Evaluate(schema string, fields map[string]interface{}) []attribute.KeyValue {
	if e == nil || len(e.customAttrs) == 0 {
		return nil
	}

	env := map[string]interface{}{
		"schema": schema,
		"fields": fields,
	}

	var attrs []attribute.KeyValue
	for i, customAttr := range e.customAttrs {
		output, err := expr.Run(e.compiledExprs[i], env)
		if err != nil {
			log.Printf("failed to evaluate expression for attribute %q: %v", customAttr.Name, err)
			continue
		}
		if output == nil {
			continue
		}

		// Maps expand into one attribute per key with dot notation.
		outputValue := reflect.ValueOf(output)
		if outputValue.Kind() == reflect.Map {
			for _, key := range outputValue.MapKeys() {
				keyStr := sanitizeAttributeName(fmt.Sprintf("%v", key.Interface()))
				value := outputValue.MapIndex(key).Interface()
				attrs = append(attrs, attribute.String(customAttr.Name+"."+keyStr, fmt.Sprint(value)))
			}
		} else {
			attrs = append(attrs, attribute.String(customAttr.Name, fmt.Sprint(output)))
		}
	}

	return attrs
}

// sanitizeAttributeName replaces non-alphanumeric characters with underscores.
// This ensures attribute names are safe for OpenTelemetry.
func sanitizeAttributeName(name string) string {
	result := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result[i] = c
		} else {
			result[i] = '_'
		}
	}
	return string(result)
}
