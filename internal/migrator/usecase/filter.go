package usecase

import (
	"encoding/json"
	"fmt"

	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/shared/errors"

	"github.com/google/cel-go/cel"
)

// RecordFilter selects which source records take part in a run.
type RecordFilter interface {
	Match(resource model.ResourceType, record interface{}) (bool, error)
}

// CELFilter evaluates a CEL expression against each source record. The
// expression sees two variables: resource (the plural type name) and record
// (the record as a JSON object).
//
//	resource != "products" || record.vendor == "Acme"
type CELFilter struct {
	expression string
	program    cel.Program
}

// NewCELFilter compiles expr. It must evaluate to a bool.
func NewCELFilter(expr string) (*CELFilter, error) {
	env, err := cel.NewEnv(
		cel.Variable("resource", cel.StringType),
		cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, errors.NewInternalError("failed to create CEL environment").WithCause(err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid filter expression %q", expr)).WithCause(issues.Err())
	}
	switch out := ast.OutputType().String(); out {
	case "bool", "dyn":
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("filter expression %q must return a bool, got %s", expr, out))
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("failed to build filter program for %q", expr)).WithCause(err)
	}
	return &CELFilter{expression: expr, program: prg}, nil
}

// Expression returns the source text of the filter.
func (f *CELFilter) Expression() string {
	return f.expression
}

// Match evaluates the filter for one record.
func (f *CELFilter) Match(resource model.ResourceType, record interface{}) (bool, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("encode record for filter: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false, fmt.Errorf("decode record for filter: %w", err)
	}

	out, _, err := f.program.Eval(map[string]interface{}{
		"resource": string(resource),
		"record":   fields,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q: %w", f.expression, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T, want bool", f.expression, out.Value())
	}
	return matched, nil
}
