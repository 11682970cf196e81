package calculator

import (
	"context"
	"fmt"

	"github.com/Knetic/govaluate"

	"github.com/bububa/atomic-cookbook/schema"
	"github.com/bububa/atomic-cookbook/tools"
)

// Input Tool for performing calculations. Supports basic arithmetic operations
// like addition, subtraction, multiplication, and division, as well as more
// complex operations like exponentiation and trigonometric functions.
// Use this tool to evaluate mathematical expressions.
type Input struct {
	schema.Base
	// Expression Mathematical expression to evaluate. For example, '2 + 2'.
	Expression string `json:"expression" jsonschema:"title=expression,description=Mathematical expression to evaluate. For example, '2 + 2'." validate:"required"`
	// Params represents expressions's parameters
	Params map[string]any `json:"params,omitempty" jsonschema:"title=params,description=Parameters for the expression."`
}

func NewInput(exp string, params map[string]any) *Input {
	return &Input{
		Expression: exp,
		Params:     params,
	}
}

func (i Input) String() string {
	return i.Expression
}

// Output Schema for the output of the CalculatorTool
type Output struct {
	schema.Base
	// Result Result of the calculation
	Result any `json:"result,omitempty" jsonschema:"title=result,description=Result of the calculation."`
}

func NewOutput(result any) *Output {
	return &Output{
		Result: result,
	}
}

func (o Output) String() string {
	return fmt.Sprint(o.Result)
}

type Tool struct {
	tools.Config
}

var _ tools.Tool[Input, Output] = (*Tool)(nil)

func New(opts ...tools.Option) *Tool {
	return &Tool{
		Config: tools.NewConfig("CalculatorTool", opts...),
	}
}

// Run evaluates the expression with the given parameters.
func (t *Tool) Run(ctx context.Context, input *Input) (*Output, error) {
	t.OnStart(ctx, t, input)
	ret, err := Evaluate(input.Expression, input.Params)
	if err != nil {
		t.OnError(ctx, t, input, err)
		return nil, err
	}
	output := NewOutput(ret)
	t.OnEnd(ctx, t, input, output)
	return output, nil
}

// Evaluate evaluates a mathematical expression, params shadow the builtin constants
func Evaluate(expression string, params map[string]any) (any, error) {
	exp, err := govaluate.NewEvaluableExpressionWithFunctions(expression, Functions)
	if err != nil {
		return nil, fmt.Errorf("parse expression: %w", err)
	}
	vars := make(map[string]any, len(params)+len(constParams))
	for k, v := range constParams {
		vars[k] = v
	}
	for k, v := range params {
		vars[k] = v
	}
	ret, err := exp.Evaluate(vars)
	if err != nil {
		return nil, fmt.Errorf("evaluate expression: %w", err)
	}
	return ret, nil
}
