package calculator

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
)

// constParams are available in every expression unless overridden by input params
var constParams = map[string]any{
	"pi":    math.Pi,
	"e":     math.E,
	"phi":   math.Phi,
	"sqrt2": math.Sqrt2,
	"ln2":   math.Ln2,
	"ln10":  math.Ln10,
}

// Functions callable from expressions
var Functions = map[string]govaluate.ExpressionFunction{
	"sqrt":  unary("sqrt", math.Sqrt),
	"abs":   unary("abs", math.Abs),
	"ceil":  unary("ceil", math.Ceil),
	"floor": unary("floor", math.Floor),
	"round": unary("round", math.Round),
	"exp":   unary("exp", math.Exp),
	"ln":    unary("ln", math.Log),
	"log10": unary("log10", math.Log10),
	"log2":  unary("log2", math.Log2),
	"sin":   unary("sin", math.Sin),
	"cos":   unary("cos", math.Cos),
	"tan":   unary("tan", math.Tan),
	"asin":  unary("asin", math.Asin),
	"acos":  unary("acos", math.Acos),
	"atan":  unary("atan", math.Atan),
	"pow":   binary("pow", math.Pow),
	"mod":   binary("mod", math.Mod),
	"max":   variadic("max", math.Max),
	"min":   variadic("min", math.Min),
}

func toFloat(name string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("%s: argument %v is not a number", name, v)
}

func unary(name string, fn func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: expects 1 argument, got %d", name, len(args))
		}
		x, err := toFloat(name, args[0])
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	}
}

func binary(name string, fn func(float64, float64) float64) govaluate.ExpressionFunction {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: expects 2 arguments, got %d", name, len(args))
		}
		x, err := toFloat(name, args[0])
		if err != nil {
			return nil, err
		}
		y, err := toFloat(name, args[1])
		if err != nil {
			return nil, err
		}
		return fn(x, y), nil
	}
}

func variadic(name string, fn func(float64, float64) float64) govaluate.ExpressionFunction {
	return func(args ...any) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("%s: expects at least 1 argument", name)
		}
		ret, err := toFloat(name, args[0])
		if err != nil {
			return nil, err
		}
		for _, arg := range args[1:] {
			x, err := toFloat(name, arg)
			if err != nil {
				return nil, err
			}
			ret = fn(ret, x)
		}
		return ret, nil
	}
}
