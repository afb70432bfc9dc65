package alerts

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// celCostLimit bounds how much work one custom rule may do per evaluation.
const celCostLimit = 10000

// ExpressionEvaluator compiles and runs the CEL expressions of custom rules.
// Compiled programs are cached by expression text.
//
// Expressions see these variables:
//
//	total      double               total spending in the analysis window
//	budgets    map(string, double)  budget amount by category
//	spent      map(string, double)  spending by budgeted category
//	usage      map(string, double)  spent/amount by budgeted category
//	anomalies  int                  number of anomalies detected
//	categories list(string)         categories with spending
//	hour       int                  current hour of day
type ExpressionEvaluator struct {
	env   *cel.Env
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewExpressionEvaluator creates an evaluator with the rule variables declared.
func NewExpressionEvaluator() (*ExpressionEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("total", cel.DoubleType),
		cel.Variable("budgets", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("spent", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("usage", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("anomalies", cel.IntType),
		cel.Variable("categories", cel.ListType(cel.StringType)),
		cel.Variable("hour", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &ExpressionEvaluator{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Check compiles expr and verifies it yields a bool.
func (e *ExpressionEvaluator) Check(expr string) error {
	_, err := e.program(expr)
	return err
}

// Eval runs expr against vars.
func (e *ExpressionEvaluator) Eval(expr string, vars map[string]any) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("eval: %w", err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression result is %T, not bool", out.Value())
	}
	return val, nil
}

func (e *ExpressionEvaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, hit := e.cache[expr]
	e.mu.RUnlock()
	if hit {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, hit = e.cache[expr]; hit {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return bool, got %s", out)
	}
	prg, err := e.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(celCostLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	e.cache[expr] = prg
	return prg, nil
}
