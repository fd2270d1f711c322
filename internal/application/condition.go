package application

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// ConditionInput holds the variables a module condition can read.
type ConditionInput struct {
	// Environment is the host environment name.
	Environment string

	// Application is the application name.
	Application string

	// Module is the name of the module being decided on.
	Module string

	// Settings are the module settings from configuration.
	Settings map[string]any
}

// ConditionEvaluator compiles and evaluates the CEL expressions used in
// modules.<name>.enabledWhen. Compiled programs are cached by expression.
type ConditionEvaluator struct {
	env *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program
}

// NewConditionEvaluator creates a condition evaluator.
func NewConditionEvaluator() (*ConditionEvaluator, error) {
	env, err := createCELEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &ConditionEvaluator{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

func createCELEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("environment", cel.StringType),
		cel.Variable("application", cel.StringType),
		cel.Variable("module", cel.StringType),
		cel.Variable("settings", cel.MapType(cel.StringType, cel.DynType)),

		cel.Function("getenv",
			cel.Overload("getenv_string",
				[]*cel.Type{cel.StringType},
				cel.StringType,
				cel.UnaryBinding(getenvBinding),
			),
		),
	)
}

// getenvBinding returns the value of an environment variable, or "".
func getenvBinding(name ref.Val) ref.Val {
	key, ok := name.Value().(string)
	if !ok {
		return types.String("")
	}
	return types.String(os.Getenv(key))
}

// Compile checks expr and returns its program. Expressions must produce a
// bool; dynamic results are checked when evaluated.
func (e *ConditionEvaluator) Compile(expr string) (cel.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if program, ok := e.programs[expr]; ok {
		return program, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile condition %q: %w", expr, issues.Err())
	}

	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("condition %q must evaluate to bool, got %s", expr, out)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for condition %q: %w", expr, err)
	}

	e.programs[expr] = program
	return program, nil
}

// Evaluate compiles expr if needed and evaluates it against in.
func (e *ConditionEvaluator) Evaluate(expr string, in ConditionInput) (bool, error) {
	program, err := e.Compile(expr)
	if err != nil {
		return false, err
	}

	settings := in.Settings
	if settings == nil {
		settings = map[string]any{}
	}

	result, _, err := program.Eval(map[string]any{
		"environment": in.Environment,
		"application": in.Application,
		"module":      in.Module,
		"settings":    settings,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate condition %q: %w", expr, err)
	}

	value, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition %q evaluated to %s, not bool", expr, result.Type().TypeName())
	}
	return value, nil
}
