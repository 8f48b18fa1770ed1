package service

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/arthaus/editions/cmd/editions/models"
)

// compileEditionFilter compiles a CEL predicate used by the batch sweep
// to select editions. Empty filter means sweep everything (nil program).
func compileEditionFilter(expr string) (cel.Program, error) {
	if expr == "" {
		return nil, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("edition_id", cel.StringType),
		cel.Variable("edition_size", cel.IntType),
		cel.Variable("archived", cel.BoolType),
		cel.Variable("active_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	if ast.OutputType().String() != "bool" {
		return nil, fmt.Errorf("sweep filter must be a boolean expression, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return prg, nil
}

// matchEdition evaluates a compiled filter against one edition.
// edition_size is 0 for uncapped editions.
func matchEdition(prg cel.Program, edition *models.Edition) (bool, error) {
	size := 0
	if edition.EditionSize != nil {
		size = *edition.EditionSize
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"edition_id":   edition.EditionID,
		"edition_size": size,
		"archived":     edition.Archived,
		"active_count": edition.ActiveUnits,
	})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter did not return boolean, got %T", out.Value())
	}

	return result, nil
}
