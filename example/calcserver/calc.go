package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mnehpets/jsonrpc2/classify"
	"github.com/mnehpets/jsonrpc2/service"
)

var errDivideByZero = errors.New("divide by zero")

type unknownVariableError struct {
	Name string
}

func (e *unknownVariableError) Error() string { return "unknown variable " + e.Name }

// Calculator keeps named variables between calls.
type Calculator struct {
	mu   sync.RWMutex
	vars map[string]float64
}

func NewCalculator() *Calculator {
	return &Calculator{vars: make(map[string]float64)}
}

func (c *Calculator) add(ctx context.Context, args service.Args) (any, error) {
	return service.Arg[float64](args, "x") + service.Arg[float64](args, "y"), nil
}

func (c *Calculator) subtract(ctx context.Context, args service.Args) (any, error) {
	return service.Arg[float64](args, "minuend") - service.Arg[float64](args, "subtrahend"), nil
}

func (c *Calculator) divide(ctx context.Context, args service.Args) (any, error) {
	y := service.Arg[float64](args, "y")
	if y == 0 {
		return nil, fmt.Errorf("divide: %w", errDivideByZero)
	}
	return service.Arg[float64](args, "x") / y, nil
}

func (c *Calculator) sum(ctx context.Context, args service.Args) (any, error) {
	var total float64
	for _, v := range service.Arg[[]float64](args, "values") {
		total += v
	}
	return total, nil
}

func (c *Calculator) set(ctx context.Context, args service.Args) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vars[service.Arg[string](args, "name")] = service.Arg[float64](args, "value")
	return nil, nil
}

func (c *Calculator) get(ctx context.Context, args service.Args) (any, error) {
	name := service.Arg[string](args, "name")
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vars[name]
	if !ok {
		if def := service.Arg[*float64](args, "default"); def != nil {
			return *def, nil
		}
		return nil, &unknownVariableError{Name: name}
	}
	return v, nil
}

func (c *Calculator) RPCService() service.Definer {
	return service.Define[*Calculator]("calc").
		Method("add", (*Calculator).add, service.Param[float64]("x"), service.Param[float64]("y")).
		Method("subtract", (*Calculator).subtract, service.Param[float64]("minuend"), service.Param[float64]("subtrahend")).
		Method("divide", (*Calculator).divide, service.Param[float64]("x"), service.Param[float64]("y")).
		Method("sum", (*Calculator).sum, service.Param[[]float64]("values")).
		Method("set", (*Calculator).set, service.Param[string]("name"), service.Param[float64]("value")).
		Method("get", (*Calculator).get, service.Param[string]("name"), service.Optional[*float64]("default"))
}

func calcRules() []classify.Rule {
	return []classify.Rule{
		classify.When("divide by zero", func(err error) bool { return errors.Is(err, errDivideByZero) },
			classify.ErrorDescriptor{Code: -32001, Message: "Division by zero"}),
		classify.For[*unknownVariableError](classify.ErrorDescriptor{
			Code:    -32002,
			Message: "Unknown variable",
			Data: []classify.DataResolver{classify.Field(func(e *unknownVariableError) any {
				return map[string]string{"name": e.Name}
			})},
		}),
	}
}
