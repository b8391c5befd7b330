package props

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprRulesOption configures an expr rule engine instance.
type ExprRulesOption func(*exprRules)

// ExprWithProgramCache wires a ProgramCache into the expr engine.
func ExprWithProgramCache(cache ProgramCache) ExprRulesOption {
	return func(e *exprRules) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr engine.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprRulesOption {
	return func(e *exprRules) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprRules executes rule expressions using github.com/expr-lang/expr.
type exprRules struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprRules constructs a RuleEvaluator backed by expr-lang/expr.
func NewExprRules(opts ...ExprRulesOption) RuleEvaluator {
	e := &exprRules{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate compiles and runs expression against the property snapshot.
func (e *exprRules) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapRuleError("expr", expression, fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	env := e.environment(ctx)
	if e.cache == nil {
		result, err := exprlang.Eval(expression, env)
		if err != nil {
			return nil, wrapRuleError("expr", expression, err)
		}
		return result, nil
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, env)
	if err != nil {
		return nil, wrapRuleError("expr", expression, err)
	}
	return result, nil
}

// Compile returns a compiled rule that evaluates expression per
// invocation.
func (e *exprRules) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapRuleError("expr", expression, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledRule{
		engine:     e,
		program:    program,
		expression: expression,
	}, nil
}

func (e *exprRules) loadOrCompile(expression string) (*exprvm.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if e.registry != nil {
		for _, name := range e.registry.Names() {
			fn := name
			options = append(options, exprlang.Function(fn, func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}))
		}
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapRuleError("expr", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *exprRules) environment(ctx RuleContext) map[string]any {
	env := map[string]any{
		"now":      ctx.timestamp(),
		"props":    ctx.Properties,
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	if e.registry != nil {
		env["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
		for _, name := range e.registry.Names() {
			fn := name
			env[fn] = func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}
		}
	}
	return env
}

type exprCompiledRule struct {
	engine     *exprRules
	program    *exprvm.Program
	expression string
}

func (r *exprCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.engine == nil {
		return nil, wrapRuleError("expr", r.expression, fmt.Errorf("compiled rule missing engine"))
	}
	ctx = ctx.withDefaults()
	if r.program == nil {
		return r.engine.Evaluate(ctx, r.expression)
	}
	env := r.engine.environment(ctx)
	result, err := exprlang.Run(r.program, env)
	if err != nil {
		return nil, wrapRuleError("expr", r.expression, err)
	}
	return result, nil
}
