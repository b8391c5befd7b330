//go:build js_rules

package props

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsRules struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSRules constructs a RuleEvaluator backed by goja.
func NewJSRules(opts ...JSRulesOption) RuleEvaluator {
	cfg := applyJSRulesOptions(opts)
	return &jsRules{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (e *jsRules) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapRuleError("js", expression, fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	if e.cache == nil {
		return e.run(ctx, expression, nil)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

func (e *jsRules) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapRuleError("js", expression, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledRule{
		engine:     e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *jsRules) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", e.wrapExpression(expression), false)
	if err != nil {
		return nil, wrapRuleError("js", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *jsRules) run(ctx RuleContext, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	e.injectContext(vm, ctx)
	if program != nil {
		value, err := vm.RunProgram(program)
		if err != nil {
			return nil, wrapRuleError("js", expression, err)
		}
		return value.Export(), nil
	}
	value, err := vm.RunString(e.wrapExpression(expression))
	if err != nil {
		return nil, wrapRuleError("js", expression, err)
	}
	return value.Export(), nil
}

func (e *jsRules) injectContext(vm *goja.Runtime, ctx RuleContext) {
	vm.Set("now", ctx.timestamp())
	vm.Set("props", ctx.Properties)
	vm.Set("args", ctx.Args)
	vm.Set("metadata", ctx.Metadata)
	if e.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		})
		for _, name := range e.registry.Names() {
			fn := name
			vm.Set(fn, func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			})
		}
	}
}

func (e *jsRules) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiledRule struct {
	engine     *jsRules
	expression string
	program    *goja.Program
}

func (r *jsCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.engine == nil {
		return nil, wrapRuleError("js", r.expression, fmt.Errorf("compiled rule missing engine"))
	}
	ctx = ctx.withDefaults()
	return r.engine.run(ctx, r.expression, r.program)
}

func jsRulesAvailable() bool {
	return true
}
