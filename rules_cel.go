package props

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELRulesOption configures the CEL rule engine.
type CELRulesOption func(*celRules)

// CELWithProgramCache wires a ProgramCache into the CEL engine.
func CELWithProgramCache(cache ProgramCache) CELRulesOption {
	return func(e *celRules) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL engine.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELRulesOption {
	return func(e *celRules) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celRules struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELRules constructs a RuleEvaluator backed by cel-go.
func NewCELRules(opts ...CELRulesOption) RuleEvaluator {
	e := &celRules{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celRules) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapRuleError("cel", expression, fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(e.activation(ctx))
	if err != nil {
		return nil, wrapRuleError("cel", expression, err)
	}
	return out.Value(), nil
}

func (e *celRules) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapRuleError("cel", expression, fmt.Errorf("expression must not be empty"))
	}
	return &celCompiledRule{
		engine:     e,
		expression: expression,
	}, nil
}

func (e *celRules) loadOrCompile(expression string) (*celProgram, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv()
	if err != nil {
		return nil, wrapRuleError("cel", expression, err)
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapRuleError("cel", expression, issues.Err())
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, wrapRuleError("cel", expression, issues.Err())
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, wrapRuleError("cel", expression, err)
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(expression, bundle)
	}
	return bundle, nil
}

func (e *celRules) buildEnv() (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("props", celgo.DynType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
	}
	if e.registry != nil {
		binding := e.callBinding()
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType},
			celgo.DynType,
			celgo.FunctionBinding(func(values ...ref.Val) ref.Val {
				return binding(values)
			}),
		)))
	}
	return celgo.NewEnv(opts...)
}

func (e *celRules) activation(ctx RuleContext) map[string]any {
	activation := map[string]any{
		"now":      ctx.timestamp(),
		"props":    ctx.Properties,
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	if e.registry != nil {
		activation["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
	}
	return activation
}

type celCompiledRule struct {
	engine     *celRules
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.engine == nil {
		return nil, wrapRuleError("cel", r.expression, fmt.Errorf("compiled rule missing engine"))
	}
	ctx = ctx.withDefaults()
	program, err := r.engine.loadOrCompile(r.expression)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(r.engine.activation(ctx))
	if err != nil {
		return nil, wrapRuleError("cel", r.expression, err)
	}
	return out.Value(), nil
}

func (e *celRules) callBinding() func([]ref.Val) ref.Val {
	return func(values []ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("props: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("props: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("props: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr(err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
