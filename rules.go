package props

import (
	"fmt"
	"time"
)

// RuleContext carries the inputs a rule expression evaluates against.
// Properties holds the evaluated (reference-expanded) property snapshot,
// keyed by key-name, with values coerced to int64/float64/bool where
// they parse cleanly and kept as strings otherwise.
type RuleContext struct {
	Properties map[string]any
	Now        *time.Time
	Args       map[string]any
	Metadata   map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Properties == nil {
		ctx.Properties = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaults()
	return *ctx.Now
}

// RuleEvaluator executes expressions against a rule context. Property
// values are reachable in every engine through the `props` binding, e.g.
// `props["server.port"] > 1024`.
type RuleEvaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// ProgramCache stores compiled expression programs keyed by expression
// strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

func ruleEngineName(e RuleEvaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*props.exprRules":
		return "expr"
	case "*props.celRules":
		return "cel"
	case "*props.jsRules":
		return "js"
	default:
		return "custom"
	}
}
