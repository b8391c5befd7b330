package props

import (
	"errors"
	"fmt"
)

// RuleError captures engine metadata alongside the originating error of
// a failed rule evaluation.
type RuleError struct {
	Engine string
	Expr   string
	Err    error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("props: %s rule expr=%q: %v", e.Engine, e.Expr, e.Err)
}

func (e *RuleError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapRuleError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}

	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		if ruleErr.Engine == "" {
			ruleErr.Engine = engine
		}
		if ruleErr.Expr == "" {
			ruleErr.Expr = expr
		}
		return ruleErr
	}

	return &RuleError{
		Engine: engine,
		Expr:   expr,
		Err:    err,
	}
}
