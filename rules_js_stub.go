//go:build !js_rules

package props

// NewJSRules is unavailable without the js_rules build tag.
func NewJSRules(opts ...JSRulesOption) RuleEvaluator {
	_ = applyJSRulesOptions(opts)
	return nil
}

func jsRulesAvailable() bool {
	return false
}
