package props

import "time"

// RuleLogEvent describes one rule evaluation attempt.
type RuleLogEvent struct {
	Engine   string
	Expr     string
	Duration time.Duration
	Err      error
}

// RuleLogger records rule evaluation events.
type RuleLogger interface {
	LogRule(RuleLogEvent)
}

// RuleLoggerFunc adapts a function to RuleLogger.
type RuleLoggerFunc func(RuleLogEvent)

// LogRule implements RuleLogger.
func (f RuleLoggerFunc) LogRule(event RuleLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopRuleLogger struct{}

func (noopRuleLogger) LogRule(RuleLogEvent) {}
