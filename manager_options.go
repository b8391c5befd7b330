package props

import (
	"github.com/propkit/go-props/codec"
)

type managerConfig struct {
	codec          codec.Codec
	storage        codec.Storage
	evaluator      *Evaluator
	rules          RuleEvaluator
	ruleLogger     RuleLogger
	logger         Logger
	savingDefaults bool
	autoTrim       bool
	comment        string
	historyLimit   int
}

// ManagerOption configures a Manager at construction.
type ManagerOption func(*managerConfig)

func applyManagerOptions(opts []ManagerOption) managerConfig {
	cfg := managerConfig{autoTrim: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithCodec swaps the wire format. Defaults to codec.Properties.
func WithCodec(c codec.Codec) ManagerOption {
	return func(cfg *managerConfig) {
		if c != nil {
			cfg.codec = c
		}
	}
}

// WithStorage swaps the persistence backend, replacing the file path
// given to New.
func WithStorage(storage codec.Storage) ManagerOption {
	return func(cfg *managerConfig) {
		if storage != nil {
			cfg.storage = storage
		}
	}
}

// WithEvaluator swaps the reference evaluator.
func WithEvaluator(e *Evaluator) ManagerOption {
	return func(cfg *managerConfig) {
		if e != nil {
			cfg.evaluator = e
		}
	}
}

// WithRuleEvaluator wires a rule engine so EvaluateRule works.
func WithRuleEvaluator(e RuleEvaluator) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.rules = e
	}
}

// WithRuleLogger records every rule evaluation the manager runs.
func WithRuleLogger(logger RuleLogger) ManagerOption {
	return func(cfg *managerConfig) {
		if logger != nil {
			cfg.ruleLogger = logger
		}
	}
}

// WithLogger routes manager diagnostics. Defaults to a no-op.
func WithLogger(logger Logger) ManagerOption {
	return func(cfg *managerConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithSavingDefaults includes default-valued keys when saving. Off by
// default.
func WithSavingDefaults(saving bool) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.savingDefaults = saving
	}
}

// WithAutoTrim controls whitespace trimming of values as they are read.
// On by default.
func WithAutoTrim(trim bool) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.autoTrim = trim
	}
}

// WithComment sets the header comment written at the top of the saved
// file.
func WithComment(comment string) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.comment = comment
	}
}

// WithHistoryLimit bounds each key's undo history.
func WithHistoryLimit(limit int) ManagerOption {
	return func(cfg *managerConfig) {
		if limit > 0 {
			cfg.historyLimit = limit
		}
	}
}
