package props

type jsRulesConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// JSRulesOption configures the JS rule engine.
type JSRulesOption func(*jsRulesConfig)

// JSWithProgramCache applies a ProgramCache to the JS engine.
func JSWithProgramCache(cache ProgramCache) JSRulesOption {
	return func(cfg *jsRulesConfig) {
		cfg.cache = cache
	}
}

// JSWithFunctionRegistry applies a FunctionRegistry to the JS engine.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSRulesOption {
	return func(cfg *jsRulesConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

func applyJSRulesOptions(opts []JSRulesOption) jsRulesConfig {
	cfg := jsRulesConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
