package props

// Logger receives diagnostic messages from a Manager, such as a typed
// accessor falling back to its default after a parse failure.
type Logger interface {
	Logf(format string, args ...any)
}

// LoggerFunc allows plain functions to satisfy Logger.
type LoggerFunc func(format string, args ...any)

// Logf dispatches to the underlying function.
func (fn LoggerFunc) Logf(format string, args ...any) {
	if fn == nil {
		return
	}
	fn(format, args...)
}

type noopLogger struct{}

func (noopLogger) Logf(string, ...any) {}

var _ Logger = noopLogger{}
