package domain

// Logger is the leveled logging capability the engine and registry
// write diagnostics through. It is an external collaborator: the
// default implementation wraps log/slog, but any four-method logger
// can be injected via FlowOptions or the engine configuration.
// Args follow the slog convention of alternating key/value pairs.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}
