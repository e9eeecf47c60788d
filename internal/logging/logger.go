package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/espalierhq/espalier/pkg/domain"
)

// New creates a configured application logger.
// It writes to Stderr (to keep Stdout free for flow output) and
// standardizes common keys (e.g., "error" -> "err").
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Slog adapts a *slog.Logger to the domain.Logger capability.
type Slog struct {
	L *slog.Logger
}

// Wrap returns a domain.Logger backed by l.
func Wrap(l *slog.Logger) domain.Logger {
	return Slog{L: l}
}

func (s Slog) Error(msg string, args ...any) { s.L.Error(msg, args...) }
func (s Slog) Warn(msg string, args ...any)  { s.L.Warn(msg, args...) }
func (s Slog) Info(msg string, args ...any)  { s.L.Info(msg, args...) }
func (s Slog) Debug(msg string, args ...any) { s.L.Debug(msg, args...) }

// leveled filters a domain.Logger by the flow's configured LogLevel.
type leveled struct {
	next  domain.Logger
	level domain.LogLevel
}

// Leveled wraps next so that only messages at or below level pass
// through. A nil next yields a silent logger.
func Leveled(next domain.Logger, level domain.LogLevel) domain.Logger {
	if next == nil {
		level = domain.LogNone
	}
	return leveled{next: next, level: level}
}

func (l leveled) Error(msg string, args ...any) {
	if l.level >= domain.LogError {
		l.next.Error(msg, args...)
	}
}

func (l leveled) Warn(msg string, args ...any) {
	// Warnings ride the error gate: they are diagnostics, not chatter.
	if l.level >= domain.LogError {
		l.next.Warn(msg, args...)
	}
}

func (l leveled) Info(msg string, args ...any) {
	if l.level >= domain.LogInfo {
		l.next.Info(msg, args...)
	}
}

func (l leveled) Debug(msg string, args ...any) {
	if l.level >= domain.LogDebug {
		l.next.Debug(msg, args...)
	}
}
