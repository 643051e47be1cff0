package core

import "github.com/hupe1980/agentkit/logging"

// loggerAdapter prefixes every entry with the attributes it was bound with,
// so log lines emitted through a RunContext or ToolContext carry the run and
// call they belong to.
type loggerAdapter struct {
	logger logging.Logger
	bound  []any
}

func newLoggerAdapter(l logging.Logger, bound ...any) *loggerAdapter {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	return &loggerAdapter{logger: l, bound: bound}
}

// Logger returns the unbound logger.
func (l *loggerAdapter) Logger() logging.Logger {
	return l.logger
}

func (l *loggerAdapter) with(args []any) []any {
	if len(l.bound) == 0 {
		return args
	}

	out := make([]any, 0, len(l.bound)+len(args))
	out = append(out, l.bound...)

	return append(out, args...)
}

// LogDebug logs at debug level.
func (l *loggerAdapter) LogDebug(msg string, args ...any) { l.logger.Debug(msg, l.with(args)...) }

// LogInfo logs at info level.
func (l *loggerAdapter) LogInfo(msg string, args ...any) { l.logger.Info(msg, l.with(args)...) }

// LogWarn logs at warn level.
func (l *loggerAdapter) LogWarn(msg string, args ...any) { l.logger.Warn(msg, l.with(args)...) }

// LogError logs at error level.
func (l *loggerAdapter) LogError(msg string, args ...any) { l.logger.Error(msg, l.with(args)...) }
