package httpcache

import (
	"log/slog"
	"sync"
)

var (
	logger   *slog.Logger
	loggerMu sync.Once
)

// SetLogger sets a custom slog.Logger instance to be used by httpcache. If not
// set, the default slog logger is used. Passing nil installs a discard
// handler, silencing the package.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
		return
	}
	logger = slog.New(slog.DiscardHandler)
}

// GetLogger returns the configured logger, or the default slog logger if none
// has been set.
func GetLogger() *slog.Logger {
	loggerMu.Do(func() {
		if logger == nil {
			logger = slog.Default()
		}
	})
	return logger
}
