package linen

import "log/slog"

var logger = slog.New(slog.DiscardHandler)

// SetLogger sets the logger used for binding diagnostics.
// Passing nil discards them.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger = l
}
