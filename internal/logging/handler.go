// Package logging sets up the daemon's slog output: a colorized,
// tty-aware console handler fanned out alongside a plain-text file
// handler. Grounded on internal/utils/multi_log_handler.go's
// MultiLogHandler, adapted to fan out exactly two handlers (console +
// file) rather than an arbitrary list, since that is the daemon's only
// configuration.
package logging

import (
	"context"
	"log/slog"
)

// fanoutHandler forwards every record to both an interactive console
// handler and a file handler, so each can apply its own level filter and
// formatting independently.
type fanoutHandler struct {
	console slog.Handler
	file    slog.Handler
}

func newFanoutHandler(console, file slog.Handler) *fanoutHandler {
	return &fanoutHandler{console: console, file: file}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.file.Enabled(ctx, level)
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.console.Enabled(ctx, r.Level) {
		if e := h.console.Handle(ctx, r.Clone()); e != nil {
			err = e
		}
	}
	if h.file.Enabled(ctx, r.Level) {
		if e := h.file.Handle(ctx, r.Clone()); e != nil {
			err = e
		}
	}
	return err
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return newFanoutHandler(h.console.WithAttrs(attrs), h.file.WithAttrs(attrs))
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	return newFanoutHandler(h.console.WithGroup(name), h.file.WithGroup(name))
}
