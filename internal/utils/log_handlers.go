package utils

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// FanoutHandler hands every record to each handler that accepts its level
type FanoutHandler struct {
	handlers []slog.Handler
}

func NewFanoutHandler(handlers ...slog.Handler) *FanoutHandler {
	return &FanoutHandler{handlers: handlers}
}

func (h *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	return h.each(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h *FanoutHandler) each(fn func(slog.Handler) slog.Handler) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = fn(handler)
	}
	return &FanoutHandler{handlers: next}
}

// ProgressHandler passes the message of every record at or above Info to a line sink.
// Attributes are dropped: progress lines are meant for people, the structured copy goes
// to the other handlers of a FanoutHandler.
type ProgressHandler struct {
	mu   *sync.Mutex
	sink func(line string)
}

func NewProgressHandler(sink func(line string)) *ProgressHandler {
	return &ProgressHandler{mu: &sync.Mutex{}, sink: sink}
}

func (h *ProgressHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.sink != nil && level >= slog.LevelInfo
}

func (h *ProgressHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink(r.Message)
	return nil
}

func (h *ProgressHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *ProgressHandler) WithGroup(string) slog.Handler { return h }
