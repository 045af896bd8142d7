package slogdb

import (
	"context"
	"log/slog"
	"sync"

	"chimbori.dev/scrollshot/db"
)

// DBHandler is a slog.Handler that writes error-level logs to the PostgreSQL `logs` table.
// It wraps another handler to maintain normal console/file logging.
type DBHandler struct {
	parent slog.Handler
	pool   db.DBTX
	attrs  []slog.Attr
	mu     *sync.Mutex
}

// NewDBHandler creates a new database logging handler that wraps the parent handler.
// Only ERROR level logs are written to the database; all logs are passed to the parent.
func NewDBHandler(parent slog.Handler, pool db.DBTX) *DBHandler {
	return &DBHandler{
		parent: parent,
		pool:   pool,
		mu:     &sync.Mutex{},
	}
}

// Enabled reports whether the handler handles records at the given level. It delegates to the parent handler.
func (h *DBHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.parent.Enabled(ctx, level)
}

// Handle writes error-level logs to the database, then delegates to the parent handler.
func (h *DBHandler) Handle(ctx context.Context, r slog.Record) error {
	// Write to database if this is an error-level log
	if r.Level >= slog.LevelError {
		h.writeToDatabase(ctx, r)
	}
	// Always pass through to the parent handler for console/file logging
	return h.parent.Handle(ctx, r)
}

// WithAttrs returns a new handler with the given attributes added.
func (h *DBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &DBHandler{
		parent: h.parent.WithAttrs(attrs),
		pool:   h.pool,
		attrs:  append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
		mu:     h.mu,
	}
}

// WithGroup returns a new handler with the given group added.
func (h *DBHandler) WithGroup(name string) slog.Handler {
	return &DBHandler{
		parent: h.parent.WithGroup(name),
		pool:   h.pool,
		attrs:  h.attrs,
		mu:     h.mu,
	}
}

// writeToDatabase extracts relevant information from the log record and writes it to the `logs` table.
func (h *DBHandler) writeToDatabase(ctx context.Context, r slog.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Extract attributes from the log record, including those bound via Logger.With.
	var params db.InsertLogParams
	message := r.Message
	params.Message = &message

	collect := func(a slog.Attr) {
		switch a.Key {
		case "err":
			params.Err = stringAttr(a)
		case "url":
			params.Url = stringAttr(a)
		case "platform":
			params.Platform = stringAttr(a)
		case "name":
			params.Name = stringAttr(a)
		case "selector":
			params.Selector = stringAttr(a)
		case "chunk":
			if v := a.Value.Any(); v != nil {
				var i int32
				switch val := v.(type) {
				case int:
					i = int32(val)
				case int32:
					i = val
				case int64:
					i = int32(val)
				}
				params.Chunk = &i
			}
		}
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})

	queries := db.New(h.pool)
	// Use context.Background() to avoid cancellation issues during shutdown
	err := queries.InsertLog(context.Background(), params)
	// If we fail to write to the database, log it to the parent handler,
	// but don’t propagate the error to avoid infinite loops.
	if err != nil {
		_ = h.parent.Handle(ctx, slog.NewRecord(r.Time, slog.LevelWarn, "Failed to write log to database", r.PC))
	}
}

func stringAttr(a slog.Attr) *string {
	if s := a.Value.String(); s != "" {
		return &s
	}
	return nil
}
