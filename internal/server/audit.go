package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nixxxo/local-llm/internal/clientip"
	"github.com/nixxxo/local-llm/internal/storage"
)

// AuditRecord holds the handler-supplied fields of a request log record.
type AuditRecord struct {
	Model    string
	Filtered bool
}

type auditKey struct{}

// AuditInfo returns the mutable audit record for the current request, or nil
// when the audit middleware is not installed.
func AuditInfo(ctx context.Context) *AuditRecord {
	if rec, ok := ctx.Value(auditKey{}).(*AuditRecord); ok {
		return rec
	}
	return nil
}

// auditQueueSize bounds the number of pending records; the writer drops
// records beyond it rather than blocking request handling.
const auditQueueSize = 256

// AuditWriter persists request log records through one background goroutine
// fed by a bounded queue, so request handling never spawns goroutines or
// waits on the store.
type AuditWriter struct {
	store  storage.RequestLogStore
	logger *slog.Logger
	ch     chan *storage.RequestLog
	done   chan struct{}
	once   sync.Once
}

// NewAuditWriter starts the writer goroutine. A nil store yields a nil
// writer, which AuditMiddleware treats as a disabled sink.
func NewAuditWriter(store storage.RequestLogStore, logger *slog.Logger) *AuditWriter {
	if store == nil {
		return nil
	}
	w := &AuditWriter{
		store:  store,
		logger: logger,
		ch:     make(chan *storage.RequestLog, auditQueueSize),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *AuditWriter) run() {
	defer close(w.done)
	for entry := range w.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := w.store.LogRequest(ctx, entry); err != nil {
			w.logger.Error("failed to persist request log",
				slog.String("error", err.Error()))
		}
		cancel()
	}
}

func (w *AuditWriter) enqueue(entry *storage.RequestLog) {
	select {
	case w.ch <- entry:
	default:
		w.logger.Warn("audit queue full, dropping record",
			slog.String("endpoint", entry.Endpoint))
	}
}

// Close stops accepting records and blocks until the queue is drained. It
// must run after the HTTP server has drained and before the store closes.
func (w *AuditWriter) Close() error {
	if w == nil {
		return nil
	}
	w.once.Do(func() { close(w.ch) })
	<-w.done
	return nil
}

// AuditMiddleware persists one record per request: method, endpoint, status,
// timing and client identifier, plus whatever the handler filled into the
// AuditRecord. A nil writer disables the sink.
func AuditMiddleware(writer *AuditWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if writer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &AuditRecord{}
			ctx := context.WithValue(r.Context(), auditKey{}, rec)

			wrapped := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			writer.enqueue(&storage.RequestLog{
				ID:        uuid.New().String(),
				Method:    r.Method,
				Endpoint:  r.URL.Path,
				Status:    wrapped.statusCode,
				Duration:  time.Since(start),
				ClientID:  clientip.FromRequest(r),
				Model:     rec.Model,
				Filtered:  rec.Filtered,
				CreatedAt: start,
			})
		})
	}
}
