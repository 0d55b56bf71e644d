package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	requestNoteKey
)

// RequestID honors a caller-supplied X-Request-Id and generates one
// otherwise, so every log line stays correlatable.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestNote carries handler annotations (webhook outcome fields) into the
// request log line. One note per request, touched only by that request's
// handler.
type requestNote struct {
	args []any
}

// annotate appends key/value pairs to the current request's log line.
func annotate(ctx context.Context, args ...any) {
	if note, ok := ctx.Value(requestNoteKey).(*requestNote); ok {
		note.args = append(note.args, args...)
	}
}

// instrument counts every response in the collector and emits one structured
// log line per request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		note := &requestNote{}
		ctx := context.WithValue(r.Context(), requestNoteKey, note)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveHTTPRequest(r.URL.Path, status)

		args := []any{
			"request_id", requestIDFrom(ctx),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"latency_ms", float64(time.Since(start).Microseconds()) / 1000.0,
		}
		args = append(args, note.args...)
		s.logger.Info("request processed", args...)
	})
}
