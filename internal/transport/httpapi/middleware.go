package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"qcflow/internal/bootstrap/logging"
)

// requestLogger tags the request context for the engine's logs and writes one
// line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithAttrs(
			logging.WithComponent(r.Context(), "transport.http"),
			slog.String("http_request_id", middleware.GetReqID(r.Context())),
		)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			logging.Warn(ctx, "http request failed", attrs...)
			return
		}
		logging.Info(ctx, "http request", attrs...)
	})
}

// WithCORS wraps h with a CORS policy for the given browser origins.
func WithCORS(h http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", HeaderActorID, HeaderIdempotencyKey},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(h)
}
