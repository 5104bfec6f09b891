package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/songstudio/studio-api/internal/pkg/logger"
)

// Logger logs one line per request and attaches a request-scoped logger
// carrying the request id. Health probes are not logged.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.With(r.Context(), map[string]string{"request_id": GetRequestID(r.Context())})
		r = r.WithContext(ctx)

		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		l := logger.FromContext(ctx)
		var evt *zerolog.Event
		switch {
		case rec.status >= 500:
			evt = l.Error()
		case rec.status >= 400:
			evt = l.Warn()
		default:
			evt = l.Info()
		}
		evt.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("duration", time.Since(start)).
			Str("ip", r.RemoteAddr).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}
