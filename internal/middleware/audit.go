package middleware

import (
	"net/http"
	"time"

	"github.com/arjunkrish/loanbroker/internal/audit"
)

func Audit(logger audit.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			r, slot := withActorSlot(r)
			rw := &responseWriterInterceptor{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			actorID := "anonymous"
			if slot.id != "" {
				actorID = slot.id
			}

			logger.Log(audit.LogEntry{
				Timestamp: start,
				ActorID:   actorID,
				Action:    r.Method + " " + r.URL.Path,
				Resource:  r.URL.Path,
				Status:    rw.statusCode,
				Metadata: map[string]interface{}{
					"remote_addr": r.RemoteAddr,
					"duration_ms": time.Since(start).Milliseconds(),
				},
			})
		})
	}
}
