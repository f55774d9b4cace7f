package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"
)

// SecurityConfig options
type SecurityConfig struct {
	EnableReplayProtection bool
	ReplayWindow           time.Duration
}

// SecureHeaders sets baseline response headers and, when enabled, rejects
// requests whose X-Timestamp falls outside the replay window. Agent clients
// stamp every call; the window also covers honest clock skew.
func SecureHeaders(cfg SecurityConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

			// Replay protection only applies to protected operations; the
			// token endpoint and probes stay curl-able. Requires the policy
			// enforcer to run before this middleware.
			protected := false
			if p := GetPolicy(r.Context()); p != nil {
				protected = p.Rules.AuthRequired
			}

			if cfg.EnableReplayProtection && protected {
				ts := r.Header.Get("X-Timestamp")
				if ts == "" {
					http.Error(w, "Missing X-Timestamp header", http.StatusBadRequest)
					return
				}

				reqTime, err := strconv.ParseInt(ts, 10, 64)
				if err != nil {
					http.Error(w, "Invalid X-Timestamp header", http.StatusBadRequest)
					return
				}

				now := time.Now().Unix()
				diff := float64(now - reqTime)

				window := cfg.ReplayWindow.Seconds()
				if math.Abs(diff) > window {
					http.Error(w, fmt.Sprintf("Request timestamp skewed (server: %d, req: %d)", now, reqTime), http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
