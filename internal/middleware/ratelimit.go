package middleware

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/arjunkrish/loanbroker/internal/config"
	"github.com/arjunkrish/loanbroker/internal/limiter"
	"github.com/arjunkrish/loanbroker/internal/reliability"
)

// RateLimit throttles per authenticated agent (falling back to remote addr
// for the token endpoint, which runs pre-auth). Rate and burst come from the
// matched route policy, else from the dynamic defaults.
func RateLimit(l *limiter.TokenBucketLimiter, cfgMgr *config.DynamicConfigManager) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defaults := cfgMgr.GetRate()
			rate := defaults.DefaultRateLimit
			burst := defaults.DefaultBurst
			if p := GetPolicy(r.Context()); p != nil && p.Rules.RateLimit > 0 {
				rate = p.Rules.RateLimit
				burst = p.Rules.Burst
			}

			key := ""
			if agentID, ok := AgentID(r.Context()); ok {
				key = "ratelimit:agent:" + agentID
			} else {
				key = "ratelimit:ip:" + r.RemoteAddr
			}

			allowed, remaining, err := l.Allow(r.Context(), key, rate, burst)

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", burst))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

			if err != nil {
				if errors.Is(err, limiter.ErrRateLimitExceeded) {
					http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
					return
				}

				// Backend error (redis down): fail open so the negotiation
				// protocol keeps working without throttling.
				if reliability.ShouldAllow(reliability.FailOpen, err) {
					log.Printf("rate limiter backend error (fail open): %v", err)
					next.ServeHTTP(w, r)
					return
				}

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			if !allowed {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
