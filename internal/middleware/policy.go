package middleware

import (
	"context"
	"net/http"

	"github.com/arjunkrish/loanbroker/internal/policy"
)

type contextKey string

const PolicyContextKey contextKey = "policy"

// PolicyEnforcer evaluates the request and attaches the matched policy to
// the context. Unmatched routes fall back to a deny-by-default policy that
// requires authentication; the broker's surface is small enough that every
// real route has an explicit entry.
func PolicyEnforcer(engine *policy.Engine) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := engine.Evaluate(r)
			if p == nil {
				p = &policy.Policy{
					ID: "default",
					Rules: policy.Rules{
						AuthRequired: true,
						RateLimit:    1.0,
						Burst:        5,
					},
				}
			}

			ctx := context.WithValue(r.Context(), PolicyContextKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPolicy returns the matched policy from context, if any.
func GetPolicy(ctx context.Context) *policy.Policy {
	if p, ok := ctx.Value(PolicyContextKey).(*policy.Policy); ok {
		return p
	}
	return nil
}
