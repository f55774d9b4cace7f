package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/arjunkrish/loanbroker/internal/auth"
)

type ContextKey string

const (
	// AgentContextKey holds the authenticated agent id (token subject).
	AgentContextKey ContextKey = "agent"
	// ClaimsContextKey holds the full *auth.TokenClaims.
	ClaimsContextKey ContextKey = "claims"
)

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
}

func NewAuth(jwtManager *auth.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
	}
}

// Handle verifies the bearer token and enforces the route policy's scope.
// The scope check is set membership against the scopes frozen into the
// token at issuance; the credential table is never re-read here.
func (m *AuthMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authRequired := true
		requiredScope := ""
		if p := GetPolicy(r.Context()); p != nil {
			authRequired = p.Rules.AuthRequired
			requiredScope = p.Rules.Scope
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if authRequired {
				writeAuthError(w, http.StatusUnauthorized, "missing credentials")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenStr == "" {
			writeAuthError(w, http.StatusUnauthorized, "malformed authorization header")
			return
		}

		claims, err := m.jwtManager.Verify(tokenStr)
		if err != nil {
			// Expired and tampered tokens share one signal; the taxonomy
			// only splits absent/malformed from invalid.
			writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		if requiredScope != "" && !claims.HasScope(requiredScope) {
			writeAuthError(w, http.StatusForbidden, "token lacks required scope "+requiredScope)
			return
		}

		recordActor(r.Context(), claims.AgentID)
		ctx := context.WithValue(r.Context(), AgentContextKey, claims.AgentID)
		ctx = context.WithValue(ctx, ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AgentID extracts the authenticated agent id from the request context.
func AgentID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AgentContextKey).(string)
	return id, ok
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
