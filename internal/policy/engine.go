package policy

import (
	"net/http"
	"strings"
	"sync"
)

// Matcher defines criteria to apply a policy
type Matcher struct {
	Method string `json:"method,omitempty"` // "*" or specific
	Path   string `json:"path"`             // Prefix match
}

// Rules defines what to enforce on a matched route. Scope is the single
// capability the bearer token must carry; empty means any authenticated
// agent (or anyone, when AuthRequired is false).
type Rules struct {
	AuthRequired bool    `json:"auth_required"`
	Scope        string  `json:"scope,omitempty"`
	RateLimit    float64 `json:"rate_limit"` // Requests per second
	Burst        int     `json:"burst"`
}

// Policy is a named set of rules
type Policy struct {
	ID      string  `json:"id"`
	Matcher Matcher `json:"matcher"`
	Rules   Rules   `json:"rules"`
}

// Engine evaluates requests against policies.
// Conflict resolution: first match wins, so order routes most-specific first.
type Engine struct {
	mu       sync.RWMutex
	policies []Policy
}

func NewEngine() *Engine {
	return &Engine{
		policies: []Policy{},
	}
}

// LoadPolicies replaces the current set
func (e *Engine) LoadPolicies(newPolicies []Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policies = newPolicies
}

// Evaluate finds the first matching policy
func (e *Engine) Evaluate(r *http.Request) *Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for i := range e.policies {
		p := &e.policies[i]
		if match(p.Matcher, r) {
			return p
		}
	}
	return nil
}

func match(m Matcher, r *http.Request) bool {
	if m.Method != "" && m.Method != "*" && m.Method != r.Method {
		return false
	}
	return strings.HasPrefix(r.URL.Path, m.Path)
}
