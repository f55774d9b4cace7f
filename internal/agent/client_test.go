package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arjunkrish/loanbroker/internal/circuitbreaker"
	"github.com/arjunkrish/loanbroker/internal/db"
)

// fakeBroker stands in for the broker: serves tokens and one intent list,
// and can force 401s to exercise the re-auth path.
type fakeBroker struct {
	tokensIssued int
	reject401    int // number of protected calls to reject before accepting
}

func (f *fakeBroker) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("username") != "bank_agent_a" || r.PostForm.Get("password") != "bank_secret_a" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "incorrect client id or secret"})
			return
		}
		f.tokensIssued++
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok", "token_type": "bearer"})
	})
	mux.HandleFunc("GET /get_intents", func(w http.ResponseWriter, r *http.Request) {
		if f.reject401 > 0 {
			f.reject401--
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid or expired token"})
			return
		}
		if r.Header.Get("X-Timestamp") == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "missing timestamp"})
			return
		}
		json.NewEncoder(w).Encode([]db.Intent{{TransactionID: "tx-1", Amount: 5000}})
	})
	return mux
}

func TestClientAuthenticate(t *testing.T) {
	fb := &fakeBroker{}
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	c := New(Config{BrokerURL: srv.URL, ClientID: "bank_agent_a", ClientSecret: "bank_secret_a"})
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	bad := New(Config{BrokerURL: srv.URL, ClientID: "bank_agent_a", ClientSecret: "wrong"})
	if err := bad.Authenticate(context.Background()); err == nil {
		t.Error("Expected authentication failure for wrong secret")
	}
}

func TestClientReauthenticatesOn401(t *testing.T) {
	fb := &fakeBroker{reject401: 1}
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	c := New(Config{BrokerURL: srv.URL, ClientID: "bank_agent_a", ClientSecret: "bank_secret_a"})
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	intents, err := c.GetIntents(context.Background())
	if err != nil {
		t.Fatalf("GetIntents failed despite re-auth path: %v", err)
	}
	if len(intents) != 1 || intents[0].TransactionID != "tx-1" {
		t.Errorf("Unexpected intents: %+v", intents)
	}
	if fb.tokensIssued != 2 {
		t.Errorf("Expected re-authentication (2 tokens), got %d", fb.tokensIssued)
	}
}

func TestClientBreakerTripsOnDeadBroker(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	srv.Close() // dead from the start

	c := New(Config{BrokerURL: srv.URL, ClientID: "bank_agent_a", ClientSecret: "bank_secret_a"})
	ctx := context.Background()

	// Three transport failures trip the breaker.
	for i := 0; i < 3; i++ {
		if _, err := c.GetIntents(ctx); err == nil {
			t.Fatal("Expected transport error")
		}
	}

	// Fourth call fails fast without touching the socket.
	_, err := c.GetIntents(ctx)
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Errorf("Expected open-circuit error, got %v", err)
	}
}
