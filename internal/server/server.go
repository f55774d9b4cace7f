package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arjunkrish/loanbroker/internal/audit"
	"github.com/arjunkrish/loanbroker/internal/auth"
	"github.com/arjunkrish/loanbroker/internal/cache"
	"github.com/arjunkrish/loanbroker/internal/config"
	"github.com/arjunkrish/loanbroker/internal/credentials"
	"github.com/arjunkrish/loanbroker/internal/limiter"
	"github.com/arjunkrish/loanbroker/internal/metrics"
	"github.com/arjunkrish/loanbroker/internal/middleware"
	"github.com/arjunkrish/loanbroker/internal/policy"
	"github.com/arjunkrish/loanbroker/internal/repository/memory"
	"github.com/arjunkrish/loanbroker/internal/service"
)

type Server struct {
	cfg           *config.Config
	router        *http.ServeMux
	authService   *service.AuthService
	brokerService *service.BrokerService
	rateLimiter   *limiter.TokenBucketLimiter
	metrics       *metrics.Collector
	auditLogger   audit.Logger
	configManager *config.DynamicConfigManager
	policyEngine  *policy.Engine
	redisClient   *redis.Client
	l1Cache       *cache.MemoryCache
}

func New(cfg *config.Config) (*Server, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	repo := memory.New()
	agents, err := credentials.Load(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("load credential table: %w", err)
	}
	repo.SeedAgents(agents)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	l1 := cache.NewMemoryCache()

	authSvc := service.NewAuthService(repo, jwtManager, l1)
	brokerSvc := service.NewBrokerService(repo, repo)

	eng := policy.NewEngine()
	eng.LoadPolicies(brokerPolicies())

	return &Server{
		cfg:           cfg,
		router:        http.NewServeMux(),
		authService:   authSvc,
		brokerService: brokerSvc,
		rateLimiter:   limiter.NewTokenBucketLimiter(rdb),
		metrics:       metrics.NewCollector(1000),
		auditLogger:   audit.NewJSONLogger(os.Stdout),
		configManager: config.NewDynamicConfigManager(),
		policyEngine:  eng,
		redisClient:   rdb,
		l1Cache:       l1,
	}, nil
}

// brokerPolicies maps each operation to its required scope and rate budget.
// First match wins, so the more specific paths come first.
func brokerPolicies() []policy.Policy {
	return []policy.Policy{
		{
			ID:      "token-policy",
			Matcher: policy.Matcher{Method: http.MethodPost, Path: "/token"},
			Rules:   policy.Rules{AuthRequired: false, RateLimit: 5, Burst: 10},
		},
		{
			ID:      "intent-intake-policy",
			Matcher: policy.Matcher{Method: http.MethodPost, Path: "/submit_intent"},
			Rules:   policy.Rules{AuthRequired: true, Scope: "consumer:write", RateLimit: 5, Burst: 10},
		},
		{
			ID:      "intent-discovery-policy",
			Matcher: policy.Matcher{Method: http.MethodGet, Path: "/get_intents"},
			Rules:   policy.Rules{AuthRequired: true, Scope: "bank:read", RateLimit: 10, Burst: 20},
		},
		{
			ID:      "proposal-intake-policy",
			Matcher: policy.Matcher{Method: http.MethodPost, Path: "/submit_proposal"},
			Rules:   policy.Rules{AuthRequired: true, Scope: "bank:write", RateLimit: 10, Burst: 20},
		},
		{
			ID:      "proposal-query-policy",
			Matcher: policy.Matcher{Method: http.MethodGet, Path: "/get_proposals/"},
			Rules:   policy.Rules{AuthRequired: true, Scope: "consumer:read", RateLimit: 10, Burst: 20},
		},
		{
			ID:      "metrics-policy",
			Matcher: policy.Matcher{Path: "/api/metrics"},
			Rules:   policy.Rules{AuthRequired: false, RateLimit: 10, Burst: 20},
		},
		{
			ID:      "health-policy",
			Matcher: policy.Matcher{Path: "/health"},
			Rules:   policy.Rules{AuthRequired: false, RateLimit: 100, Burst: 100},
		},
		{
			ID:      "ready-policy",
			Matcher: policy.Matcher{Path: "/ready"},
			Rules:   policy.Rules{AuthRequired: false, RateLimit: 100, Burst: 100},
		},
	}
}

// Handler builds the full middleware chain around the routes. Split out of
// Start so tests can drive the exact production stack with httptest.
func (s *Server) Handler() http.Handler {
	// Liveness
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Readiness: redis backs throttling only, but a broken redis is still
	// worth surfacing before traffic lands here.
	s.router.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.redisClient.Ping(ctx).Err(); err != nil {
			http.Error(w, "Redis Unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready"))
	})

	// Negotiation protocol
	s.router.HandleFunc("POST /token", s.IssueToken)
	s.router.HandleFunc("POST /submit_intent", s.SubmitIntent)
	s.router.HandleFunc("GET /get_intents", s.GetIntents)
	s.router.HandleFunc("POST /submit_proposal", s.SubmitProposal)
	s.router.HandleFunc("GET /get_proposals/{transaction_id}", s.GetProposals)

	// Observability
	s.router.HandleFunc("GET /api/metrics", s.MetricsStats)

	securityMw := middleware.SecureHeaders(middleware.SecurityConfig{
		EnableReplayProtection: true,
		ReplayWindow:           60 * time.Second,
	})
	authMw := middleware.NewAuth(s.authService.JWTManager())

	// Order: metrics and audit observe everything, policy resolves the route
	// rules the inner layers consume, security needs the policy, auth needs
	// the scope, rate limiting keys off the authenticated agent.
	return middleware.Chain(
		s.router,
		middleware.Metrics(s.metrics),
		middleware.Audit(s.auditLogger),
		middleware.PolicyEnforcer(s.policyEngine),
		securityMw,
		authMw.Handle,
		middleware.RateLimit(s.rateLimiter, s.configManager),
	)
}

func (s *Server) Start() error {
	srv := &http.Server{
		Addr:    ":" + s.cfg.ServerPort,
		Handler: s.Handler(),
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Printf("Broker listening on port %s", s.cfg.ServerPort)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Printf("main: %v : Start shutdown", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
