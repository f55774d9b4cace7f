package service

import (
	"context"
	"testing"
	"time"

	"github.com/arjunkrish/loanbroker/internal/auth"
	"github.com/arjunkrish/loanbroker/internal/cache"
	"github.com/arjunkrish/loanbroker/internal/db"
	"github.com/arjunkrish/loanbroker/internal/repository"
)

// MockCredentialRepo
type MockCredentialRepo struct {
	agents   map[string]*db.Agent
	getCalls int
}

func NewMockCredentialRepo() *MockCredentialRepo {
	return &MockCredentialRepo{agents: make(map[string]*db.Agent)}
}

func (m *MockCredentialRepo) GetAgent(ctx context.Context, id string) (*db.Agent, error) {
	m.getCalls++
	if a, ok := m.agents[id]; ok {
		return a, nil
	}
	return nil, repository.ErrAgentNotFound
}

func (m *MockCredentialRepo) add(t *testing.T, id, secret string, scopes []string) {
	t.Helper()
	hash, err := auth.HashSecret(secret)
	if err != nil {
		t.Fatalf("HashSecret failed: %v", err)
	}
	m.agents[id] = &db.Agent{ID: id, SecretHash: hash, Scopes: scopes}
}

func TestAuthService_IssueToken(t *testing.T) {
	repo := NewMockCredentialRepo()
	repo.add(t, "consumer_agent_1", "consumer_secret_1", []string{"consumer:write", "consumer:read"})

	jwtManager := auth.NewJWTManager("secret", time.Hour)
	svc := NewAuthService(repo, jwtManager, cache.NewMemoryCache())
	ctx := context.Background()

	tokenStr, err := svc.IssueToken(ctx, "consumer_agent_1", "consumer_secret_1")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	claims, err := jwtManager.Verify(tokenStr)
	if err != nil {
		t.Fatalf("Issued token does not verify: %v", err)
	}
	if claims.AgentID != "consumer_agent_1" {
		t.Errorf("Expected subject consumer_agent_1, got %s", claims.AgentID)
	}
	if !claims.HasScope("consumer:write") || !claims.HasScope("consumer:read") {
		t.Errorf("Table scopes not frozen into token: %v", claims.Scopes)
	}
}

func TestAuthService_UniformFailure(t *testing.T) {
	repo := NewMockCredentialRepo()
	repo.add(t, "bank_agent_a", "bank_secret_a", []string{"bank:write"})

	svc := NewAuthService(repo, auth.NewJWTManager("secret", time.Hour), cache.NewMemoryCache())
	ctx := context.Background()

	// Wrong secret and unknown id must be indistinguishable.
	_, errWrongSecret := svc.IssueToken(ctx, "bank_agent_a", "nope")
	_, errUnknownID := svc.IssueToken(ctx, "who_is_this", "nope")

	if errWrongSecret != ErrBadCredentials {
		t.Errorf("Wrong secret: expected ErrBadCredentials, got %v", errWrongSecret)
	}
	if errUnknownID != ErrBadCredentials {
		t.Errorf("Unknown id: expected ErrBadCredentials, got %v", errUnknownID)
	}
}

func TestAuthService_CacheSkipsBcrypt(t *testing.T) {
	repo := NewMockCredentialRepo()
	repo.add(t, "bank_agent_a", "bank_secret_a", []string{"bank:write"})

	l1 := cache.NewMemoryCache()
	svc := NewAuthService(repo, auth.NewJWTManager("secret", time.Hour), l1)
	ctx := context.Background()

	if _, err := svc.IssueToken(ctx, "bank_agent_a", "bank_secret_a"); err != nil {
		t.Fatalf("First IssueToken failed: %v", err)
	}

	// Second issue with the same pair should be served from the digest
	// cache: measurably faster than a bcrypt round.
	start := time.Now()
	if _, err := svc.IssueToken(ctx, "bank_agent_a", "bank_secret_a"); err != nil {
		t.Fatalf("Second IssueToken failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("Cached issuance took %v, bcrypt likely re-ran", elapsed)
	}

	// A wrong secret never hits the cache path.
	if _, err := svc.IssueToken(ctx, "bank_agent_a", "wrong"); err != ErrBadCredentials {
		t.Errorf("Expected ErrBadCredentials for wrong secret, got %v", err)
	}
}
