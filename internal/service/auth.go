package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/arjunkrish/loanbroker/internal/auth"
	"github.com/arjunkrish/loanbroker/internal/cache"
	"github.com/arjunkrish/loanbroker/internal/repository"
)

// ErrBadCredentials is returned for unknown identity AND wrong secret, so a
// caller cannot enumerate provisioned agent ids.
var ErrBadCredentials = errors.New("incorrect client id or secret")

// dummyHash is compared against when the agent id is unknown, so both
// failure paths pay the same bcrypt cost.
var dummyHash, _ = auth.HashSecret("dummy-timing-equalizer")

type AuthService struct {
	creds      repository.CredentialRepository
	jwtManager *auth.JWTManager
	cache      *cache.MemoryCache
}

func NewAuthService(creds repository.CredentialRepository, j *auth.JWTManager, c *cache.MemoryCache) *AuthService {
	return &AuthService{
		creds:      creds,
		jwtManager: j,
		cache:      c,
	}
}

func (s *AuthService) JWTManager() *auth.JWTManager {
	return s.jwtManager
}

// IssueToken verifies the claimed identity and secret against the credential
// table and mints an access token with the table's scopes frozen in.
func (s *AuthService) IssueToken(ctx context.Context, clientID, secret string) (string, error) {
	agent, err := s.creds.GetAgent(ctx, clientID)
	if err != nil {
		// Burn the same bcrypt time as the known-agent path.
		auth.CheckSecretHash(secret, dummyHash)
		return "", ErrBadCredentials
	}

	// L1 cache: polling agents re-authenticate often; skip bcrypt when this
	// exact id/secret pair verified recently.
	cacheKey := credentialDigest(clientID, secret)
	if _, found := s.cache.Get(cacheKey); !found {
		if !auth.CheckSecretHash(secret, agent.SecretHash) {
			return "", ErrBadCredentials
		}
		s.cache.Set(cacheKey, agent.ID, 1*time.Minute)
	}

	return s.jwtManager.Generate(agent.ID, agent.Scopes)
}

func credentialDigest(clientID, secret string) string {
	sum := sha256.Sum256([]byte(clientID + "\x00" + secret))
	return "cred:" + hex.EncodeToString(sum[:])
}
