package memory

import (
	"context"
	"sync"

	"github.com/arjunkrish/loanbroker/internal/db"
	"github.com/arjunkrish/loanbroker/internal/repository"
)

// MemoryRepository holds all broker state behind one RWMutex. Contention is
// low (a handful of agents polling), so a single lock is simpler and safe;
// a durable store would implement the same repository interfaces.
type MemoryRepository struct {
	agents    map[string]*db.Agent
	intents   map[string]*db.Intent
	proposals map[string][]*db.Proposal // transaction id -> proposal set, append-only
	mu        sync.RWMutex
}

func New() *MemoryRepository {
	return &MemoryRepository{
		agents:    make(map[string]*db.Agent),
		intents:   make(map[string]*db.Intent),
		proposals: make(map[string][]*db.Proposal),
	}
}

// SeedAgents loads the static credential table. Called once at startup,
// before the server accepts requests.
func (r *MemoryRepository) SeedAgents(agents []*db.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range agents {
		r.agents[a.ID] = a
	}
}

// Credential Repo Implementation
func (r *MemoryRepository) GetAgent(ctx context.Context, id string) (*db.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.agents[id]; ok {
		return a, nil
	}
	return nil, repository.ErrAgentNotFound
}

// Intent Repo Implementation
func (r *MemoryRepository) CreateIntent(ctx context.Context, intent *db.Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.intents[intent.TransactionID]; ok {
		// Silently overwriting here would also wipe the proposal set,
		// so duplicates are a conflict, not an upsert.
		return repository.ErrIntentExists
	}
	r.intents[intent.TransactionID] = intent
	r.proposals[intent.TransactionID] = []*db.Proposal{}
	return nil
}

func (r *MemoryRepository) GetIntent(ctx context.Context, transactionID string) (*db.Intent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.intents[transactionID]; ok {
		return i, nil
	}
	return nil, repository.ErrIntentNotFound
}

func (r *MemoryRepository) ListIntents(ctx context.Context) ([]*db.Intent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*db.Intent, 0, len(r.intents))
	for _, i := range r.intents {
		list = append(list, i)
	}
	return list, nil
}

// Proposal Repo Implementation
func (r *MemoryRepository) AppendProposal(ctx context.Context, proposal *db.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.proposals[proposal.TransactionID]
	if !ok {
		return repository.ErrIntentNotFound
	}
	for _, p := range set {
		if p.BankID == proposal.BankID {
			return repository.ErrDuplicateProposal
		}
	}
	r.proposals[proposal.TransactionID] = append(set, proposal)
	return nil
}

func (r *MemoryRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*db.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.proposals[transactionID]
	if !ok {
		return nil, repository.ErrIntentNotFound
	}
	// Copy so callers see a stable snapshot while banks keep appending.
	snapshot := make([]*db.Proposal, len(set))
	copy(snapshot, set)
	return snapshot, nil
}

// Interface check
var _ repository.CredentialRepository = (*MemoryRepository)(nil)
var _ repository.IntentRepository = (*MemoryRepository)(nil)
var _ repository.ProposalRepository = (*MemoryRepository)(nil)
