package repository

import (
	"context"
	"errors"

	"github.com/arjunkrish/loanbroker/internal/db"
)

var (
	ErrAgentNotFound     = errors.New("agent not found")
	ErrIntentExists      = errors.New("intent already exists")
	ErrIntentNotFound    = errors.New("intent not found")
	ErrDuplicateProposal = errors.New("bank already submitted a proposal for this intent")
)

// CredentialRepository is the pluggable identity provider. The reference
// implementation is a static in-memory table loaded at startup.
type CredentialRepository interface {
	GetAgent(ctx context.Context, id string) (*db.Agent, error)
}

type IntentRepository interface {
	// CreateIntent stores a new intent and initializes its empty proposal
	// set atomically. Returns ErrIntentExists on a duplicate transaction id.
	CreateIntent(ctx context.Context, intent *db.Intent) error
	GetIntent(ctx context.Context, transactionID string) (*db.Intent, error)
	ListIntents(ctx context.Context) ([]*db.Intent, error)
}

type ProposalRepository interface {
	// AppendProposal atomically appends to the intent's proposal set.
	// Returns ErrIntentNotFound if no intent exists for the transaction id,
	// ErrDuplicateProposal if this bank already proposed against it.
	AppendProposal(ctx context.Context, proposal *db.Proposal) error
	// ListByTransaction returns a snapshot of the proposal set, empty (not
	// nil-as-missing) when the intent exists but no bank has responded yet.
	ListByTransaction(ctx context.Context, transactionID string) ([]*db.Proposal, error)
}
