package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/arjunkrish/loanbroker/internal/db"
	"github.com/arjunkrish/loanbroker/internal/repository"
)

var (
	ErrEmptyTransactionID = errors.New("transaction_id must not be empty")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrClientMismatch     = errors.New("client_id does not match the authenticated agent")
	ErrBankMismatch       = errors.New("bank_id does not match the authenticated agent")
)

// BrokerService owns the intent/proposal state machine. Handlers hand it
// validated identity (the token subject); it never sees HTTP.
type BrokerService struct {
	intents   repository.IntentRepository
	proposals repository.ProposalRepository
}

func NewBrokerService(intents repository.IntentRepository, proposals repository.ProposalRepository) *BrokerService {
	return &BrokerService{
		intents:   intents,
		proposals: proposals,
	}
}

// SubmitIntent stores a new intent for callerID. The intent's client_id is
// pinned to the token subject: an empty body field is filled in, a
// mismatching one is rejected.
func (s *BrokerService) SubmitIntent(ctx context.Context, intent *db.Intent, callerID string) error {
	if intent.TransactionID == "" {
		return ErrEmptyTransactionID
	}
	if intent.Amount <= 0 {
		return ErrInvalidAmount
	}

	switch intent.ClientID {
	case "":
		intent.ClientID = callerID
	case callerID:
		// ok
	default:
		return ErrClientMismatch
	}

	intent.CreatedAt = time.Now().UTC()
	return s.intents.CreateIntent(ctx, intent)
}

// OpenIntents lists every stored intent for bank-side discovery.
func (s *BrokerService) OpenIntents(ctx context.Context) ([]*db.Intent, error) {
	return s.intents.ListIntents(ctx)
}

// SubmitProposal appends callerID's offer to the referenced intent's
// proposal set. Bank identity comes from the token, not the body.
func (s *BrokerService) SubmitProposal(ctx context.Context, proposal *db.Proposal, callerID string) error {
	if proposal.TransactionID == "" {
		return ErrEmptyTransactionID
	}

	switch proposal.BankID {
	case "":
		proposal.BankID = callerID
	case callerID:
		// ok
	default:
		return ErrBankMismatch
	}

	if proposal.ProposalID == "" {
		proposal.ProposalID = uuid.NewString()
	}

	proposal.CreatedAt = time.Now().UTC()
	return s.proposals.AppendProposal(ctx, proposal)
}

// Proposals returns a snapshot of the proposal set for callerID's intent.
// A caller who does not own the intent gets not-found rather than
// forbidden, so the endpoint never confirms foreign transaction ids.
func (s *BrokerService) Proposals(ctx context.Context, transactionID, callerID string) ([]*db.Proposal, error) {
	intent, err := s.intents.GetIntent(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if intent.ClientID != callerID {
		return nil, repository.ErrIntentNotFound
	}
	return s.proposals.ListByTransaction(ctx, transactionID)
}
