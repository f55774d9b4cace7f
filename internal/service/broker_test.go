package service

import (
	"context"
	"testing"

	"github.com/arjunkrish/loanbroker/internal/db"
	"github.com/arjunkrish/loanbroker/internal/repository"
	"github.com/arjunkrish/loanbroker/internal/repository/memory"
)

func newBroker() *BrokerService {
	repo := memory.New()
	return NewBrokerService(repo, repo)
}

func TestSubmitIntentValidation(t *testing.T) {
	svc := newBroker()
	ctx := context.Background()

	err := svc.SubmitIntent(ctx, &db.Intent{Amount: 5000}, "consumer_agent_1")
	if err != ErrEmptyTransactionID {
		t.Errorf("Expected ErrEmptyTransactionID, got %v", err)
	}

	err = svc.SubmitIntent(ctx, &db.Intent{TransactionID: "tx-1", Amount: 0}, "consumer_agent_1")
	if err != ErrInvalidAmount {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}

	err = svc.SubmitIntent(ctx, &db.Intent{TransactionID: "tx-1", Amount: 5000, ClientID: "someone_else"}, "consumer_agent_1")
	if err != ErrClientMismatch {
		t.Errorf("Expected ErrClientMismatch, got %v", err)
	}
}

func TestSubmitIntentPinsOwner(t *testing.T) {
	svc := newBroker()
	ctx := context.Background()

	intent := &db.Intent{TransactionID: "tx-1", Amount: 5000, DurationMonths: 12, CreditScore: "good"}
	if err := svc.SubmitIntent(ctx, intent, "consumer_agent_1"); err != nil {
		t.Fatalf("SubmitIntent failed: %v", err)
	}
	if intent.ClientID != "consumer_agent_1" {
		t.Errorf("Owner not pinned from token subject: %s", intent.ClientID)
	}

	open, err := svc.OpenIntents(ctx)
	if err != nil || len(open) != 1 {
		t.Fatalf("OpenIntents: %v, %d intents", err, len(open))
	}
}

func TestProposalLinkage(t *testing.T) {
	svc := newBroker()
	ctx := context.Background()

	// Proposal before any intent: not found.
	p := &db.Proposal{TransactionID: "tx-1", InterestRate: 0.05}
	if err := svc.SubmitProposal(ctx, p, "bank_agent_a"); err != repository.ErrIntentNotFound {
		t.Fatalf("Expected ErrIntentNotFound, got %v", err)
	}

	intent := &db.Intent{TransactionID: "tx-1", Amount: 5000}
	if err := svc.SubmitIntent(ctx, intent, "consumer_agent_1"); err != nil {
		t.Fatalf("SubmitIntent failed: %v", err)
	}

	// Same proposal now succeeds, with id and bank filled in.
	if err := svc.SubmitProposal(ctx, p, "bank_agent_a"); err != nil {
		t.Fatalf("SubmitProposal failed: %v", err)
	}
	if p.ProposalID == "" {
		t.Error("ProposalID not generated")
	}
	if p.BankID != "bank_agent_a" {
		t.Errorf("BankID not pinned: %s", p.BankID)
	}

	// Spoofed bank identity is rejected.
	spoofed := &db.Proposal{TransactionID: "tx-1", BankID: "bank_agent_b"}
	if err := svc.SubmitProposal(ctx, spoofed, "bank_agent_a"); err != ErrBankMismatch {
		t.Errorf("Expected ErrBankMismatch, got %v", err)
	}
}

func TestProposalsOwnershipCheck(t *testing.T) {
	svc := newBroker()
	ctx := context.Background()

	intent := &db.Intent{TransactionID: "tx-1", Amount: 5000}
	if err := svc.SubmitIntent(ctx, intent, "consumer_agent_1"); err != nil {
		t.Fatalf("SubmitIntent failed: %v", err)
	}
	if err := svc.SubmitProposal(ctx, &db.Proposal{TransactionID: "tx-1", InterestRate: 0.05}, "bank_agent_a"); err != nil {
		t.Fatalf("SubmitProposal failed: %v", err)
	}

	// Owner sees the set.
	set, err := svc.Proposals(ctx, "tx-1", "consumer_agent_1")
	if err != nil {
		t.Fatalf("Proposals failed for owner: %v", err)
	}
	if len(set) != 1 || set[0].BankID != "bank_agent_a" {
		t.Errorf("Unexpected proposal set: %+v", set)
	}

	// Any other consumer gets not-found, never the set and never forbidden.
	if _, err := svc.Proposals(ctx, "tx-1", "consumer_agent_2"); err != repository.ErrIntentNotFound {
		t.Errorf("Expected ErrIntentNotFound for non-owner, got %v", err)
	}

	// Unknown transaction is also not-found, not an empty set.
	if _, err := svc.Proposals(ctx, "never-seen", "consumer_agent_1"); err != repository.ErrIntentNotFound {
		t.Errorf("Expected ErrIntentNotFound for unknown id, got %v", err)
	}
}
