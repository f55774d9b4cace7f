package db

import (
	"time"
)

// Agent is one provisioned identity from the static credential table.
// The broker never creates or mutates agents; it only reads the table.
type Agent struct {
	ID         string   `json:"id"`
	SecretHash string   `json:"-"` // bcrypt hash of the client secret
	Scopes     []string `json:"scopes"`
}

// Intent is one consumer's loan request. Immutable once stored.
type Intent struct {
	TransactionID  string    `json:"transaction_id"`
	Amount         float64   `json:"amount"`
	DurationMonths int       `json:"duration_months"`
	CreditScore    string    `json:"credit_score"` // tier label: "good", "fair", "poor"
	ClientID       string    `json:"client_id"`    // owning consumer
	CreatedAt      time.Time `json:"created_at"`
}

// Proposal is one bank's offer against an intent. Immutable once stored.
type Proposal struct {
	TransactionID string    `json:"transaction_id"`
	ProposalID    string    `json:"proposal_id"`
	BankID        string    `json:"bank_id"` // submitting bank, pinned to the token subject
	OfferedAmount float64   `json:"offered_amount"`
	InterestRate  float64   `json:"interest_rate"`
	Terms         string    `json:"terms"`
	CreatedAt     time.Time `json:"created_at"`
}
