package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/arjunkrish/loanbroker/internal/db"
	"github.com/arjunkrish/loanbroker/internal/middleware"
	"github.com/arjunkrish/loanbroker/internal/repository"
	"github.com/arjunkrish/loanbroker/internal/service"
)

// IssueToken handles POST /token: the client-credentials grant. Credentials
// travel form-encoded; the uniform 401 never reveals which check failed.
func (s *Server) IssueToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	grantType := strings.TrimSpace(r.PostForm.Get("grant_type"))
	if grantType != "client_credentials" {
		writeError(w, http.StatusBadRequest, "unsupported grant_type")
		return
	}

	clientID := r.PostForm.Get("username")
	secret := r.PostForm.Get("password")

	token, err := s.authService.IssueToken(r.Context(), clientID, secret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "incorrect client id or secret")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// SubmitIntent handles POST /submit_intent (consumer:write).
func (s *Server) SubmitIntent(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.AgentID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	var intent db.Intent
	if err := decodeBody(w, r, &intent); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.brokerService.SubmitIntent(r.Context(), &intent, callerID); err != nil {
		s.writeBrokerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "Intent received",
		"transaction_id": intent.TransactionID,
	})
}

// GetIntents handles GET /get_intents (bank:read): intent discovery for
// bank agents.
func (s *Server) GetIntents(w http.ResponseWriter, r *http.Request) {
	intents, err := s.brokerService.OpenIntents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list intents")
		return
	}
	writeJSON(w, http.StatusOK, intents)
}

// SubmitProposal handles POST /submit_proposal (bank:write).
func (s *Server) SubmitProposal(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.AgentID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	var proposal db.Proposal
	if err := decodeBody(w, r, &proposal); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.brokerService.SubmitProposal(r.Context(), &proposal, callerID); err != nil {
		s.writeBrokerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "Proposal received",
		"proposal_id": proposal.ProposalID,
	})
}

// GetProposals handles GET /get_proposals/{transaction_id} (consumer:read).
// Returns the current snapshot; consumers poll for growth.
func (s *Server) GetProposals(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.AgentID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	transactionID := r.PathValue("transaction_id")
	proposals, err := s.brokerService.Proposals(r.Context(), transactionID, callerID)
	if err != nil {
		s.writeBrokerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, proposals)
}

// MetricsStats serves the collector snapshot.
func (s *Server) MetricsStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.GetStats())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeBrokerError maps service/store sentinels onto the error taxonomy.
func (s *Server) writeBrokerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyTransactionID),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrClientMismatch),
		errors.Is(err, service.ErrBankMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrIntentExists):
		writeError(w, http.StatusConflict, "transaction id already submitted")
	case errors.Is(err, repository.ErrDuplicateProposal):
		writeError(w, http.StatusConflict, "bank already submitted a proposal for this transaction")
	case errors.Is(err, repository.ErrIntentNotFound):
		writeError(w, http.StatusNotFound, "transaction id not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
