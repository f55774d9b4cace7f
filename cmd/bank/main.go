package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/arjunkrish/loanbroker/internal/agent"
	"github.com/arjunkrish/loanbroker/internal/db"
)

func main() {
	_ = godotenv.Load(".env")

	clientID := getEnv("CLIENT_ID", "bank_agent_a")
	client := agent.New(agent.Config{
		BrokerURL:    getEnv("BROKER_URL", "http://127.0.0.1:8000"),
		ClientID:     clientID,
		ClientSecret: getEnv("CLIENT_SECRET", "bank_secret_a"),
	})

	ctx := context.Background()

	log.Printf("Bank agent %s starting...", clientID)
	if err := client.Authenticate(ctx); err != nil {
		log.Printf("Could not get access token: %v", err)
		os.Exit(1)
	}

	log.Println("Agent is running and waiting for new intents...")

	// One proposal per intent: the broker enforces this too, but tracking
	// locally avoids pointless conflict round-trips every poll.
	handled := make(map[string]bool)

	for {
		intents, err := client.GetIntents(ctx)
		if err != nil {
			log.Printf("Error communicating with the broker: %v", err)
			log.Printf("Re-authenticating and retrying in %s.", agent.RetryBackoff)
			if err := client.Authenticate(ctx); err != nil {
				log.Printf("Re-authentication failed: %v", err)
			}
			time.Sleep(agent.RetryBackoff)
			continue
		}

		for _, intent := range intents {
			if handled[intent.TransactionID] {
				continue
			}
			handled[intent.TransactionID] = true

			proposal, ok := underwrite(clientID, intent)
			if !ok {
				log.Printf("Declining intent %s (credit tier %q)", intent.TransactionID, intent.CreditScore)
				continue
			}

			if _, err := client.SubmitProposal(ctx, proposal); err != nil {
				var se *agent.StatusError
				if errors.As(err, &se) && se.Code == http.StatusConflict {
					// Another process for this bank got there first.
					log.Printf("Proposal for %s already on file", intent.TransactionID)
					continue
				}
				// Dropped on failure: no durable retry queue here.
				log.Printf("Failed to submit proposal for %s: %v", intent.TransactionID, err)
				continue
			}
			log.Printf("Submitted proposal for transaction %s", intent.TransactionID)
		}

		time.Sleep(agent.PollInterval)
	}
}

// underwrite maps the intent's credit tier onto offer terms. A stand-in for
// a real risk engine; poor credit gets no offer at all.
func underwrite(bankID string, intent db.Intent) (db.Proposal, bool) {
	var rate float64
	var terms string

	switch intent.CreditScore {
	case "good":
		rate = 0.05
		terms = "5% APR, excellent credit offer"
	case "fair":
		rate = 0.10
		terms = "10% APR, standard offer"
	case "poor":
		return db.Proposal{}, false
	default:
		rate = 0.15
		terms = "15% APR, high-risk offer"
	}

	return db.Proposal{
		TransactionID: intent.TransactionID,
		ProposalID:    uuid.NewString(),
		BankID:        bankID,
		OfferedAmount: intent.Amount,
		InterestRate:  rate,
		Terms:         terms,
	}, true
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
