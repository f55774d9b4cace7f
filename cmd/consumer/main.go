package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/arjunkrish/loanbroker/internal/agent"
	"github.com/arjunkrish/loanbroker/internal/db"
)

const (
	proposalPollInterval = 2 * time.Second
	maxPollAttempts      = 10
)

func main() {
	_ = godotenv.Load(".env")

	amount := flag.Float64("amount", 5000, "loan amount")
	duration := flag.Int("duration", 12, "duration in months")
	creditScore := flag.String("credit-score", "good", "credit tier: good, fair, poor")
	flag.Parse()

	client := agent.New(agent.Config{
		BrokerURL:    getEnv("BROKER_URL", "http://127.0.0.1:8000"),
		ClientID:     getEnv("CLIENT_ID", "consumer_agent_1"),
		ClientSecret: getEnv("CLIENT_SECRET", "consumer_secret_1"),
	})

	ctx := context.Background()

	log.Println("Consumer agent starting...")
	// Failing the first token fetch is the one fatal condition; everything
	// after is retried.
	if err := client.Authenticate(ctx); err != nil {
		log.Printf("Could not get access token: %v", err)
		os.Exit(1)
	}

	transactionID, err := client.SubmitIntent(ctx, db.Intent{
		TransactionID:  uuid.NewString(),
		Amount:         *amount,
		DurationMonths: *duration,
		CreditScore:    *creditScore,
	})
	if err != nil {
		log.Printf("Failed to submit loan intent: %v", err)
		os.Exit(1)
	}
	log.Printf("Loan intent submitted. Transaction ID: %s", transactionID)

	log.Println("Waiting for proposals from bank agents...")
	var proposals []db.Proposal
	for attempt := 0; attempt < maxPollAttempts; attempt++ {
		time.Sleep(proposalPollInterval)

		proposals, err = client.GetProposals(ctx, transactionID)
		if err != nil {
			log.Printf("Failed to retrieve proposals: %v", err)
			continue
		}
		if len(proposals) > 0 {
			break
		}
		log.Println("No proposals yet. Retrying...")
	}

	if len(proposals) == 0 {
		log.Println("No proposals received. Exiting.")
		return
	}

	// Offer selection stays a plain heuristic: lowest interest rate wins.
	best := proposals[0]
	for _, p := range proposals[1:] {
		if p.InterestRate < best.InterestRate {
			best = p
		}
	}

	fmt.Println("\n--- Best Offer ---")
	fmt.Printf("Bank: %s\n", best.BankID)
	fmt.Printf("Interest Rate: %.2f%%\n", best.InterestRate*100)
	fmt.Printf("Offered Amount: %.2f\n", best.OfferedAmount)
	fmt.Printf("Terms: %s\n", best.Terms)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
