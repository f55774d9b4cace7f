package main

import (
	"log"
	"os"

	"github.com/arjunkrish/loanbroker/internal/config"
	"github.com/arjunkrish/loanbroker/internal/server"
)

func main() {
	cfg := config.Load()

	srv, err := server.New(cfg)
	if err != nil {
		log.Printf("Broker failed to initialize: %v", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		log.Printf("Broker failed to start: %v", err)
		os.Exit(1)
	}
}
