package credentials

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/arjunkrish/loanbroker/internal/auth"
	"github.com/arjunkrish/loanbroker/internal/db"
)

// entry is one row of the credential file. Secrets arrive in the clear
// (static demo configuration) and are bcrypt-hashed before the table is
// handed to the store, so plaintext never lives past startup.
type entry struct {
	ID     string   `json:"id"`
	Secret string   `json:"secret"`
	Scopes []string `json:"scopes"`
}

// defaultTable mirrors the provisioned demo agents: one consumer, two banks.
var defaultTable = []entry{
	{ID: "consumer_agent_1", Secret: "consumer_secret_1", Scopes: []string{"consumer:write", "consumer:read"}},
	{ID: "bank_agent_a", Secret: "bank_secret_a", Scopes: []string{"bank:write", "bank:read"}},
	{ID: "bank_agent_b", Secret: "bank_secret_b", Scopes: []string{"bank:write", "bank:read"}},
}

// Load reads the static credential table. An empty path selects the built-in
// demo table. The broker only ever reads this table; provisioning is out of
// band.
func Load(path string) ([]*db.Agent, error) {
	entries := defaultTable
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		entries = nil
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse credentials file: %w", err)
		}
	}

	agents := make([]*db.Agent, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" || e.Secret == "" {
			return nil, fmt.Errorf("credential entry missing id or secret")
		}
		hash, err := auth.HashSecret(e.Secret)
		if err != nil {
			return nil, fmt.Errorf("hash secret for %s: %w", e.ID, err)
		}
		agents = append(agents, &db.Agent{
			ID:         e.ID,
			SecretHash: hash,
			Scopes:     e.Scopes,
		})
	}
	return agents, nil
}
