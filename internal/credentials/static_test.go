package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arjunkrish/loanbroker/internal/auth"
)

func TestLoadDefaultTable(t *testing.T) {
	agents, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(agents) != 3 {
		t.Fatalf("Expected 3 demo agents, got %d", len(agents))
	}

	byID := map[string]bool{}
	for _, a := range agents {
		byID[a.ID] = true
		if a.SecretHash == "" {
			t.Errorf("Agent %s has no secret hash", a.ID)
		}
	}
	for _, id := range []string{"consumer_agent_1", "bank_agent_a", "bank_agent_b"} {
		if !byID[id] {
			t.Errorf("Missing demo agent %s", id)
		}
	}
}

func TestLoadFileHashesSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	content := `[{"id": "bank_agent_c", "secret": "s3cret", "scopes": ["bank:write"]}]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	agents, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(agents) != 1 || agents[0].ID != "bank_agent_c" {
		t.Fatalf("Unexpected agents: %+v", agents)
	}
	if agents[0].SecretHash == "s3cret" {
		t.Error("Secret stored in the clear")
	}
	if !auth.CheckSecretHash("s3cret", agents[0].SecretHash) {
		t.Error("Stored hash does not verify the original secret")
	}
}

func TestLoadRejectsIncompleteEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte(`[{"id": "no_secret"}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for entry without secret")
	}
}
