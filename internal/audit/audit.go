package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// LogEntry is one structured audit record, one JSON line per request.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	ActorID   string                 `json:"actor_id"`
	Action    string                 `json:"action"`   // method + path
	Resource  string                 `json:"resource"` // path
	Status    int                    `json:"status"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Logger interface
type Logger interface {
	Log(entry LogEntry)
}

// JSONLogger writes to io.Writer
type JSONLogger struct {
	out io.Writer
}

func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{out: w}
}

func (l *JSONLogger) Log(entry LogEntry) {
	if entry.Metadata != nil {
		maskSensitive(entry.Metadata)
	}

	bytes, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Audit log error: %v\n", err)
		return
	}
	l.out.Write(bytes)
	l.out.Write([]byte("\n"))
}

// maskSensitive redacts credential material so a token or client secret
// never lands in the audit stream.
func maskSensitive(m map[string]interface{}) {
	sensitiveKeys := []string{"password", "token", "secret", "authorization"}
	for k := range m {
		lowerK := strings.ToLower(k)
		for _, s := range sensitiveKeys {
			if strings.Contains(lowerK, s) {
				m[k] = "***REDACTED***"
				break
			}
		}
	}
}
