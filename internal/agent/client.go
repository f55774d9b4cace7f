package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arjunkrish/loanbroker/internal/circuitbreaker"
	"github.com/arjunkrish/loanbroker/internal/db"
)

const (
	// PollInterval is how often a long-lived agent loop asks the broker
	// for new work.
	PollInterval = 5 * time.Second
	// RetryBackoff is the fixed sleep after a transport failure before the
	// loop re-authenticates and tries again.
	RetryBackoff = 10 * time.Second
)

// Config identifies one agent against the broker.
type Config struct {
	BrokerURL    string
	ClientID     string
	ClientSecret string
}

// StatusError is a non-2xx broker response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("broker returned %d: %s", e.Code, e.Message)
}

// Client is the shared broker client for consumer and bank agents. It holds
// the current access token, re-authenticates once on a 401 (tokens expire),
// and routes every call through a circuit breaker so a dead broker trips
// fast instead of being hammered every cycle. Only transport failures count
// against the breaker: an error status still means the broker is up.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker

	mu    sync.Mutex
	token string
}

func New(cfg Config) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: circuitbreaker.New(3, RetryBackoff),
	}
}

// Authenticate performs the client-credentials grant and stores the token.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{
		"grant_type": {"client_credentials"},
		"username":   {c.cfg.ClientID},
		"password":   {c.cfg.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BrokerURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.roundTrip(req)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authenticate: %w", &StatusError{Code: resp.StatusCode, Message: readErrorBody(resp.Body)})
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("authenticate: decode response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return errors.New("authenticate: empty access token")
	}

	c.mu.Lock()
	c.token = tokenResp.AccessToken
	c.mu.Unlock()
	return nil
}

// SubmitIntent posts a loan intent and returns the acknowledged transaction id.
func (c *Client) SubmitIntent(ctx context.Context, intent db.Intent) (string, error) {
	var ack struct {
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
	}
	if err := c.call(ctx, http.MethodPost, "/submit_intent", intent, &ack); err != nil {
		return "", err
	}
	return ack.TransactionID, nil
}

// GetIntents lists open intents for bank-side discovery.
func (c *Client) GetIntents(ctx context.Context) ([]db.Intent, error) {
	var intents []db.Intent
	if err := c.call(ctx, http.MethodGet, "/get_intents", nil, &intents); err != nil {
		return nil, err
	}
	return intents, nil
}

// SubmitProposal posts an offer against an intent.
func (c *Client) SubmitProposal(ctx context.Context, proposal db.Proposal) (string, error) {
	var ack struct {
		Status     string `json:"status"`
		ProposalID string `json:"proposal_id"`
	}
	if err := c.call(ctx, http.MethodPost, "/submit_proposal", proposal, &ack); err != nil {
		return "", err
	}
	return ack.ProposalID, nil
}

// GetProposals fetches the current proposal snapshot for a transaction.
func (c *Client) GetProposals(ctx context.Context, transactionID string) ([]db.Proposal, error) {
	var proposals []db.Proposal
	if err := c.call(ctx, http.MethodGet, "/get_proposals/"+transactionID, nil, &proposals); err != nil {
		return nil, err
	}
	return proposals, nil
}

// call runs one authenticated round-trip. A 401 triggers a single
// re-authentication and retry (token likely expired); every other failure
// surfaces to the caller's polling loop, which owns backoff.
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	err := c.doOnce(ctx, method, path, body, out)

	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
		if err := c.Authenticate(ctx); err != nil {
			return err
		}
		return c.doOnce(ctx, method, path, body, out)
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BrokerURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	req.Header.Set("Authorization", "Bearer "+token)
	// The broker's replay window checks this on protected calls.
	req.Header.Set("X-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))

	resp, err := c.roundTrip(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Message: readErrorBody(resp.Body)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// roundTrip sends the request under the breaker. The breaker only sees
// transport errors; any HTTP response at all proves the broker is alive.
func (c *Client) roundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := c.breaker.Execute(func() error {
		var err error
		resp, err = c.http.Do(req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func readErrorBody(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4<<10))
	if err != nil {
		return "unreadable response"
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}
