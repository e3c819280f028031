package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quizsync/internal/config"
	"quizsync/internal/logging"
	"quizsync/internal/services"
)

// MaxBatchSize is the upsert limit imposed by the CRM's bulk record API.
const MaxBatchSize = 100

// Contact is a CRM contact matched by email.
type Contact struct {
	ID string
}

// Session is a CRM session entity matched by external session identifier.
type Session struct {
	ID       string
	DateTime string
}

// Attempt is one quiz attempt staged for upsert.
type Attempt struct {
	Name        string `json:"Name"`
	ContactID   string `json:"Contact_Name"`
	SessionID   string `json:"Session"`
	Score       int    `json:"Quiz_Score"`
	SessionDate string `json:"Session_Date_Time"`
}

// Client talks to the CRM's contact, session, and attempt modules.
type Client struct {
	baseURL    string
	tokens     services.TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger to the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "crm")
		}
	}
}

// New creates a CRM client from configuration.
func New(cfg *config.Config, tokens services.TokenSource, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("crm: config required")
	}
	if tokens == nil {
		return nil, errors.New("crm: token source required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.CRM.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("crm: base url required")
	}

	timeout := time.Duration(cfg.CRM.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchContact finds the contact registered under the given email. A missing
// contact maps to ErrNotFound.
func (c *Client) SearchContact(ctx context.Context, email string) (Contact, error) {
	endpoint := fmt.Sprintf("%s/crm/v2/Contacts/search?email=%s", c.baseURL, url.QueryEscape(email))

	var payload struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return Contact{}, services.Wrap(marker(err), "crm", "search contact", email, err)
	}
	if len(payload.Data) == 0 {
		return Contact{}, services.Wrap(services.ErrNotFound, "crm", "search contact",
			fmt.Sprintf("no contact for %s", email), nil)
	}
	return Contact{ID: payload.Data[0].ID}, nil
}

// FindSession resolves the session entity carrying the given external session
// identifier, returning its record id and scheduled date.
func (c *Client) FindSession(ctx context.Context, sessionID string) (Session, error) {
	query := fmt.Sprintf(
		"select id, Session_Date_Time from Sessions where Vevox_Session_ID = '%s'",
		escapeQueryValue(sessionID))

	rows, err := c.query(ctx, query)
	if err != nil {
		return Session{}, services.Wrap(marker(err), "crm", "find session", sessionID, err)
	}
	if len(rows) == 0 {
		return Session{}, services.Wrap(services.ErrNotFound, "crm", "find session",
			fmt.Sprintf("no session entity for %s", sessionID), nil)
	}
	var row struct {
		ID       string `json:"id"`
		DateTime string `json:"Session_Date_Time"`
	}
	if err := json.Unmarshal(rows[0], &row); err != nil {
		return Session{}, services.Wrap(services.ErrTransport, "crm", "find session", "decode session row", err)
	}
	return Session{ID: row.ID, DateTime: row.DateTime}, nil
}

// AttemptExists reports whether an attempt already links the contact to the
// session entity.
func (c *Client) AttemptExists(ctx context.Context, contactID, sessionEntityID string) (bool, error) {
	query := fmt.Sprintf(
		"select Contact_Name.id as contactId from Attempts where Contact_Name = '%s' and Session = '%s'",
		escapeQueryValue(contactID), escapeQueryValue(sessionEntityID))

	rows, err := c.query(ctx, query)
	if err != nil {
		if errors.Is(marker(err), services.ErrNotFound) {
			return false, nil
		}
		return false, services.Wrap(services.ErrTransport, "crm", "check attempt", contactID, err)
	}
	return len(rows) > 0, nil
}

// CountAttempts returns the total number of attempt records.
func (c *Client) CountAttempts(ctx context.Context) (int, error) {
	endpoint := fmt.Sprintf("%s/crm/v2.1/Attempts/actions/count", c.baseURL)

	var payload struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return 0, services.Wrap(services.ErrTransport, "crm", "count attempts", "", err)
	}
	return payload.Count, nil
}

// UpsertAttempts creates the staged attempts in one bulk call, asking the CRM
// to run its workflow and layout rules on the new records.
func (c *Client) UpsertAttempts(ctx context.Context, attempts []Attempt) error {
	if len(attempts) == 0 {
		return nil
	}
	if len(attempts) > MaxBatchSize {
		return services.Wrap(services.ErrConfiguration, "crm", "upsert attempts",
			fmt.Sprintf("batch of %d exceeds limit %d", len(attempts), MaxBatchSize), nil)
	}

	endpoint := fmt.Sprintf("%s/crm/v3/Attempts", c.baseURL)
	body := map[string]any{
		"data": attempts,
		"apply_feature_execution": []map[string]string{
			{"name": "layout_rules"},
		},
		"trigger": []string{"workflow"},
	}
	if err := c.do(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		return services.Wrap(services.ErrTransport, "crm", "upsert attempts",
			fmt.Sprintf("batch of %d", len(attempts)), err)
	}

	c.logger.Info("attempt batch upserted", logging.Int("attempts", len(attempts)))
	return nil
}

// statusError carries the HTTP status of a failed CRM call.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("crm service returned %d", e.status)
}

// marker maps a call error to its sentinel: empty results (204) and client
// errors mean the entity does not exist, everything else is transport.
func marker(err error) error {
	var se *statusError
	if errors.As(err, &se) {
		if se.status == http.StatusNoContent || (se.status >= 400 && se.status < 500) {
			return services.ErrNotFound
		}
	}
	return services.ErrTransport
}

func (c *Client) query(ctx context.Context, selectQuery string) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/crm/v3/coql", c.baseURL)
	body := map[string]string{"select_query": selectQuery}

	var payload struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, endpoint, body, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("acquire token: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode >= http.StatusBadRequest {
		return &statusError{status: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// escapeQueryValue doubles single quotes so values embed safely in query
// string literals.
func escapeQueryValue(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
