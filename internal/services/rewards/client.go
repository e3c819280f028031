package rewards

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

// Player is a participant profile on the rewards service.
type Player struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Client talks to the optional rewards sink.
type Client struct {
	baseURL    string
	apiKey     string
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
			c.logger = logging.NewComponentLogger(logger, "rewards")
		}
	}
}

// New creates a rewards client from configuration. Returns nil without error
// when the sink is disabled.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil || !cfg.Rewards.Enabled {
		return nil, nil
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Rewards.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("rewards: base url required")
	}
	apiKey := strings.TrimSpace(cfg.Rewards.APIKey)
	if apiKey == "" {
		return nil, errors.New("rewards: api key required")
	}

	timeout := time.Duration(cfg.Rewards.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FindPlayer looks up a player by email. A missing player maps to ErrNotFound,
// whether the service signals it with an empty result set or a 404.
func (c *Client) FindPlayer(ctx context.Context, email string) (Player, error) {
	endpoint := fmt.Sprintf("%s/players?email=%s", c.baseURL, url.QueryEscape(email))

	var payload struct {
		Players []Player `json:"players"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return Player{}, services.Wrap(marker(err), "rewards", "find player", email, err)
	}
	if len(payload.Players) == 0 {
		return Player{}, services.Wrap(services.ErrNotFound, "rewards", "find player",
			fmt.Sprintf("no player for %s", email), nil)
	}
	return payload.Players[0], nil
}

// CreatePlayer registers a new player profile.
func (c *Client) CreatePlayer(ctx context.Context, email, displayName string) (Player, error) {
	endpoint := fmt.Sprintf("%s/players", c.baseURL)
	body := Player{Email: email, DisplayName: displayName}

	var created Player
	if err := c.do(ctx, http.MethodPost, endpoint, &body, &created); err != nil {
		return Player{}, services.Wrap(services.ErrTransport, "rewards", "create player", email, err)
	}
	c.logger.Info("player created", logging.String(logging.FieldEmail, email))
	return created, nil
}

// EnsurePlayer returns the existing player for the email or creates one.
func (c *Client) EnsurePlayer(ctx context.Context, email, displayName string) (Player, error) {
	player, err := c.FindPlayer(ctx, email)
	if err == nil {
		return player, nil
	}
	if !errors.Is(err, services.ErrNotFound) {
		return Player{}, err
	}
	return c.CreatePlayer(ctx, email, displayName)
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("rewards service returned %d", e.code)
}

// marker classifies a request failure: a 404 or 204 means the player does not
// exist, anything else is a transport problem.
func marker(err error) error {
	var status *statusError
	if errors.As(err, &status) {
		if status.code == http.StatusNotFound || status.code == http.StatusNoContent {
			return services.ErrNotFound
		}
	}
	return services.ErrTransport
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
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &statusError{code: resp.StatusCode}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
