package sheets

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

// columnSpan is the ledger's fixed column window.
const columnSpan = "A:H"

// Client talks to the spreadsheet ledger's values API.
type Client struct {
	baseURL       string
	spreadsheetID string
	sheetName     string
	tokens        services.TokenSource
	httpClient    *http.Client
	logger        *slog.Logger
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
			c.logger = logging.NewComponentLogger(logger, "sheets")
		}
	}
}

// New creates a ledger client from configuration.
func New(cfg *config.Config, tokens services.TokenSource, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("sheets: config required")
	}
	if tokens == nil {
		return nil, errors.New("sheets: token source required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Ledger.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("sheets: base url required")
	}
	spreadsheetID := strings.TrimSpace(cfg.Ledger.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id required")
	}

	timeout := time.Duration(cfg.Ledger.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		baseURL:       baseURL,
		spreadsheetID: spreadsheetID,
		sheetName:     cfg.Ledger.SheetName,
		tokens:        tokens,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type valueRange struct {
	Range  string     `json:"range,omitempty"`
	Values [][]string `json:"values"`
}

type updateResponse struct {
	UpdatedRows int `json:"updatedRows"`
}

// FetchAll returns every ledger row in sheet order over the A:H span.
func (c *Client) FetchAll(ctx context.Context) ([][]string, error) {
	rangeRef := fmt.Sprintf("%s!%s", c.sheetName, columnSpan)
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s",
		c.baseURL, url.PathEscape(c.spreadsheetID), url.PathEscape(rangeRef))

	var payload valueRange
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return nil, services.Wrap(services.ErrTransport, "sheets", "fetch ledger", rangeRef, err)
	}
	return payload.Values, nil
}

// Append writes rows immediately after the last occupied ledger row and
// returns the first written row number (1-based). The row count is re-read
// just before the write so consecutive runs address fresh ranges; the run
// lock serializes writers on this host.
func (c *Client) Append(ctx context.Context, rows [][]string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	existing, err := c.FetchAll(ctx)
	if err != nil {
		return 0, err
	}
	startRow := len(existing) + 1

	rangeRef := fmt.Sprintf("%s!A%d:H%d", c.sheetName, startRow, len(existing)+len(rows))
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s?valueInputOption=USER_ENTERED",
		c.baseURL, url.PathEscape(c.spreadsheetID), url.PathEscape(rangeRef))

	body := valueRange{Values: rows}
	var result updateResponse
	if err := c.do(ctx, http.MethodPut, endpoint, &body, &result); err != nil {
		return 0, services.Wrap(services.ErrTransport, "sheets", "append ledger rows", rangeRef, err)
	}

	c.logger.Info("ledger rows appended",
		logging.Int("rows", len(rows)),
		logging.Int("start_row", startRow))
	return startRow, nil
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
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("ledger service returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
