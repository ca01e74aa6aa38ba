// Package sercop exposes the SERCOP open contracting API of Ecuador as MCP tools.
package sercop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// BaseURL is the root of the SERCOP open data API
const BaseURL = "https://datosabiertos.compraspublicas.gob.ec/PLATAFORMA/api"

// Kind classifies why an upstream call failed
type Kind int

const (
	// KindTransport means the round trip itself failed
	KindTransport Kind = iota + 1
	// KindStatus means the API answered outside the 2xx range
	KindStatus
	// KindDecode means the body was not a usable JSON document
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned by Client.Fetch for every failed call
type Error struct {
	Kind       Kind
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("sercop %s: HTTP error: %d", e.Endpoint, e.StatusCode)
	default:
		return fmt.Sprintf("sercop %s: %s error: %v", e.Endpoint, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client issues GET requests against the SERCOP API
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for upstream calls
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithBaseURL points the client at another deployment of the API
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for BaseURL
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: BaseURL,
		client:  http.DefaultClient,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the full request URL for an endpoint and query
func (c *Client) URL(endpoint string, query Query) string {
	u := c.baseURL + endpoint
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// Fetch performs one GET request and returns the response body, which is
// guaranteed to be valid JSON. Failures are reported as *Error.
func (c *Client) Fetch(ctx context.Context, endpoint string, query Query) (json.RawMessage, error) {
	u := c.URL(endpoint, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fetching", "url", u)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindStatus, Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	body = []byte(strings.TrimSpace(string(body)))
	if !json.Valid(body) {
		return nil, &Error{Kind: KindDecode, Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid JSON body (%d bytes)", len(body))}
	}
	if string(body) == "null" {
		return nil, &Error{Kind: KindDecode, Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("empty JSON document")}
	}

	return body, nil
}
