package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/germanamz/ares/pkg/chats/message"
	"github.com/germanamz/ares/pkg/sse"
)

// DefaultPath is the gateway route that accepts chat requests.
const DefaultPath = "/functions/chat"

// DefaultHeaderTimeout bounds the wait for response headers when no client
// is supplied.
const DefaultHeaderTimeout = 10 * time.Minute

// Streamer opens a streamed reply for a conversation.
type Streamer interface {
	Stream(ctx context.Context, msgs []message.Message) (*sse.Stream, error)
}

// Auth holds authentication settings for the gateway.
type Auth struct {
	Key    string // Token value.
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

// Client is an HTTP client for the chat gateway.
type Client struct {
	BaseURL string            // Gateway base URL (no trailing slash).
	Path    string            // Route appended to BaseURL; may be empty.
	Auth    Auth              // Authentication settings.
	HTTP    *http.Client      // HTTP client; falls back to NewHTTPClient(DefaultHeaderTimeout).
	Headers map[string]string // Extra headers applied to every request.
	Logger  *slog.Logger      // Defaults to slog.Default().

	clientOnce    sync.Once
	defaultClient *http.Client
}

var _ Streamer = (*Client)(nil)

// New creates a Client that authenticates with a bearer token. An empty
// token sends no Authorization header. A nil client falls back to a default
// at call time.
func New(baseURL, token string, client *http.Client) *Client {
	return &Client{
		BaseURL: baseURL,
		Path:    DefaultPath,
		Auth:    Auth{Key: token},
		HTTP:    client,
	}
}

// NewHTTPClient returns a client that waits at most headerTimeout for the
// response headers. The body is not bounded: a reply streams for as long as
// it takes and is stopped through the request context. Zero means no limit.
func NewHTTPClient(headerTimeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // stdlib default
	tr.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: tr}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}

	c.clientOnce.Do(func() {
		c.defaultClient = NewHTTPClient(DefaultHeaderTimeout)
	})

	return c.defaultClient
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// NewRequest builds an *http.Request for BaseURL+Path with auth and custom
// headers already applied.
func (c *Client) NewRequest(ctx context.Context, method string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+c.Path, body)
	if err != nil {
		return nil, err
	}

	if c.Auth.Key != "" {
		header := c.Auth.Header
		if header == "" {
			header = "Authorization"
		}

		value := c.Auth.Key
		if header == "Authorization" {
			scheme := c.Auth.Scheme
			if scheme == "" {
				scheme = "Bearer"
			}
			value = scheme + " " + value
		} else if c.Auth.Scheme != "" {
			value = c.Auth.Scheme + " " + value
		}

		req.Header.Set(header, value)
	}

	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

type chatRequest struct {
	Messages []message.Message `json:"messages"`
}

// Post marshals payload as JSON and sends it, asking for an event stream.
// The response is returned as is; the caller owns its body.
func (c *Client) Post(ctx context.Context, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("transport: marshal request: %w", err)
	}

	req, err := c.NewRequest(ctx, http.MethodPost, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient().Do(req) //nolint:gosec // URL is built from trusted BaseURL config.
	if err != nil {
		return nil, fmt.Errorf("transport: do request: %w", err)
	}
	return resp, nil
}

// Stream posts msgs and returns a stream over the reply. The status is
// checked before any decoding: 429, 402 and other non-2xx responses come
// back as *RateLimitError, *PaymentRequiredError and *StatusError. The
// caller must Close the returned stream.
func (c *Client) Stream(ctx context.Context, msgs []message.Message) (*sse.Stream, error) {
	resp, err := c.Post(ctx, chatRequest{Messages: msgs})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		err := statusError(resp)
		c.logger().Warn("transport: chat request failed", "status", resp.StatusCode, "error", err)
		return nil, err
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, ErrNoBody
	}

	return sse.NewStream(resp.Body, c.logger()), nil
}
