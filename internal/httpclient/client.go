package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultUserAgent = "kkfeed/0.1 (+feed mirror)"

// Client is a timeout-bounded HTTP client that stamps a User-Agent on every request.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

// New creates a client; a non-positive timeout means 30s.
func New(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		userAgent:  userAgent,
	}
}

// Get performs a GET request with the given extra headers.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return c.httpClient.Do(req)
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}
