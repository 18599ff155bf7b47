// Package webclient is the retrying HTTP layer shared by the source clients.
package webclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"parkinsight/internal/models"
	"parkinsight/pkg/logger"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36 Edg/139.0.0.0"

// Client wraps http.Client with a bounded retry loop and JSON decoding into
// the Value tree.
type Client struct {
	httpClient *http.Client
	maxRetries int
	retryWait  time.Duration
}

// NewClient creates a client with sane timeouts and three attempts per call.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		retryWait:  time.Second,
	}
}

// SetRetryWait overrides the base backoff delay. Tests use a zero wait.
func (c *Client) SetRetryWait(d time.Duration) { c.retryWait = d }

// GetJSON performs a GET and decodes the response body. The raw body is
// returned alongside so callers can keep it when decoding fails.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string) (models.Value, []byte, error) {
	return c.doJSON(ctx, http.MethodGet, url, "", headers)
}

// PostForm performs a form-encoded POST and decodes the response body.
func (c *Client) PostForm(ctx context.Context, url, form string, headers map[string]string) (models.Value, []byte, error) {
	if headers == nil {
		headers = map[string]string{}
	}
	if _, ok := headers["Content-Type"]; !ok {
		headers["Content-Type"] = "application/x-www-form-urlencoded; charset=UTF-8"
	}
	return c.doJSON(ctx, http.MethodPost, url, form, headers)
}

func (c *Client) doJSON(ctx context.Context, method, url, body string, headers map[string]string) (models.Value, []byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return models.Null(), nil, fmt.Errorf("failed to create request: %v", err)
		}

		req.Header.Set("User-Agent", defaultUserAgent)
		req.Header.Set("Accept", "application/json, text/plain, */*")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			logger.GlobalLogger.Errorf("request failed (attempt %d/%d): url=%s, error=%v", attempt, c.maxRetries, url, err)
			if err := c.wait(ctx, attempt); err != nil {
				return models.Null(), nil, err
			}
			continue
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			logger.GlobalLogger.Errorf("failed to read response body (attempt %d/%d): url=%s, status=%s, error=%v",
				attempt, c.maxRetries, url, resp.Status, err)
			if err := c.wait(ctx, attempt); err != nil {
				return models.Null(), nil, err
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %s", resp.Status)
			logger.GlobalLogger.Errorf("request failed (attempt %d/%d): url=%s, status=%s, response=%s",
				attempt, c.maxRetries, url, resp.Status, truncate(raw, 200))
			if err := c.wait(ctx, attempt); err != nil {
				return models.Null(), nil, err
			}
			continue
		}

		v, err := models.DecodeJSON(raw)
		if err != nil {
			return models.Null(), raw, fmt.Errorf("failed to decode response: %v", err)
		}
		return v, raw, nil
	}
	return models.Null(), nil, fmt.Errorf("request failed after %d attempts: %v", c.maxRetries, lastErr)
}

// wait sleeps for attempt*retryWait or until the context is done.
func (c *Client) wait(ctx context.Context, attempt int) error {
	if attempt >= c.maxRetries {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(attempt) * c.retryWait):
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
