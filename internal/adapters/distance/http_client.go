package distance

import (
	"context"
	"errors"
	"fastest-route-service/internal/domain"
	"fastest-route-service/internal/platform/metrics"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// apiClient is the HTTP plumbing shared by the provider adapters: header
// injection, status checking, bounded retries and error classification.
type apiClient struct {
	session     *http.Client
	provider    string
	headers     map[string]string
	maxAttempts int
	backoff     time.Duration
	metrics     *metrics.Metrics
}

func newAPIClient(provider string, headers map[string]string, m *metrics.Metrics) *apiClient {
	return &apiClient{
		session:     &http.Client{Timeout: 10 * time.Second},
		provider:    provider,
		headers:     headers,
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
		metrics:     m,
	}
}

func (c *apiClient) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (c *apiClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429 and 5xx
// responses) with exponential backoff while respecting context cancellation.
// The returned error is classified against the domain provider errors.
func (c *apiClient) doWithRetry(
	ctx context.Context,
	makeReq func() (*http.Request, error),
) (*http.Response, error) {
	backoff := c.backoff

	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, c.fail(err)
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := c.do(req)
		if err == nil {
			c.metrics.ObserveProvider(c.provider, "ok")
			return resp, nil
		}
		lastErr = err

		if !retryable(err) || attempt == c.maxAttempts {
			return nil, c.fail(lastErr)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, c.fail(ctx.Err())
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, c.fail(lastErr)
}

func (c *apiClient) fail(err error) error {
	c.metrics.ObserveProvider(c.provider, "error")
	return classify(c.provider, err)
}

func retryable(err error) bool {
	var he *httpStatusError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// classify maps a transport failure onto ErrProviderUnavailable (unreachable,
// throttled or server-side failure) or ErrProviderResponse (rejected request).
func classify(provider string, err error) error {
	var he *httpStatusError
	if errors.As(err, &he) {
		if he.Code == http.StatusTooManyRequests || he.Code >= 500 {
			return fmt.Errorf("%s: %w: %w", provider, domain.ErrProviderUnavailable, err)
		}
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrProviderResponse, err)
	}
	return fmt.Errorf("%s: %w: %w", provider, domain.ErrProviderUnavailable, err)
}

// invalidResponse wraps a malformed or incomplete provider payload.
func invalidResponse(provider, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", provider, domain.ErrProviderResponse, fmt.Sprintf(format, args...))
}
