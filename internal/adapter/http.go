package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/logger"
)

// HTTPClient defines an interface for HTTP client operations to enable mocking
//
//go:generate mockgen -source=http.go -destination=../mocks/http.go -package=mocks -mock_names=HTTPClient=MockHTTPClient
type HTTPClient interface {
	// GetBytes performs a GET request and returns the response body
	GetBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error)

	// PostBytes performs a POST request with a JSON body and returns the response body
	PostBytes(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error)

	// Download streams the response body of a GET request into w
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// RetryConfig controls how transient failures are retried
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first one
	MaxAttempts int
	// Delay is the fixed wait between attempts
	Delay time.Duration
}

// DefaultRetryConfig returns the retry policy used against the upstream APIs
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Delay:       5 * time.Second,
	}
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
}

// IsTransient reports whether the status is worth retrying
func (e *StatusError) IsTransient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// RealHTTPClient implements HTTPClient using the standard http package
type RealHTTPClient struct {
	client *http.Client
	retry  RetryConfig
}

// NewHTTPClient creates a new real HTTP client, timeout applies to each request
func NewHTTPClient(timeout time.Duration, retry RetryConfig) HTTPClient {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	return &RealHTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		retry: retry,
	}
}

// do executes the request built by newRequest with a fixed-delay retry on transient failures.
// handle is called with every 2xx response and its error decides whether the attempt succeeded.
func (c *RealHTTPClient) do(ctx context.Context, newRequest func() (*http.Request, error), handle func(resp *http.Response) error) error {
	var permanent bool

	operation := func() error {
		req, err := newRequest()
		if err != nil {
			permanent = true
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// Network errors and timeouts are retryable
			logger.WarnCtx(ctx, "request failed, retrying", zap.String("url", req.URL.Redacted()), zap.Error(err))
			return fmt.Errorf("failed to perform request: %w", err)
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logger.WarnCtx(ctx, "failed to close response body", zap.Error(err), zap.String("url", req.URL.Redacted()))
			}
		}()

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
			if statusErr.IsTransient() {
				logger.WarnCtx(ctx, "transient status, retrying",
					zap.String("url", req.URL.Redacted()),
					zap.Int("status", resp.StatusCode))
				return statusErr
			}
			permanent = true
			if resp.StatusCode == http.StatusNotFound {
				return backoff.Permanent(fmt.Errorf("%w: %w", domain.ErrNotFound, statusErr))
			}
			return backoff.Permanent(statusErr)
		}

		if err := handle(resp); err != nil {
			var permErr *backoff.PermanentError
			if !errors.As(err, &permErr) && isTimeout(ctx, err) {
				logger.WarnCtx(ctx, "timed out reading response, retrying", zap.String("url", req.URL.Redacted()), zap.Error(err))
				return err
			}
			permanent = true
			if permErr != nil {
				return err
			}
			return backoff.Permanent(err)
		}

		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retry.Delay), uint64(c.retry.MaxAttempts-1)), //nolint:gosec,G115
		ctx,
	)
	err := backoff.Retry(operation, b)
	if err == nil {
		return nil
	}
	if permanent || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w after %d attempts: %w", domain.ErrRetriesExhausted, c.retry.MaxAttempts, err)
}

// isTimeout reports whether err is a client-side deadline rather than a cancellation of ctx
func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *RealHTTPClient) readAll(ctx context.Context, newRequest func() (*http.Request, error)) ([]byte, error) {
	var respBody []byte
	err := c.do(ctx, newRequest, func(resp *http.Response) error {
		var err error
		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

// GetBytes performs a GET request and returns the response body
func (c *RealHTTPClient) GetBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return c.readAll(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
}

// PostBytes performs a POST request with a JSON body and returns the response body
func (c *RealHTTPClient) PostBytes(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error) {
	return c.readAll(ctx, func() (*http.Request, error) {
		// The body reader is rebuilt on every attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
}

// Download streams the response body of a GET request into w.
// A timeout is retried only while nothing has been written to w.
func (c *RealHTTPClient) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	var written int64
	err := c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}, func(resp *http.Response) error {
		var err error
		written, err = io.Copy(w, resp.Body)
		if err != nil {
			err = fmt.Errorf("failed to copy response body: %w", err)
			if written > 0 {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
