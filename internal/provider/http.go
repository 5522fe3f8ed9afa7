package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"t5index/internal/metrics"

	"github.com/sony/gobreaker"
)

var (
	// ErrUnknownSymbol is returned for symbols a source has no identifier for.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrRateLimited is returned when the upstream answers 429.
	ErrRateLimited = errors.New("rate limited by upstream")

	// ErrNoData is returned when the upstream answers without any prices.
	ErrNoData = errors.New("no price data returned")
)

// StatusError is a non-200 upstream response.
type StatusError struct {
	Source string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Source, e.Code, e.Body)
}

type requester struct {
	source  string
	client  *http.Client
	limiter *RateLimiter
	breaker *gobreaker.CircuitBreaker
	headers map[string]string
}

func (r *requester) get(ctx context.Context, url string) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.do(ctx, url)
	})
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status = "breaker_open"
	case errors.Is(err, ErrRateLimited):
		status = "rate_limited"
	default:
		status = "error"
	}
	metrics.ProviderRequests.WithLabelValues(r.source, status).Inc()
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (r *requester) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%s: %w", r.source, ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, &StatusError{Source: r.source, Code: resp.StatusCode, Body: string(body)}
	}

	return io.ReadAll(resp.Body)
}
