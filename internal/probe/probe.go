// Package probe executes a single HTTP request against a target and reports
// the raw outcome. It knows nothing about incidents or alerting; callers
// classify the outcome themselves.
package probe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Kind tags the three ways a probe can end. Timeouts and other transport
// failures are distinct variants rather than error types to switch on.
type Kind int

const (
	// Completed means a response was received; StatusCode, Body and Elapsed
	// are populated. The response may still fail the target's expectations.
	Completed Kind = iota
	// TimedOut means the request exceeded the configured timeout.
	TimedOut
	// TransportError means the request failed for any non-timeout reason;
	// Err holds the underlying failure.
	TransportError
)

// Outcome is the raw result of one probe.
type Outcome struct {
	Kind       Kind
	StatusCode int
	Body       string
	Elapsed    float64 // milliseconds
	Err        error
}

// Prober performs one bounded HTTP request.
type Prober interface {
	Probe(ctx context.Context, method, rawURL string, timeout time.Duration) Outcome
}

// HTTPProber is the production Prober backed by net/http. The per-request
// timeout comes from the target, so the shared client carries none.
type HTTPProber struct {
	client *http.Client
}

func NewHTTP() *HTTPProber {
	return &HTTPProber{
		client: &http.Client{},
	}
}

func (p *HTTPProber) Probe(ctx context.Context, method, rawURL string, timeout time.Duration) Outcome {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return Outcome{Kind: TransportError, Err: err}
	}
	req.Header.Set("User-Agent", "website-watchdog/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return outcomeFromError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// The deadline can also fire mid-body.
		return outcomeFromError(err)
	}

	return Outcome{
		Kind:       Completed,
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Elapsed:    float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

func outcomeFromError(err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return Outcome{Kind: TimedOut, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return Outcome{Kind: TimedOut, Err: err}
	}
	return Outcome{Kind: TransportError, Err: err}
}
