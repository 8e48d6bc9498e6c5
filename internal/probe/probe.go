package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Probe is a strategy that determines whether the daemon is ready to serve
// requests on its port. This is distinct from process liveness: a spawned
// process that has not yet bound its socket is alive but not ready.
type Probe interface {
	// Check returns nil when the daemon answers its readiness query.
	Check(ctx context.Context) error
	// Describe returns a human-readable description of the probe target.
	Describe() string
}

// HTTP probes a status endpoint; any 2xx answer counts as ready.
type HTTP struct {
	URL    string
	Client *http.Client
}

func NewHTTP(url string) *HTTP {
	return &HTTP{URL: url, Client: &http.Client{Timeout: 2 * time.Second}}
}

func (p *HTTP) Check(ctx context.Context) error {
	_, err := p.Fetch(ctx)
	return err
}

// Fetch performs the readiness query and returns the response body, which for
// chromedriver is its self-reported health payload.
func (p *HTTP) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("probe %s: status %d", p.URL, resp.StatusCode)
	}
	return body, nil
}

func (p *HTTP) Describe() string { return "http:" + p.URL }

// WaitReady polls p every interval for at most attempts tries. It returns nil
// as soon as a check succeeds and the last check error once the budget is
// exhausted. The abort callback is consulted between attempts so a caller can
// stop waiting on a process that already died.
func WaitReady(ctx context.Context, p Probe, interval time.Duration, attempts int, abort func() bool) error {
	if attempts <= 0 {
		attempts = 1
	}
	var last error
	for i := 0; i < attempts; i++ {
		err := p.Check(ctx)
		if err == nil {
			return nil
		}
		last = err
		if abort != nil && abort() {
			return fmt.Errorf("aborted waiting for %s: %w", p.Describe(), last)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("not ready after %d attempts: %w", attempts, last)
}
