package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPCheckReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":{"ready":true}}`))
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL + "/status")
	if err := p.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
	body, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(string(body), "ready") {
		t.Fatalf("unexpected payload: %s", body)
	}
}

func TestHTTPCheckNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL)
	if err := p.Check(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestHTTPCheckRefusedConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewHTTP(url)
	if err := p.Check(context.Background()); err == nil {
		t.Fatal("expected error for closed port")
	}
}

func TestWaitReadySucceedsAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL)
	if err := WaitReady(context.Background(), p, 10*time.Millisecond, 10, nil); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if hits.Load() < 3 {
		t.Fatalf("expected at least 3 attempts, got %d", hits.Load())
	}
}

func TestWaitReadyBoundedByAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL)
	start := time.Now()
	err := WaitReady(context.Background(), p, 20*time.Millisecond, 5, nil)
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	// 5 attempts at 20ms spacing plus probe overhead; generous upper bound.
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("WaitReady did not respect bound: %v", elapsed)
	}
}

func TestWaitReadyAbort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL)
	calls := 0
	err := WaitReady(context.Background(), p, time.Hour, 100, func() bool {
		calls++
		return true
	})
	if err == nil {
		t.Fatal("expected abort error")
	}
	if calls != 1 {
		t.Fatalf("abort consulted %d times, want 1", calls)
	}
}
