package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRegisterIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second Register: %v", err)
	}
}

func TestHelpersCountAfterRegister(t *testing.T) {
	_ = Register(prometheus.NewRegistry())

	before := counterValue(t, daemonStarts.WithLabelValues("chromedriver"))
	IncStart("chromedriver")
	after := counterValue(t, daemonStarts.WithLabelValues("chromedriver"))
	if after != before+1 {
		t.Fatalf("starts counter: got %v want %v", after, before+1)
	}

	IncStop("chromedriver")
	IncStartFailure("chromedriver", "timeout")
	ObserveStartWait("chromedriver", 1.5)
	if v := counterValue(t, startFailures.WithLabelValues("chromedriver", "timeout")); v < 1 {
		t.Fatalf("failure counter: %v", v)
	}
}

func TestPushNoopWithoutURL(t *testing.T) {
	if err := Push("", "drover"); err != nil {
		t.Fatalf("Push with empty url must be a no-op: %v", err)
	}
}

func TestPushSendsToGateway(t *testing.T) {
	_ = Register(prometheus.NewRegistry())
	IncStart("chromedriver")

	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := Push(srv.URL, "drover"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	path, _ := gotPath.Load().(string)
	if !strings.Contains(path, "/metrics/job/drover") {
		t.Fatalf("push path: %q", path)
	}
}
