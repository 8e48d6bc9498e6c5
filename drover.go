package drover

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/drover/internal/config"
	"github.com/loykin/drover/internal/daemon"
	"github.com/loykin/drover/internal/history"
	"github.com/loykin/drover/internal/install"
	"github.com/loykin/drover/internal/metrics"
	"github.com/loykin/drover/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = config.Config

type Profile = daemon.Profile

type Supervisor = supervisor.Supervisor

type Status = supervisor.Status

type StartResult = supervisor.StartResult

type StopResult = supervisor.StopResult

// Error taxonomy.

type InstallationError = install.Error

type PortConflictError = supervisor.PortConflictError

type StartupTimeoutError = supervisor.StartupTimeoutError

type SignalError = supervisor.SignalError

type HistorySink = history.Sink

// New builds a supervisor for the given configuration.
func New(cfg Config) *Supervisor { return supervisor.New(cfg) }

// DefaultConfig is the built-in chromedriver configuration.
func DefaultConfig() Config { return config.Default() }

// LoadConfig resolves configuration from an optional TOML file plus
// environment overrides.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// Chromedriver returns the built-in daemon profile.
func Chromedriver() Profile { return daemon.Chromedriver() }

// NewHistorySink selects a lifecycle-audit sink by DSN scheme (sqlite,
// postgres, clickhouse). Empty DSN yields a nil sink.
func NewHistorySink(dsn, table string) (HistorySink, error) {
	return history.NewSink(dsn, table)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// PushMetrics sends the accumulated lifecycle counters to a Pushgateway.
func PushMetrics(url, job string) error { return metrics.Push(url, job) }
