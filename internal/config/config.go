package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/drover/internal/daemon"
	"github.com/loykin/drover/internal/logger"
)

// Env variable names. DROVER_PORT is the documented way to retarget the
// daemon port without a config file.
const (
	EnvPort        = "DROVER_PORT"
	EnvLogDir      = "DROVER_LOG_DIR"
	EnvHistoryDSN  = "DROVER_HISTORY_DSN"
	EnvPushgateway = "DROVER_PUSHGATEWAY"
)

// ProbeConfig bounds the readiness-poll loop in start: attempts × interval is
// the wall-clock startup budget.
type ProbeConfig struct {
	Interval time.Duration `toml:"interval" mapstructure:"interval"`
	Attempts int           `toml:"attempts" mapstructure:"attempts"`
}

// HistoryConfig selects the lifecycle-audit sink by DSN. Empty DSN disables
// history.
type HistoryConfig struct {
	DSN   string `toml:"dsn" mapstructure:"dsn"`
	Table string `toml:"table" mapstructure:"table"`
}

// MetricsConfig enables pushing lifecycle counters to a Prometheus
// Pushgateway. Empty URL disables the push.
type MetricsConfig struct {
	Pushgateway string `toml:"pushgateway" mapstructure:"pushgateway"`
	Job         string `toml:"job" mapstructure:"job"`
}

// Config is the full resolved configuration for one invocation.
type Config struct {
	Port    int            `toml:"port" mapstructure:"port"`
	Daemon  daemon.Profile `toml:"daemon" mapstructure:"daemon"`
	PIDFile string         `toml:"pidfile" mapstructure:"pidfile"`
	Log     logger.Config  `toml:"log" mapstructure:"log"`
	Probe   ProbeConfig    `toml:"probe" mapstructure:"probe"`
	History HistoryConfig  `toml:"history" mapstructure:"history"`
	Metrics MetricsConfig  `toml:"metrics" mapstructure:"metrics"`
}

// Default returns the built-in chromedriver configuration with deterministic
// marker and log locations under the temp dir.
func Default() Config {
	prof := daemon.Chromedriver()
	return Config{
		Port:    daemon.DefaultPort,
		Daemon:  prof,
		PIDFile: prof.PIDPath(),
		Log:     logger.Config{Path: prof.LogPath()},
		Probe:   ProbeConfig{Interval: 500 * time.Millisecond, Attempts: 30},
		History: HistoryConfig{Table: "daemon_history"},
		Metrics: MetricsConfig{Job: "drover"},
	}
}

// Load resolves configuration in precedence order: defaults, then the TOML
// file when path is non-empty, then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	// Re-derive file locations when a custom daemon name was configured but
	// no explicit paths were given.
	def := Default()
	if cfg.PIDFile == def.PIDFile && cfg.Daemon.Name != def.Daemon.Name {
		cfg.PIDFile = cfg.Daemon.PIDPath()
	}
	if cfg.Log.Path == def.Log.Path && cfg.Daemon.Name != def.Daemon.Name {
		cfg.Log.Path = cfg.Daemon.LogPath()
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	ev := viper.New()
	_ = ev.BindEnv("port", EnvPort)
	_ = ev.BindEnv("log_dir", EnvLogDir)
	_ = ev.BindEnv("history_dsn", EnvHistoryDSN)
	_ = ev.BindEnv("pushgateway", EnvPushgateway)
	if p := ev.GetInt("port"); p > 0 {
		cfg.Port = p
	}
	if dir := ev.GetString("log_dir"); dir != "" {
		cfg.Log.Path = filepath.Join(dir, cfg.Daemon.Name+".log")
	}
	if dsn := ev.GetString("history_dsn"); dsn != "" {
		cfg.History.DSN = dsn
	}
	if gw := ev.GetString("pushgateway"); gw != "" {
		cfg.Metrics.Pushgateway = gw
	}
}

// Validate rejects configurations no operation could act on.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Daemon.Name == "" || c.Daemon.Binary == "" {
		return fmt.Errorf("daemon profile requires name and binary")
	}
	if c.Probe.Interval <= 0 {
		return fmt.Errorf("probe interval must be positive")
	}
	if c.Probe.Attempts <= 0 {
		return fmt.Errorf("probe attempts must be positive")
	}
	return nil
}
