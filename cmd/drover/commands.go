package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/loykin/drover/internal/config"
	"github.com/loykin/drover/internal/history"
	"github.com/loykin/drover/internal/logger"
	"github.com/loykin/drover/internal/metrics"
	"github.com/loykin/drover/internal/supervisor"
)

// errNotRunning maps the not-running status verdict to exit code 1.
var errNotRunning = errors.New("daemon is not running")

// GlobalFlags holds the persistent flags shared by every subcommand.
type GlobalFlags struct {
	ConfigPath string
	Port       int
	Verbose    bool
}

// buildRoot assembles the CLI. Running the bare binary is the same as
// running "drover start".
func buildRoot(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "drover",
		Short: "Host-side supervisor for a container-reachable daemon",
		Long: `Drover installs, starts, stops, and reports on one externally-built
network daemon (chromedriver by default), publishing an address that sibling
containers can reach through the host.

Examples:
  drover                      # same as "drover start"
  drover start                # idempotent; prints the published address
  DROVER_PORT=4444 drover start
  drover status               # exit 0 running, exit 1 not running
  drover restart`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd.Context(), flags)
		},
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().IntVar(&flags.Port, "port", 0, "daemon port (overrides config and "+config.EnvPort+")")
	root.PersistentFlags().BoolVar(&flags.Verbose, "verbose", false, "enable debug logging")

	root.AddCommand(
		createInstallCommand(flags),
		createStartCommand(flags),
		createStopCommand(flags),
		createStatusCommand(flags),
		createRestartCommand(flags),
	)
	return root
}

func createInstallCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Ensure the daemon binary is present and runnable",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, _, done, err := setup(flags)
			if err != nil {
				return err
			}
			defer done()
			if err := sup.Install(); err != nil {
				return err
			}
			slog.Info("daemon binary is installed and runnable")
			return nil
		},
	}
}

func createStartCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon and wait until it is ready (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd.Context(), flags)
		},
	}
}

func createStopCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the tracked daemon instance (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, _, done, err := setup(flags)
			if err != nil {
				return err
			}
			defer done()
			res, err := sup.Stop(cmd.Context())
			if err != nil {
				return err
			}
			printJSON(res)
			return nil
		},
	}
}

func createStatusCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report daemon status; exit 0 when running, 1 when not",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, _, done, err := setup(flags)
			if err != nil {
				return err
			}
			defer done()
			st, err := sup.Status(cmd.Context())
			if err != nil {
				return err
			}
			printJSON(st)
			if !st.Running {
				return errNotRunning
			}
			return nil
		},
	}
}

func createRestartCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Stop the daemon, then start it fresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, _, done, err := setup(flags)
			if err != nil {
				return err
			}
			defer done()
			res, err := sup.Restart(cmd.Context())
			if err != nil {
				return err
			}
			printJSON(res)
			return nil
		},
	}
}

func runStart(ctx context.Context, flags *GlobalFlags) error {
	sup, _, done, err := setup(flags)
	if err != nil {
		return err
	}
	defer done()
	res, err := sup.Start(ctx)
	if err != nil {
		return err
	}
	printJSON(res)
	return nil
}

// setup resolves configuration, installs logging, and wires the supervisor
// with its optional history sink and metrics. The returned func flushes
// metrics and closes the sink.
func setup(flags *GlobalFlags) (*supervisor.Supervisor, config.Config, func(), error) {
	level := slog.LevelInfo
	if flags.Verbose {
		level = slog.LevelDebug
	}
	logger.Setup(level)

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	if flags.Port > 0 {
		cfg.Port = flags.Port
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		slog.Warn("metrics registration failed", "error", err)
	}

	sup := supervisor.New(cfg)
	sink, err := history.NewSink(cfg.History.DSN, cfg.History.Table)
	if err != nil {
		// History is an audit trail, not a dependency of the lifecycle.
		slog.Warn("history sink unavailable", "dsn", cfg.History.DSN, "error", err)
	} else if sink != nil {
		sup.SetHistorySink(sink)
	}

	done := func() {
		if sink != nil {
			_ = sink.Close()
		}
		if err := metrics.Push(cfg.Metrics.Pushgateway, cfg.Metrics.Job); err != nil {
			slog.Warn("metrics push failed", "gateway", cfg.Metrics.Pushgateway, "error", err)
		}
	}
	return sup, cfg, done, nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	_, _ = fmt.Fprintln(os.Stdout, string(b))
}
