package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/loykin/drover/internal/config"
	"github.com/loykin/drover/internal/history"
	"github.com/loykin/drover/internal/install"
	"github.com/loykin/drover/internal/logger"
	"github.com/loykin/drover/internal/metrics"
	"github.com/loykin/drover/internal/netcheck"
	"github.com/loykin/drover/internal/probe"
	"github.com/loykin/drover/internal/record"
)

// logTailLines is how much captured daemon output a StartupTimeoutError
// carries back to the caller.
const logTailLines = 20

// Status is the answer to a status query. The running verdict comes from
// process liveness alone; Health is the daemon's self-reported payload and is
// best-effort.
type Status struct {
	Daemon    string          `json:"daemon"`
	Running   bool            `json:"running"`
	PID       int             `json:"pid,omitempty"`
	Port      int             `json:"port"`
	Address   string          `json:"address,omitempty"`
	Health    json.RawMessage `json:"health,omitempty"`
	HealthErr string          `json:"health_error,omitempty"`
}

// StartResult reports the identity of the running instance after a
// successful start, whether freshly spawned or pre-existing.
type StartResult struct {
	PID            int    `json:"pid"`
	Port           int    `json:"port"`
	Address        string `json:"address"`
	AlreadyRunning bool   `json:"already_running"`
}

// StopResult reports what stop did.
type StopResult struct {
	Stopped bool `json:"stopped"` // false means idempotent no-op
	PID     int  `json:"pid,omitempty"`
}

// Supervisor drives the lifecycle of the one managed daemon. Every operation
// is a complete, short-lived interaction: state lives in the PID marker file,
// not in this struct.
type Supervisor struct {
	cfg       config.Config
	installer *install.Installer
	sink      history.Sink
	probeOvr  probe.Probe
}

func New(cfg config.Config) *Supervisor {
	return &Supervisor{cfg: cfg, installer: install.New(cfg.Daemon)}
}

// SetHistorySink wires an optional lifecycle-audit sink. Sends are
// best-effort and never fail an operation.
func (s *Supervisor) SetHistorySink(sink history.Sink) { s.sink = sink }

// SetProbe replaces the default HTTP readiness probe, for daemons with a
// different readiness surface.
func (s *Supervisor) SetProbe(p probe.Probe) { s.probeOvr = p }

// Install ensures the daemon binary is present and runnable. Safe to call on
// every invocation; presence is re-checked each time.
func (s *Supervisor) Install() error { return s.installer.Ensure() }

// IsRunning reads the persisted marker and checks liveness of the recorded
// process without signaling it. A marker naming a dead (or reused) PID is
// stale: it is deleted and not-running is reported.
func (s *Supervisor) IsRunning() (record.Record, bool, error) {
	rec, exists, err := record.Read(s.cfg.PIDFile)
	if err != nil {
		// A marker we cannot parse cannot name a live instance; heal it.
		slog.Warn("removing unreadable marker", "path", s.cfg.PIDFile, "error", err)
		_ = record.Remove(s.cfg.PIDFile)
		return record.Record{}, false, nil
	}
	if !exists {
		return record.Record{}, false, nil
	}
	if !rec.Alive() {
		slog.Info("removing stale marker", "pid", rec.PID, "path", s.cfg.PIDFile)
		_ = record.Remove(s.cfg.PIDFile)
		return rec, false, nil
	}
	return rec, true, nil
}

// Start launches the daemon bound to the configured port and blocks until it
// answers its readiness probe, idempotently: a live instance on the same port
// is a no-op success.
func (s *Supervisor) Start(ctx context.Context) (StartResult, error) {
	name := s.cfg.Daemon.Name
	if err := s.Install(); err != nil {
		metrics.IncStartFailure(name, "install")
		s.emit(ctx, history.EventStartFailed, 0, err.Error())
		return StartResult{}, err
	}

	rec, running, err := s.IsRunning()
	if err != nil {
		return StartResult{}, err
	}
	if running {
		if rec.Meta.Port == s.cfg.Port {
			addr := s.cfg.Daemon.PublishedURL(s.cfg.Port)
			slog.Info("daemon already running", "daemon", name, "pid", rec.PID, "address", addr)
			metrics.IncStart(name)
			return StartResult{PID: rec.PID, Port: s.cfg.Port, Address: addr, AlreadyRunning: true}, nil
		}
		return StartResult{}, fmt.Errorf("%s already running on port %d (pid %d); stop it before starting on port %d",
			name, rec.Meta.Port, rec.PID, s.cfg.Port)
	}

	// No marker of ours, but the port may still be taken by a stranger.
	if l, held, lerr := netcheck.FindListener(s.cfg.Port); lerr == nil && held {
		cerr := &PortConflictError{Port: s.cfg.Port, PID: l.PID, ProcessName: l.Name}
		metrics.IncStartFailure(name, "port_conflict")
		s.emit(ctx, history.EventStartFailed, int(l.PID), cerr.Error())
		return StartResult{}, cerr
	}

	binPath, ok := s.installer.Installed()
	if !ok {
		return StartResult{}, fmt.Errorf("%s disappeared from PATH after install", s.cfg.Daemon.Binary)
	}

	s.rotateLog()
	ch, err := spawnDetached(binPath, s.cfg.Daemon.Args(s.cfg.Port), s.cfg.Log.Path)
	if err != nil {
		metrics.IncStartFailure(name, "spawn")
		s.emit(ctx, history.EventStartFailed, 0, err.Error())
		return StartResult{}, fmt.Errorf("spawn %s: %w", name, err)
	}
	pid := ch.pid()
	slog.Info("spawned daemon", "daemon", name, "pid", pid, "port", s.cfg.Port, "log", s.cfg.Log.Path)

	rec = record.Record{PID: pid, Meta: record.Meta{
		Port:      s.cfg.Port,
		LogPath:   s.cfg.Log.Path,
		StartUnix: record.StartUnix(pid),
	}}
	if err := record.Write(s.cfg.PIDFile, rec); err != nil {
		return StartResult{}, fmt.Errorf("persist marker %s: %w", s.cfg.PIDFile, err)
	}

	began := time.Now()
	werr := probe.WaitReady(ctx, s.readinessProbe(), s.cfg.Probe.Interval, s.cfg.Probe.Attempts, ch.exited)
	if werr != nil {
		died := ch.exited()
		if died {
			// Nothing left to track; a dangling marker would just be stale.
			_ = record.Remove(s.cfg.PIDFile)
			metrics.IncStartFailure(name, "died")
		} else {
			metrics.IncStartFailure(name, "timeout")
		}
		terr := &StartupTimeoutError{
			Port:     s.cfg.Port,
			PID:      pid,
			Attempts: s.cfg.Probe.Attempts,
			Interval: s.cfg.Probe.Interval,
			Died:     died,
			LogTail:  logger.Tail(s.cfg.Log.Path, logTailLines),
			Err:      werr,
		}
		s.emit(ctx, history.EventStartFailed, pid, terr.Error())
		return StartResult{}, terr
	}

	addr := s.cfg.Daemon.PublishedURL(s.cfg.Port)
	metrics.ObserveStartWait(name, time.Since(began).Seconds())
	metrics.IncStart(name)
	s.emit(ctx, history.EventStart, pid, addr)
	slog.Info("daemon ready", "daemon", name, "pid", pid, "address", addr)
	return StartResult{PID: pid, Port: s.cfg.Port, Address: addr}, nil
}

// Stop terminates the tracked instance, idempotently. The marker is removed
// even when signal delivery fails: the usual cause is that the process is
// already gone, which is the end state stop wants.
func (s *Supervisor) Stop(ctx context.Context) (StopResult, error) {
	name := s.cfg.Daemon.Name
	rec, running, err := s.IsRunning()
	if err != nil {
		return StopResult{}, err
	}
	if !running {
		slog.Info("daemon not running", "daemon", name)
		metrics.IncStop(name)
		return StopResult{Stopped: false}, nil
	}

	sigErr := terminate(rec.PID)
	_ = record.Remove(s.cfg.PIDFile)
	if sigErr != nil && !alreadyDead(sigErr) {
		return StopResult{PID: rec.PID}, &SignalError{PID: rec.PID, Err: sigErr}
	}
	metrics.IncStop(name)
	s.emit(ctx, history.EventStop, rec.PID, "")
	slog.Info("daemon stopped", "daemon", name, "pid", rec.PID)
	return StopResult{Stopped: true, PID: rec.PID}, nil
}

// Status resolves to running or not-running; STARTING is never surfaced. The
// health payload is fetched with the same probe start uses, but a probe
// failure does not flip the verdict.
func (s *Supervisor) Status(ctx context.Context) (Status, error) {
	st := Status{Daemon: s.cfg.Daemon.Name, Port: s.cfg.Port}
	rec, running, err := s.IsRunning()
	if err != nil {
		return st, err
	}
	if !running {
		return st, nil
	}
	st.Running = true
	st.PID = rec.PID
	if rec.Meta.Port > 0 {
		st.Port = rec.Meta.Port
	}
	st.Address = s.cfg.Daemon.PublishedURL(st.Port)

	hctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if body, herr := s.fetchHealth(hctx, st.Port); herr != nil {
		st.HealthErr = herr.Error()
	} else {
		st.Health = body
	}
	return st, nil
}

// Restart is stop-then-start, propagating start's outcome. It waits briefly
// for the old process to release the port so the fresh start does not trip
// its own conflict check.
func (s *Supervisor) Restart(ctx context.Context) (StartResult, error) {
	res, err := s.Stop(ctx)
	if err != nil {
		return StartResult{}, err
	}
	if res.Stopped {
		s.awaitExit(res.PID, 2*time.Second)
	}
	return s.Start(ctx)
}

func (s *Supervisor) awaitExit(pid int, budget time.Duration) {
	deadline := time.Now().Add(budget)
	for time.Now().Before(deadline) {
		if !(record.Record{PID: pid}).Alive() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	slog.Warn("old daemon still exiting", "pid", pid)
}

func (s *Supervisor) readinessProbe() probe.Probe {
	if s.probeOvr != nil {
		return s.probeOvr
	}
	return probe.NewHTTP(s.cfg.Daemon.ProbeURL(s.cfg.Port))
}

// fetchHealth retrieves the daemon's self-reported health payload.
func (s *Supervisor) fetchHealth(ctx context.Context, port int) (json.RawMessage, error) {
	type fetcher interface {
		Fetch(ctx context.Context) ([]byte, error)
	}
	p := s.probeOvr
	if p == nil {
		p = probe.NewHTTP(s.cfg.Daemon.ProbeURL(port))
	}
	if f, ok := p.(fetcher); ok {
		b, err := f.Fetch(ctx)
		return json.RawMessage(b), err
	}
	if err := p.Check(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

// rotateLog runs the captured log through the rotating writer before a fresh
// spawn, so an oversized file from earlier runs is rolled; the spawned child
// then appends to the (possibly new) file via a plain fd.
func (s *Supervisor) rotateLog() {
	w := s.cfg.Log.Writer()
	banner := fmt.Sprintf("----- drover: launching %s on port %d at %s -----\n",
		s.cfg.Daemon.Name, s.cfg.Port, time.Now().Format(time.RFC3339))
	if _, err := w.Write([]byte(banner)); err != nil {
		slog.Warn("cannot write to daemon log", "path", s.cfg.Log.Path, "error", err)
	}
	_ = w.Close()
}

// emit sends a lifecycle event to the history sink, best-effort.
func (s *Supervisor) emit(ctx context.Context, t history.EventType, pid int, detail string) {
	if s.sink == nil {
		return
	}
	e := history.Event{
		Type:       t,
		OccurredAt: time.Now(),
		Daemon:     s.cfg.Daemon.Name,
		PID:        pid,
		Port:       s.cfg.Port,
		Detail:     detail,
	}
	sctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.sink.Send(sctx, e); err != nil {
		slog.Warn("history sink send failed", "event", string(t), "error", err)
	}
}
