// Package daemon assembles the wallpick components into the long-running
// process: config, history, catalog, steamcmd, mirror, applier, retention,
// the cycle orchestrator, the trigger scheduler, and the IPC server.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/wallpick/wallpick/common"
	"github.com/wallpick/wallpick/internal/catalog"
	"github.com/wallpick/wallpick/internal/config"
	"github.com/wallpick/wallpick/internal/cycle"
	"github.com/wallpick/wallpick/internal/history"
	"github.com/wallpick/wallpick/internal/mirror"
	"github.com/wallpick/wallpick/internal/retention"
	"github.com/wallpick/wallpick/internal/scheduler"
	"github.com/wallpick/wallpick/internal/server"
	"github.com/wallpick/wallpick/internal/steamcmd"
	"github.com/wallpick/wallpick/internal/wallpaper"
	"github.com/wallpick/wallpick/pkg/logger"
)

var ErrAlreadyRunning = errors.New("daemon is already running")

// Options configures daemon assembly.
type Options struct {
	ConfigPath string
	Version    common.VersionResult
	// OnFetchLine receives raw steamcmd output lines (used by the `once`
	// command's progress bar). Optional.
	OnFetchLine func(string)
}

// Daemon owns the component graph and implements the server.Daemon RPC
// surface.
type Daemon struct {
	cfg     *config.Manager
	log     logger.Logger
	hub     *server.EventHub
	store   *history.Store
	steam   *steamcmd.Adapter
	orch    *cycle.Orchestrator
	mirrors *mirror.Set
	version common.VersionResult

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	sched   *scheduler.Scheduler
}

// New loads the config and builds the component graph. Nothing starts
// running until Run or RunOnce.
func New(opts Options) (*Daemon, error) {
	snap, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg := config.NewManager(opts.ConfigPath, snap)

	hub := server.NewEventHub()
	baseLog := buildLogger(snap)
	lg := server.TeeLogger(baseLog, hub)

	if err := os.MkdirAll(snap.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	store, err := history.Open(filepath.Join(snap.DataDir, "wallpick.db"), lg)
	if err != nil {
		return nil, err
	}

	client, err := catalog.NewClient(catalog.Options{
		APIKey:  snap.APIKey,
		AppID:   snap.AppID,
		Proxy:   snap.HTTPSProxy,
		Timeout: snap.Timeout,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	steam := steamcmd.New(steamcmd.Options{
		Exe:      snap.SteamCMD,
		AppID:    uint32(snap.AppID),
		Username: snap.Username,
		Log:      lg,
	})

	engineExe := snap.WEExe
	engineFound := false
	if located, err := wallpaper.Locate(afero.NewOsFs(), snap.WEExe); err == nil {
		engineExe = located
		engineFound = true
	} else {
		lg.Warning("daemon: %s", err)
	}

	targets := []string{snap.WorkshopRoot}
	if snap.WorkshopRoot == "" {
		targets = []string{filepath.Join(snap.DataDir, "items")}
	}
	if engineFound {
		// The engine keeps its own copy of workshop items here; mirroring
		// into it lets wallpapers survive a Steam cache wipe.
		targets = append(targets, filepath.Join(filepath.Dir(engineExe), "projects", "backup"))
	}
	mirrors := mirror.NewSet(afero.NewOsFs(), targets, lg)

	d := &Daemon{
		cfg:     cfg,
		log:     lg,
		hub:     hub,
		store:   store,
		steam:   steam,
		mirrors: mirrors,
		version: opts.Version,
	}
	d.orch = cycle.New(cycle.Options{
		Config:      cfg,
		Provider:    cycle.NewCatalogProvider(client, lg),
		Fetcher:     steam,
		Mirror:      mirrors,
		Applier:     wallpaper.NewApplier(engineExe),
		Store:       store,
		Retention:   retention.NewManager(afero.NewOsFs(), lg),
		Log:         lg,
		Notify:      d.onCycleEvent,
		OnFetchLine: opts.OnFetchLine,
	})
	return d, nil
}

func buildLogger(snap *config.Snapshot) logger.Logger {
	console := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags))
	if !snap.LogEnabled {
		return console
	}
	path := snap.LogFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(snap.DataDir, path)
	}
	file, err := logger.NewFileLogger(path)
	if err != nil {
		console.Warning("daemon: log file %s: %s", path, err)
		return console
	}
	return logger.NewMultiLogger(console, file)
}

// Run starts the scheduler and the IPC server and blocks until ctx is
// cancelled or Stop is called.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, err := d.begin(ctx)
	if err != nil {
		return err
	}
	defer d.finish()

	d.mirrors.Sweep()
	d.armSchedule(d.cfg.Current())

	srv := server.NewServer(server.Options{
		Log:     d.log,
		Daemon:  d,
		Hub:     d.hub,
		Port:    common.DefaultEventPort - 1,
		Version: d.version,
	})
	return srv.Start(ctx)
}

// RunOnce performs a single cycle and returns its outcome. No IPC server
// and no schedule are started.
func (d *Daemon) RunOnce(ctx context.Context) error {
	ctx, err := d.begin(ctx)
	if err != nil {
		return err
	}
	defer d.finish()

	if accepted, _ := d.orch.Trigger(cycle.ReasonManual); !accepted {
		return cycle.ErrNotRunning
	}
	if err := d.orch.WaitIdle(ctx); err != nil {
		return err
	}
	if msg := d.orch.Status().LastError; msg != "" {
		return errors.New(msg)
	}
	return nil
}

func (d *Daemon) begin(ctx context.Context) (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil, ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	d.running = true
	d.cancel = cancel
	d.sched = scheduler.New(ctx, d.onSchedule)
	d.orch.Start(ctx)
	return ctx, nil
}

func (d *Daemon) finish() {
	// Give an in-flight cycle a moment to reach a phase boundary.
	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = d.orch.WaitIdle(waitCtx)
	cancel()

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()

	if err := d.store.Close(); err != nil {
		d.log.Warning("daemon: closing history: %s", err)
	}
	d.log.Close()
}

func (d *Daemon) onSchedule(string) {
	d.orch.Trigger(cycle.ReasonTick)
}

// onCycleEvent forwards every event to the hub and arms a detect-interval
// retry after a failed cycle, so a transient outage (engine not up yet,
// network down) heals without waiting for the next regular tick.
func (d *Daemon) onCycleEvent(ev common.Event) {
	d.hub.Publish(ev)
	if ev.Kind != common.EventCycle {
		return
	}
	d.mu.Lock()
	sched := d.sched
	d.mu.Unlock()
	if sched == nil {
		return
	}
	if ev.Level != "error" {
		sched.Remove(scheduler.KeyRetry)
		return
	}
	delay := d.cfg.Current().DetectInterval
	sched.Add(scheduler.Event{Key: scheduler.KeyRetry, TriggerAt: time.Now().Add(delay)})
	d.log.Info("daemon: cycle failed, retrying in %s", delay)
}

func (d *Daemon) armSchedule(snap *config.Snapshot) {
	d.sched.Remove(scheduler.KeyInterval)
	d.sched.Remove(scheduler.KeyCron)
	switch {
	case snap.Interval > 0:
		d.sched.AddInterval(scheduler.KeyInterval, snap.Interval)
		d.log.Info("daemon: cycle every %s", snap.Interval)
	case snap.Cron != "":
		if err := d.sched.AddCron(scheduler.KeyCron, snap.Cron); err != nil {
			d.log.Error("daemon: invalid cron %q: %s", snap.Cron, err)
		} else {
			d.log.Info("daemon: cycle on cron %q", snap.Cron)
		}
	default:
		d.log.Info("daemon: no schedule configured, waiting for manual triggers")
	}
	if snap.RunOnStartup {
		d.orch.Trigger(cycle.ReasonStartup)
	}
}

// Status implements server.Daemon.
func (d *Daemon) Status() common.StatusResult {
	s := d.orch.Status()
	return common.StatusResult{
		Phase:           s.Phase.String(),
		CurrentItem:     s.CurrentItem,
		LastApplied:     s.LastApplied,
		LastAppliedDirs: s.LastAppliedDirs,
		LastError:       s.LastError,
		LastRun:         s.LastRun,
		CompletedCycles: s.CompletedCycles,
		PendingTrigger:  s.PendingTrigger,
	}
}

// RunNow implements server.Daemon.
func (d *Daemon) RunNow() common.TriggerResult {
	accepted, coalesced := d.orch.Trigger(cycle.ReasonManual)
	return common.TriggerResult{Accepted: accepted, Coalesced: coalesced}
}

// ExcludeUploader implements server.Daemon.
func (d *Daemon) ExcludeUploader(ctx context.Context) (common.ExcludeResult, error) {
	creator, accepted, coalesced, err := d.orch.ExcludeCurrentUploader(ctx)
	if err != nil {
		return common.ExcludeResult{}, err
	}
	return common.ExcludeResult{
		TriggerResult: common.TriggerResult{Accepted: accepted, Coalesced: coalesced},
		Creator:       creator,
	}, nil
}

// Login implements server.Daemon.
func (d *Daemon) Login(ctx context.Context, p common.LoginParams) error {
	return d.steam.Login(ctx, p.Username, p.Password, p.GuardCode)
}

// Events implements server.Daemon: the persisted audit trail, newest
// first.
func (d *Daemon) Events(limit int) ([]common.HistoryEvent, error) {
	events, err := d.store.Events(limit)
	if err != nil {
		return nil, err
	}
	out := make([]common.HistoryEvent, len(events))
	for i, ev := range events {
		out[i] = common.HistoryEvent{
			Kind:   ev.Kind,
			ItemID: ev.ItemID,
			Detail: ev.Detail,
			At:     ev.At,
		}
	}
	return out, nil
}

// Reload implements server.Daemon. The new snapshot takes effect from the
// next cycle; the schedule is re-armed.
func (d *Daemon) Reload() error {
	if err := d.cfg.Reload(); err != nil {
		return err
	}
	d.mu.Lock()
	sched := d.sched
	d.mu.Unlock()
	if sched != nil {
		snap := d.cfg.Current()
		sched.Remove(scheduler.KeyInterval)
		sched.Remove(scheduler.KeyCron)
		if snap.Interval > 0 {
			sched.AddInterval(scheduler.KeyInterval, snap.Interval)
		} else if snap.Cron != "" {
			if err := sched.AddCron(scheduler.KeyCron, snap.Cron); err != nil {
				d.log.Error("daemon: invalid cron %q: %s", snap.Cron, err)
			}
		}
	}
	d.log.Info("daemon: config reloaded")
	return nil
}

// Stop implements server.Daemon.
func (d *Daemon) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
