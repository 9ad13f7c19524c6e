// Package cycle runs the wallpaper rotation pipeline: fetch candidates,
// filter, download, materialize into the mirror targets, apply, and
// reconcile retention. One cycle is active at a time; triggers arriving
// mid-cycle coalesce into a single pending re-run.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wallpick/wallpick/common"
	"github.com/wallpick/wallpick/internal/catalog"
	"github.com/wallpick/wallpick/internal/config"
	"github.com/wallpick/wallpick/internal/filter"
	"github.com/wallpick/wallpick/internal/history"
	"github.com/wallpick/wallpick/internal/retention"
	"github.com/wallpick/wallpick/internal/wallpaper"
	"github.com/wallpick/wallpick/pkg/logger"
)

// Trigger reasons.
const (
	ReasonStartup = "startup"
	ReasonTick    = "tick"
	ReasonManual  = "manual"
	ReasonConfig  = "config"
	ReasonExclude = "exclude"
)

// Fetcher downloads one item and returns its content directory.
type Fetcher interface {
	Fetch(ctx context.Context, itemID uint64, onLine func(string)) (string, error)
}

// Materializer fans the fetched content out to the mirror targets.
type Materializer interface {
	Materialize(itemID uint64, srcDir string) ([]string, error)
}

// Applier asks the wallpaper engine to display an item.
type Applier interface {
	Apply(ctx context.Context, itemID uint64, dir string) error
}

// Store is the slice of the history store the orchestrator needs.
type Store interface {
	List() ([]history.Entry, error)
	Last() (history.Entry, bool, error)
	AppliedIDs() ([]uint64, error)
	Commit(e history.Entry, removeIDs []uint64) error
	LogEvent(kind string, itemID uint64, detail string) error
}

// Reconciler prunes old items per the retention policy.
type Reconciler interface {
	Reconcile(entries []history.Entry, current history.Entry, p retention.Policy) (retention.Result, error)
}

// Snapshot is a read-only copy of the orchestrator state.
type Snapshot struct {
	Phase           Phase
	CurrentItem     uint64
	LastApplied     uint64
	LastAppliedDirs []string
	LastError       string
	LastRun         time.Time
	CompletedCycles uint64
	PendingTrigger  bool
}

// Options wires an Orchestrator.
type Options struct {
	Config    *config.Manager
	Provider  Provider
	Fetcher   Fetcher
	Mirror    Materializer
	Applier   Applier
	Store     Store
	Retention Reconciler
	Log       logger.Logger
	// Notify receives phase and cycle events for the collaborator stream.
	Notify func(common.Event)
	// OnFetchLine receives raw download output lines (progress display).
	OnFetchLine func(string)
}

type Orchestrator struct {
	cfg       *config.Manager
	provider  Provider
	fetcher   Fetcher
	mirror    Materializer
	applier   Applier
	store     Store
	retention Reconciler
	log       logger.Logger
	notify    func(common.Event)
	onLine    func(string)

	mu            sync.Mutex
	ctx           context.Context
	phase         Phase
	currentItem   uint64
	lastApplied   history.Entry
	lastCreator   string
	lastErr       string
	lastRun       time.Time
	completed     uint64
	running       bool
	pending       bool
	pendingReason string
	idle          chan struct{} // closed while idle, swapped per cycle
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		cfg:       opts.Config,
		provider:  opts.Provider,
		fetcher:   opts.Fetcher,
		mirror:    opts.Mirror,
		applier:   opts.Applier,
		store:     opts.Store,
		retention: opts.Retention,
		log:       opts.Log,
		notify:    opts.Notify,
		onLine:    opts.OnFetchLine,
		idle:      closedChan(),
	}
	if o.log == nil {
		o.log = logger.NewNopLogger()
	}
	return o
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Start binds the orchestrator to its lifetime context. Cycles triggered
// after ctx is cancelled are rejected; a cycle in flight is cancelled at
// its next phase boundary and its subprocess is killed.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	o.ctx = ctx
	o.mu.Unlock()
}

// Trigger requests a cycle. If one is already running, the request is
// coalesced: at most one re-run is pending regardless of how many triggers
// arrive. Returns whether the trigger was accepted and whether it was
// coalesced.
func (o *Orchestrator) Trigger(reason string) (accepted, coalesced bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctx == nil || o.ctx.Err() != nil {
		return false, false
	}
	if o.running {
		o.pending = true
		o.pendingReason = reason
		return true, true
	}
	o.running = true
	o.idle = make(chan struct{})
	go o.runLoop(reason)
	return true, false
}

// WaitIdle blocks until no cycle is running (or ctx is done).
func (o *Orchestrator) WaitIdle(ctx context.Context) error {
	o.mu.Lock()
	ch := o.idle
	o.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a copy of the current state.
func (o *Orchestrator) Status() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		Phase:           o.phase,
		CurrentItem:     o.currentItem,
		LastApplied:     o.lastApplied.ItemID,
		LastAppliedDirs: o.lastApplied.Dirs,
		LastError:       o.lastErr,
		LastRun:         o.lastRun,
		CompletedCycles: o.completed,
		PendingTrigger:  o.pending,
	}
}

// ExcludeCurrentUploader resolves the creator of the last applied item,
// adds it to the runtime exclude set, and triggers a fresh cycle.
func (o *Orchestrator) ExcludeCurrentUploader(ctx context.Context) (creator string, accepted, coalesced bool, err error) {
	o.mu.Lock()
	last := o.lastApplied
	creator = o.lastCreator
	o.mu.Unlock()

	if last.ItemID == 0 {
		entry, ok, lerr := o.store.Last()
		if lerr != nil {
			return "", false, false, lerr
		}
		if !ok {
			return "", false, false, ErrNothingApplied
		}
		last = entry
	}
	if creator == "" {
		creator, err = o.provider.ResolveCreator(ctx, last.ItemID)
		if err != nil {
			return "", false, false, err
		}
	}
	o.cfg.ExcludeCreator(creator)
	o.log.Info("cycle: excluded uploader %s of item %d", creator, last.ItemID)
	accepted, coalesced = o.Trigger(ReasonExclude)
	return creator, accepted, coalesced, nil
}

func (o *Orchestrator) runLoop(reason string) {
	for {
		o.mu.Lock()
		ctx := o.ctx
		o.mu.Unlock()

		err := o.runCycle(ctx, reason)
		o.finishCycle(err, reason)

		o.mu.Lock()
		if o.pending && ctx.Err() == nil {
			o.pending = false
			reason = o.pendingReason
			o.mu.Unlock()
			continue
		}
		o.running = false
		close(o.idle)
		o.mu.Unlock()
		return
	}
}

func (o *Orchestrator) finishCycle(err error, reason string) {
	o.mu.Lock()
	o.phase = PhaseIdle
	o.currentItem = 0
	o.lastRun = time.Now()
	if err != nil {
		o.lastErr = err.Error()
	} else {
		o.lastErr = ""
		o.completed++
	}
	applied := o.lastApplied.ItemID
	o.mu.Unlock()

	if err != nil {
		o.log.Error("cycle: %s run failed: %s", reason, err)
		o.emit(common.Event{Kind: common.EventCycle, Level: "error", Text: err.Error()})
		return
	}
	o.log.Info("cycle: %s run complete, item %d applied", reason, applied)
	o.emit(common.Event{Kind: common.EventCycle, ItemID: applied, Text: "applied"})
}

func (o *Orchestrator) runCycle(ctx context.Context, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := o.cfg.Current()
	o.log.Info("cycle: starting (%s)", reason)

	o.setPhase(PhaseFetching, 0)
	items, err := o.provider.Fetch(ctx, snap)
	if err != nil {
		return fmt.Errorf("fetching candidates: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	o.setPhase(PhaseFiltering, 0)
	ranked := o.provider.Rank(items, snap)
	if len(ranked) == 0 {
		return ErrNoCandidates
	}
	o.log.Info("cycle: %d candidates after filtering (%d raw)", len(ranked), len(items))

	o.setPhase(PhaseSelectingCandidate, 0)
	ordered := o.rotationOrder(ranked)

	if len(snap.SubscribeIDs) > 0 && !snap.OnePerRun {
		return o.runAll(ctx, snap, ordered)
	}

	maxAttempts := snap.MaxAttemptsPerRun
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if maxAttempts > len(ordered) {
		maxAttempts = len(ordered)
	}

	for _, item := range ordered[:maxAttempts] {
		if err := ctx.Err(); err != nil {
			return err
		}
		dirs, err := o.obtain(ctx, item)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.log.Warning("cycle: candidate %d failed: %s", item.ID, err)
			continue
		}

		err = o.applyAndCommit(ctx, snap, item, dirs)
		if errors.Is(err, wallpaper.ErrPrivilegeMismatch) {
			// User-actionable; trying other candidates would fail the
			// same way.
			return err
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.log.Warning("cycle: applying %d failed: %s", item.ID, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: tried %d candidates", ErrCandidatesExhausted, maxAttempts)
}

// runAll is subscribe mode with one_per_run off: every configured item is
// fetched and materialized; the first one that lands is also applied.
func (o *Orchestrator) runAll(ctx context.Context, snap *config.Snapshot, ordered []catalog.Item) error {
	var applyItem *catalog.Item
	var applyDirs []string
	for i := range ordered {
		item := ordered[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		dirs, err := o.obtain(ctx, item)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.log.Warning("cycle: subscribed item %d failed: %s", item.ID, err)
			continue
		}
		if applyItem == nil {
			applyItem = &item
			applyDirs = dirs
		}
	}
	if applyItem == nil {
		return fmt.Errorf("%w: no subscribed item landed", ErrCandidatesExhausted)
	}
	return o.applyAndCommit(ctx, snap, *applyItem, applyDirs)
}

// obtain downloads and materializes one candidate.
func (o *Orchestrator) obtain(ctx context.Context, item catalog.Item) ([]string, error) {
	o.setPhase(PhaseDownloading, item.ID)
	src, err := o.fetcher.Fetch(ctx, item.ID, o.onLine)
	if err != nil {
		o.logEvent("error", item.ID, "download: "+err.Error())
		return nil, err
	}
	o.logEvent("fetched", item.ID, src)

	o.setPhase(PhaseMaterializing, item.ID)
	dirs, err := o.mirror.Materialize(item.ID, src)
	if err != nil {
		o.logEvent("error", item.ID, "materialize: "+err.Error())
		return nil, err
	}
	// The download cache dir is part of the item's footprint: recording it
	// lets retention prune it along with the mirrors.
	return append(dirs, src), nil
}

func (o *Orchestrator) applyAndCommit(ctx context.Context, snap *config.Snapshot, item catalog.Item, dirs []string) error {
	o.setPhase(PhaseApplying, item.ID)
	if err := o.applier.Apply(ctx, item.ID, dirs[0]); err != nil {
		o.logEvent("error", item.ID, "apply: "+err.Error())
		return err
	}
	o.logEvent("applied", item.ID, strings.Join(filter.Genres(item), ", "))

	o.setPhase(PhaseReconciling, item.ID)
	entries, err := o.store.List()
	if err != nil {
		o.log.Warning("cycle: reading history: %s", err)
	}
	current := history.Entry{ItemID: item.ID, AppliedAt: time.Now().UTC(), Dirs: dirs}
	res, recErr := o.retention.Reconcile(entries, current, retention.Policy{
		KeepLastN:      snap.KeepLastN,
		DeletePrevious: snap.DeletePrevious,
		UseRecycleBin:  snap.UseRecycleBin,
		TrashDir:       filepath.Join(snap.DataDir, "trash"),
		ProtectedIDs:   snap.ProtectedIDs,
	})
	if recErr != nil {
		o.log.Warning("cycle: retention: %s", recErr)
	}
	removeIDs := make([]uint64, 0, len(res.Removed))
	for _, e := range res.Removed {
		removeIDs = append(removeIDs, e.ItemID)
		o.logEvent("removed", e.ItemID, "")
	}
	if err := o.store.Commit(current, removeIDs); err != nil {
		return fmt.Errorf("committing history: %w", err)
	}

	o.mu.Lock()
	o.lastApplied = current
	o.lastCreator, _ = normalizedCreator(item)
	o.mu.Unlock()
	return nil
}

// rotationOrder moves already-applied ids behind fresh ones so the same
// wallpaper only repeats once everything else was tried.
func (o *Orchestrator) rotationOrder(ranked []catalog.Item) []catalog.Item {
	appliedIDs, err := o.store.AppliedIDs()
	if err != nil {
		o.log.Warning("cycle: reading applied ids: %s", err)
		return ranked
	}
	if len(appliedIDs) == 0 {
		return ranked
	}
	applied := make(map[uint64]struct{}, len(appliedIDs))
	for _, id := range appliedIDs {
		applied[id] = struct{}{}
	}
	fresh := make([]catalog.Item, 0, len(ranked))
	var repeats []catalog.Item
	for _, it := range ranked {
		if _, seen := applied[it.ID]; seen {
			repeats = append(repeats, it)
		} else {
			fresh = append(fresh, it)
		}
	}
	return append(fresh, repeats...)
}

func (o *Orchestrator) setPhase(p Phase, itemID uint64) {
	o.mu.Lock()
	o.phase = p
	o.currentItem = itemID
	o.mu.Unlock()
	o.emit(common.Event{Kind: common.EventPhase, Phase: p.String(), ItemID: itemID})
}

func (o *Orchestrator) emit(ev common.Event) {
	if o.notify == nil {
		return
	}
	ev.At = time.Now()
	o.notify(ev)
}

func (o *Orchestrator) logEvent(kind string, itemID uint64, detail string) {
	if err := o.store.LogEvent(kind, itemID, detail); err != nil {
		o.log.Warning("cycle: recording %s event: %s", kind, err)
	}
}
