// Package retention prunes previously applied wallpaper items from the
// mirror targets according to the configured keep policy.
package retention

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/wallpick/wallpick/internal/history"
	"github.com/wallpick/wallpick/pkg/logger"
)

// Policy controls which applied items survive a cycle.
type Policy struct {
	KeepLastN      int  // keep the N most recent items, current included
	DeletePrevious bool // keep only the current item
	UseRecycleBin  bool // move to TrashDir instead of deleting
	TrashDir       string
	ProtectedIDs   []uint64 // never deleted regardless of window
}

// Result describes one reconcile pass.
type Result struct {
	Keep        []history.Entry // survivors, oldest first
	Removed     []history.Entry // entries whose content was pruned
	DeletedDirs []string        // directories actually removed or trashed
}

// Manager applies retention policies against the real (or faked) filesystem.
type Manager struct {
	fs  afero.Fs
	log logger.Logger
	now func() time.Time
}

func NewManager(fs afero.Fs, log logger.Logger) *Manager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{fs: fs, log: log, now: time.Now}
}

// Reconcile prunes entries outside the keep window. entries is the applied
// history oldest first, not yet including current; current is the item just
// applied and is never touched. Protected ids are always kept. Missing
// directories are treated as already gone.
func (m *Manager) Reconcile(entries []history.Entry, current history.Entry, p Policy) (Result, error) {
	window := keepWindow(p)

	protected := make(map[uint64]struct{}, len(p.ProtectedIDs))
	for _, id := range p.ProtectedIDs {
		protected[id] = struct{}{}
	}

	// Walk newest first: current occupies the first window slot.
	var res Result
	var errs []error
	used := 1
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		_, isProtected := protected[e.ItemID]
		switch {
		case e.ItemID == current.ItemID, isProtected:
			res.Keep = append(res.Keep, e)
		case window == 0 || used < window:
			res.Keep = append(res.Keep, e)
			used++
		default:
			deleted, err := m.prune(e, p)
			if err != nil {
				errs = append(errs, err)
			}
			res.DeletedDirs = append(res.DeletedDirs, deleted...)
			res.Removed = append(res.Removed, e)
		}
	}
	reverse(res.Keep)
	reverse(res.Removed)
	return res, errors.Join(errs...)
}

// keepWindow converts the policy to a slot count; 0 means unbounded.
func keepWindow(p Policy) int {
	if p.KeepLastN > 0 {
		return p.KeepLastN
	}
	if p.DeletePrevious {
		return 1
	}
	return 0
}

func (m *Manager) prune(e history.Entry, p Policy) ([]string, error) {
	var deleted []string
	var errs []error
	for _, dir := range e.Dirs {
		if _, err := m.fs.Stat(dir); err != nil {
			continue // already gone
		}
		var err error
		if p.UseRecycleBin && p.TrashDir != "" {
			err = m.trash(dir, p.TrashDir)
		} else {
			err = m.fs.RemoveAll(dir)
		}
		if err != nil {
			m.log.Warning("retention: prune %s: %s", dir, err)
			errs = append(errs, fmt.Errorf("prune %s: %w", dir, err))
			continue
		}
		m.log.Info("retention: pruned item %d dir %s", e.ItemID, dir)
		deleted = append(deleted, dir)
	}
	return deleted, errors.Join(errs...)
}

func (m *Manager) trash(dir, trashDir string) error {
	if err := m.fs.MkdirAll(trashDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(trashDir, fmt.Sprintf("%s-%d", filepath.Base(dir), m.now().Unix()))
	for i := 1; ; i++ {
		if _, err := m.fs.Stat(dst); errors.Is(err, os.ErrNotExist) {
			break
		}
		dst = filepath.Join(trashDir, fmt.Sprintf("%s-%d-%d", filepath.Base(dir), m.now().Unix(), i))
	}
	return m.fs.Rename(dir, dst)
}

func reverse(entries []history.Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
