package retention

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/wallpick/wallpick/internal/history"
	"github.com/wallpick/wallpick/pkg/logger"
)

func seedEntries(t *testing.T, fs afero.Fs, ids ...uint64) []history.Entry {
	t.Helper()
	entries := make([]history.Entry, 0, len(ids))
	for i, id := range ids {
		dir := filepath.Join("/t", strconv.FormatUint(id, 10))
		if err := afero.WriteFile(fs, filepath.Join(dir, "project.json"), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
		entries = append(entries, history.Entry{
			ItemID:    id,
			AppliedAt: time.Unix(int64(1000+i), 0),
			Dirs:      []string{dir},
		})
	}
	return entries
}

func ids(entries []history.Entry) []uint64 {
	out := make([]uint64, len(entries))
	for i, e := range entries {
		out[i] = e.ItemID
	}
	return out
}

func equal(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestKeepLastN(t *testing.T) {
	fs := afero.NewMemMapFs()
	entries := seedEntries(t, fs, 1, 2, 3, 4)
	current := history.Entry{ItemID: 5, Dirs: []string{"/t/5"}}
	m := NewManager(fs, logger.NewNopLogger())

	res, err := m.Reconcile(entries, current, Policy{KeepLastN: 3})
	if err != nil {
		t.Fatal(err)
	}
	// Window of 3 = current + two most recent history entries.
	if !equal(ids(res.Keep), []uint64{3, 4}) {
		t.Errorf("keep = %v, want [3 4]", ids(res.Keep))
	}
	if !equal(ids(res.Removed), []uint64{1, 2}) {
		t.Errorf("removed = %v, want [1 2]", ids(res.Removed))
	}
	for _, id := range []string{"1", "2"} {
		if ok, _ := afero.DirExists(fs, "/t/"+id); ok {
			t.Errorf("item %s dir still present", id)
		}
	}
	if ok, _ := afero.DirExists(fs, "/t/3"); !ok {
		t.Error("kept item 3 was deleted")
	}
}

func TestDeletePreviousKeepsOnlyCurrent(t *testing.T) {
	fs := afero.NewMemMapFs()
	entries := seedEntries(t, fs, 1, 2)
	current := history.Entry{ItemID: 3, Dirs: []string{"/t/3"}}
	m := NewManager(fs, nil)

	res, err := m.Reconcile(entries, current, Policy{DeletePrevious: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Keep) != 0 {
		t.Errorf("keep = %v, want empty", ids(res.Keep))
	}
	if !equal(ids(res.Removed), []uint64{1, 2}) {
		t.Errorf("removed = %v", ids(res.Removed))
	}
}

func TestKeepLastNWinsOverDeletePrevious(t *testing.T) {
	fs := afero.NewMemMapFs()
	entries := seedEntries(t, fs, 1, 2, 3)
	current := history.Entry{ItemID: 4}
	m := NewManager(fs, nil)

	res, err := m.Reconcile(entries, current, Policy{KeepLastN: 3, DeletePrevious: true})
	if err != nil {
		t.Fatal(err)
	}
	if !equal(ids(res.Keep), []uint64{2, 3}) {
		t.Errorf("keep = %v, want [2 3]", ids(res.Keep))
	}
}

func TestNoPolicyKeepsEverything(t *testing.T) {
	fs := afero.NewMemMapFs()
	entries := seedEntries(t, fs, 1, 2, 3)
	m := NewManager(fs, nil)

	res, err := m.Reconcile(entries, history.Entry{ItemID: 4}, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if !equal(ids(res.Keep), []uint64{1, 2, 3}) || len(res.Removed) != 0 {
		t.Errorf("keep = %v removed = %v", ids(res.Keep), ids(res.Removed))
	}
}

func TestProtectedIDsSurvive(t *testing.T) {
	fs := afero.NewMemMapFs()
	entries := seedEntries(t, fs, 1, 2, 3)
	m := NewManager(fs, nil)

	res, err := m.Reconcile(entries, history.Entry{ItemID: 4}, Policy{
		DeletePrevious: true,
		ProtectedIDs:   []uint64{1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !equal(ids(res.Keep), []uint64{1}) {
		t.Errorf("keep = %v, want protected [1]", ids(res.Keep))
	}
	if ok, _ := afero.DirExists(fs, "/t/1"); !ok {
		t.Error("protected item dir deleted")
	}
}

func TestCurrentItemNeverPruned(t *testing.T) {
	fs := afero.NewMemMapFs()
	// Re-applied item: same id already in history, outside the window.
	entries := seedEntries(t, fs, 7, 8, 9)
	m := NewManager(fs, nil)

	res, err := m.Reconcile(entries, history.Entry{ItemID: 7}, Policy{KeepLastN: 2})
	if err != nil {
		t.Fatal(err)
	}
	if ok, _ := afero.DirExists(fs, "/t/7"); !ok {
		t.Error("current item's old dir was pruned")
	}
	for _, e := range res.Removed {
		if e.ItemID == 7 {
			t.Error("current item listed as removed")
		}
	}
}

func TestRecycleBinMovesInsteadOfDeleting(t *testing.T) {
	fs := afero.NewMemMapFs()
	entries := seedEntries(t, fs, 1)
	m := NewManager(fs, nil)
	m.now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := m.Reconcile(entries, history.Entry{ItemID: 2}, Policy{
		DeletePrevious: true,
		UseRecycleBin:  true,
		TrashDir:       "/trash",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.DeletedDirs) != 1 {
		t.Fatalf("deleted dirs = %v", res.DeletedDirs)
	}
	moved := filepath.Join("/trash", "1-1700000000")
	if ok, _ := afero.DirExists(fs, moved); !ok {
		t.Errorf("expected trashed dir at %s", moved)
	}
	if ok, _ := afero.DirExists(fs, "/t/1"); ok {
		t.Error("original dir still present after trash")
	}
}

func TestMissingDirsAreSilentNoOps(t *testing.T) {
	fs := afero.NewMemMapFs()
	entries := []history.Entry{{ItemID: 1, Dirs: []string{"/t/1"}}} // never created
	m := NewManager(fs, nil)

	res, err := m.Reconcile(entries, history.Entry{ItemID: 2}, Policy{DeletePrevious: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.DeletedDirs) != 0 {
		t.Errorf("deleted dirs = %v, want none", res.DeletedDirs)
	}
	if !equal(ids(res.Removed), []uint64{1}) {
		t.Errorf("removed = %v, want [1] (history entry still retired)", ids(res.Removed))
	}
}
