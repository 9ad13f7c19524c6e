package mirror

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/wallpick/wallpick/pkg/logger"
)

func writeTree(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func readTree(t *testing.T, fs afero.Fs, root string) map[string]string {
	t.Helper()
	got := make(map[string]string)
	infos, err := afero.ReadDir(fs, root)
	if err != nil {
		t.Fatalf("read %s: %v", root, err)
	}
	for _, info := range infos {
		path := filepath.Join(root, info.Name())
		if info.IsDir() {
			for rel, content := range readTree(t, fs, path) {
				got[info.Name()+"/"+rel] = content
			}
			continue
		}
		b, err := afero.ReadFile(fs, path)
		if err != nil {
			t.Fatal(err)
		}
		got[info.Name()] = string(b)
	}
	return got
}

func TestMaterializeFanOut(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, "/dl/777", map[string]string{
		"project.json":    `{"file":"scene.pkg"}`,
		"scene.pkg":       "binary",
		"preview/img.jpg": "jpeg",
	})
	set := NewSet(fs, []string{"/we/projects", "/backup"}, logger.NewNopLogger())

	dirs, err := set.Materialize(777, "/dl/777")
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	want := []string{filepath.Join("/we/projects", "777"), filepath.Join("/backup", "777")}
	if len(dirs) != 2 || dirs[0] != want[0] || dirs[1] != want[1] {
		t.Fatalf("dirs = %v, want %v", dirs, want)
	}
	for _, dir := range dirs {
		got := readTree(t, fs, dir)
		if got["project.json"] != `{"file":"scene.pkg"}` || got["preview/img.jpg"] != "jpeg" {
			t.Errorf("%s content = %v", dir, got)
		}
	}
	if residue := set.StagingResidue(); len(residue) != 0 {
		t.Errorf("staging residue left behind: %v", residue)
	}
}

func TestMaterializeIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, "/dl/5", map[string]string{"a.txt": "one"})
	mock := logger.NewMockLogger()
	set := NewSet(fs, []string{"/t"}, mock)

	if _, err := set.Materialize(5, "/dl/5"); err != nil {
		t.Fatal(err)
	}
	if _, err := set.Materialize(5, "/dl/5"); err != nil {
		t.Fatal(err)
	}
	skipped := false
	for _, msg := range mock.InfoCalls {
		if msg == "mirror: "+filepath.Join("/t", "5")+" already current, skipping" {
			skipped = true
		}
	}
	if !skipped {
		t.Errorf("second materialize did not skip; info log: %v", mock.InfoCalls)
	}
}

func TestMaterializeReplacesStaleContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, "/dl/5", map[string]string{"a.txt": "new"})
	writeTree(t, fs, "/t/5", map[string]string{"a.txt": "old", "stale.bin": "x"})
	set := NewSet(fs, []string{"/t"}, nil)

	if _, err := set.Materialize(5, "/dl/5"); err != nil {
		t.Fatal(err)
	}
	got := readTree(t, fs, filepath.Join("/t", "5"))
	if got["a.txt"] != "new" {
		t.Errorf("a.txt = %q, want new", got["a.txt"])
	}
	if _, stale := got["stale.bin"]; stale {
		t.Error("stale file survived the replace")
	}
}

func TestMaterializeEmptySource(t *testing.T) {
	fs := afero.NewMemMapFs()
	set := NewSet(fs, []string{"/t"}, nil)
	if _, err := set.Materialize(5, "/nope"); !errors.Is(err, ErrEmptySource) {
		t.Errorf("missing source: err = %v, want ErrEmptySource", err)
	}
	if err := fs.MkdirAll("/empty", 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := set.Materialize(5, "/empty"); !errors.Is(err, ErrEmptySource) {
		t.Errorf("empty source: err = %v, want ErrEmptySource", err)
	}
}

func TestSweepRemovesStagingResidue(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, "/t/.staging-9-deadbeef", map[string]string{"a": "x"})
	writeTree(t, fs, "/t/9", map[string]string{"a": "x"})
	set := NewSet(fs, []string{"/t"}, logger.NewNopLogger())

	if got := set.StagingResidue(); len(got) != 1 {
		t.Fatalf("residue = %v, want one entry", got)
	}
	set.Sweep()
	if got := set.StagingResidue(); len(got) != 0 {
		t.Errorf("residue after sweep = %v", got)
	}
	if ok, _ := afero.DirExists(fs, "/t/9"); !ok {
		t.Error("sweep removed a published item dir")
	}
}
