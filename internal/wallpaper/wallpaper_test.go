package wallpaper

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func seed(t *testing.T, fs afero.Fs, files ...string) {
	t.Helper()
	for _, f := range files {
		if err := fs.MkdirAll(filepath.Dir(f), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := afero.WriteFile(fs, f, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFindEntryPrecedence(t *testing.T) {
	cases := []struct {
		name  string
		files []string
		want  string
	}{
		{
			"project json wins",
			[]string{"/i/video.mp4", "/i/index.html", "/i/project.json"},
			"/i/project.json",
		},
		{
			"index over video",
			[]string{"/i/clip.webm", "/i/index.html"},
			"/i/index.html",
		},
		{
			"video fallback",
			[]string{"/i/preview.jpg", "/i/clip.mp4"},
			"/i/clip.mp4",
		},
		{
			"nested project json",
			[]string{"/i/scene/project.json", "/i/readme.txt"},
			"/i/scene/project.json",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			seed(t, fs, c.files...)
			got, err := FindEntry(fs, "/i")
			if err != nil {
				t.Fatal(err)
			}
			if got != filepath.FromSlash(c.want) {
				t.Errorf("entry = %q, want %q", got, c.want)
			}
		})
	}
}

func TestFindEntryNothingLoadable(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs, "/i/preview.jpg", "/i/readme.txt")
	if _, err := FindEntry(fs, "/i"); !errors.Is(err, ErrNoEntry) {
		t.Errorf("err = %v, want ErrNoEntry", err)
	}
}

func applier(fs afero.Fs, code int, gotArgs *[]string) *Applier {
	return NewApplierWith("/we/wallpaper64.exe", fs, func(ctx context.Context, exe string, args []string) (int, error) {
		if gotArgs != nil {
			*gotArgs = append([]string{exe}, args...)
		}
		return code, nil
	}, time.Second)
}

func TestApplyInvokesControlCommand(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs, "/items/9/project.json")
	var got []string
	a := applier(fs, 0, &got)

	if err := a.Apply(context.Background(), 9, "/items/9"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := "/we/wallpaper64.exe -control openWallpaper -file " + filepath.FromSlash("/items/9/project.json")
	if strings.Join(got, " ") != want {
		t.Errorf("command = %q, want %q", strings.Join(got, " "), want)
	}
}

func TestApplyExitCodes(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs, "/items/9/project.json")

	if err := applier(fs, 5, nil).Apply(context.Background(), 9, "/items/9"); !errors.Is(err, ErrPrivilegeMismatch) {
		t.Errorf("exit 5: err = %v, want ErrPrivilegeMismatch", err)
	}
	if err := applier(fs, 3, nil).Apply(context.Background(), 9, "/items/9"); !errors.Is(err, ErrApplyFailed) {
		t.Errorf("exit 3: err = %v, want ErrApplyFailed", err)
	}
}

func TestLocate(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs, "/we/wallpaper32.exe", "/we/wallpaper64.exe", "/bin/engine")

	got, err := Locate(fs, "/we")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("/we", "wallpaper64.exe") {
		t.Errorf("dir locate = %q, want 64-bit binary preferred", got)
	}

	got, err = Locate(fs, "/bin/engine")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/bin/engine" {
		t.Errorf("file locate = %q", got)
	}

	if _, err := Locate(fs, "/missing"); !errors.Is(err, ErrEngineNotFound) {
		t.Errorf("missing path: err = %v, want ErrEngineNotFound", err)
	}
	if _, err := Locate(fs, ""); !errors.Is(err, ErrEngineNotFound) {
		t.Errorf("empty path: err = %v, want ErrEngineNotFound", err)
	}
}
