// Package wallpaper tells the wallpaper engine to display a materialized
// item, and knows how the engine's exit codes map to outcomes.
package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

var (
	// ErrPrivilegeMismatch means the engine refused the control command
	// because it runs at a different privilege level than we do. The user
	// has to restart one side; retrying is pointless.
	ErrPrivilegeMismatch = errors.New("wallpaper engine privilege mismatch")
	// ErrApplyFailed covers every other non-zero engine exit.
	ErrApplyFailed = errors.New("wallpaper apply failed")
	// ErrNoEntry means the item directory holds nothing the engine can open.
	ErrNoEntry = errors.New("no loadable entry file in item")
	// ErrEngineNotFound means no engine executable could be located.
	ErrEngineNotFound = errors.New("wallpaper engine executable not found")
)

const privilegeMismatchExit = 5

// DefTimeout bounds one control invocation; the engine acknowledges
// immediately or not at all.
const DefTimeout = 20 * time.Second

// RunFunc executes the engine control command and returns its exit code.
type RunFunc func(ctx context.Context, exe string, args []string) (int, error)

func runEngine(ctx context.Context, exe string, args []string) (int, error) {
	cmd := exec.CommandContext(ctx, exe, args...)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 0, err
	}
	return 0, nil
}

// Applier drives the engine's -control interface.
type Applier struct {
	exe     string
	fs      afero.Fs
	run     RunFunc
	timeout time.Duration
}

func NewApplier(exe string) *Applier {
	return &Applier{exe: exe, fs: afero.NewOsFs(), run: runEngine, timeout: DefTimeout}
}

// NewApplierWith exists for tests that fake the filesystem or the engine.
func NewApplierWith(exe string, fs afero.Fs, run RunFunc, timeout time.Duration) *Applier {
	a := &Applier{exe: exe, fs: fs, run: run, timeout: timeout}
	if a.fs == nil {
		a.fs = afero.NewOsFs()
	}
	if a.run == nil {
		a.run = runEngine
	}
	if a.timeout <= 0 {
		a.timeout = DefTimeout
	}
	return a
}

// Apply finds the item's entry file under dir and asks the engine to open
// it. itemID only feeds error messages.
func (a *Applier) Apply(ctx context.Context, itemID uint64, dir string) error {
	entry, err := FindEntry(a.fs, dir)
	if err != nil {
		return fmt.Errorf("item %d: %w", itemID, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	code, err := a.run(runCtx, a.exe, []string{"-control", "openWallpaper", "-file", entry})
	if err != nil {
		return fmt.Errorf("item %d: %w: %s", itemID, ErrApplyFailed, err)
	}
	switch code {
	case 0:
		return nil
	case privilegeMismatchExit:
		return fmt.Errorf("item %d: %w", itemID, ErrPrivilegeMismatch)
	default:
		return fmt.Errorf("item %d: %w: exit code %d", itemID, ErrApplyFailed, code)
	}
}

// FindEntry picks the file the engine should open: project.json wins, then
// index.html, then the first video file, searching the whole tree.
func FindEntry(fs afero.Fs, dir string) (string, error) {
	var project, index, video string
	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		switch name := strings.ToLower(info.Name()); {
		case name == "project.json" && project == "":
			project = path
		case name == "index.html" && index == "":
			index = path
		case (strings.HasSuffix(name, ".mp4") || strings.HasSuffix(name, ".webm")) && video == "":
			video = path
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	for _, candidate := range []string{project, index, video} {
		if candidate != "" {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoEntry, dir)
}

// engine executable names, preferred order
var engineNames = []string{"wallpaper64.exe", "wallpaper32.exe", "wallpaper64", "wallpaper32"}

// Locate resolves the engine executable from a configured path that may be
// the binary itself or its install directory.
func Locate(fs afero.Fs, configured string) (string, error) {
	if configured == "" {
		return "", ErrEngineNotFound
	}
	info, err := fs.Stat(configured)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrEngineNotFound, configured)
	}
	if !info.IsDir() {
		return configured, nil
	}
	for _, name := range engineNames {
		candidate := filepath.Join(configured, name)
		if fi, err := fs.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
	}
	// Deterministic error detail for diagnostics.
	entries, _ := afero.ReadDir(fs, configured)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return "", fmt.Errorf("%w: no engine binary under %s (found: %s)",
		ErrEngineNotFound, configured, strings.Join(names, ", "))
}
