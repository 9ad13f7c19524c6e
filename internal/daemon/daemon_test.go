package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wallpick/wallpick/common"
	"github.com/wallpick/wallpick/internal/scheduler"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) string {
	dataDir := t.TempDir()
	return writeConfig(t, `
[paths]
steamcmd = /opt/steamcmd/steamcmd.sh
we_exe = /opt/we/wallpaper64.exe
workshop_root = `+filepath.Join(dataDir, "mirror")+`
data_dir = `+dataDir+`

[auth]
steam_username = tester

[schedule]
interval = 1h
run_on_startup = false

[logging]
enable = false
`)
}

func TestNewBuildsComponentGraph(t *testing.T) {
	d, err := New(Options{
		ConfigPath: testConfig(t),
		Version:    common.VersionResult{Version: "test"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.store.Close()

	status := d.Status()
	if status.Phase != "idle" {
		t.Errorf("initial phase = %q, want idle", status.Phase)
	}
	if status.CompletedCycles != 0 || status.LastApplied != 0 {
		t.Errorf("fresh daemon status = %+v", status)
	}
}

func TestMirrorTargetsIncludeEngineBackup(t *testing.T) {
	weDir := t.TempDir()
	weExe := filepath.Join(weDir, "wallpaper64.exe")
	if err := os.WriteFile(weExe, []byte("MZ"), 0o755); err != nil {
		t.Fatal(err)
	}
	dataDir := t.TempDir()
	workshop := filepath.Join(dataDir, "workshop")
	cfg := writeConfig(t, `
[paths]
steamcmd = /opt/steamcmd/steamcmd.sh
we_exe = `+weExe+`
workshop_root = `+workshop+`
data_dir = `+dataDir+`

[logging]
enable = false
`)
	d, err := New(Options{ConfigPath: cfg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.store.Close()

	targets := d.mirrors.Targets()
	backup := filepath.Join(weDir, "projects", "backup")
	if len(targets) != 2 || targets[0] != workshop || targets[1] != backup {
		t.Errorf("mirror targets = %v, want [%s %s]", targets, workshop, backup)
	}
}

func TestMirrorTargetsWithoutEngine(t *testing.T) {
	// we_exe points nowhere: no backup target, workshop root only.
	d, err := New(Options{ConfigPath: testConfig(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.store.Close()

	if targets := d.mirrors.Targets(); len(targets) != 1 {
		t.Errorf("mirror targets = %v, want the workshop root only", targets)
	}
}

func TestCycleFailureArmsDetectRetry(t *testing.T) {
	d, err := New(Options{ConfigPath: writeConfig(t, `
[paths]
data_dir = `+t.TempDir()+`

[schedule]
detect_interval = 1s

[logging]
enable = false
`)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fired := make(chan string, 1)
	d.mu.Lock()
	d.sched = scheduler.New(ctx, func(key string) { fired <- key })
	d.mu.Unlock()

	d.onCycleEvent(common.Event{Kind: common.EventCycle, Level: "error", Text: "boom"})
	select {
	case key := <-fired:
		if key != scheduler.KeyRetry {
			t.Errorf("fired key = %q, want %q", key, scheduler.KeyRetry)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("retry never fired after a failed cycle")
	}

	// A successful cycle cancels a pending retry.
	d.onCycleEvent(common.Event{Kind: common.EventCycle, Level: "error", Text: "boom"})
	time.Sleep(50 * time.Millisecond) // let the scheduler arm the retry
	d.onCycleEvent(common.Event{Kind: common.EventCycle, Text: "applied"})
	select {
	case key := <-fired:
		t.Errorf("retry %q fired despite the later success", key)
	case <-time.After(1500 * time.Millisecond):
	}
}

func TestRunNowRejectedBeforeRun(t *testing.T) {
	d, err := New(Options{ConfigPath: testConfig(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer d.store.Close()

	if res := d.RunNow(); res.Accepted {
		t.Error("trigger accepted before the daemon started")
	}
}

func TestNewRejectsMissingConfig(t *testing.T) {
	if _, err := New(Options{ConfigPath: filepath.Join(t.TempDir(), "absent.ini")}); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestReloadSwapsSnapshot(t *testing.T) {
	path := testConfig(t)
	d, err := New(Options{ConfigPath: path})
	if err != nil {
		t.Fatal(err)
	}
	defer d.store.Close()

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, append(body, "\n[filters]\ntags = landscape\n"...), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := d.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	snap := d.cfg.Current()
	if len(snap.Tags) != 1 || snap.Tags[0] != "landscape" {
		t.Errorf("tags after reload = %v", snap.Tags)
	}
}
