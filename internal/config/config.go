// Package config loads the wallpick INI configuration into immutable
// snapshots. A snapshot is captured once per cycle; reloading produces a
// fresh snapshot that is swapped in between cycles, never mutated mid-cycle.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/wallpick/wallpick/internal/scheduler"
)

// DefaultAppID is the Wallpaper Engine Steam app id.
const DefaultAppID = 431960

var ErrNotFound = errors.New("config file not found")

// Snapshot is an immutable view of the configuration. Fields are never
// mutated after Load returns; treat slices as read-only.
type Snapshot struct {
	// [paths]
	SteamCMD     string
	WEExe        string
	WorkshopRoot string
	DataDir      string

	// [steam]
	APIKey string
	AppID  int

	// [auth]
	Username string

	// [filters]
	ShowOnly        []string
	Tags            []string
	Types           []string
	Ages            []string
	Resolutions     []string
	ExcludeTags     []string
	ExcludeTitles   []string
	ExcludeCreators []string
	MinCandidates   int
	NumPerPage      int

	// [sort]
	SortMethod string

	// [fallback]
	Pages    int
	MaxPages int
	PageSize int

	// [subscribe]
	SubscribeIDs      []uint64
	OnePerRun         bool
	MaxAttemptsPerRun int

	// [schedule]
	Interval       time.Duration
	Cron           string
	RunOnStartup   bool
	DetectInterval time.Duration

	// [cleanup]
	DeletePrevious bool
	KeepLastN      int
	UseRecycleBin  bool
	ProtectedIDs   []uint64

	// [network]
	HTTPSProxy string
	Timeout    time.Duration

	// [logging]
	LogEnabled bool
	LogFile    string
}

// Load reads the INI file at path and returns a snapshot. When path is
// empty, candidate locations are probed in order: $WALLPICK_CONFIG, then
// config.ini next to the executable, then in the working directory.
func Load(path string) (*Snapshot, error) {
	p, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(p)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", p, err)
	}

	s := &Snapshot{
		SteamCMD:     expandPath(v.GetString("paths.steamcmd")),
		WEExe:        expandPath(v.GetString("paths.we_exe")),
		WorkshopRoot: expandPath(v.GetString("paths.workshop_root")),
		DataDir:      expandPath(v.GetString("paths.data_dir")),

		APIKey: strings.TrimSpace(v.GetString("steam.api_key")),
		AppID:  intOr(v.GetString("steam.app_id"), DefaultAppID),

		Username: strings.TrimSpace(v.GetString("auth.steam_username")),

		ShowOnly:        splitCSV(v.GetString("filters.show_only")),
		Tags:            splitCSV(v.GetString("filters.tags")),
		Types:           splitCSV(v.GetString("filters.types")),
		Ages:            splitCSV(v.GetString("filters.age")),
		Resolutions:     splitCSV(v.GetString("filters.resolution")),
		ExcludeTags:     splitCSV(v.GetString("filters.exclude")),
		ExcludeTitles:   splitCSV(v.GetString("filters.exclude_title")),
		ExcludeCreators: splitCSV(v.GetString("filters.exclude_creators")),
		MinCandidates:   intOr(v.GetString("filters.min_candidates"), 0),

		SortMethod: strings.TrimSpace(v.GetString("sort.method")),

		Pages:    intOr(v.GetString("fallback.pages"), 3),
		PageSize: intOr(v.GetString("fallback.page_size"), 40),

		SubscribeIDs:      splitIDs(v.GetString("subscribe.ids")),
		OnePerRun:         boolOr(v.GetString("subscribe.one_per_run"), true),
		MaxAttemptsPerRun: intOr(v.GetString("subscribe.max_attempts_per_run"), 5),

		Cron:           strings.TrimSpace(v.GetString("schedule.cron")),
		RunOnStartup:   boolOr(v.GetString("schedule.run_on_startup"), true),
		Interval:       ParseInterval(v.GetString("schedule.interval")),
		DetectInterval: ParseInterval(v.GetString("schedule.detect_interval")),

		DeletePrevious: boolOr(v.GetString("cleanup.delete_previous"), false),
		KeepLastN:      intOr(v.GetString("cleanup.keep_last_n"), 0),
		UseRecycleBin:  boolOr(v.GetString("cleanup.use_recycle_bin"), false),
		ProtectedIDs:   splitIDs(v.GetString("cleanup.protected_ids")),

		HTTPSProxy: strings.TrimSpace(v.GetString("network.https_proxy")),
		Timeout:    ParseInterval(v.GetString("network.timeout")),

		LogEnabled: boolOr(v.GetString("logging.enable"), true),
		LogFile:    strings.TrimSpace(v.GetString("logging.file")),
	}

	s.NumPerPage = intOr(v.GetString("filters.numperpage"), s.PageSize)
	s.MaxPages = intOr(v.GetString("fallback.max_pages"), s.Pages)
	if s.MaxPages < s.Pages {
		s.MaxPages = s.Pages
	}
	if s.Username == "" {
		s.Username = strings.TrimSpace(os.Getenv("STEAM_USERNAME"))
	}
	if s.SortMethod == "" {
		s.SortMethod = "Most Popular (Week)"
	}
	if s.DetectInterval <= 0 {
		s.DetectInterval = 5 * time.Minute
	}
	if s.DataDir == "" {
		s.DataDir = filepath.Dir(p)
	}
	if s.LogFile == "" {
		s.LogFile = "wallpick_downloads.log"
	}
	if s.Cron != "" && !scheduler.ValidCron(s.Cron) {
		return nil, fmt.Errorf("invalid cron expression %q in [schedule]", s.Cron)
	}
	return s, nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return path, nil
	}
	var candidates []string
	if env := os.Getenv("WALLPICK_CONFIG"); env != "" {
		candidates = append(candidates, env)
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates, filepath.Join(dir, "config.ini"), filepath.Join(dir, "config"))
	}
	candidates = append(candidates, "config.ini", "config")
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrNotFound, strings.Join(candidates, ", "))
}

var intervalPat = regexp.MustCompile(`(\d+)\s*([hms])`)

// ParseInterval parses interval strings of the form "2h", "30m", "90s" or
// combinations like "1h30m". An empty or unparseable string yields zero.
func ParseInterval(s string) time.Duration {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	var total time.Duration
	for _, m := range intervalPat.FindAllStringSubmatch(s, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch m[2] {
		case "h":
			total += time.Duration(n) * time.Hour
		case "m":
			total += time.Duration(n) * time.Minute
		case "s":
			total += time.Duration(n) * time.Second
		}
	}
	return total
}

var winEnvPat = regexp.MustCompile(`%([^%]+)%`)

// expandPath expands both $VAR and %VAR% references.
func expandPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = winEnvPat.ReplaceAllString(p, `${$1}`)
	return os.ExpandEnv(p)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitIDs(s string) []uint64 {
	var out []uint64
	for _, part := range splitCSV(s) {
		if id, err := strconv.ParseUint(part, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func intOr(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func boolOr(raw string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

// Manager owns the current snapshot and runtime overrides. Cycles read the
// snapshot through Current; collaborators mutate overrides (excluded
// creators) which are folded into every snapshot handed out.
type Manager struct {
	mu               sync.RWMutex
	path             string
	snap             *Snapshot
	excludedCreators []string
}

// NewManager wraps an already loaded snapshot.
func NewManager(path string, snap *Snapshot) *Manager {
	return &Manager{path: path, snap: snap}
}

// Current returns the snapshot with runtime overrides applied.
func (m *Manager) Current() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.excludedCreators) == 0 {
		return m.snap
	}
	s := *m.snap
	s.ExcludeCreators = append(append([]string(nil), s.ExcludeCreators...), m.excludedCreators...)
	return &s
}

// Reload re-reads the config file and swaps the snapshot atomically.
// Overrides survive a reload.
func (m *Manager) Reload() error {
	snap, err := Load(m.path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()
	return nil
}

// ExcludeCreator adds a creator id to the runtime exclude set.
func (m *Manager) ExcludeCreator(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.excludedCreators {
		if c == id {
			return
		}
	}
	m.excludedCreators = append(m.excludedCreators, id)
}
