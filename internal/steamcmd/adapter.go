package steamcmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wallpick/wallpick/pkg/logger"
)

var (
	// ErrExhausted is returned when every bounded retry attempt failed
	// with a retryable outcome.
	ErrExhausted = errors.New("download attempts exhausted")
	// ErrFatal wraps failures that retrying cannot fix (bad credentials,
	// missing subscription, unknown item).
	ErrFatal = errors.New("fatal steamcmd failure")

	// errAttemptTimeout marks an invocation that hit the per-attempt
	// deadline while the caller's context was still live.
	errAttemptTimeout = errors.New("attempt timed out")
)

// DefTimeout bounds one steamcmd invocation; large items stall rather
// than fail, so the bound is generous.
const DefTimeout = 30 * time.Minute

// Options configures an Adapter. Run and Kill default to the real
// subprocess implementations and exist as seams for tests.
type Options struct {
	Exe      string // steamcmd binary path
	Dir      string // steamcmd install dir; content lands under it
	AppID    uint32
	Username string
	Timeout  time.Duration
	Retry    RetryConfig
	Log      logger.Logger
	Run      RunFunc
	Kill     func(pid int) error
}

// Adapter drives the external steamcmd tool. All invocations are
// serialized: steamcmd holds a global content lock, so concurrent runs
// only produce retryable noise.
type Adapter struct {
	exe      string
	dir      string
	appID    uint32
	username string
	timeout  time.Duration
	retry    RetryConfig
	log      logger.Logger
	run      RunFunc
	kill     func(pid int) error

	mu sync.Mutex
}

func New(opts Options) *Adapter {
	a := &Adapter{
		exe:      opts.Exe,
		dir:      opts.Dir,
		appID:    opts.AppID,
		username: opts.Username,
		timeout:  opts.Timeout,
		retry:    opts.Retry,
		log:      opts.Log,
		run:      opts.Run,
		kill:     opts.Kill,
	}
	if a.timeout <= 0 {
		a.timeout = DefTimeout
	}
	if a.retry.MaxAttempts <= 0 {
		a.retry = DefaultRetryConfig()
	}
	if a.log == nil {
		a.log = logger.NewNopLogger()
	}
	if a.run == nil {
		a.run = Run
	}
	if a.kill == nil {
		a.kill = KillTree
	}
	if a.dir == "" && a.exe != "" {
		a.dir = filepath.Dir(a.exe)
	}
	return a
}

// ContentPath is where steamcmd materializes a downloaded workshop item.
func (a *Adapter) ContentPath(itemID uint64) string {
	return filepath.Join(a.dir, "steamapps", "workshop", "content",
		strconv.FormatUint(uint64(a.appID), 10), strconv.FormatUint(itemID, 10))
}

// Fetch downloads one workshop item, retrying retryable failures with
// exponential backoff. On success it returns the item's content
// directory, verified to exist and be non-empty. A fatal outcome or an
// exhausted retry budget aborts with ErrFatal or ErrExhausted.
func (a *Adapter) Fetch(ctx context.Context, itemID uint64, onLine func(string)) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	args := []string{
		"+login", a.username,
		"+workshop_download_item",
		strconv.FormatUint(uint64(a.appID), 10),
		strconv.FormatUint(itemID, 10),
		"validate",
		"+quit",
	}

	var lastPID int
	for attempt := 1; attempt <= a.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			// A wedged prior run can keep the content lock held; make
			// sure its whole tree is gone before trying again.
			if lastPID > 0 {
				if err := a.kill(lastPID); err != nil {
					a.log.Warning("steamcmd: kill tree %d: %s", lastPID, err)
				}
			}
			delay := a.retry.Backoff(attempt - 1)
			a.log.Info("steamcmd: retrying item %d in %s (attempt %d/%d)",
				itemID, delay.Round(time.Millisecond), attempt, a.retry.MaxAttempts)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		res, err := a.runOnce(ctx, args, onLine)
		lastPID = res.PID
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if errors.Is(err, errAttemptTimeout) {
				// A stalled download, not a broken setup: the next
				// iteration kills the wedged tree and tries again.
				a.log.Warning("steamcmd: item %d attempt %d timed out after %s",
					itemID, attempt, a.timeout)
				continue
			}
			// Could not even launch the tool; no amount of backoff helps.
			return "", fmt.Errorf("%w: %s", ErrFatal, err)
		}

		switch Classify(res.ExitCode, res.Output) {
		case OutcomeSuccess:
			dir := a.ContentPath(itemID)
			if nonEmptyDir(dir) {
				return dir, nil
			}
			a.log.Warning("steamcmd: reported success but %s is empty", dir)
		case OutcomeFatal:
			return "", fmt.Errorf("%w: item %d: exit %d: %s",
				ErrFatal, itemID, res.ExitCode, tail(res.Output))
		case OutcomeRetryable:
			a.log.Warning("steamcmd: item %d attempt %d failed (exit %d): %s",
				itemID, attempt, res.ExitCode, tail(res.Output))
		}
	}
	if lastPID > 0 {
		_ = a.kill(lastPID)
	}
	return "", fmt.Errorf("%w: item %d after %d attempts", ErrExhausted, itemID, a.retry.MaxAttempts)
}

// Login performs an interactive credential refresh so later Fetch calls
// can ride the cached session. Guard may be empty when the account has
// no Steam Guard or the code was already cached.
func (a *Adapter) Login(ctx context.Context, username, password, guard string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if username == "" {
		username = a.username
	}
	args := []string{"+login", username, password}
	if guard != "" {
		args = append(args, "+set_steam_guard_code", guard)
	}
	args = append(args, "+quit")

	res, err := a.runOnce(ctx, args, nil)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, errAttemptTimeout) {
			return fmt.Errorf("login timed out after %s", a.timeout)
		}
		return fmt.Errorf("%w: %s", ErrFatal, err)
	}
	switch Classify(res.ExitCode, res.Output) {
	case OutcomeSuccess:
		a.username = username
		return nil
	case OutcomeFatal:
		return fmt.Errorf("%w: login: %s", ErrFatal, tail(res.Output))
	default:
		return fmt.Errorf("login failed (exit %d): %s", res.ExitCode, tail(res.Output))
	}
}

// Username reports the account the adapter authenticates as.
func (a *Adapter) Username() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.username
}

func (a *Adapter) runOnce(ctx context.Context, args []string, onLine func(string)) (RunResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	res, err := a.run(attemptCtx, a.exe, args, onLine)
	if err != nil && ctx.Err() == nil && attemptCtx.Err() == context.DeadlineExceeded {
		return res, fmt.Errorf("%w: %s", errAttemptTimeout, err)
	}
	return res, err
}

func nonEmptyDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}

// tail keeps error strings readable: the last few output lines carry the
// actual failure, the rest is banner noise.
func tail(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, " | ")
}
