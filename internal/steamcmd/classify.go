package steamcmd

import "strings"

// Outcome classifies one steamcmd invocation.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// Markers steamcmd prints on a successful login/download.
var successMarkers = []string{
	"Success. Downloaded item",
	"Logged in OK",
	"Logged in",
	"Loading Steam API...OK",
	"Connecting anonymously to Steam Public",
}

// Output signatures of transient conditions worth a bounded retry:
// another instance holding the content lock, an unclean prior shutdown,
// or flaky connectivity.
var retryablePatterns = []string{
	"another instance",
	"is already running",
	"lock file",
	"failed to take master pipe",
	"unclean shutdown",
	"update required",
	"self update",
	"timeout",
	"timed out",
	"connection reset",
	"no connection",
	"connection to steam servers could not be established",
	"service unavailable",
	"too many requests",
	"busy",
	"http 429",
	"http 5",
}

// Patterns that are definitively fatal even with exit code 0 noise around
// them; retrying cannot help without user action.
var fatalPatterns = []string{
	"invalid password",
	"invalid login auth code",
	"account logon denied",
	"rate limit exceeded", // steam auth rate limiting wants a long pause, not our backoff
	"no subscription",
	"access denied",
	"file not found",
}

// Classify maps an exit code plus captured output to an Outcome. It is a
// pure function so the failure taxonomy can be unit tested without running
// the real tool.
func Classify(exitCode int, output string) Outcome {
	low := strings.ToLower(output)

	for _, p := range fatalPatterns {
		if strings.Contains(low, p) {
			return OutcomeFatal
		}
	}
	if exitCode == 0 {
		for _, m := range successMarkers {
			if strings.Contains(output, m) {
				return OutcomeSuccess
			}
		}
		// Exit 0 without any known success marker: the tool tends to
		// swallow download errors, so treat it as retryable noise.
		return OutcomeRetryable
	}
	for _, p := range retryablePatterns {
		if strings.Contains(low, p) {
			return OutcomeRetryable
		}
	}
	return OutcomeFatal
}
