package cycle

import "errors"

var (
	// ErrNoCandidates means fetching and filtering produced nothing to try.
	ErrNoCandidates = errors.New("no admissible candidates")
	// ErrCandidatesExhausted means every tried candidate failed to
	// download, materialize, or apply.
	ErrCandidatesExhausted = errors.New("all candidates failed")
	// ErrNotRunning is returned by operations that need a started
	// orchestrator.
	ErrNotRunning = errors.New("orchestrator not started")
	// ErrNothingApplied means no item has been applied yet, so there is no
	// uploader to exclude.
	ErrNothingApplied = errors.New("nothing applied yet")
)
