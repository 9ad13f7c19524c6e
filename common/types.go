package common

import "time"

// StatusResult is the response for wallpick.status.
type StatusResult struct {
	Phase           string    `json:"phase"`
	CurrentItem     uint64    `json:"currentItem,omitempty"`
	LastApplied     uint64    `json:"lastApplied,omitempty"`
	LastAppliedDirs []string  `json:"lastAppliedDirs,omitempty"`
	LastError       string    `json:"lastError,omitempty"`
	LastRun         time.Time `json:"lastRun,omitempty"`
	CompletedCycles uint64    `json:"completedCycles"`
	PendingTrigger  bool      `json:"pendingTrigger"`
}

// LoginParams is the input for wallpick.login. The password travels over the
// local socket only and is never written to disk by the daemon.
type LoginParams struct {
	Username  string `json:"username"`
	Password  string `json:"password,omitempty"`
	GuardCode string `json:"guardCode,omitempty"`
}

// TriggerResult is the response for wallpick.runNow and
// wallpick.excludeUploader.
type TriggerResult struct {
	Accepted bool `json:"accepted"`
	// Coalesced is true when a cycle was already running and the trigger
	// was folded into a single pending re-run.
	Coalesced bool `json:"coalesced"`
}

// ExcludeResult is the response for wallpick.excludeUploader.
type ExcludeResult struct {
	TriggerResult
	Creator string `json:"creator,omitempty"`
}

// VersionResult is the response for wallpick.version.
type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

// EmptyResult is a placeholder for methods that return no data.
type EmptyResult struct{}

// HistoryEvent is one row of the daemon's durable audit trail.
type HistoryEvent struct {
	Kind   string    `json:"kind"`
	ItemID uint64    `json:"itemId,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// EventsResult is the response for wallpick.events: the in-memory stream
// ring plus the persisted audit trail, newest first.
type EventsResult struct {
	Stream  []Event        `json:"stream,omitempty"`
	History []HistoryEvent `json:"history,omitempty"`
}

// Event kinds pushed on the collaborator event stream.
const (
	EventLog   = "log"
	EventPhase = "phase"
	EventCycle = "cycle"
)

// Event is one message on the websocket event stream consumed by the tray
// console collaborator.
type Event struct {
	At     time.Time `json:"at"`
	Kind   string    `json:"kind"`
	Level  string    `json:"level,omitempty"`
	Phase  string    `json:"phase,omitempty"`
	ItemID uint64    `json:"itemId,omitempty"`
	Text   string    `json:"text,omitempty"`
}
