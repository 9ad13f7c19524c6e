package scheduler

import "time"

// Well-known event keys.
const (
	KeyInterval = "interval" // the recurring detect-interval tick
	KeyCron     = "cron"     // optional cron-style schedule
	KeyRetry    = "retry"    // one-shot re-run after a failed cycle
)

// Event is one pending cycle trigger in the scheduler heap. In-memory
// only; the heap is rebuilt from config on daemon restart.
type Event struct {
	// Key identifies the event for removal and is passed to the trigger
	// callback as the cycle reason.
	Key string
	// TriggerAt is when the cycle should be kicked off.
	TriggerAt time.Time
	// Interval re-arms the event this long after firing. Zero means no
	// interval re-arm.
	Interval time.Duration
	// CronExpr re-arms the event at its next cron occurrence. Takes
	// precedence over Interval when both are set.
	CronExpr string
}
