// Package scheduler decides when the next wallpaper cycle should run. A
// single goroutine owns a min-heap of trigger events sorted by fire time
// and sleeps with a 60-second cap so NTP steps, DST transitions, and
// system sleep cannot park it past a due event.
//
// The scheduler holds no state worth persisting: interval and cron events
// are re-armed from config at daemon startup.
package scheduler
