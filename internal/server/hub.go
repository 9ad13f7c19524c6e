package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/wallpick/wallpick/common"
	"github.com/wallpick/wallpick/pkg/logger"
)

// ringSize is how many recent events a late-attaching collaborator gets
// replayed.
const ringSize = 200

// EventHub fans daemon events out to attached collaborators and keeps a
// ring of recent events for replay on attach.
type EventHub struct {
	mu   sync.Mutex
	ring []common.Event
	subs map[chan common.Event]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan common.Event]struct{})}
}

// Publish appends the event to the ring and delivers it to every
// subscriber. Slow subscribers drop events rather than block the daemon.
func (h *EventHub) Publish(ev common.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ring = append(h.ring, ev)
	if len(h.ring) > ringSize {
		h.ring = h.ring[len(h.ring)-ringSize:]
	}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a subscriber and returns the replay of the ring plus
// the live channel. Call the returned cancel func when done.
func (h *EventHub) Subscribe() (replay []common.Event, ch chan common.Event, cancel func()) {
	ch = make(chan common.Event, 64)
	h.mu.Lock()
	replay = append([]common.Event(nil), h.ring...)
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return replay, ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// Recent returns a copy of the last events in the ring.
func (h *EventHub) Recent() []common.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]common.Event(nil), h.ring...)
}

// hubLogger tees log messages into the hub so collaborators can show a
// live console, while still writing through the inner logger.
type hubLogger struct {
	inner logger.Logger
	hub   *EventHub
}

// TeeLogger wraps inner so every message is also published on the hub.
func TeeLogger(inner logger.Logger, hub *EventHub) logger.Logger {
	return &hubLogger{inner: inner, hub: hub}
}

func (l *hubLogger) Info(format string, args ...interface{}) {
	l.inner.Info(format, args...)
	l.publish("info", format, args)
}

func (l *hubLogger) Warning(format string, args ...interface{}) {
	l.inner.Warning(format, args...)
	l.publish("warning", format, args)
}

func (l *hubLogger) Error(format string, args ...interface{}) {
	l.inner.Error(format, args...)
	l.publish("error", format, args)
}

func (l *hubLogger) Close() error { return l.inner.Close() }

func (l *hubLogger) publish(level, format string, args []interface{}) {
	l.hub.Publish(common.Event{
		Kind:  common.EventLog,
		Level: level,
		Text:  fmt.Sprintf(format, args...),
	})
}
