package scheduler

import (
	"container/heap"
	"context"
	"time"

	"github.com/adhocore/gronx"
)

// maxSleepCap bounds every timer sleep so clock steps and system sleep
// delay a due event by at most this much.
const maxSleepCap = 60 * time.Second

// Scheduler fires cycle triggers at their scheduled times.
type Scheduler struct {
	addChan    chan Event
	removeChan chan string
	ctx        context.Context
}

// New creates and starts a Scheduler. onTrigger receives the fired
// event's key and runs on the scheduler goroutine, so it must not block;
// the orchestrator's coalescing trigger satisfies that. The goroutine
// exits when ctx is cancelled.
func New(ctx context.Context, onTrigger func(key string)) *Scheduler {
	s := &Scheduler{
		addChan:    make(chan Event, 16),
		removeChan: make(chan string, 16),
		ctx:        ctx,
	}
	go s.run(onTrigger)
	return s
}

// Add enqueues an event. Re-adding a key does not replace earlier events;
// call Remove first to reset an interval after a config reload.
func (s *Scheduler) Add(event Event) {
	select {
	case s.addChan <- event:
	case <-s.ctx.Done():
	}
}

// Remove cancels every pending event with the given key.
func (s *Scheduler) Remove(key string) {
	select {
	case s.removeChan <- key:
	case <-s.ctx.Done():
	}
}

// AddInterval arms a recurring event firing every d, starting one d from
// now.
func (s *Scheduler) AddInterval(key string, d time.Duration) {
	s.Add(Event{Key: key, TriggerAt: time.Now().Add(d), Interval: d})
}

// AddCron arms a recurring event from a cron expression. Invalid
// expressions are reported; nothing is armed.
func (s *Scheduler) AddCron(key, expr string) error {
	next, err := gronx.NextTickAfter(expr, time.Now(), false)
	if err != nil {
		return err
	}
	s.Add(Event{Key: key, TriggerAt: next, CronExpr: expr})
	return nil
}

// ValidCron reports whether expr parses as a cron expression.
func ValidCron(expr string) bool {
	return gronx.New().IsValid(expr)
}

// run owns the heap. It sleeps until the earliest event is due (capped),
// fires everything due, re-arms recurring events, and goes back to sleep.
func (s *Scheduler) run(onTrigger func(string)) {
	h := &eventHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			return nil
		}
		dur := time.Until((*h)[0].TriggerAt)
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-s.ctx.Done():
			return

		case event := <-s.addChan:
			heapPush(h, event)
			timerCh = resetTimer()

		case key := <-s.removeChan:
			heapRemoveByKey(h, key)
			timerCh = resetTimer()

		case <-timerCh:
			now := time.Now()
			for h.Len() > 0 && !(*h)[0].TriggerAt.After(now) {
				event := heapPop(h)
				onTrigger(event.Key)
				if next, ok := nextOccurrence(event); ok {
					event.TriggerAt = next
					heapPush(h, event)
				}
			}
			timerCh = resetTimer()
		}
	}
}

func nextOccurrence(event Event) (time.Time, bool) {
	if event.CronExpr != "" {
		next, err := gronx.NextTickAfter(event.CronExpr, time.Now(), false)
		if err != nil {
			return time.Time{}, false
		}
		return next, true
	}
	if event.Interval > 0 {
		return time.Now().Add(event.Interval), true
	}
	return time.Time{}, false
}
