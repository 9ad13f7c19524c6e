package scheduler

import (
	"container/heap"
	"context"
	"testing"
	"time"
)

func TestHeapOrdersByTriggerTime(t *testing.T) {
	h := &eventHeap{}
	heap.Init(h)
	base := time.Unix(1000, 0)
	heapPush(h, Event{Key: "c", TriggerAt: base.Add(3 * time.Second)})
	heapPush(h, Event{Key: "a", TriggerAt: base.Add(1 * time.Second)})
	heapPush(h, Event{Key: "b", TriggerAt: base.Add(2 * time.Second)})

	var got []string
	for h.Len() > 0 {
		got = append(got, heapPop(h).Key)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("pop order = %v, want [a b c]", got)
	}
}

func TestHeapRemoveByKey(t *testing.T) {
	h := &eventHeap{}
	heap.Init(h)
	base := time.Unix(1000, 0)
	heapPush(h, Event{Key: KeyInterval, TriggerAt: base})
	heapPush(h, Event{Key: KeyCron, TriggerAt: base.Add(time.Second)})
	heapPush(h, Event{Key: KeyInterval, TriggerAt: base.Add(2 * time.Second)})

	if !heapRemoveByKey(h, KeyInterval) {
		t.Fatal("expected removal")
	}
	if h.Len() != 1 || (*h)[0].Key != KeyCron {
		t.Errorf("heap after remove = %+v", *h)
	}
	if heapRemoveByKey(h, "absent") {
		t.Error("removal of absent key reported true")
	}
}

func collectTriggers(t *testing.T) (func(string), chan string) {
	t.Helper()
	ch := make(chan string, 32)
	return func(key string) { ch <- key }, ch
}

func waitTrigger(t *testing.T, ch chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("trigger = %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no %q trigger within 2s", want)
	}
}

func TestOneShotFiresOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	onTrigger, ch := collectTriggers(t)
	s := New(ctx, onTrigger)

	s.Add(Event{Key: KeyRetry, TriggerAt: time.Now().Add(20 * time.Millisecond)})
	waitTrigger(t, ch, KeyRetry)

	select {
	case key := <-ch:
		t.Fatalf("one-shot fired again: %q", key)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestIntervalEventReArms(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	onTrigger, ch := collectTriggers(t)
	s := New(ctx, onTrigger)

	s.AddInterval(KeyInterval, 30*time.Millisecond)
	waitTrigger(t, ch, KeyInterval)
	waitTrigger(t, ch, KeyInterval)
	waitTrigger(t, ch, KeyInterval)
}

func TestRemoveCancelsPendingEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	onTrigger, ch := collectTriggers(t)
	s := New(ctx, onTrigger)

	s.Add(Event{Key: KeyCron, TriggerAt: time.Now().Add(80 * time.Millisecond)})
	s.Remove(KeyCron)

	select {
	case key := <-ch:
		t.Fatalf("removed event fired: %q", key)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPastEventFiresImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	onTrigger, ch := collectTriggers(t)
	s := New(ctx, onTrigger)

	s.Add(Event{Key: KeyRetry, TriggerAt: time.Now().Add(-time.Minute)})
	waitTrigger(t, ch, KeyRetry)
}

func TestAddCronRejectsInvalidExpression(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(ctx, func(string) {})

	if err := s.AddCron(KeyCron, "not a cron"); err == nil {
		t.Error("expected error for invalid expression")
	}
	if err := s.AddCron(KeyCron, "*/5 * * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
}

func TestValidCron(t *testing.T) {
	if !ValidCron("0 9 * * 1") {
		t.Error("weekday cron rejected")
	}
	if ValidCron("99 99 * * *") {
		t.Error("out-of-range cron accepted")
	}
}
