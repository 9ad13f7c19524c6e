package scheduler

import "container/heap"

// eventHeap is a min-heap of Events sorted by TriggerAt, earliest first.
type eventHeap []Event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].TriggerAt.Before(h[j].TriggerAt) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func heapPush(h *eventHeap, e Event) {
	heap.Push(h, e)
}

// heapPop removes and returns the earliest event. Panics on an empty heap.
func heapPop(h *eventHeap) Event {
	return heap.Pop(h).(Event)
}

// heapRemoveByKey removes every event with the given key. Reports whether
// anything was removed.
func heapRemoveByKey(h *eventHeap, key string) bool {
	removed := false
	for i := 0; i < h.Len(); {
		if (*h)[i].Key == key {
			heap.Remove(h, i)
			removed = true
			continue
		}
		i++
	}
	return removed
}
