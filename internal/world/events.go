package world

import (
	"container/heap"

	"github.com/napolitain/rts-economy/internal/models"
)

// trainingJob is a unit in production
type trainingJob struct {
	Template string
	Role     models.Role
}

// timedEvent is a training completion scheduled for a future tick
type timedEvent struct {
	Tick     int
	Job      trainingJob
	Sequence int64
}

type eventHeap []timedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Tick != h[j].Tick {
		return h[i].Tick < h[j].Tick
	}
	// insertion order keeps same-tick events deterministic
	return h[i].Sequence < h[j].Sequence
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(timedEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// eventQueue is a min-heap of timed events ordered by (Tick, Sequence)
type eventQueue struct {
	h   eventHeap
	seq int64
}

func newEventQueue() *eventQueue {
	q := &eventQueue{h: make(eventHeap, 0)}
	heap.Init(&q.h)
	return q
}

// Push schedules an event, stamping its sequence number
func (q *eventQueue) Push(e timedEvent) {
	q.seq++
	e.Sequence = q.seq
	heap.Push(&q.h, e)
}

// PopDue removes and returns every event scheduled at or before tick
func (q *eventQueue) PopDue(tick int) []timedEvent {
	var due []timedEvent
	for len(q.h) > 0 && q.h[0].Tick <= tick {
		due = append(due, heap.Pop(&q.h).(timedEvent))
	}
	return due
}

// Len returns the number of scheduled events
func (q *eventQueue) Len() int { return len(q.h) }
