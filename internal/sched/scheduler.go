// Package sched provides the timer subsystem: delayed and repeating
// callbacks ordered in a single queue and fired on the engine loop.
//
// No callback ever runs concurrently with another or with tree
// evaluation. A callback scheduled from inside another callback is
// deferred to the next Fire pass, so continuations re-enter the loop
// as fresh work instead of nesting.
package sched

import (
	"container/heap"
	"time"
)

// Handle identifies a scheduled callback.
type Handle uint64

// Callback runs on the engine loop when its entry comes due.
type Callback func(now time.Time)

// Scheduler orders delayed and repeating callbacks. It is owned by
// the engine loop: Schedule, Cancel, and Fire must all run on the
// same goroutine. Entries due at the same instant fire in scheduling
// order.
type Scheduler struct {
	clock   Clock
	entries entryHeap
	byID    map[Handle]*entry
	nextID  Handle
	seq     uint64
}

type entry struct {
	handle Handle
	due    time.Time
	seq    uint64
	period time.Duration
	fn     Callback
	index  int
}

// NewScheduler creates an empty scheduler on the given clock.
func NewScheduler(clock Clock) *Scheduler {
	return &Scheduler{
		clock: clock,
		byID:  make(map[Handle]*entry),
	}
}

// Schedule runs fn once after delay. Negative delays collapse to
// immediate.
func (s *Scheduler) Schedule(delay time.Duration, fn Callback) Handle {
	if delay < 0 {
		delay = 0
	}
	return s.add(s.clock.Now().Add(delay), 0, fn)
}

// ScheduleRepeating runs fn every period, the first time one period
// from now. Missed periods collapse into a single firing.
func (s *Scheduler) ScheduleRepeating(period time.Duration, fn Callback) Handle {
	if period <= 0 {
		period = time.Millisecond
	}
	return s.add(s.clock.Now().Add(period), period, fn)
}

func (s *Scheduler) add(due time.Time, period time.Duration, fn Callback) Handle {
	s.nextID++
	s.seq++
	e := &entry{
		handle: s.nextID,
		due:    due,
		seq:    s.seq,
		period: period,
		fn:     fn,
	}
	s.byID[e.handle] = e
	heap.Push(&s.entries, e)
	return e.handle
}

// Cancel removes a pending callback. Reports whether the handle was
// still pending; a one-shot that already fired returns false.
func (s *Scheduler) Cancel(h Handle) bool {
	e, ok := s.byID[h]
	if !ok {
		return false
	}
	delete(s.byID, h)
	heap.Remove(&s.entries, e.index)
	return true
}

// CancelAll drops every pending callback.
func (s *Scheduler) CancelAll() {
	s.entries = s.entries[:0]
	s.byID = make(map[Handle]*entry)
}

// Len returns the number of pending entries.
func (s *Scheduler) Len() int {
	return len(s.entries)
}

// NextDue returns the earliest pending due time.
func (s *Scheduler) NextDue() (time.Time, bool) {
	if len(s.entries) == 0 {
		return time.Time{}, false
	}
	return s.entries[0].due, true
}

// Fire runs every callback due at or before now that was pending
// when Fire began. Entries scheduled by a firing callback wait for
// the next pass, even when immediately due. Returns the number of
// callbacks run.
func (s *Scheduler) Fire(now time.Time) int {
	cutoff := s.seq
	fired := 0
	for len(s.entries) > 0 {
		head := s.entries[0]
		if head.due.After(now) || head.seq > cutoff {
			break
		}
		heap.Pop(&s.entries)
		if head.period > 0 {
			head.due = head.due.Add(head.period)
			if !head.due.After(now) {
				head.due = now.Add(head.period)
			}
			s.seq++
			head.seq = s.seq
			heap.Push(&s.entries, head)
		} else {
			delete(s.byID, head.handle)
		}
		head.fn(now)
		fired++
	}
	return fired
}

// entryHeap orders entries by due time, then scheduling order.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if !h[i].due.Equal(h[j].due) {
		return h[i].due.Before(h[j].due)
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
