// File: reactor/timerheap.go
// Author: momentics <momentics@gmail.com>
//
// Pending timers ordered by (expiration, id), per
// _examples/original_source/include/atu_reactor/EventLoop.h's
// std::set<Timer>. container/heap gives the same O(log n) insert/remove-min
// the original gets from an ordered std::set; a parallel id->index map
// gives O(log n) cancel-by-id, the Go analogue of the original's
// unordered_map<TimerId, iterator>.

package reactor

import "container/heap"

type timerItem struct {
	id         TimerID
	expiration int64 // absolute CLOCK_MONOTONIC nanoseconds
	interval   int64 // zero for one-shot
	repeat     bool
	cancelled  bool
	cb         func()
	index      int // current position in the heap, kept in sync by Swap and Push
}

// timerHeap implements container/heap.Interface, ordered by
// (expiration, id) to match the original's tie-break on insertion order
// for equal expirations.
type timerHeap []*timerItem

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].expiration != h[j].expiration {
		return h[i].expiration < h[j].expiration
	}
	return h[i].id < h[j].id
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	item := x.(*timerItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// timerSet pairs the heap with an id index for O(log n) cancel-by-id.
type timerSet struct {
	heap  timerHeap
	index map[TimerID]*timerItem
}

func newTimerSet() *timerSet {
	return &timerSet{index: make(map[TimerID]*timerItem)}
}

func (s *timerSet) insert(item *timerItem) {
	heap.Push(&s.heap, item)
	s.index[item.id] = item
}

// removeByID removes and returns the item for id, or (nil, false) if absent.
func (s *timerSet) removeByID(id TimerID) (*timerItem, bool) {
	item, ok := s.index[id]
	if !ok {
		return nil, false
	}
	heap.Remove(&s.heap, item.index)
	delete(s.index, id)
	return item, true
}

func (s *timerSet) empty() bool { return s.heap.Len() == 0 }

func (s *timerSet) peek() *timerItem {
	if s.heap.Len() == 0 {
		return nil
	}
	return s.heap[0]
}

// popDue removes and returns every item whose expiration is <= now, in
// (expiration, id) order.
func (s *timerSet) popDue(now int64) []*timerItem {
	var due []*timerItem
	for s.heap.Len() > 0 && s.heap[0].expiration <= now {
		item := heap.Pop(&s.heap).(*timerItem)
		delete(s.index, item.id)
		due = append(due, item)
	}
	return due
}
