package cache

import "container/list"

type lruEntry struct {
	lineAddr uint64
	payload  string
}

// lruStore is a fully associative line store. The recency list runs from
// the least recently used line at the front to the most recent at the back.
type lruStore struct {
	capacity int
	lines    map[uint64]*list.Element
	order    *list.List
}

func newLRUStore(capacity int) *lruStore {
	return &lruStore{
		capacity: capacity,
		lines:    make(map[uint64]*list.Element, capacity),
		order:    list.New(),
	}
}

func (s *lruStore) lookup(lineAddr uint64) (string, bool) {
	e, ok := s.lines[lineAddr]
	if !ok {
		return "", false
	}

	s.order.MoveToBack(e)

	return e.Value.(*lruEntry).payload, true
}

func (s *lruStore) contains(lineAddr uint64) bool {
	_, ok := s.lines[lineAddr]
	return ok
}

func (s *lruStore) update(lineAddr uint64, payload string) bool {
	e, ok := s.lines[lineAddr]
	if !ok {
		return false
	}

	e.Value.(*lruEntry).payload = payload
	s.order.MoveToBack(e)

	return true
}

func (s *lruStore) insert(lineAddr uint64, payload string) (evicted uint64, ok bool) {
	if s.order.Len() >= s.capacity {
		oldest := s.order.Front()
		evicted, ok = oldest.Value.(*lruEntry).lineAddr, true

		s.order.Remove(oldest)
		delete(s.lines, evicted)
	}

	s.lines[lineAddr] = s.order.PushBack(&lruEntry{lineAddr: lineAddr, payload: payload})

	return evicted, ok
}

func (s *lruStore) len() int {
	return s.order.Len()
}

func (s *lruStore) resident() []uint64 {
	lines := make([]uint64, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		lines = append(lines, e.Value.(*lruEntry).lineAddr)
	}
	return lines
}

func (s *lruStore) reset() {
	s.lines = make(map[uint64]*list.Element, s.capacity)
	s.order.Init()
}
