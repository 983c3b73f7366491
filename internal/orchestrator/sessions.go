package orchestrator

import "sync"

// sessions serializes operations per channel. Every mutating operation locks
// its channel for the full mutate-persist-reconcile cycle, so two concurrent
// commands against the same channel never interleave messaging calls.
type sessions struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessions() *sessions {
	return &sessions{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the channel's lock and returns the matching unlock func.
// Locks are never evicted; the set of managed channels is small.
func (s *sessions) lock(channelKey string) func() {
	s.mu.Lock()
	l, ok := s.locks[channelKey]
	if !ok {
		l = &sync.Mutex{}
		s.locks[channelKey] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
