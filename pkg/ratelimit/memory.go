package ratelimit

import (
	"context"
	"hash/maphash"
	"sync"
	"time"
)

const shardCount = 32

// Memory keeps windows in process. Keys are spread over mutex-guarded
// shards so unrelated clients do not contend.
type Memory struct {
	seed   maphash.Seed
	shards [shardCount]shard
	now    func() time.Time
}

type shard struct {
	mu      sync.Mutex
	windows map[string]Window
}

func NewMemory() *Memory {
	m := &Memory{seed: maphash.MakeSeed(), now: time.Now}
	for i := range m.shards {
		m.shards[i].windows = make(map[string]Window)
	}
	return m
}

// WithClock replaces the time source, for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) shard(key string) *shard {
	return &m.shards[maphash.String(m.seed, key)%shardCount]
}

func (m *Memory) Allow(_ context.Context, key string, rule Rule) (Decision, error) {
	s := m.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	next, d := Decide(w, ok, m.now(), rule)
	s.windows[key] = next
	return d, nil
}

// Sweep drops windows that started before cutoff and returns how many were
// removed. Pass now minus the longest configured window.
func (m *Memory) Sweep(cutoff time.Time) int {
	removed := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for key, w := range s.windows {
			if w.Start.Before(cutoff) {
				delete(s.windows, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len reports the number of tracked windows.
func (m *Memory) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		n += len(s.windows)
		s.mu.Unlock()
	}
	return n
}
