package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ziadkadry99/shopagent/internal/agent"
)

type entry struct {
	value    agent.Answer
	storedAt time.Time
	ttl      time.Duration
	seq      uint64
}

// Memory is the in-process Store. A single mutex covers lookup, eviction
// and insertion so concurrent writers cannot overshoot MaxSize.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64
	opts    Options
}

// NewMemory returns an empty in-memory store.
func NewMemory(opts Options) *Memory {
	return &Memory{
		entries: make(map[string]*entry),
		opts:    opts.withDefaults(),
	}
}

func (m *Memory) Get(_ context.Context, key string) (agent.Answer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return agent.Answer{}, false
	}
	if !alive(e.storedAt, m.opts.Now(), e.ttl) {
		delete(m.entries, key)
		return agent.Answer{}, false
	}
	return e.value.Clone(), true
}

func (m *Memory) Set(_ context.Context, key string, value agent.Answer, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.opts.MaxSize {
		m.evictOldest(m.opts.EvictionBatch)
	}
	m.seq++
	m.entries[key] = &entry{
		value:    value.Clone(),
		storedAt: m.opts.Now(),
		ttl:      ttl,
		seq:      m.seq,
	}
	return true
}

// evictOldest removes n entries ordered by storedAt, then insertion order.
// Caller holds m.mu.
func (m *Memory) evictOldest(n int) {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := m.entries[keys[i]], m.entries[keys[j]]
		if !a.storedAt.Equal(b.storedAt) {
			return a.storedAt.Before(b.storedAt)
		}
		return a.seq < b.seq
	})
	for _, k := range keys[:min(n, len(keys))] {
		delete(m.entries, k)
	}
}

func (m *Memory) Clear(context.Context) {
	m.mu.Lock()
	m.entries = make(map[string]*entry)
	m.mu.Unlock()
}

func (m *Memory) Len(context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Close() error { return nil }
