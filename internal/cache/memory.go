package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

const DefaultCapacity = 1000

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// Memory - 프로세스 내부 캐시
// 만료 항목은 읽을 때 제거하고, 용량을 넘으면 가장 오래 저장된 항목부터 제거
type Memory struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

type Option func(*Memory)

// WithClock - 테스트에서 시간을 고정할 때 사용
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

func WithCapacity(capacity int) Option {
	return func(m *Memory) {
		if capacity > 0 {
			m.capacity = capacity
		}
	}
}

func WithDefaultTTL(ttl time.Duration) Option {
	return func(m *Memory) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: DefaultCapacity,
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	entry := el.Value.(*memoryEntry)
	if !m.now().Before(entry.expiresAt) {
		m.removeElement(el)
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.ttl
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := m.now().Add(ttl)
	if el, ok := m.entries[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.value = stored
		entry.expiresAt = expiresAt
		m.order.MoveToBack(el)
		return nil
	}

	if len(m.entries) >= m.capacity {
		m.compact()
	}
	for len(m.entries) >= m.capacity {
		m.removeElement(m.order.Front())
	}

	m.entries[key] = m.order.PushBack(&memoryEntry{key: key, value: stored, expiresAt: expiresAt})
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		m.removeElement(el)
	}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		if pattern == "" || strings.Contains(el.Value.(*memoryEntry).key, pattern) {
			m.removeElement(el)
			removed++
		}
		el = next
	}
	return removed, nil
}

// Len - 만료되지 않은 항목 수
func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.compact()
	return len(m.entries), nil
}

// Contains - key가 살아있는지 확인 (값 복사 없음)
func (m *Memory) Contains(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return false
	}
	if !m.now().Before(el.Value.(*memoryEntry).expiresAt) {
		m.removeElement(el)
		return false
	}
	return true
}

// compact - 만료 항목 일괄 제거 (mu 보유 상태에서 호출)
func (m *Memory) compact() {
	now := m.now()
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		if !now.Before(el.Value.(*memoryEntry).expiresAt) {
			m.removeElement(el)
		}
		el = next
	}
}

func (m *Memory) removeElement(el *list.Element) {
	entry := m.order.Remove(el).(*memoryEntry)
	delete(m.entries, entry.key)
}
