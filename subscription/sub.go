package subscription

import (
	"sync"
	"sync/atomic"
)

type Sub[T any] interface {
	Send(T)
	Close()
}

type chanSub[T any] struct {
	ch     chan T
	closed atomic.Bool
}

func newChanSub[T any](size int) *chanSub[T] {
	if size < 8 {
		size = 8
	}
	return &chanSub[T]{ch: make(chan T, size)}
}

// Send drops x when the subscriber is not keeping up.
func (s *chanSub[T]) Send(x T) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- x:
	default:
	}
}

func (s *chanSub[T]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.ch)
}

type SyncMap[K comparable, T any] struct {
	m  map[K]T
	mu sync.RWMutex
}

func NewSyncMap[K comparable, T any]() *SyncMap[K, T] {
	return &SyncMap[K, T]{m: make(map[K]T)}
}

func (m *SyncMap[K, T]) Get(k K) (res T, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok = m.m[k]
	return res, ok
}

func (m *SyncMap[K, T]) Put(k K, v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[k] = v
}

func (m *SyncMap[K, T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}

func (m *SyncMap[K, T]) Range(fn func(k K, v T)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.m {
		fn(k, v)
	}
}

func (m *SyncMap[K, T]) Delete(k K) (t T, deleted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.m[k]
	if !ok {
		return t, false
	}
	delete(m.m, k)
	return val, true
}
