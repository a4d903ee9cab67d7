package cache

import "sync"

// Generational wraps an LRU so a reader that computed its value before the
// last Invalidate cannot put it back.
type Generational[T any] struct {
	mu  sync.Mutex
	gen uint64
	lru *LRU[T]
}

func NewGenerational[T any](lru *LRU[T]) *Generational[T] {
	return &Generational[T]{lru: lru}
}

func (g *Generational[T]) Get(key string) (T, bool) {
	return g.lru.Get(key)
}

// Generation is the token a reader takes before loading and hands to SetAt.
func (g *Generational[T]) Generation() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen
}

// SetAt stores v only when no Invalidate happened since gen was taken.
func (g *Generational[T]) SetAt(gen uint64, key string, v T) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen {
		return false
	}
	g.lru.Set(key, v)
	return true
}

// Invalidate drops every entry and retires all outstanding generations.
func (g *Generational[T]) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	g.lru.Clear()
}

func (g *Generational[T]) CleanExpired() int {
	return g.lru.CleanExpired()
}
