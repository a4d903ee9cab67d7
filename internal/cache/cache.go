// Package cache holds small in-process caches for read-heavy API views.
package cache

import (
	"log/slog"
	"time"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Clear()
	Size() int
}

// Cleaner is implemented by caches with expiring entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically purges expired entries from registered caches.
type Manager struct {
	caches []Cleaner
	stop   chan struct{}
	done   chan struct{}
}

func NewManager(caches ...Cleaner) *Manager {
	return &Manager{caches: caches, stop: make(chan struct{}), done: make(chan struct{})}
}

func (m *Manager) Start(interval time.Duration) {
	go func() {
		defer close(m.done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				n := 0
				for _, c := range m.caches {
					n += c.CleanExpired()
				}
				if n > 0 {
					slog.Debug("Purged expired cache entries", "component", "cache", "count", n)
				}
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends the purge loop. It must follow Start.
func (m *Manager) Stop() {
	close(m.stop)
	<-m.done
}
