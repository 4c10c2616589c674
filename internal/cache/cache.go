// Package cache provides a small in-process LRU cache with TTL, used
// to memoize read-side report payloads. Entries are keyed per user so
// a write can invalidate exactly the views it staled.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

type Cache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List

	stopJanitor chan struct{}
	janitorDone chan struct{}
}

type entry[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

func New[T any](maxSize int, ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns the cached value for key if present and not expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}

	e := elem.Value.(*entry[T])
	if time.Now().After(e.expiresAt) {
		c.remove(elem)
		return zero, false
	}

	c.order.MoveToFront(elem)
	return e.data, true
}

// Set stores a value, evicting the least recently used entry when the
// cache is over capacity.
func (c *Cache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, data: data, expiresAt: time.Now().Add(c.ttl)}

	if elem, ok := c.items[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(e)

	if c.order.Len() > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
}

// Delete removes a single key.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// DeletePrefix removes every key starting with prefix and returns how
// many entries were dropped. Used to invalidate all of one user's
// cached views after a write.
func (c *Cache[T]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var doomed []*list.Element
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if strings.HasPrefix(elem.Value.(*entry[T]).key, prefix) {
			doomed = append(doomed, elem)
		}
	}
	for _, elem := range doomed {
		c.remove(elem)
	}
	return len(doomed)
}

// CleanExpired drops every expired entry and returns the count.
func (c *Cache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var doomed []*list.Element
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			doomed = append(doomed, elem)
		}
	}
	for _, elem := range doomed {
		c.remove(elem)
	}
	return len(doomed)
}

func (c *Cache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// StartJanitor runs periodic expired-entry cleanup until StopJanitor.
func (c *Cache[T]) StartJanitor(interval time.Duration) {
	c.stopJanitor = make(chan struct{})
	c.janitorDone = make(chan struct{})
	go func() {
		defer close(c.janitorDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.CleanExpired()
			case <-c.stopJanitor:
				return
			}
		}
	}()
}

func (c *Cache[T]) StopJanitor() {
	if c.stopJanitor != nil {
		close(c.stopJanitor)
		<-c.janitorDone
		c.stopJanitor = nil
	}
}

func (c *Cache[T]) remove(elem *list.Element) {
	delete(c.items, elem.Value.(*entry[T]).key)
	c.order.Remove(elem)
}
