package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache keeps at most maxSize values, dropping the least recently used one
// first. Values older than ttl read as missing; a zero ttl keeps them until
// evicted or purged.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	byKey map[string]*list.Element
	order *list.List // front is most recent
}

var _ Cache[int] = (*LRUCache[int])(nil)

type slot[T any] struct {
	key      string
	value    T
	storedAt time.Time
}

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		maxSize: max(maxSize, 1),
		ttl:     ttl,
		now:     time.Now,
		byKey:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(key)
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(key, value)
}

// GetOrLoad returns the cached value for key, calling load to fill a miss.
// The cache stays locked while load runs, so a Purge issued meanwhile
// happens after the loaded value is stored.
func (c *LRUCache[T]) GetOrLoad(key string, load func() T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.lookup(key); ok {
		return v
	}
	v := load()
	c.store(key, v)
	return v
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.byKey[key]; ok {
		c.drop(el)
	}
}

func (c *LRUCache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.byKey)
	c.order.Init()
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUCache[T]) lookup(key string) (T, bool) {
	var zero T
	el, ok := c.byKey[key]
	if !ok {
		return zero, false
	}
	s := el.Value.(*slot[T])
	if c.ttl > 0 && c.now().Sub(s.storedAt) > c.ttl {
		c.drop(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return s.value, true
}

func (c *LRUCache[T]) store(key string, value T) {
	s := &slot[T]{key: key, value: value, storedAt: c.now()}
	if el, ok := c.byKey[key]; ok {
		el.Value = s
		c.order.MoveToFront(el)
		return
	}
	c.byKey[key] = c.order.PushFront(s)
	for c.order.Len() > c.maxSize {
		c.drop(c.order.Back())
	}
}

func (c *LRUCache[T]) drop(el *list.Element) {
	delete(c.byKey, el.Value.(*slot[T]).key)
	c.order.Remove(el)
}
