// Package cache memoises derived views between ledger mutations.
package cache

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	// GetOrLoad fills a miss from load and returns the cached value.
	GetOrLoad(key string, load func() T) T
	Delete(key string)
	// Purge drops every value, used whenever the underlying data changes.
	Purge()
	Size() int
}
