package pagination

import "iter"

// Collection is an insertion-ordered set of items keyed by K.
// The first item added under a key is kept; later items with the same key
// are counted as duplicates and dropped.
type Collection[K comparable, T any] struct {
	index map[K]int
	keys  []K
	items []T
	seen  int
	pages int
}

// NewCollection returns an empty collection.
func NewCollection[K comparable, T any]() *Collection[K, T] {
	return &Collection[K, T]{index: make(map[K]int)}
}

// Add inserts item under key unless the key is already present.
// It reports whether the item was inserted.
func (c *Collection[K, T]) Add(key K, item T) bool {
	c.seen++
	if _, ok := c.index[key]; ok {
		return false
	}
	c.index[key] = len(c.items)
	c.keys = append(c.keys, key)
	c.items = append(c.items, item)
	return true
}

// Get returns the item stored under key.
func (c *Collection[K, T]) Get(key K) (T, bool) {
	i, ok := c.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

// Has reports whether key is present.
func (c *Collection[K, T]) Has(key K) bool {
	_, ok := c.index[key]
	return ok
}

// Len is the number of distinct keys.
func (c *Collection[K, T]) Len() int { return len(c.items) }

// Seen is the number of items offered to Add, duplicates included.
func (c *Collection[K, T]) Seen() int { return c.seen }

// Duplicates is the number of items dropped because their key was already present.
func (c *Collection[K, T]) Duplicates() int { return c.seen - len(c.items) }

// Pages is the number of pages merged into the collection by a Paginator.
func (c *Collection[K, T]) Pages() int { return c.pages }

// Items returns the items in first-seen order. The slice is a copy.
func (c *Collection[K, T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Keys returns the keys in first-seen order. The slice is a copy.
func (c *Collection[K, T]) Keys() []K {
	out := make([]K, len(c.keys))
	copy(out, c.keys)
	return out
}

// All iterates over key/item pairs in first-seen order.
func (c *Collection[K, T]) All() iter.Seq2[K, T] {
	return func(yield func(K, T) bool) {
		for i, k := range c.keys {
			if !yield(k, c.items[i]) {
				return
			}
		}
	}
}
