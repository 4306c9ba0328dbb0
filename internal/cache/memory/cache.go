package memory

import (
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCapacity = 40

var ErrInvalidCapacity = errors.New("cache capacity must be at least 1")

// Cache - in-memory кеш фиксированного размера, вытеснение FIFO по вставке.
// Get читает через Peek и порядок не трогает; повторный Set ключа считается новой вставкой.
type Cache[V any] struct {
	items    *lru.Cache[string, V]
	capacity int
}

func New[V any](capacity int) (*Cache[V], error) {
	return NewWithEvict[V](capacity, nil)
}

func NewWithEvict[V any](capacity int, onEvict func(key string, value V)) (*Cache[V], error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}

	var (
		items *lru.Cache[string, V]
		err   error
	)
	if onEvict != nil {
		items, err = lru.NewWithEvict[string, V](capacity, onEvict)
	} else {
		items, err = lru.New[string, V](capacity)
	}
	if err != nil {
		return nil, err
	}

	return &Cache[V]{items: items, capacity: capacity}, nil
}

func (c *Cache[V]) Get(key string) (V, bool) {
	return c.items.Peek(key)
}

func (c *Cache[V]) Set(key string, value V) {
	c.items.Add(key, value)
}

func (c *Cache[V]) Len() int {
	return c.items.Len()
}

func (c *Cache[V]) Capacity() int {
	return c.capacity
}

// Keys - от самого старого к самому новому.
func (c *Cache[V]) Keys() []string {
	return c.items.Keys()
}
