package lib

import "sync"

// Collection is a typed concurrent map keyed by the item ID
type Collection[T any] struct {
	items sync.Map
}

func NewCollection[T any]() *Collection[T] {
	return &Collection[T]{}
}

func (c *Collection[T]) Load(id string) (item T, ok bool) {
	v, ok := c.items.Load(id)
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

func (c *Collection[T]) Store(id string, item T) {
	c.items.Store(id, item)
}

func (c *Collection[T]) LoadOrStore(id string, item T) (actual T, loaded bool) {
	v, loaded := c.items.LoadOrStore(id, item)
	return v.(T), loaded
}

func (c *Collection[T]) Delete(id string) {
	c.items.Delete(id)
}

func (c *Collection[T]) Range(f func(item T) bool) {
	c.items.Range(func(_, value any) bool {
		return f(value.(T))
	})
}

func (c *Collection[T]) Len() int {
	count := 0
	c.items.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
