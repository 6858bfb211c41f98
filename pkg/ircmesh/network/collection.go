package network

import iradix "github.com/hashicorp/go-immutable-radix"

// collection is a persistent, copy-on-write map from string key to value T,
// backed by a hashicorp/go-immutable-radix tree. Every mutating method
// returns a new collection value; the receiver is left untouched, which is
// exactly the "reference-counted / copy-on-write snapshot" design note in
// this: a command handler holding an old collection value never
// observes a later commit.
type collection[T any] struct {
	tree *iradix.Tree
}

func newCollection[T any]() collection[T] {
	return collection[T]{tree: iradix.New()}
}

func (c collection[T]) get(key string) (T, bool) {
	v, ok := c.tree.Get([]byte(key))
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

func (c collection[T]) has(key string) bool {
	_, ok := c.tree.Get([]byte(key))
	return ok
}

func (c collection[T]) insert(key string, value T) collection[T] {
	tree, _, _ := c.tree.Insert([]byte(key), value)
	return collection[T]{tree: tree}
}

func (c collection[T]) delete(key string) collection[T] {
	tree, _, _ := c.tree.Delete([]byte(key))
	return collection[T]{tree: tree}
}

func (c collection[T]) len() int {
	if c.tree == nil {
		return 0
	}
	return c.tree.Len()
}

// each walks every entry in key order, stopping early if fn returns false.
func (c collection[T]) each(fn func(key string, value T) bool) {
	if c.tree == nil {
		return
	}
	it := c.tree.Root().Iterator()
	for {
		k, v, ok := it.Next()
		if !ok {
			return
		}
		if !fn(string(k), v.(T)) {
			return
		}
	}
}

// values returns every value in the collection; used sparingly, for the
// small collections (pending registrations, audit log replay) where a full
// scan is appropriate.
func (c collection[T]) values() []T {
	out := make([]T, 0, c.len())
	c.each(func(_ string, v T) bool {
		out = append(out, v)
		return true
	})
	return out
}
