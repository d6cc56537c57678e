// Package plancache holds prepared copy plans shared between copiers.
package plancache

import (
	"github.com/alphadose/haxmap"
	"github.com/cespare/xxhash/v2"
)

// Cache maps plan keys to immutable plans. It is safe for concurrent use.
type Cache[V any] struct {
	plans *haxmap.Map[uint64, V]
}

func New[V any]() *Cache[V] {
	return &Cache[V]{plans: haxmap.New[uint64, V]()}
}

// Get returns the plan stored under key.
func (c *Cache[V]) Get(key uint64) (V, bool) {
	return c.plans.Get(key)
}

// GetOrSet stores plan under key unless another plan is already present,
// and returns the plan that ends up cached.
func (c *Cache[V]) GetOrSet(key uint64, plan V) V {
	actual, _ := c.plans.GetOrSet(key, plan)
	return actual
}

func (c *Cache[V]) Len() int {
	return int(c.plans.Len())
}

// Key builds a cache key from the parts in order.
type Key struct {
	d *xxhash.Digest
}

func NewKey() *Key {
	return &Key{d: xxhash.New()}
}

func (k *Key) Uint64(v uint64) *Key {
	var b [8]byte
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
	_, _ = k.d.Write(b[:])
	return k
}

func (k *Key) String(s string) *Key {
	_, _ = k.d.WriteString(s)
	_, _ = k.d.Write([]byte{0})
	return k
}

func (k *Key) Sum() uint64 {
	return k.d.Sum64()
}
