/*
Package sync provides a parallel map, similar to the concurrent map of Go's
standard library, however here with a focus on parallel performance under
many simultaneous writers.

A Map is split into several partial maps that are locked individually, so
that accesses to keys in different splits never block each other. The comm
package uses it for the registry of message links, which every rank
populates lazily and concurrently.

For other synchronization primitives, such as condition variables, mutual
exclusion locks, or atomic memory primitives, please use the standard
library.
*/
package sync

import (
	"runtime"
	"sync"
)

/*
A Hasher represents an object that has a hash value, which is needed
by Map.
*/
type Hasher interface {
	comparable
	Hash() uint64
}

/*
A Split is a partial map that belongs to a larger Map, which can be
individually locked.
*/
type Split[K Hasher, V any] struct {
	sync.RWMutex
	Map map[K]V
}

/*
A Map is a parallel map that consists of several split maps that can
be individually locked and accessed.

The zero Map is not valid.
*/
type Map[K Hasher, V any] struct {
	splits []Split[K, V]
}

/*
NewMap returns a map with size splits.

If size is <= 0, runtime.GOMAXPROCS(0) is used instead.
*/
func NewMap[K Hasher, V any](size int) *Map[K, V] {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	splits := make([]Split[K, V], size)
	for i := range splits {
		splits[i].Map = make(map[K]V)
	}
	return &Map[K, V]{splits}
}

func (m *Map[K, V]) split(key K) *Split[K, V] {
	return &m.splits[key.Hash()%uint64(len(m.splits))]
}

// Delete deletes the value for a key.
func (m *Map[K, V]) Delete(key K) {
	split := m.split(key)
	split.Lock()
	delete(split.Map, key)
	split.Unlock()
}

/*
Load returns the value stored in the map for a key, or the zero value if
no value is present. The ok result indicates whether value was found in
the map.
*/
func (m *Map[K, V]) Load(key K) (value V, ok bool) {
	split := m.split(key)
	split.RLock()
	value, ok = split.Map[key]
	split.RUnlock()
	return
}

/*
LoadOrCompute returns the existing value for the key if
present. Otherwise, it calls computer, and then stores and returns the
computed value. The loaded result is true if the value was loaded,
false if stored.

The computer function is invoked either zero times or once. While
computer is executing no locks related to this map are being held.

The computed value may not be stored and returned, since a parallel
goroutine may have successfully stored a value for the key in the
meantime. In that case, the value stored by the parallel goroutine is
returned instead.
*/
func (m *Map[K, V]) LoadOrCompute(key K, computer func() V) (actual V, loaded bool) {
	split := m.split(key)
	split.RLock()
	actual, loaded = split.Map[key]
	split.RUnlock()
	if loaded {
		return
	}
	value := computer()
	split.Lock()
	if actual, loaded = split.Map[key]; !loaded {
		actual = value
		split.Map[key] = actual
	}
	split.Unlock()
	return
}

/*
Range calls f sequentially for each key and value present in the
map. If f returns false, Range stops the iteration.

Range does not necessarily correspond to any consistent snapshot of
the Map's contents: no key will be visited more than once, but if the
value for any key is stored or deleted concurrently, Range may reflect
any mapping for that key from any point during the Range call.
*/
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	for i := range m.splits {
		if !m.splits[i].splitRange(f) {
			return
		}
	}
}

func (split *Split[K, V]) splitRange(f func(key K, value V) bool) bool {
	split.RLock()
	defer split.RUnlock()
	for key, value := range split.Map {
		if !f(key, value) {
			return false
		}
	}
	return true
}

// Len returns the number of keys in the map.
func (m *Map[K, V]) Len() (n int) {
	for i := range m.splits {
		split := &m.splits[i]
		split.RLock()
		n += len(split.Map)
		split.RUnlock()
	}
	return
}
