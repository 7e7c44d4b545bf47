package srwlock

import "github.com/llxisdsh/pb"

// RWLockGroup allows shared Reader-Writer locking on arbitrary keys.
//
// Features:
//   - RLock/RUnlock for shared read access.
//   - Lock/Unlock for exclusive write access, Downgrade to turn one into
//     the other.
//   - Infinite Keys & Auto-Cleanup: an entry lives only while somebody
//     holds or waits for its lock.
//
// Usage:
//
//	var group RWLockGroup[string]
//
//	// Readers
//	group.RLock("config")
//	read(config)
//	group.RUnlock("config")
//
//	// Writer
//	group.Lock("config")
//	write(config)
//	group.Unlock("config")
type RWLockGroup[K comparable] struct {
	_ noCopy
	m pb.MapOf[K, *rwLockGroupEntry]
}

type rwLockGroupEntry struct {
	mu RWLock
	// ref is guarded by the map entry.
	ref int32
}

type groupEntry[K comparable] = pb.EntryOf[K, *rwLockGroupEntry]

// acquire returns the entry for k, creating it if needed, and takes a
// reference on it.
func (g *RWLockGroup[K]) acquire(k K) *rwLockGroupEntry {
	v, _ := g.m.ProcessEntry(
		k,
		func(l *groupEntry[K]) (*groupEntry[K], *rwLockGroupEntry, bool) {
			if l != nil {
				l.Value.ref++
				return l, l.Value, true
			}
			val := &rwLockGroupEntry{ref: 1}
			return &groupEntry[K]{Value: val}, val, false
		},
	)
	return v
}

// release drops a reference on the entry for k, deleting it at zero.
func (g *RWLockGroup[K]) release(k K) {
	g.m.ProcessEntry(
		k,
		func(l *groupEntry[K]) (*groupEntry[K], *rwLockGroupEntry, bool) {
			if l == nil {
				return nil, nil, false
			}
			l.Value.ref--
			if l.Value.ref <= 0 {
				return nil, nil, true
			}
			return l, l.Value, true
		},
	)
}

func (g *RWLockGroup[K]) lookup(k K) (*rwLockGroupEntry, bool) {
	return g.m.ProcessEntry(
		k,
		func(l *groupEntry[K]) (*groupEntry[K], *rwLockGroupEntry, bool) {
			if l == nil {
				return nil, nil, false
			}
			return l, l.Value, true
		},
	)
}

// Lock acquires the write lock for k.
func (g *RWLockGroup[K]) Lock(k K) {
	g.acquire(k).mu.Lock()
}

// TryLock tries to acquire the write lock for k without blocking.
func (g *RWLockGroup[K]) TryLock(k K) bool {
	if g.acquire(k).mu.TryLock() {
		return true
	}
	g.release(k)
	return false
}

// Unlock releases the write lock for k.
func (g *RWLockGroup[K]) Unlock(k K) {
	v, ok := g.lookup(k)
	if !ok {
		return
	}
	v.mu.Unlock()
	g.release(k)
}

// RLock acquires a read lock for k.
func (g *RWLockGroup[K]) RLock(k K) {
	g.acquire(k).mu.RLock()
}

// TryRLock tries to acquire a read lock for k without blocking.
func (g *RWLockGroup[K]) TryRLock(k K) bool {
	if g.acquire(k).mu.TryRLock() {
		return true
	}
	g.release(k)
	return false
}

// RUnlock releases a read lock for k.
func (g *RWLockGroup[K]) RUnlock(k K) {
	v, ok := g.lookup(k)
	if !ok {
		return
	}
	v.mu.RUnlock()
	g.release(k)
}

// Downgrade turns the write lock held for k into a read lock, to be
// released with RUnlock.
func (g *RWLockGroup[K]) Downgrade(k K) {
	if v, ok := g.lookup(k); ok {
		v.mu.Downgrade()
	}
}
