package srwlock

// Value is a T guarded by an RWLock.
//
// Update lets a writer publish a change and keep reading the result
// without a window in which another writer could slip in.
//
// The zero value holds the zero T and is ready to use.
type Value[T any] struct {
	_  noCopy
	mu RWLock
	v  T
}

// NewValue returns a Value holding v.
func NewValue[T any](v T) *Value[T] {
	return &Value[T]{v: v}
}

// Load returns a copy of the value, taken under the read lock.
func (v *Value[T]) Load() T {
	v.mu.RLock()
	x := v.v
	v.mu.RUnlock()
	return x
}

// Store replaces the value under the write lock.
func (v *Value[T]) Store(x T) {
	v.mu.Lock()
	v.v = x
	v.mu.Unlock()
}

// Read calls fn with the value under the read lock. fn must not modify
// the value or keep the pointer.
func (v *Value[T]) Read(fn func(*T)) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	fn(&v.v)
}

// TryRead is like Read but returns false instead of blocking.
func (v *Value[T]) TryRead(fn func(*T)) bool {
	if !v.mu.TryRLock() {
		return false
	}
	defer v.mu.RUnlock()
	fn(&v.v)
	return true
}

// Write calls fn with the value under the write lock.
func (v *Value[T]) Write(fn func(*T)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(&v.v)
}

// TryWrite is like Write but returns false instead of blocking.
func (v *Value[T]) TryWrite(fn func(*T)) bool {
	if !v.mu.TryLock() {
		return false
	}
	defer v.mu.Unlock()
	fn(&v.v)
	return true
}

// Update calls fn under the write lock, downgrades to a read lock and
// returns the value fn left behind. Blocked readers are let in as soon as
// fn returns; no writer can run between fn and the snapshot.
func (v *Value[T]) Update(fn func(*T)) T {
	v.mu.Lock()
	shared := false
	defer func() {
		if shared {
			v.mu.RUnlock()
		} else {
			v.mu.Unlock()
		}
	}()
	fn(&v.v)
	v.mu.Downgrade()
	shared = true
	return v.v
}
