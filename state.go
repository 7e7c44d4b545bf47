package srwlock

import "math"

// The lock state is a single uint64.
//
//	| locked | queued | queueLocked | downgraded | rest  | meaning                                   |
//	|--------|--------|-------------|------------|-------|-------------------------------------------|
//	| 0      | 0      | 0           | 0          | 0     | unlocked, no waiters                      |
//	| 1      | 0      | 0           | 0          | 0     | write-locked, no waiters                  |
//	| 1      | 0      | 0           | 0          | n > 0 | read-locked by n readers                  |
//	| 0      | 1      | *           | 0          | node  | unlocked with waiters, only writers enter |
//	| 1      | 1      | *           | *          | node  | locked with waiters                       |
//
// When queued is set the remaining bits are a node reference (see nodeRef)
// to the queue head. If the lock is read-locked while waiters exist, the
// reader count lives in the next field of the queue tail.
const (
	locked      = 1
	queued      = 2
	queueLocked = 4
	downgraded  = 8
	single      = 16 // one reader

	stateBits = downgraded | queueLocked | queued | locked
	refMask   = ^uint64(stateBits)
	refShift  = 4

	maxReadState = math.MaxUint64 - single
)

// writeLock marks s as write-locked, if possible.
//
//go:nosplit
func writeLock(s uint64) (uint64, bool) {
	if s&locked == 0 {
		return s | locked, true
	}
	return s, false
}

// readLock adds a reader to s, if possible. Readers cannot enter while
// anybody is queued, which is what makes the lock writer-preferring.
//
//go:nosplit
func readLock(s uint64) (uint64, bool) {
	if s&queued == 0 && s != locked && s <= maxReadState {
		return (s + single) | locked, true
	}
	return s, false
}

// lockFor returns the state transition used by a reader or a writer.
func lockFor(write bool) func(uint64) (uint64, bool) {
	if write {
		return writeLock
	}
	return readLock
}

// readers returns the reader count encoded in an unqueued state.
func readers(s uint64) uint64 {
	return s >> refShift
}

// nodeRef encodes a node id in the position it occupies in the state word.
//
//go:nosplit
func nodeRef(id uint32) uint64 {
	return uint64(id) << refShift
}

//go:nosplit
func refID(ref uint64) uint32 {
	return uint32(ref >> refShift)
}
