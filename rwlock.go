package srwlock

import (
	"sync"
	"sync/atomic"

	"github.com/llxisdsh/srwlock/internal/opt"
)

// RWLock is an adaptive, queue-based Reader-Writer lock.
//
// Contended acquirers spin for a bounded time and then add themselves to a
// lock-free queue of waiters and park. The goroutine releasing the lock
// walks that queue and decides whom to wake.
//
// Properties:
//   - Adaptive: spins with exponential backoff before parking.
//   - Allocation-free: waiter nodes are recycled from a global arena.
//   - Writer-preferring: readers do not enter while anybody is queued,
//     though some readers may still slip through.
//   - Unfair: woken goroutines compete with newcomers, which reduces
//     context switches.
//   - Downgrade: a writer can turn its lock into a read lock without
//     ever letting the lock appear unlocked.
//
// The zero value is an unlocked lock. A RWLock must not be copied after
// first use.
//
// Size: 8 bytes.
type RWLock struct {
	_     noCopy
	state atomic.Uint64
}

// TryRLock tries to acquire a read lock without blocking and reports
// whether it succeeded.
func (rw *RWLock) TryRLock() bool {
	for {
		s := rw.state.Load()
		next, ok := readLock(s)
		if !ok {
			return false
		}
		if rw.state.CompareAndSwap(s, next) {
			return true
		}
	}
}

// RLock acquires a read lock.
func (rw *RWLock) RLock() {
	if !rw.TryRLock() {
		rw.lockContended(false)
	}
}

// TryLock tries to acquire the write lock without blocking and reports
// whether it succeeded.
func (rw *RWLock) TryLock() bool {
	// A single atomic OR cannot fail spuriously when a waiter is pushed
	// concurrently, unlike a CAS loop.
	return rw.state.Or(locked)&locked == 0
}

// Lock acquires the write lock.
func (rw *RWLock) Lock() {
	if !rw.TryLock() {
		rw.lockContended(true)
	}
}

func (rw *RWLock) lockContended(write bool) {
	var (
		ref uint64
		n   *node
	)
	defer func() {
		// Reached with n still linked only when unwinding out of wait.
		if n != nil {
			releaseNode(ref, n)
		}
	}()

	update := lockFor(write)
	s := rw.state.Load()
	var spins int
	for {
		if next, ok := update(s); ok {
			if rw.state.CompareAndSwap(s, next) {
				return
			}
			s = rw.state.Load()
			continue
		}
		if s&queued == 0 && spins < opt.SpinCount_ && canSpin {
			backoff(spins)
			spins++
			s = rw.state.Load()
			continue
		}

		if n == nil {
			ref, n = acquireNode()
			n.write = write
		}
		n.prepare()

		// Link to the current head. If nobody is queued yet this stores the
		// reader count, or zero when write-locked.
		n.next.Store(s & refMask)
		// A pending downgrade request must survive the push.
		next := ref | queued | s&(downgraded|locked)

		var queueLockTaken bool
		if s&queued == 0 {
			// First node: it is its own tail (invariants 1 and 2).
			n.tail.Store(ref)
		} else {
			n.tail.Store(0)
			// Try to lock the queue to add backlinks eagerly.
			next |= queueLocked
			queueLockTaken = s&queueLocked == 0
		}

		n.linked = true
		if !rw.state.CompareAndSwap(s, next) {
			n.linked = false
			s = rw.state.Load()
			continue
		}

		if queueLockTaken {
			rw.unlockQueue(next)
		}

		n.wait()
		n.linked = false

		s = rw.state.Load()
		spins = 0
	}
}

// RUnlock undoes a single RLock call.
// It is a run-time error if rw is not locked for reading on entry.
func (rw *RWLock) RUnlock() {
	s := rw.state.Load()
	for {
		var next uint64
		switch {
		case s&locked == 0 || s == locked:
			fatal("RUnlock of unlocked RWLock")
		case s&queued == 0:
			if count := s - (single | locked); count > 0 {
				next = count | locked
			}
		case s&downgraded != 0:
			// This goroutine downgraded, but the downgrade has not been
			// carried out yet, so it still holds the lock exclusively.
			// Retract the request and unlock; the queue lock holder wakes
			// the waiters.
			next = s - (downgraded | locked)
		default:
			// Waiters are queued and the count moved to the queue tail.
			rw.readUnlockContended(s)
			return
		}
		if rw.state.CompareAndSwap(s, next) {
			return
		}
		s = rw.state.Load()
	}
}

func (rw *RWLock) readUnlockContended(s uint64) {
	// New readers cannot enter while waiters are queued and no downgrade is
	// pending, so queue lock holders see locked set and leave the queue
	// alone. It is safe to walk it here.
	tail := nodeAt(addBacklinksAndFindTail(s & refMask))

	// The last reader out owns the lock exclusively and releases it.
	if tail.next.Add(^uint64(single-1)) == 0 {
		rw.unlockContended(s)
	}
}

// Unlock unlocks rw for writing.
// It is a run-time error if rw is not locked for writing on entry.
func (rw *RWLock) Unlock() {
	if rw.state.CompareAndSwap(locked, 0) {
		return
	}
	// Nobody else can take the lock, so the state only changed because
	// waiters were queued.
	s := rw.state.Load()
	if s&(queued|locked) != queued|locked {
		fatal("Unlock of RWLock not locked for writing")
	}
	rw.unlockContended(s)
}

// unlockContended releases an exclusively held lock that has waiters, and
// hands the queue to whoever holds the queue lock.
func (rw *RWLock) unlockContended(s uint64) {
	for {
		next := s &^ locked
		if s&queueLocked != 0 {
			// The queue lock holder wakes waiters for us.
			if rw.state.CompareAndSwap(s, next) {
				return
			}
		} else {
			next |= queueLocked
			if rw.state.CompareAndSwap(s, next) {
				rw.unlockQueue(next)
				return
			}
		}
		s = rw.state.Load()
	}
}

// Downgrade atomically turns the write lock held by the caller into a read
// lock. Waiters are woken; writers among them go back to waiting until the
// read lock is released.
// It is a run-time error if rw is not locked for writing on entry.
func (rw *RWLock) Downgrade() {
	if rw.state.CompareAndSwap(locked, single|locked) {
		return
	}
	s := rw.state.Load()
	if s&(downgraded|queued|locked) != queued|locked {
		fatal("Downgrade of RWLock not locked for writing")
	}
	rw.downgradeSlow(s)
}

func (rw *RWLock) downgradeSlow(s uint64) {
	for {
		if s&queueLocked != 0 {
			// Ask the queue lock holder to wake all waiters. Should it not
			// get to it before we unlock, RUnlock sees downgraded still set
			// and knows the lock was never shared.
			if rw.state.CompareAndSwap(s, s|downgraded) {
				return
			}
			s = rw.state.Load()
			continue
		}

		// Take the whole queue by swapping in a single reader.
		if !rw.state.CompareAndSwap(s, single|locked) {
			s = rw.state.Load()
			continue
		}
		completeAll(addBacklinksAndFindTail(s & refMask))
		return
	}
}

// unlockQueue releases the queue lock held by the caller. If a downgrade was
// requested it wakes everybody, otherwise, if the lock is free, it wakes the
// next waiter or group of waiters.
func (rw *RWLock) unlockQueue(s uint64) {
	for {
		head := s & refMask
		tail := addBacklinksAndFindTail(head)

		if s&(downgraded|locked) == locked {
			// Somebody holds the lock and did not ask for a downgrade.
			// Waking is up to them.
			if rw.state.CompareAndSwap(s, s&^queueLocked) {
				return
			}
			s = rw.state.Load()
			continue
		}

		// Holding the queue lock while the lock is free or being downgraded
		// gives us exclusive control over the queue.
		downgrade := s&downgraded != 0
		tn := nodeAt(tail)
		if prev := tn.prev.Load(); !downgrade && tn.write && prev != 0 {
			// The next waiter is a writer: split it off and wake only it.
			// No tail is set before head, so invariant 2 holds; backlinks
			// were just added, so invariant 4 holds.
			nodeAt(head).tail.Store(prev)

			// The lock may have been taken and a downgrade requested
			// meanwhile.
			if !rw.state.CompareAndSwap(s, s&^queueLocked) {
				// Nobody could have observed the split, undo it.
				nodeAt(head).tail.Store(tail)
				s = rw.state.Load()
				continue
			}
			complete(tail)
			return
		}

		// Downgrading, a reader is next, or there is a single waiter:
		// wake everybody.
		var next uint64
		if downgrade {
			next = single | locked
		}
		if !rw.state.CompareAndSwap(s, next) {
			s = rw.state.Load()
			continue
		}
		// The CAS proves no node was added since tail was computed.
		completeAll(tail)
		return
	}
}

// RLocker returns a [sync.Locker] interface that implements
// the [sync.Locker.Lock] and [sync.Locker.Unlock] methods by calling rw.RLock and rw.RUnlock.
func (rw *RWLock) RLocker() sync.Locker {
	return (*rlocker)(rw)
}

type rlocker RWLock

func (r *rlocker) Lock()   { (*RWLock)(r).RLock() }
func (r *rlocker) Unlock() { (*RWLock)(r).RUnlock() }
