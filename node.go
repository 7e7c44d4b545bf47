package srwlock

import (
	"sync/atomic"
	"unsafe"

	"github.com/llxisdsh/srwlock/internal/opt"
)

// node represents a goroutine waiting on a lock queue.
//
// Goroutine stacks move and the state word is an integer the GC does not
// trace, so nodes cannot live on the waiter's stack. They live in a global
// arena instead and are named by a 32-bit id. A node is owned by the
// goroutine that acquired it from the arena until it gives it back.
type node struct {
	nodeFields
	_ [(opt.CacheLineSize_ - unsafe.Sizeof(nodeFields{})%opt.CacheLineSize_) % opt.CacheLineSize_]byte
}

type nodeFields struct {
	// next, prev and tail hold node references (0 is nil). While the lock
	// is read-locked the next field of the queue tail holds the reader
	// count instead, in the same encoding as the state word.
	next atomic.Uint64
	prev atomic.Uint64
	tail atomic.Uint64

	completed atomic.Bool
	// sema parks the owning goroutine.
	sema opt.Sema

	write bool
	// linked is set while the node is reachable from a lock's queue.
	// Only the owner touches it.
	linked bool

	// free links released nodes in the arena free list.
	free atomic.Uint32
}

const (
	chunkShift = 8
	chunkSize  = 1 << chunkShift
	maxChunks  = 1 << 14
	maxNodes   = chunkSize * maxChunks
)

type nodeChunk [chunkSize]node

// arena hands out nodes. Chunks are allocated on demand and never freed,
// so a node reference stays dereferenceable forever, even after the node
// went back to the free list.
var arena struct {
	chunks    [maxChunks]atomic.Pointer[nodeChunk]
	allocated atomic.Uint32
	// free is the free list head: ABA tag in the high 32 bits, node id in
	// the low 32 bits.
	free atomic.Uint64
}

// nodeAt resolves a non-nil node reference.
//
//go:nosplit
func nodeAt(ref uint64) *node {
	return nodeByID(refID(ref))
}

//go:nosplit
func nodeByID(id uint32) *node {
	return &arena.chunks[id>>chunkShift].Load()[id&(chunkSize-1)]
}

// acquireNode takes a node from the free list, or carves a new one out of
// the arena.
func acquireNode() (uint64, *node) {
	for {
		head := arena.free.Load()
		id := uint32(head)
		if id == 0 {
			break
		}
		n := nodeByID(id)
		next := uint64(n.free.Load())
		if arena.free.CompareAndSwap(head, (head>>32+1)<<32|next) {
			return nodeRef(id), n
		}
	}

	id := arena.allocated.Add(1) // id 0 is nil
	if id >= maxNodes {
		fatal("too many blocked goroutines")
	}
	slot := &arena.chunks[id>>chunkShift]
	c := slot.Load()
	if c == nil {
		c = new(nodeChunk)
		if !slot.CompareAndSwap(nil, c) {
			c = slot.Load()
		}
	}
	return nodeRef(id), &c[id&(chunkSize-1)]
}

// releaseNode gives n back to the arena. A node that may still be reached
// through a queue must never be reused.
func releaseNode(ref uint64, n *node) {
	if n.linked {
		fatal("queue node released while still linked")
	}
	id := uint64(refID(ref))
	for {
		head := arena.free.Load()
		n.free.Store(uint32(head))
		if arena.free.CompareAndSwap(head, (head>>32+1)<<32|id) {
			return
		}
	}
}

// prepare readies n for another round of waiting.
func (n *node) prepare() {
	n.completed.Store(false)
	n.prev.Store(0)
}

// wait parks until n is completed. Only the owner may call it.
//
// The semaphore may hold a stale release left over from the previous use of
// this node; it only causes a spurious wakeup.
func (n *node) wait() {
	for !n.completed.Load() {
		n.sema.Acquire()
	}
}

// complete marks the node as completed and wakes its owner. The owner may
// reuse the node as soon as completed is set; arena nodes are never freed,
// so the release afterwards is harmless.
func complete(ref uint64) {
	n := nodeAt(ref)
	n.completed.Store(true)
	n.sema.Release()
}
