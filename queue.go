package srwlock

// The waiter queue is a linked list of nodes, newest first:
//
//	state
//	  │
//	  ▼
//	╭───────╮ next ╭───────╮ next ╭───────╮ next ╭───────╮
//	│       ├─────►│       ├─────►│       ├─────►│ count │
//	│       │      │       │      │       │      │       │
//	│       │      │       │◄─────┤       │◄─────┤       │
//	╰───────╯      ╰───────╯ prev ╰───────╯ prev ╰───────╯
//	      │                                          ▲
//	      └──────────────────────────────────────────┘
//	                         tail
//
// New nodes are pushed with a single CAS, so only next is set on insertion.
// Backlinks and the cached tail are filled in lazily by whoever walks the
// queue next. Invariants:
//  1. At least one node has a non-nil tail.
//  2. The first non-nil tail, walking from the head, is current.
//  3. Every node before that one has a valid next.
//  4. Every node after it has a valid prev.

// addBacklinksAndFindTail walks the queue from head to the first node with a
// known tail, adding backlinks on the way, and caches the tail in head.
//
// Several goroutines may run it at once as long as the queue is not
// modified meanwhile, which happens when multiple readers unlock.
func addBacklinksAndFindTail(head uint64) uint64 {
	current := head
	var tail uint64
	for {
		c := nodeAt(current)
		if tail = c.tail.Load(); tail != 0 {
			break
		}
		// Invariant 3: next is valid up to the first set tail.
		next := c.next.Load()
		nodeAt(next).prev.Store(current)
		current = next
	}
	nodeAt(head).tail.Store(tail)
	return tail
}

// completeAll wakes every node of a fully linked queue, starting at tail.
// The caller must own the queue exclusively.
func completeAll(tail uint64) {
	current := tail
	for {
		// A completed node may be reused at once, read prev first.
		prev := nodeAt(current).prev.Load()
		complete(current)
		if prev == 0 {
			return
		}
		current = prev
	}
}
