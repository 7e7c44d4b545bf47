package benchmark

import (
	"sync"

	"github.com/llxisdsh/srwlock"
	"github.com/puzpuzpuz/xsync/v4"
)

// ============================================================================
// Lock Adapters
// ============================================================================

type LockInterface interface {
	Read(fn func())
	Write(fn func())
}

type srwLockAdapter struct{ mu srwlock.RWLock }

func (a *srwLockAdapter) Read(fn func()) {
	a.mu.RLock()
	fn()
	a.mu.RUnlock()
}

func (a *srwLockAdapter) Write(fn func()) {
	a.mu.Lock()
	fn()
	a.mu.Unlock()
}

// srwDowngradeAdapter releases writes through Downgrade, letting queued
// readers in before the writer leaves.
type srwDowngradeAdapter struct{ mu srwlock.RWLock }

func (a *srwDowngradeAdapter) Read(fn func()) {
	a.mu.RLock()
	fn()
	a.mu.RUnlock()
}

func (a *srwDowngradeAdapter) Write(fn func()) {
	a.mu.Lock()
	fn()
	a.mu.Downgrade()
	a.mu.RUnlock()
}

type syncRWMutexAdapter struct{ mu sync.RWMutex }

func (a *syncRWMutexAdapter) Read(fn func()) {
	a.mu.RLock()
	fn()
	a.mu.RUnlock()
}

func (a *syncRWMutexAdapter) Write(fn func()) {
	a.mu.Lock()
	fn()
	a.mu.Unlock()
}

type xsyncRBMutexAdapter struct{ mu *xsync.RBMutex }

func (a *xsyncRBMutexAdapter) Read(fn func()) {
	t := a.mu.RLock()
	fn()
	a.mu.RUnlock(t)
}

func (a *xsyncRBMutexAdapter) Write(fn func()) {
	a.mu.Lock()
	fn()
	a.mu.Unlock()
}

var lockAdapters = []struct {
	name string
	make func() LockInterface
}{
	{"srwlock", func() LockInterface { return &srwLockAdapter{} }},
	{"srwlock_downgrade", func() LockInterface { return &srwDowngradeAdapter{} }},
	{"sync.RWMutex", func() LockInterface { return &syncRWMutexAdapter{} }},
	{"xsync.RBMutex", func() LockInterface { return &xsyncRBMutexAdapter{mu: xsync.NewRBMutex()} }},
}
