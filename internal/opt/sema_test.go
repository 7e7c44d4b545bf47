package opt

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSema_BlockUnblock(t *testing.T) {
	var s Sema

	done := make(chan struct{})
	go func() {
		s.Acquire()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Acquire returned before Release")
	case <-time.After(50 * time.Millisecond):
	}

	s.Release()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after Release")
	}
}

func TestSema_ReleaseBeforeAcquire(t *testing.T) {
	var s Sema

	// A release with nobody parked must be remembered.
	s.Release()
	require.Equal(t, Sema(1), s)

	done := make(chan struct{})
	go func() {
		s.Acquire()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("early Release was lost")
	}
	require.Equal(t, Sema(0), s)
}

func TestSema_MultipleWaiters(t *testing.T) {
	var s Sema
	var wg sync.WaitGroup
	n := 10
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			s.Acquire()
		}()
	}

	time.Sleep(50 * time.Millisecond)
	for range n {
		s.Release()
	}

	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("Not all waiters woke up")
	}
}

func TestTuningConstants(t *testing.T) {
	require.GreaterOrEqual(t, CacheLineSize_, uintptr(32))
	require.Zero(t, CacheLineSize_&(CacheLineSize_-1), "cache line size must be a power of two")
	require.GreaterOrEqual(t, SpinCount_, 0)
	require.Less(t, SpinCount_, 16)
}
