package srwlock

import (
	"runtime"
	_ "unsafe" // for linkname
)

// noCopy may be added to structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
//
// Note that it must not be embedded, due to the Lock and Unlock methods.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Spinning on a single CPU only delays the goroutine we are waiting for.
var canSpin = runtime.NumCPU() > 1

// backoff busy-waits for round r of an exponential backoff.
func backoff(r int) {
	n := 1 << r
	for range n {
		runtime_doSpin()
	}
}

// nolint:all
//
//go:linkname runtime_doSpin sync.runtime_doSpin
//goland:noinspection ALL
func runtime_doSpin()

// fatalError is the panic value of an unrecoverable lock failure.
type fatalError string

func (e fatalError) Error() string {
	return "srwlock: " + string(e)
}

// fatal crashes the process. The panic is raised on its own goroutine so
// that no recover on the caller's stack can swallow it.
func fatal(msg string) {
	//goland:noinspection All
	go panic(fatalError(msg))
	select {}
}
