//go:build srwlock_cachelinesize_128 && !srwlock_cachelinesize_64

package opt

// CacheLineSize_ is forced to 128 bytes.
// Use: go build -tags=srwlock_cachelinesize_128
const CacheLineSize_ uintptr = 128
