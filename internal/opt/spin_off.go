//go:build srwlock_nospin

package opt

// SpinCount_ is zero: contended acquires queue immediately.
// Use: go build -tags=srwlock_nospin
const SpinCount_ = 0
