//go:build !srwlock_nospin

package opt

// SpinCount_ bounds the exponential backoff of a contended acquire before it
// parks: round i spins 1<<i times, so at most 1<<SpinCount_ - 1 runtime spin rounds in total.
const SpinCount_ = 4
