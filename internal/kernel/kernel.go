// Package kernel talks to the Linux kernel's entropy pool: reading the
// current estimate from procfs and injecting fresh entropy through the
// RNDADDENTROPY ioctl on /dev/random, exactly the two operations the
// replenishment daemon's control loop needs.
package kernel

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/mixrand/mixrand/internal/mixerr"
)

// EntropyAvailPath is the procfs counter the daemon polls each cycle.
const EntropyAvailPath = "/proc/sys/kernel/random/entropy_avail"

// RandomDevicePath is opened for writing to issue RNDADDENTROPY.
const RandomDevicePath = "/dev/random"

// ReadEntropyAvail returns the kernel's current estimate of available
// entropy, in bits, from procfs.
func ReadEntropyAvail() (int, error) {
	data, err := os.ReadFile(EntropyAvailPath)
	if err != nil {
		return 0, mixerr.New(mixerr.SourceFailed, "kernel.entropy_avail", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, mixerr.New(mixerr.SourceFailed, "kernel.entropy_avail", fmt.Errorf("parse %q: %w", data, err))
	}
	return n, nil
}

// randPoolInfo mirrors the kernel's struct rand_pool_info, the payload
// RNDADDENTROPY expects: a claimed entropy credit in bits followed by
// the byte buffer being mixed into the pool.
//
//	struct rand_pool_info {
//	    int    entropy_count;
//	    int    buf_size;
//	    __u32  buf[0];
//	};
type randPoolInfo struct {
	entropyCount int32
	bufSize      int32
	buf          []byte
}

// marshal lays randPoolInfo out exactly as the kernel expects: two
// little-endian int32 header fields immediately followed by buf,
// padded to a whole number of uint32 words.
func (r *randPoolInfo) marshal() []byte {
	padded := (len(r.buf) + 3) &^ 3
	out := make([]byte, 8+padded)
	binary.LittleEndian.PutUint32(out[0:4], uint32(r.entropyCount))
	binary.LittleEndian.PutUint32(out[4:8], uint32(r.bufSize))
	copy(out[8:], r.buf)
	return out
}

// Injector holds an open handle to /dev/random for repeated
// RNDADDENTROPY calls across the daemon's lifetime.
type Injector struct {
	f *os.File
}

// OpenInjector opens /dev/random for writing. EACCES/EPERM is
// reported as mixerr.PrivilegeDenied, since RNDADDENTROPY requires
// CAP_SYS_ADMIN.
func OpenInjector() (*Injector, error) {
	f, err := os.OpenFile(RandomDevicePath, os.O_WRONLY, 0)
	if err != nil {
		if os.IsPermission(err) {
			return nil, mixerr.New(mixerr.PrivilegeDenied, "kernel.open", err)
		}
		return nil, mixerr.New(mixerr.SourceFailed, "kernel.open", err)
	}
	return &Injector{f: f}, nil
}

// Close releases the underlying file handle.
func (in *Injector) Close() error { return in.f.Close() }

// Inject credits entropyBits worth of the given bytes to the kernel
// pool via RNDADDENTROPY. The kernel trusts the caller's entropy_count
// claim; callers must have already computed a conservative estimate
// (see daemon.creditBits) before calling this.
func (in *Injector) Inject(bytes []byte, entropyBits int) error {
	info := &randPoolInfo{
		entropyCount: int32(entropyBits),
		bufSize:      int32(len(bytes)),
		buf:          bytes,
	}
	payload := info.marshal()

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, in.f.Fd(), uintptr(unix.RNDADDENTROPY), uintptr(unsafe.Pointer(&payload[0])))
	if errno == unix.EACCES || errno == unix.EPERM {
		return mixerr.New(mixerr.PrivilegeDenied, "kernel.inject", errno)
	}
	if errno != 0 {
		return mixerr.New(mixerr.KernelInjectFailed, "kernel.inject", errno)
	}
	return nil
}
