// Package hwrng reads from the kernel hardware-RNG character device.
// It is the highest-priority source in the cascade: when a hardware
// RNG is wired to the kernel (TPM, on-board TRNG), this reads straight
// from it before anything else is tried.
package hwrng

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mixrand/mixrand/internal/mixerr"
	"github.com/mixrand/mixrand/internal/sample"
	"github.com/mixrand/mixrand/internal/trace"
)

// DevicePath is the well-known character device for the kernel hardware RNG.
const DevicePath = "/dev/hwrng"

// maxShortReadRetries bounds how many short reads we tolerate before
// declaring the source failed.
const maxShortReadRetries = 8

// Source implements source.Source against /dev/hwrng.
type Source struct{}

// New returns a hardware-RNG source.
func New() *Source { return &Source{} }

func (s *Source) ID() sample.SourceID { return sample.SourceHwRng }

// Probe reports whether the device can be opened. Open failure (not
// present, permission denied) makes the source unavailable; Probe does
// not attempt to read.
func (s *Source) Probe(ctx context.Context) bool {
	f, err := os.Open(DevicePath)
	if err != nil {
		trace.FromContext(ctx).WithPrefix("HWRNG").Debugf("unavailable: %v", err)
		return false
	}
	f.Close()
	return true
}

// Draw reads exactly n bytes from /dev/hwrng, retrying short reads up
// to maxShortReadRetries times before reporting SourceFailed.
func (s *Source) Draw(ctx context.Context, n int) (*sample.EntropySample, error) {
	log := trace.FromContext(ctx).WithPrefix("HWRNG")

	f, err := os.Open(DevicePath)
	if err != nil {
		return nil, mixerr.New(mixerr.SourceUnavailable, "hwrng.open", err)
	}
	defer f.Close()

	buf := make([]byte, n)
	read := 0
	retries := 0
	for read < n {
		m, err := f.Read(buf[read:])
		read += m
		if read == n {
			break
		}
		if err == io.EOF {
			retries++
		} else if err != nil {
			return nil, mixerr.New(mixerr.SourceFailed, "hwrng.read", err)
		} else if m == 0 {
			retries++
		}
		if retries > maxShortReadRetries {
			return nil, mixerr.New(mixerr.SourceFailed, "hwrng.read",
				fmt.Errorf("exhausted %d short-read retries at %d/%d bytes", maxShortReadRetries, read, n))
		}
	}

	log.Debugf("read %d bytes from %s", n, DevicePath)
	return &sample.EntropySample{Bytes: buf, Origin: sample.SourceHwRng}, nil
}
