// Package haveged detects a running instance of the userland entropy
// daemon (haveged) by scanning process metadata in procfs, and if one
// is running, draws from the kernel's blocking random device on the
// theory that haveged is actively feeding it.
package haveged

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mixrand/mixrand/internal/mixerr"
	"github.com/mixrand/mixrand/internal/sample"
	"github.com/mixrand/mixrand/internal/trace"
)

// ProcessName is the name haveged registers under /proc/<pid>/comm.
const ProcessName = "haveged"

// DevicePath is the kernel's blocking random device.
const DevicePath = "/dev/random"

// maxTotalWait bounds how long Draw will wait cumulatively for data
// from the blocking device before declaring the source failed.
const maxTotalWait = 2 * time.Second

// Source implements source.Source by degrading to /dev/random only
// when haveged's process is actually present. Detection is advisory:
// haveged can be running but stalled, which Draw's timeout handles
// independently by degrading to SourceFailed rather than hanging the
// cascade.
type Source struct{}

// New returns a haveged-gated source.
func New() *Source { return &Source{} }

func (s *Source) ID() sample.SourceID { return sample.SourceHaveged }

// Probe scans /proc for a process named "haveged". No file beyond
// /proc/<pid>/comm is opened if no such process is found, so an
// absent daemon costs one directory listing plus one comm read per
// process.
func (s *Source) Probe(ctx context.Context) bool {
	found := isHavegedRunning()
	if !found {
		trace.FromContext(ctx).WithPrefix("HAVEGED").Debugf("no haveged process found")
	}
	return found
}

func isHavegedRunning() bool {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue // not a pid directory
		}
		comm, err := os.ReadFile(filepath.Join("/proc", e.Name(), "comm"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) == ProcessName {
			return true
		}
	}
	return false
}

// Draw reads n bytes from /dev/random, bounded by maxTotalWait. A short
// read once the deadline passes is reported as SourceFailed so the
// cascade degrades to Fallback instead of blocking indefinitely.
func (s *Source) Draw(ctx context.Context, n int) (*sample.EntropySample, error) {
	log := trace.FromContext(ctx).WithPrefix("HAVEGED")

	f, err := os.Open(DevicePath)
	if err != nil {
		return nil, mixerr.New(mixerr.SourceFailed, "haveged.open", err)
	}
	defer f.Close()

	deadline := time.Now().Add(maxTotalWait)
	// Bound each blocking read as well, not only the gaps between reads.
	_ = f.SetReadDeadline(deadline)
	buf := make([]byte, n)
	read := 0
	for read < n {
		if time.Now().After(deadline) {
			return nil, mixerr.New(mixerr.SourceFailed, "haveged.read",
				fmt.Errorf("blocking device did not yield %d bytes within %s", n, maxTotalWait))
		}
		m, err := f.Read(buf[read:])
		read += m
		if err == io.EOF && read < n {
			continue
		}
		if err != nil && err != io.EOF {
			return nil, mixerr.New(mixerr.SourceFailed, "haveged.read", err)
		}
	}

	log.Debugf("read %d bytes from %s", n, DevicePath)
	return &sample.EntropySample{Bytes: buf, Origin: sample.SourceHaveged}, nil
}
