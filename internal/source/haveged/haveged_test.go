package haveged

import (
	"context"
	"testing"
)

func TestID(t *testing.T) {
	if New().ID() != "haveged" {
		t.Errorf("unexpected ID: %s", New().ID())
	}
}

func TestProbeDoesNotPanicWithoutProcfs(t *testing.T) {
	// isHavegedRunning degrades to false if /proc can't be listed; this
	// only checks Probe completes and returns a bool either way.
	s := New()
	_ = s.Probe(context.Background())
}

func TestIsHavegedRunningMatchesExactName(t *testing.T) {
	// Exercises the scan logic directly; a plain unit test environment
	// is very unlikely to have a process literally named "haveged", so
	// this just asserts the function runs to completion.
	_ = isHavegedRunning()
}
