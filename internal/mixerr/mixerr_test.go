package mixerr

import (
	"errors"
	"testing"
)

func TestErrorFormatsWithCause(t *testing.T) {
	e := New(SourceFailed, "hwrng.read", errors.New("short read"))
	want := "SourceFailed: hwrng.read: short read"
	if e.Error() != want {
		t.Errorf("got %q, want %q", e.Error(), want)
	}
}

func TestErrorFormatsWithoutCause(t *testing.T) {
	e := New(ConfigInvalid, "config.count", nil)
	want := "ConfigInvalid: config.count"
	if e.Error() != want {
		t.Errorf("got %q, want %q", e.Error(), want)
	}
}

func TestIsMatchesWrappedKind(t *testing.T) {
	base := New(PrivilegeDenied, "kernel.open", errors.New("eacces"))
	wrapped := errors.New("outer: " + base.Error())
	if Is(wrapped, PrivilegeDenied) {
		t.Errorf("plain string wrapping should not satisfy Is")
	}
	if !Is(base, PrivilegeDenied) {
		t.Errorf("expected Is to match the error's own kind")
	}
	if Is(base, SourceFailed) {
		t.Errorf("expected Is to reject a non-matching kind")
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{New(ConfigInvalid, "op", nil), 2},
		{New(PrivilegeDenied, "op", nil), 3},
		{New(SourceFailed, "op", nil), 1},
		{errors.New("unstructured"), 1},
	}
	for _, c := range cases {
		if got := ExitCode(c.err); got != c.want {
			t.Errorf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestKindString(t *testing.T) {
	if SourceUnavailable.String() != "SourceUnavailable" {
		t.Errorf("unexpected Kind.String(): %s", SourceUnavailable.String())
	}
}
