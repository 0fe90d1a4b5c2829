package csprng

import (
	"bytes"
	"testing"

	"github.com/mixrand/mixrand/internal/mix"
	"github.com/mixrand/mixrand/internal/sample"
)

func seedFrom(t *testing.T, label string, payload []byte) *mix.Seed {
	t.Helper()
	in := sample.NewMixInput().Add(label, payload)
	return mix.New().Mix(in)
}

func TestExpandSeedLength(t *testing.T) {
	out, err := ExpandSeed(seedFrom(t, "a", []byte("seed-material")), 100)
	if err != nil {
		t.Fatalf("ExpandSeed failed: %v", err)
	}
	if len(out) != 100 {
		t.Errorf("expected 100 bytes, got %d", len(out))
	}
}

func TestExpandSeedDeterministic(t *testing.T) {
	out1, err := ExpandSeed(seedFrom(t, "a", []byte("same")), 64)
	if err != nil {
		t.Fatalf("ExpandSeed failed: %v", err)
	}
	out2, err := ExpandSeed(seedFrom(t, "a", []byte("same")), 64)
	if err != nil {
		t.Fatalf("ExpandSeed failed: %v", err)
	}
	if !bytes.Equal(out1, out2) {
		t.Errorf("expected identical expansion for identical seeds")
	}
}

func TestExpandSeedDifferentInputsDiverge(t *testing.T) {
	out1, _ := ExpandSeed(seedFrom(t, "a", []byte("one")), 32)
	out2, _ := ExpandSeed(seedFrom(t, "a", []byte("two")), 32)
	if bytes.Equal(out1, out2) {
		t.Errorf("expected divergent expansion for different seed material")
	}
}

func TestExpandIsPrefixStable(t *testing.T) {
	st, err := NewState(seedFrom(t, "a", []byte("stream")))
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}
	defer st.Close()

	first := st.ExpandN(16)

	st2, err := NewState(seedFrom(t, "a", []byte("stream")))
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}
	defer st2.Close()
	prefix := st2.ExpandN(32)[:16]

	if !bytes.Equal(first, prefix) {
		t.Errorf("expected a fresh 16-byte expansion to equal the first 16 bytes of a 32-byte expansion from the same seed")
	}
}

func TestCloseZeroizesKey(t *testing.T) {
	st, err := NewState(seedFrom(t, "a", []byte("key-to-wipe")))
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}
	st.Close()
	for _, b := range st.key {
		if b != 0 {
			t.Errorf("expected key zeroized after Close")
			break
		}
	}
}
