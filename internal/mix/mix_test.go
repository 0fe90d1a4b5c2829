package mix

import (
	"bytes"
	"testing"

	"github.com/mixrand/mixrand/internal/sample"
)

func TestMixIsDeterministic(t *testing.T) {
	in := sample.NewMixInput().Add("a", []byte("hello")).Add("b", []byte("world"))
	s1 := New().Mix(in)
	s2 := New().Mix(in)
	if !bytes.Equal(s1.Bytes(), s2.Bytes()) {
		t.Errorf("Mix not deterministic for equal inputs")
	}
}

func TestMixSeedLength(t *testing.T) {
	in := sample.NewMixInput().Add("only", []byte("x"))
	s := New().Mix(in)
	if len(s.Bytes()) != SeedSize {
		t.Errorf("expected seed length %d, got %d", SeedSize, len(s.Bytes()))
	}
}

func TestMixLengthBinding(t *testing.T) {
	// "ab"+"c" must not collide with "a"+"bc": the length prefix on each
	// payload should defeat naive concatenation canonicalization.
	in1 := sample.NewMixInput().Add("x", []byte("ab")).Add("y", []byte("c"))
	in2 := sample.NewMixInput().Add("x", []byte("a")).Add("y", []byte("bc"))
	s1 := New().Mix(in1)
	s2 := New().Mix(in2)
	if bytes.Equal(s1.Bytes(), s2.Bytes()) {
		t.Errorf("expected different seeds for differently-split payloads")
	}
}

func TestMixLabelSeparation(t *testing.T) {
	in1 := sample.NewMixInput().Add("a", []byte("payload"))
	in2 := sample.NewMixInput().Add("b", []byte("payload"))
	s1 := New().Mix(in1)
	s2 := New().Mix(in2)
	if bytes.Equal(s1.Bytes(), s2.Bytes()) {
		t.Errorf("expected different seeds for different labels over the same payload")
	}
}

func TestMixOrderSensitive(t *testing.T) {
	in1 := sample.NewMixInput().Add("a", []byte("1")).Add("b", []byte("2"))
	in2 := sample.NewMixInput().Add("b", []byte("2")).Add("a", []byte("1"))
	s1 := New().Mix(in1)
	s2 := New().Mix(in2)
	if bytes.Equal(s1.Bytes(), s2.Bytes()) {
		t.Errorf("expected order of absorption to affect the seed")
	}
}

func TestReleaseZeroizesSeed(t *testing.T) {
	in := sample.NewMixInput().Add("a", []byte("z"))
	s := New().Mix(in)
	s.Release()
	for _, v := range s.Bytes() {
		if v != 0 {
			t.Errorf("expected seed zeroized after Release")
			break
		}
	}
}
