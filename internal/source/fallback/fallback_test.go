package fallback

import (
	"context"
	"testing"
)

func TestProbeAlwaysAvailable(t *testing.T) {
	s := New(nil)
	if !s.Probe(context.Background()) {
		t.Errorf("expected Fallback to always be available")
	}
}

func TestDrawProducesRequestedLength(t *testing.T) {
	s := New(nil)
	smp, err := s.Draw(context.Background(), 48)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if len(smp.Bytes) != 48 {
		t.Errorf("expected 48 bytes, got %d", len(smp.Bytes))
	}
	if smp.Origin != "fallback" {
		t.Errorf("expected origin fallback, got %s", smp.Origin)
	}
}

type fakeSprinkler struct{ bytes []byte }

func (f *fakeSprinkler) SprinkleBytes() []byte { return f.bytes }

func TestDrawWithSprinklerStillProducesLength(t *testing.T) {
	s := New(&fakeSprinkler{bytes: []byte{1, 2, 3, 4}})
	smp, err := s.Draw(context.Background(), 24)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if len(smp.Bytes) != 24 {
		t.Errorf("expected 24 bytes, got %d", len(smp.Bytes))
	}
}

func TestDrawWithEmptySprinkleOmitsElement(t *testing.T) {
	s := New(&fakeSprinkler{bytes: nil})
	smp, err := s.Draw(context.Background(), 16)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if len(smp.Bytes) != 16 {
		t.Errorf("expected 16 bytes, got %d", len(smp.Bytes))
	}
}

func TestCollectJitterLength(t *testing.T) {
	j := collectJitter()
	if len(j) != jitterSamples*8 {
		t.Errorf("expected %d bytes of jitter, got %d", jitterSamples*8, len(j))
	}
}

func TestCollectMT19937Length(t *testing.T) {
	b := collectMT19937(20)
	if len(b) != 20 {
		t.Errorf("expected 20 bytes, got %d", len(b))
	}
}
