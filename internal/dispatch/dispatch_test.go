package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/mixrand/mixrand/internal/sample"
)

type fakeSource struct {
	id        sample.SourceID
	available bool
	failDraw  bool
}

func (f *fakeSource) ID() sample.SourceID { return f.id }
func (f *fakeSource) Probe(ctx context.Context) bool { return f.available }
func (f *fakeSource) Draw(ctx context.Context, n int) (*sample.EntropySample, error) {
	if f.failDraw {
		return nil, errors.New("draw failed")
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	return &sample.EntropySample{Bytes: buf, Origin: f.id}, nil
}

func TestGeneratePrefersFirstAvailable(t *testing.T) {
	hw := &fakeSource{id: sample.SourceHwRng, available: true}
	hv := &fakeSource{id: sample.SourceHaveged, available: true}
	fb := &fakeSource{id: sample.SourceFallback, available: true}

	d := New(hw, nil, hv, fb)
	out, err := d.Generate(context.Background(), 16)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(out) != 16 {
		t.Errorf("expected 16 bytes, got %d", len(out))
	}

	wins, _, _ := d.Stats().Snapshot()
	if wins[sample.SourceHwRng] != 1 {
		t.Errorf("expected hwrng to win, stats: %+v", wins)
	}
}

func TestGenerateSkipsUnavailableSources(t *testing.T) {
	hw := &fakeSource{id: sample.SourceHwRng, available: false}
	hv := &fakeSource{id: sample.SourceHaveged, available: false}
	fb := &fakeSource{id: sample.SourceFallback, available: true}

	d := New(hw, nil, hv, fb)
	out, err := d.Generate(context.Background(), 8)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(out) != 8 {
		t.Errorf("expected 8 bytes, got %d", len(out))
	}

	wins, skipped, _ := d.Stats().Snapshot()
	if wins[sample.SourceFallback] != 1 {
		t.Errorf("expected fallback to win, stats: %+v", wins)
	}
	if skipped[sample.SourceHwRng] != 1 || skipped[sample.SourceHaveged] != 1 {
		t.Errorf("expected hwrng and haveged to be recorded skipped, stats: %+v", skipped)
	}
}

func TestGenerateFallsThroughOnDrawFailure(t *testing.T) {
	hw := &fakeSource{id: sample.SourceHwRng, available: true, failDraw: true}
	fb := &fakeSource{id: sample.SourceFallback, available: true}

	d := New(hw, nil, nil, fb)
	out, err := d.Generate(context.Background(), 4)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(out) != 4 {
		t.Errorf("expected 4 bytes, got %d", len(out))
	}

	_, _, failed := d.Stats().Snapshot()
	if failed[sample.SourceHwRng] != 1 {
		t.Errorf("expected hwrng draw failure recorded, stats: %+v", failed)
	}
}

func TestMixAloneReturnsCpuRngStandaloneBytesUnmixed(t *testing.T) {
	d := New(nil, nil, nil, &fakeSource{id: sample.SourceFallback, available: true})
	for _, origin := range []sample.SourceID{sample.SourceRdSeed, sample.SourceRdRand, sample.SourceXStore} {
		smp := &sample.EntropySample{Bytes: []byte{1, 2, 3, 4}, Origin: origin}
		out, err := d.mixAlone(smp, 4)
		if err != nil {
			t.Fatalf("mixAlone(%s) failed: %v", origin, err)
		}
		if len(out) != len(smp.Bytes) {
			t.Fatalf("mixAlone(%s) changed length: got %d want %d", origin, len(out), len(smp.Bytes))
		}
		for i := range out {
			if out[i] != smp.Bytes[i] {
				t.Errorf("mixAlone(%s) re-mixed already-final bytes, got %v want %v", origin, out, smp.Bytes)
				break
			}
		}
	}
}

func TestMixAloneMixesHwRngAndHaveged(t *testing.T) {
	d := New(nil, nil, nil, &fakeSource{id: sample.SourceFallback, available: true})
	for _, origin := range []sample.SourceID{sample.SourceHwRng, sample.SourceHaveged} {
		smp := &sample.EntropySample{Bytes: []byte{1, 2, 3, 4}, Origin: origin}
		out, err := d.mixAlone(smp, 4)
		if err != nil {
			t.Fatalf("mixAlone(%s) failed: %v", origin, err)
		}
		if len(out) != 4 {
			t.Errorf("mixAlone(%s) = %d bytes, want 4", origin, len(out))
		}
	}
}
