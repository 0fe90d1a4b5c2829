// Package dispatch orders the entropy-source cascade and hands the
// winning source's sample to the mixer and Csprng, producing the
// final output bytes for one request.
package dispatch

import (
	"context"
	"sync"

	"github.com/mixrand/mixrand/internal/csprng"
	"github.com/mixrand/mixrand/internal/mix"
	"github.com/mixrand/mixrand/internal/mixerr"
	"github.com/mixrand/mixrand/internal/sample"
	"github.com/mixrand/mixrand/internal/source"
	"github.com/mixrand/mixrand/internal/trace"
	"github.com/mixrand/mixrand/internal/zeroize"
)

// standaloneSource is implemented by internal/source/cpurng.Source,
// whose oversample contract differs from the plain Source.Draw used
// by every other cascade member.
type standaloneSource interface {
	DrawStandalone(ctx context.Context, n int) (*sample.EntropySample, error)
}

// Stats counts how many requests each source has won or lost, for the
// daemon's SIGHUP reporting hook.
type Stats struct {
	mu      sync.Mutex
	Wins    map[sample.SourceID]uint64
	Skipped map[sample.SourceID]uint64
	Failed  map[sample.SourceID]uint64
}

func newStats() *Stats {
	return &Stats{
		Wins:    make(map[sample.SourceID]uint64),
		Skipped: make(map[sample.SourceID]uint64),
		Failed:  make(map[sample.SourceID]uint64),
	}
}

func (st *Stats) recordWin(id sample.SourceID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Wins[id]++
}

func (st *Stats) recordSkip(id sample.SourceID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Skipped[id]++
}

func (st *Stats) recordFail(id sample.SourceID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Failed[id]++
}

// Snapshot returns a copy of the current counters, safe to read while
// the dispatcher continues to serve requests concurrently.
func (st *Stats) Snapshot() (wins, skipped, failed map[sample.SourceID]uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	wins = make(map[sample.SourceID]uint64, len(st.Wins))
	skipped = make(map[sample.SourceID]uint64, len(st.Skipped))
	failed = make(map[sample.SourceID]uint64, len(st.Failed))
	for k, v := range st.Wins {
		wins[k] = v
	}
	for k, v := range st.Skipped {
		skipped[k] = v
	}
	for k, v := range st.Failed {
		failed[k] = v
	}
	return
}

// Dispatcher tries each source in priority order — HwRng, CpuRng,
// Haveged, Fallback — and mixes the winning source's sample into final
// output bytes. HwRng and Haveged samples are mixed alone, under their
// own label, since the spec treats a hardware or daemon-backed source
// as already sufficiently strong; CpuRng without HwRng present uses
// its own internal oversample-and-mix path; Fallback always succeeds
// and mixes several weak ingredients together.
type Dispatcher struct {
	hwrng    source.Source
	cpurng   source.Source
	haveged  source.Source
	fallback source.Source

	stats *Stats
}

// New builds a Dispatcher over the fixed cascade order. Any of hwrng,
// cpurng, or haveged may be nil when disabled by configuration;
// fallback must never be nil.
func New(hwrng, cpurng, haveged, fallback source.Source) *Dispatcher {
	return &Dispatcher{
		hwrng:    hwrng,
		cpurng:   cpurng,
		haveged:  haveged,
		fallback: fallback,
		stats:    newStats(),
	}
}

// Stats returns the dispatcher's running win/skip/fail counters.
func (d *Dispatcher) Stats() *Stats { return d.stats }

// Generate produces n bytes of output by trying each cascade member in
// order and mixing the first one that probes available.
func (d *Dispatcher) Generate(ctx context.Context, n int) ([]byte, error) {
	log := trace.FromContext(ctx).WithPrefix("DISPATCH")

	for _, s := range []source.Source{d.hwrng, d.cpurng, d.haveged} {
		if s == nil {
			continue
		}
		if !s.Probe(ctx) {
			d.stats.recordSkip(s.ID())
			log.Debugf("%s: not available, skipping", s.ID())
			continue
		}

		smp, err := d.drawFrom(ctx, s, n)
		if err != nil {
			d.stats.recordFail(s.ID())
			log.Warnf("%s: draw failed: %v", s.ID(), err)
			continue
		}

		d.stats.recordWin(smp.Origin)
		log.Infof("selected source %s for %d bytes", smp.Origin, n)
		return d.mixAlone(smp, n)
	}

	log.Infof("cascade exhausted, falling back")
	smp, err := d.fallback.Draw(ctx, n)
	if err != nil {
		d.stats.recordFail(d.fallback.ID())
		return nil, err
	}
	d.stats.recordWin(smp.Origin)
	return smp.Bytes, nil
}

// drawFrom calls DrawStandalone when s exposes the oversample contract
// (CpuRng used without HwRng ahead of it) and Draw otherwise.
func (d *Dispatcher) drawFrom(ctx context.Context, s source.Source, n int) (*sample.EntropySample, error) {
	if st, ok := s.(standaloneSource); ok && s == d.cpurng {
		return st.DrawStandalone(ctx, n)
	}
	return s.Draw(ctx, n)
}

// mixAlone wraps a single-source sample through the mixer and Csprng
// under its own origin label, so every cascade winner — not only
// Fallback — passes through the same domain-separated construction
// before leaving the process.
func (d *Dispatcher) mixAlone(smp *sample.EntropySample, n int) ([]byte, error) {
	switch smp.Origin {
	case sample.SourceFallback, sample.SourceRdSeed, sample.SourceRdRand, sample.SourceXStore:
		// Fallback's Draw and CpuRng's DrawStandalone already ran the
		// oversample-then-mix-then-expand construction internally;
		// mixing their output again would double-expand it under the
		// wrong label.
		return smp.Bytes, nil
	}
	in := sample.NewMixInput().Add(string(smp.Origin), smp.Bytes)
	seed := mix.New().Mix(in)
	zeroize.Bytes(smp.Bytes)
	out, err := csprng.ExpandSeed(seed, n)
	if err != nil {
		return nil, mixerr.New(mixerr.SourceFailed, "dispatch.mix", err)
	}
	return out, nil
}
