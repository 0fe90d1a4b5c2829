// Package cpurng drives the x86_64 RDSEED/RDRAND/XSTORE instructions
// directly, gated by CPUID feature detection, with bounded per-word
// retries and fallthrough among enabled instructions. On non-amd64
// platforms every instruction reports unavailable and the source
// degrades to SourceUnavailable, per the spec's portability
// requirement that only this source is architecture-specific.
package cpurng

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mixrand/mixrand/internal/config"
	"github.com/mixrand/mixrand/internal/csprng"
	"github.com/mixrand/mixrand/internal/mix"
	"github.com/mixrand/mixrand/internal/mixerr"
	"github.com/mixrand/mixrand/internal/sample"
	"github.com/mixrand/mixrand/internal/trace"
	"github.com/mixrand/mixrand/internal/zeroize"
)

type instruction int

const (
	instrRdseed instruction = iota
	instrRdrand
	instrXstore
)

func (i instruction) String() string {
	switch i {
	case instrRdseed:
		return "rdseed"
	case instrRdrand:
		return "rdrand"
	case instrXstore:
		return "xstore"
	default:
		return "unknown"
	}
}

// Source implements source.Source over the CPU's hardware RNG
// instructions. It is also usable standalone (oversample path) when
// the dispatcher selects it directly as the primary source.
type Source struct {
	cfg config.CpuRngConfig

	enabled map[instruction]bool
	order   []instruction
}

// New builds a CpuRng source from cfg, probing CPUID/vendor once at
// construction and disabling any instruction the config masks off even
// if the hardware advertises it.
func New(cfg config.CpuRngConfig) *Source {
	s := &Source{cfg: cfg, enabled: make(map[instruction]bool, 3)}

	s.enabled[instrRdseed] = cfg.EnableRdseed && platformHasRDSEED()
	s.enabled[instrRdrand] = cfg.EnableRdrand && platformHasRDRAND()
	s.enabled[instrXstore] = cfg.EnableXstore && platformHasXSTORE()

	preferred := instrRdseed
	switch cfg.Prefer {
	case "rdrand":
		preferred = instrRdrand
	case "xstore":
		preferred = instrXstore
	}

	// Fallthrough order: preferred first, then the remaining two in a
	// fixed order so behavior is deterministic across runs.
	rest := []instruction{instrRdseed, instrRdrand, instrXstore}
	s.order = append(s.order, preferred)
	for _, in := range rest {
		if in != preferred {
			s.order = append(s.order, in)
		}
	}

	return s
}

// ID names the source for dispatcher logging. The EntropySample itself
// carries the more precise per-word origin (rdseed/rdrand/xstore) set
// by Draw and DrawStandalone.
func (s *Source) ID() sample.SourceID { return sample.SourceRdSeed }

// Probe reports whether at least one instruction is both enabled by
// config and present per CPUID/vendor check.
func (s *Source) Probe(ctx context.Context) bool {
	for _, in := range s.order {
		if s.enabled[in] {
			return true
		}
	}
	trace.FromContext(ctx).WithPrefix("CPURNG").Debugf("no enabled CPU RNG instruction available")
	return false
}

// AnyAvailable reports whether any instruction is usable, for callers
// (Fallback's cpurng-sprinkle) that only need a yes/no without drawing.
func (s *Source) AnyAvailable() bool {
	for _, in := range s.order {
		if s.enabled[in] {
			return true
		}
	}
	return false
}

// word draws one 64-bit word, falling through enabled instructions in
// preference order starting at s.order. It returns the instruction
// that produced the word, for tagging the resulting EntropySample.
func (s *Source) word() (uint64, instruction, error) {
	for _, in := range s.order {
		if !s.enabled[in] {
			continue
		}
		val, ok := s.stepWithRetries(in)
		if ok {
			return val, in, nil
		}
	}
	return 0, 0, fmt.Errorf("all enabled CPU RNG instructions exhausted their retry budget")
}

func (s *Source) stepWithRetries(in instruction) (uint64, bool) {
	switch in {
	case instrRdseed:
		for i := 0; i < s.cfg.RdseedRetries; i++ {
			if v, ok := platformStepRDSEED(); ok {
				return v, true
			}
		}
	case instrRdrand:
		for i := 0; i < s.cfg.RdrandRetries; i++ {
			if v, ok := platformStepRDRAND(); ok {
				return v, true
			}
		}
	case instrXstore:
		// XSTORE has no documented retry-count knob; reuse the RDRAND
		// bound, since the quality selector (not retry count) is what
		// tunes its output.
		for i := 0; i < s.cfg.RdrandRetries; i++ {
			if v, ok := platformStepXSTORE(s.cfg.XstoreQuality); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// drawRaw fills n bytes by repeatedly drawing 64-bit words, failing the
// whole draw if any single word exhausts every enabled instruction's
// retry budget. The destination words are treated as write-only and
// cleared on an exhausted word before returning, so no partial,
// possibly-biased word escapes on failure.
func (s *Source) drawRaw(n int) ([]byte, sample.SourceID, error) {
	buf := make([]byte, n)
	var lastOrigin sample.SourceID = sample.SourceRdSeed
	var word [8]byte
	i := 0
	for i < n {
		v, in, err := s.word()
		if err != nil {
			zeroize.Bytes(buf)
			return nil, "", err
		}
		switch in {
		case instrRdseed:
			lastOrigin = sample.SourceRdSeed
		case instrRdrand:
			lastOrigin = sample.SourceRdRand
		case instrXstore:
			lastOrigin = sample.SourceXStore
		}
		binary.LittleEndian.PutUint64(word[:], v)
		copy(buf[i:], word[:])
		i += 8
	}
	zeroize.Bytes(word[:])
	return buf[:n], lastOrigin, nil
}

// Draw reads n bytes of raw CPU-instruction output and tags them with
// whichever instruction produced the final word. The bytes are neither
// mixed nor expanded. The dispatcher does not call Draw for this
// source: it calls DrawStandalone, which implements the oversample
// contract, and passes rdseed/rdrand/xstore-tagged samples through
// without mixing them again.
func (s *Source) Draw(ctx context.Context, n int) (*sample.EntropySample, error) {
	buf, origin, err := s.drawRaw(n)
	if err != nil {
		return nil, mixerr.New(mixerr.SourceFailed, "cpurng.draw", err)
	}
	trace.FromContext(ctx).WithPrefix("CPURNG").Debugf("drew %d raw bytes via %s", n, origin)
	return &sample.EntropySample{Bytes: buf, Origin: origin}, nil
}

// DrawStandalone implements the oversample contract: when CpuRng is
// used as the primary source (HwRng unavailable), request
// oversample*n bytes of raw CPU output and hash-compress them into n
// bytes via the mixer + Csprng, labeling the mix input
// "cpurng-oversample".
func (s *Source) DrawStandalone(ctx context.Context, n int) (*sample.EntropySample, error) {
	log := trace.FromContext(ctx).WithPrefix("CPURNG")

	raw, origin, err := s.drawRaw(s.cfg.Oversample * n)
	if err != nil {
		return nil, mixerr.New(mixerr.SourceFailed, "cpurng.oversample", err)
	}

	in := sample.NewMixInput().Add("cpurng-oversample", raw)
	seed := mix.New().Mix(in)
	zeroize.Bytes(raw)

	out, err := csprng.ExpandSeed(seed, n)
	if err != nil {
		return nil, mixerr.New(mixerr.SourceFailed, "cpurng.expand", err)
	}

	log.Debugf("oversampled %d->%d bytes via %s", s.cfg.Oversample*n, n, origin)
	return &sample.EntropySample{Bytes: out, Origin: origin}, nil
}

// SprinkleBytes returns FallbackMixBytes bytes of raw CPU entropy for
// Fallback's "cpurng-sprinkle" contribution. Any failure here is
// silently dropped to an empty slice, per spec.
func (s *Source) SprinkleBytes() []byte {
	if s.cfg.FallbackMixBytes == 0 || !s.AnyAvailable() {
		return nil
	}
	raw, _, err := s.drawRaw(s.cfg.FallbackMixBytes)
	if err != nil {
		return nil
	}
	return raw
}
