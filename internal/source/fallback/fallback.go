// Package fallback implements the always-available composite entropy
// source: a handful of weak, individually insufficient signals
// (kernel urandom, procfs counters, scheduling jitter, an optional
// CPU-instruction sprinkle, and a Mersenne Twister stream seeded from
// crypto/rand) absorbed together through the mixer. Unlike the
// other sources, Fallback never reports unavailable — it is the
// cascade's last resort and must always produce output.
package fallback

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand"
	"os"
	"runtime"
	"time"

	"github.com/seehuhn/mt19937"

	"github.com/mixrand/mixrand/internal/csprng"
	"github.com/mixrand/mixrand/internal/mix"
	"github.com/mixrand/mixrand/internal/mixerr"
	"github.com/mixrand/mixrand/internal/sample"
	"github.com/mixrand/mixrand/internal/trace"
	"github.com/mixrand/mixrand/internal/zeroize"
)

// jitterSamples is how many high-resolution monotonic-clock deltas are
// collected, interleaved with dummy work to perturb scheduler timing.
const jitterSamples = 64

// procEntropySources are procfs files whose volatile kernel counters
// contribute a small amount of unpredictable state. Missing files are
// skipped silently; this list is best-effort, not a dependency.
var procEntropySources = []string{
	"/proc/stat",
	"/proc/interrupts",
	"/proc/meminfo",
	"/proc/self/stat",
}

// Sprinkler is implemented by internal/source/cpurng.Source, accepted
// here as an interface so Fallback doesn't import cpurng directly;
// cmd/mixrand passes its CpuRng source in through New.
type Sprinkler interface {
	SprinkleBytes() []byte
}

// Source implements source.Source as the cascade's unconditional last
// resort.
type Source struct {
	sprinkler Sprinkler
}

// New returns a Fallback source. sprinkler may be nil, in which case
// the cpurng-sprinkle contribution is simply omitted.
func New(sprinkler Sprinkler) *Source {
	return &Source{sprinkler: sprinkler}
}

func (s *Source) ID() sample.SourceID { return sample.SourceFallback }

// Probe always reports true: Fallback has no precondition besides the
// kernel's urandom device, which is assumed present on any supported
// platform.
func (s *Source) Probe(ctx context.Context) bool { return true }

// Draw collects urandom, procfs, jitter, mt19937, and (if available)
// cpurng-sprinkle contributions, absorbs them into the mixer in that
// declared order, zeroizes every payload once it has been absorbed,
// expands the resulting seed via Csprng to n bytes, and tags the
// result SourceFallback.
func (s *Source) Draw(ctx context.Context, n int) (*sample.EntropySample, error) {
	log := trace.FromContext(ctx).WithPrefix("FALLBACK")

	in := sample.NewMixInput()

	urandom := make([]byte, 32)
	if _, err := rand.Read(urandom); err != nil {
		return nil, mixerr.New(mixerr.SourceFailed, "fallback.urandom", err)
	}
	in.Add("urandom", urandom)

	in.Add("procfs", collectProcfs())
	in.Add("jitter", collectJitter())
	in.Add("mt19937", collectMT19937(32))

	if s.sprinkler != nil {
		if sprinkle := s.sprinkler.SprinkleBytes(); len(sprinkle) > 0 {
			in.Add("cpurng", sprinkle)
		}
	}

	seed := mix.New().Mix(in)
	for _, e := range in.Elements {
		zeroize.Bytes(e.Payload)
	}
	out, err := csprng.ExpandSeed(seed, n)
	if err != nil {
		return nil, mixerr.New(mixerr.SourceFailed, "fallback.expand", err)
	}

	log.Debugf("mixed %d elements into %d bytes", len(in.Elements), n)
	return &sample.EntropySample{Bytes: out, Origin: sample.SourceFallback}, nil
}

// collectProcfs hashes together whatever procEntropySources exist at
// the moment of the call. These counters change between invocations
// (tick counts, interrupt totals, free-memory figures) but carry very
// little entropy per byte; they are one ingredient among several, not
// relied on alone.
func collectProcfs() []byte {
	var buf []byte
	for _, path := range procEntropySources {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		buf = append(buf, data...)
	}
	if len(buf) == 0 {
		// Guarantee a non-empty element even if every procfs path was
		// unreadable (container without /proc, sandboxed runtime).
		buf = []byte("procfs-unavailable")
	}
	return buf
}

// collectJitter samples monotonic-clock deltas between bursts of
// trivial, data-dependent work, on the theory that scheduler and
// memory-subsystem jitter makes the low bits of each delta
// unpredictable to an outside observer even though no single delta
// carries much entropy.
func collectJitter() []byte {
	buf := make([]byte, 0, jitterSamples*8)
	var prev int64
	acc := uint64(1)
	for i := 0; i < jitterSamples; i++ {
		now := time.Now().UnixNano()
		delta := now - prev
		prev = now

		// Dummy work whose length varies with the LCG state acc,
		// so consecutive samples don't collapse to a fixed stride.
		for j := uint64(0); j < (acc%97)+1; j++ {
			acc = acc*6364136223846793005 + 1
		}
		runtime.Gosched()

		var word [8]byte
		binary.LittleEndian.PutUint64(word[:], uint64(delta)^acc)
		buf = append(buf, word[:]...)
	}
	return buf
}

// collectMT19937 draws n bytes from a Mersenne Twister stream reseeded
// from crypto/rand at construction, folded in as one more mixer
// ingredient. MT19937 is not cryptographically secure on its own; it
// contributes variety to the mix, not strength.
func collectMT19937(n int) []byte {
	var seedBytes [8]byte
	if _, err := rand.Read(seedBytes[:]); err != nil {
		return []byte(fmt.Sprintf("mt19937-unseeded-%d", n))
	}
	mt := mt19937.New()
	mt.Seed(int64(binary.LittleEndian.Uint64(seedBytes[:])))
	wrapper := mrand.New(mt)

	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(wrapper.Intn(256))
	}
	return buf
}
