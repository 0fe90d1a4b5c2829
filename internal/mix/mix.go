// Package mix implements the domain-separated, length-prefixed mixing
// pipeline that turns a MixInput into a 32-byte Seed. It is pure: given
// equal ordered inputs it always produces the same Seed, and it cannot
// fail.
package mix

import (
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/blake2b"

	"github.com/mixrand/mixrand/internal/sample"
	"github.com/mixrand/mixrand/internal/zeroize"
)

// SeedSize is the fixed output length of the mixer.
const SeedSize = 32

// personalization fixes this construction to mixrand, keyed into
// BLAKE2b. golang.org/x/crypto/blake2b does not expose the RFC 7693
// personalization parameter directly, so the tag is folded in as the
// BLAKE2b key (limited to 64 bytes, which "mixrand/v1" comfortably
// fits); this gives the same domain-separation guarantee the spec asks
// for — two different personalization tags over identical label/length/
// payload streams can never collide — without needing an unexported
// field from the library.
var personalization = []byte("mixrand/v1")

// Seed is the 32-byte output of Mixer.Mix. It is single-use: Release
// zeroizes it after the Csprng has been seeded from it.
type Seed struct {
	bytes [SeedSize]byte
}

// Bytes exposes the seed for keying the Csprng. Callers must not retain
// the returned slice past the Seed's Release.
func (s *Seed) Bytes() []byte { return s.bytes[:] }

// Release zeroizes the seed. Call exactly once after the seed has been
// consumed.
func (s *Seed) Release() {
	zeroize.Bytes(s.bytes[:])
}

// Mixer absorbs a MixInput into a 32-byte Seed.
//
//	H = BLAKE2b-256(key = "mixrand/v1")
//	for each (label, payload) in order:
//	    absorb(label bytes)
//	    absorb(le_u64(len(payload)))
//	    absorb(payload)
//	Seed = H.finalize()
//
// Length prefixing defeats canonicalization attacks where two different
// input lists could produce identical absorbed byte streams; labels
// provide domain separation so the same payload in a different role
// cannot collide.
type Mixer struct{}

// New returns a ready-to-use Mixer. Mixer carries no state, so the
// zero value also works; New exists for symmetry with the other
// component constructors.
func New() *Mixer { return &Mixer{} }

// Mix absorbs in of an input and returns its Seed. Mix never fails:
// blake2b.New256 with a fixed, in-range key cannot error, and there is
// no I/O on this path.
func (m *Mixer) Mix(in *sample.MixInput) *Seed {
	h, err := blake2b.New256(personalization)
	if err != nil {
		// Unreachable: personalization is a fixed 10-byte key, well
		// under blake2b's 64-byte key limit.
		panic("mix: blake2b initialization failed: " + err.Error())
	}

	var lenBuf [8]byte
	for _, elem := range in.Elements {
		absorb(h, []byte(elem.Label))
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(elem.Payload)))
		absorb(h, lenBuf[:])
		absorb(h, elem.Payload)
	}

	sum := h.Sum(nil)
	seed := &Seed{}
	copy(seed.bytes[:], sum)
	zeroize.Bytes(sum)
	return seed
}

func absorb(h hash.Hash, b []byte) {
	// hash.Hash.Write never returns an error per its documented contract.
	_, _ = h.Write(b)
}
