// Package csprng expands a 32-byte Seed into an arbitrary-length byte
// stream using ChaCha20, following the same construction the example
// pack's ChaCha20Rand uses (crypto/rand-seeded key, all-zero nonce,
// counter from zero), here driven by a mixer Seed instead of
// crypto/rand directly.
package csprng

import (
	"fmt"

	"golang.org/x/crypto/chacha20"

	"github.com/mixrand/mixrand/internal/mix"
	"github.com/mixrand/mixrand/internal/zeroize"
)

// State is a keyed ChaCha20 stream: 256-bit key, 96-bit nonce fixed to
// zero, 64-bit block counter starting at zero. No two States in the
// same process share a key, since keys only ever come from a fresh
// mix.Seed. Each State is used exactly once per request; its key
// material is zeroized on Close.
type State struct {
	stream *chacha20.Cipher
	key    [32]byte
}

// NewState keys a fresh ChaCha20 stream from seed and releases seed
// once the key material has been copied in.
func NewState(seed *mix.Seed) (*State, error) {
	s := &State{}
	copy(s.key[:], seed.Bytes())
	seed.Release()

	nonce := make([]byte, chacha20.NonceSize) // all-zero, fixed by construction
	stream, err := chacha20.NewUnauthenticatedCipher(s.key[:], nonce)
	if err != nil {
		zeroize.Bytes(s.key[:])
		return nil, fmt.Errorf("csprng: initialize ChaCha20: %w", err)
	}
	s.stream = stream
	return s, nil
}

// Expand fills out with the next len(out) bytes of keystream.
func (s *State) Expand(out []byte) {
	for i := range out {
		out[i] = 0
	}
	s.stream.XORKeyStream(out, out)
}

// ExpandN returns a freshly allocated n-byte prefix of the keystream.
func (s *State) ExpandN(n int) []byte {
	out := make([]byte, n)
	s.Expand(out)
	return out
}

// Close zeroizes the key. The stream itself retains no recoverable key
// material once the backing array is wiped, since chacha20.Cipher only
// holds derived round-key state, not a reference to s.key.
func (s *State) Close() {
	zeroize.Bytes(s.key[:])
}

// ExpandSeed is the common one-shot path used by every source: seed,
// expand n bytes, zeroize the key, return the bytes.
func ExpandSeed(seed *mix.Seed, n int) ([]byte, error) {
	st, err := NewState(seed)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.ExpandN(n), nil
}
