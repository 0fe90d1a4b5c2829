// Package sample defines the data carried between entropy sources, the
// mixer, and the zeroizer: EntropySample and MixInput.
package sample

// SourceID names the closed set of entropy origins an EntropySample may
// be tagged with.
type SourceID string

const (
	SourceHwRng    SourceID = "hwrng"
	SourceRdSeed   SourceID = "rdseed"
	SourceRdRand   SourceID = "rdrand"
	SourceXStore   SourceID = "xstore"
	SourceHaveged  SourceID = "haveged"
	SourceFallback SourceID = "fallback"
)

// EntropySample is a freshly drawn byte string tagged with its origin.
// It is created by exactly one source, mutated by no one, and consumed
// by the mixer; the code that mixes it zeroizes it once the mixer has
// absorbed it (Mixer.Mix itself leaves its input untouched).
type EntropySample struct {
	Bytes  []byte
	Origin SourceID
}

// MixElement is one labeled byte string within a MixInput.
type MixElement struct {
	Label   string
	Payload []byte
}

// MixInput is an ordered list of labeled byte strings fed to the mixer.
// Labels within a single MixInput must be unique: this is a caller
// invariant, checkable with HasDuplicateLabels, not one Mixer.Mix
// enforces itself.
type MixInput struct {
	Elements []MixElement
}

// NewMixInput builds an empty MixInput.
func NewMixInput() *MixInput {
	return &MixInput{}
}

// Add appends a labeled payload, preserving absorption order.
func (m *MixInput) Add(label string, payload []byte) *MixInput {
	m.Elements = append(m.Elements, MixElement{Label: label, Payload: payload})
	return m
}

// HasDuplicateLabels reports whether any two elements share a label.
func (m *MixInput) HasDuplicateLabels() bool {
	seen := make(map[string]struct{}, len(m.Elements))
	for _, e := range m.Elements {
		if _, ok := seen[e.Label]; ok {
			return true
		}
		seen[e.Label] = struct{}{}
	}
	return false
}
