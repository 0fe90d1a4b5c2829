//go:build !amd64

package cpurng

// On non-amd64 platforms no CPU RNG instruction exists; every hook
// reports absent so Source.Probe degrades the cascade to Haveged or
// Fallback, per the portability requirement that only this source is
// architecture-specific.

func platformHasRDSEED() bool { return false }
func platformHasRDRAND() bool { return false }
func platformHasXSTORE() bool { return false }

func platformStepRDSEED() (uint64, bool)            { return 0, false }
func platformStepRDRAND() (uint64, bool)            { return 0, false }
func platformStepXSTORE(quality int) (uint64, bool) { return 0, false }
