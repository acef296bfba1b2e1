// Package masked implements the masked-scalar primitive: an integer stored
// XORed against a co-resident random mask that is resampled on every write.
//
// A scanner sweeping process memory for a known value (a handle, a length,
// an offset) never finds the plain integer — only the pair (value^mask, mask)
// whose individual words look like noise and change on every write. This is
// the building block Mirage uses to hide layout metadata; it is not a secrecy
// mechanism on its own.
package masked

import (
	"golang.org/x/exp/constraints"

	"github.com/Real-Fruit-Snacks/Mirage/pkg/entropy"
)

// Scalar holds one unsigned integer XORed against a same-width random mask.
//
// The zero Scalar reads as 0. A Scalar is not safe for unsynchronized
// concurrent access; callers serialize (the obfuscated container's mutex
// covers every Scalar it owns).
type Scalar[T constraints.Unsigned] struct {
	val  T
	mask T
}

// Set stores v XORed with a freshly sampled mask, discarding the previous
// mask. Every write changes both words even when v is unchanged.
func (s *Scalar[T]) Set(src *entropy.Source, v T) {
	s.mask = T(src.Uint64())
	s.val = v ^ s.mask
}

// Get returns the unmasked value. It is a pure read: the mask is only
// resampled on Set.
func (s *Scalar[T]) Get() T {
	return s.val ^ s.mask
}
