package masked

import (
	"math"
	"testing"

	"github.com/Real-Fruit-Snacks/Mirage/pkg/entropy"
)

func TestScalarRoundTrip(t *testing.T) {
	src := entropy.NewSource([32]byte{1})

	t.Run("uint64 values survive set/get", func(t *testing.T) {
		var s Scalar[uint64]
		for _, v := range []uint64{0, 1, 496, math.MaxUint64, 0xDEADBEEF} {
			s.Set(src, v)
			if got := s.Get(); got != v {
				t.Fatalf("got %d, want %d", got, v)
			}
		}
	})

	t.Run("uint8 values survive set/get", func(t *testing.T) {
		var s Scalar[uint8]
		for v := 0; v <= math.MaxUint8; v++ {
			s.Set(src, uint8(v))
			if got := s.Get(); got != uint8(v) {
				t.Fatalf("got %d, want %d", got, v)
			}
		}
	})

	t.Run("uint32 values survive set/get", func(t *testing.T) {
		var s Scalar[uint32]
		for _, v := range []uint32{0, 31, math.MaxUint32} {
			s.Set(src, v)
			if got := s.Get(); got != v {
				t.Fatalf("got %d, want %d", got, v)
			}
		}
	})
}

func TestScalarMaskBehavior(t *testing.T) {
	src := entropy.NewSource([32]byte{2})

	t.Run("stored word differs from plain value", func(t *testing.T) {
		// With a random 64-bit mask the raw word equals the plain value only
		// when the mask is zero; try a few writes so a single unlucky draw
		// cannot fail the test.
		var s Scalar[uint64]
		const v = uint64(0x1122334455667788)
		hidden := false
		for i := 0; i < 8; i++ {
			s.Set(src, v)
			if s.val != v {
				hidden = true
				break
			}
		}
		if !hidden {
			t.Fatal("raw stored word matched the plain value on every write")
		}
	})

	t.Run("mask is resampled on every Set", func(t *testing.T) {
		var s Scalar[uint64]
		s.Set(src, 42)
		m1 := s.mask
		s.Set(src, 42)
		m2 := s.mask
		s.Set(src, 42)
		m3 := s.mask
		if m1 == m2 && m2 == m3 {
			t.Fatal("mask unchanged across three writes")
		}
	})

	t.Run("Get does not mutate the mask", func(t *testing.T) {
		var s Scalar[uint32]
		s.Set(src, 12345)
		m := s.mask
		for i := 0; i < 10; i++ {
			if s.Get() != 12345 {
				t.Fatal("Get changed the stored value")
			}
		}
		if s.mask != m {
			t.Fatal("Get resampled the mask")
		}
	})

	t.Run("zero Scalar reads as zero", func(t *testing.T) {
		var s Scalar[uint64]
		if s.Get() != 0 {
			t.Fatalf("zero value Get = %d", s.Get())
		}
	})
}
