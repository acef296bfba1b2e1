package memutil

import "testing"

func TestShred(t *testing.T) {
	t.Run("zeroes every byte", func(t *testing.T) {
		b := []byte("sensitive key material 0123456789")
		Shred(b)
		for i, v := range b {
			if v != 0 {
				t.Fatalf("byte %d not zeroed: 0x%02x", i, v)
			}
		}
	})

	t.Run("nil slice is a no-op", func(t *testing.T) {
		Shred(nil)
	})

	t.Run("empty slice is a no-op", func(t *testing.T) {
		Shred([]byte{})
	})
}
