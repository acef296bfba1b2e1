package harden

import "testing"

// The protections here are best-effort and environment-dependent (container
// runtimes, RLIMIT_MEMLOCK, kernel version), so the tests assert that the
// calls behave sanely — no panics, buffers untouched — rather than that every
// syscall succeeds.

func TestExcludeFromDumps(t *testing.T) {
	t.Run("empty slice is a no-op", func(t *testing.T) {
		if err := ExcludeFromDumps(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("does not modify buffer contents", func(t *testing.T) {
		b := make([]byte, 4096)
		for i := range b {
			b[i] = byte(i)
		}
		_ = ExcludeFromDumps(b) // may fail on exotic kernels; contents must survive either way
		for i := range b {
			if b[i] != byte(i) {
				t.Fatalf("byte %d changed to 0x%02x", i, b[i])
			}
		}
	})
}

func TestLockUnlockBuffer(t *testing.T) {
	t.Run("empty slice is a no-op", func(t *testing.T) {
		if err := LockBuffer(nil); err != nil {
			t.Fatalf("LockBuffer(nil): %v", err)
		}
		if err := UnlockBuffer(nil); err != nil {
			t.Fatalf("UnlockBuffer(nil): %v", err)
		}
	})

	t.Run("lock then unlock round-trip", func(t *testing.T) {
		b := make([]byte, 1024)
		if err := LockBuffer(b); err != nil {
			// RLIMIT_MEMLOCK may be 0 in CI sandboxes.
			t.Skipf("mlock unavailable: %v", err)
		}
		if err := UnlockBuffer(b); err != nil {
			t.Fatalf("UnlockBuffer: %v", err)
		}
	})
}

func TestDisableCoreDumps(t *testing.T) {
	// Irreversible for the test process but harmless: tests never dump core.
	if err := DisableCoreDumps(); err != nil {
		t.Skipf("core dump hardening unavailable: %v", err)
	}
}
