//go:build !linux

package harden

// DisableCoreDumps is a no-op off Linux.
func DisableCoreDumps() error { return nil }

// ExcludeFromDumps is a no-op off Linux.
func ExcludeFromDumps(b []byte) error { return nil }

// LockBuffer is a no-op off Linux.
func LockBuffer(b []byte) error { return nil }

// UnlockBuffer is a no-op off Linux.
func UnlockBuffer(b []byte) error { return nil }
