// Package memutil provides deterministic memory shredding helpers shared by
// the obfuscation packages and their tests.
package memutil

import "runtime"

// Shred overwrites b with zeros so released key and payload buffers leave
// nothing behind for a memory scanner. Inlining is disabled because the
// stores are never read back and the compiler would be free to drop them;
// the KeepAlive pins the backing array until the loop finishes.
//
//go:noinline
func Shred(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
