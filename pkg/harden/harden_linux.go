//go:build linux

package harden

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// madvise flags not exposed as unix constants on every arch/kernel combo we
// build against.
const (
	madvDontDump   = 16 // MADV_DONTDUMP (kernel 3.4+)
	madvWipeOnFork = 18 // MADV_WIPEONFORK (kernel 4.14+)
)

// DisableCoreDumps provides comprehensive core dump prevention for the whole
// process. It combines prctl PR_SET_DUMPABLE, RLIMIT_CORE, and
// coredump_filter so no memory contents reach disk.
func DisableCoreDumps() error {
	// PR_SET_DUMPABLE=0 prevents core dump generation and restricts
	// /proc/pid/mem access from other processes.
	if err := unix.Prctl(unix.PR_SET_DUMPABLE, 0, 0, 0, 0); err != nil {
		return fmt.Errorf("harden: failed to set PR_SET_DUMPABLE: %w", err)
	}

	// RLIMIT_CORE=0 for belt-and-suspenders core dump prevention.
	rlimit := unix.Rlimit{Cur: 0, Max: 0}
	if err := unix.Setrlimit(unix.RLIMIT_CORE, &rlimit); err != nil {
		return fmt.Errorf("harden: failed to set RLIMIT_CORE to 0: %w", err)
	}

	// Disable dumping of all memory segment types.
	if err := os.WriteFile("/proc/self/coredump_filter", []byte("0"), 0); err != nil {
		// Non-fatal: this file may not be writable in all contexts.
		_ = err
	}

	return nil
}

// ExcludeFromDumps marks the pages backing b so they are omitted from core
// dumps and zeroed in forked children. The slice must be long-lived; Go's GC
// does not move objects, so the page range stays valid for the slice's
// lifetime.
func ExcludeFromDumps(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	alignedAddr, alignedLen := pageAlign(addr, uintptr(len(b)))

	if err := madvise(alignedAddr, alignedLen, madvDontDump); err != nil {
		return fmt.Errorf("harden: MADV_DONTDUMP: %w", err)
	}
	// Non-fatal: kernel may be < 4.14.
	_ = madvise(alignedAddr, alignedLen, madvWipeOnFork)

	return nil
}

// LockBuffer pins the pages backing b into RAM so they are never written to
// swap. Pair with UnlockBuffer before releasing the buffer.
func LockBuffer(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Mlock(b); err != nil {
		return fmt.Errorf("harden: mlock: %w", err)
	}
	return nil
}

// UnlockBuffer releases the residency pin taken by LockBuffer.
func UnlockBuffer(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Munlock(b); err != nil {
		return fmt.Errorf("harden: munlock: %w", err)
	}
	return nil
}

// pageAlign widens [addr, addr+length) to page boundaries as madvise requires.
func pageAlign(addr, length uintptr) (uintptr, uintptr) {
	pageSize := uintptr(unix.Getpagesize())
	alignedAddr := addr &^ (pageSize - 1)
	alignedLen := ((addr + length) - alignedAddr + pageSize - 1) &^ (pageSize - 1)
	return alignedAddr, alignedLen
}

func madvise(addr, length uintptr, advice int) error {
	if _, _, errno := unix.Syscall(unix.SYS_MADVISE, addr, length, uintptr(advice)); errno != 0 {
		return errno
	}
	return nil
}
