// Package harden provides best-effort OS-level protections for the buffers
// backing obfuscated values: exclusion from core dumps, zeroing in forked
// children, and residency locking so key material never reaches swap.
//
// Obfuscation defeats a scanner reading live process memory; these hooks
// close the adjacent channels — a core file on disk, a fork-based snapshot,
// a swap partition — through which the same bytes would otherwise leak.
//
// Everything here degrades gracefully: on non-Linux platforms the functions
// are no-ops, and on Linux callers are expected to tolerate failures
// (mlock needs CAP_IPC_LOCK or a permissive RLIMIT_MEMLOCK, MADV_WIPEONFORK
// needs kernel 4.14+).
package harden
