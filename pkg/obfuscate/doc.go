// Package obfuscate provides typed containers whose contents cannot be
// located by a memory scanner pattern-matching for a known value.
//
// A stored value never sits in memory in the clear. On every assignment the
// container serializes the value, XORs it against a freshly generated random
// key, pads it with random noise on both sides, and hides both the key and
// the ciphered payload behind randomized chains of indirection cells
// (pkg/chain). The metadata needed to reverse the process — sizes, offsets,
// hop counts, chain heads — is itself XOR-masked (pkg/masked) and stored at
// runtime-randomized slot positions interleaved with pointer-shaped decoys,
// so neither a value signature nor a struct-offset signature survives.
//
// This is obfuscation, not encryption: anyone who can read the entire address
// space and reimplement the decoding rule recovers the value. The design goal
// is raising attacker cost against scanners, not confidentiality.
//
// Every operation on a container acquires that container's own lock for its
// full duration, so concurrent use of one container is safe; operations
// spanning multiple containers are not atomic as a group.
package obfuscate
