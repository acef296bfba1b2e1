// Package entropy provides the randomness source that drives every
// obfuscation decision in Mirage: mask values, key bytes, noise padding,
// hop counts, and slot layout.
//
// The source is deliberately NOT a cryptographic secret — an attacker who
// can read all of process memory can recover everything anyway (obfuscation,
// not confidentiality). What matters is that output is unpredictable to a
// pattern-matching scanner, cheap to draw from, and safe under concurrent
// use, which the process-wide generator of many platforms is not. A ChaCha20
// keystream behind a mutex gives all three, plus deterministic seeding for
// reproducible tests.
package entropy

import (
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20"
)

// Source is a mutex-guarded deterministic random generator. A Source is safe
// for concurrent use by multiple goroutines.
type Source struct {
	mu     sync.Mutex
	stream *chacha20.Cipher
}

// NewSource returns a Source producing the keystream derived from seed.
// Two Sources built from the same seed emit identical byte streams, which
// tests use for reproducible layouts.
func NewSource(seed [32]byte) *Source {
	c, err := chacha20.NewUnauthenticatedCipher(seed[:], make([]byte, chacha20.NonceSize))
	if err != nil {
		// Key and nonce sizes are fixed above; this cannot fail at runtime.
		panic("entropy: cipher init: " + err.Error())
	}
	return &Source{stream: c}
}

// Bytes fills p with random bytes. The previous contents of p are discarded.
func (s *Source) Bytes(p []byte) {
	if len(p) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range p {
		p[i] = 0
	}
	s.stream.XORKeyStream(p, p)
}

// Uint64 returns a uniformly random 64-bit value.
func (s *Source) Uint64() uint64 {
	var b [8]byte
	s.Bytes(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// Intn returns a random int in [0, n). It panics if n <= 0.
//
// The result carries the usual modulo bias for n that are not powers of two.
// That bias is irrelevant here: the values parameterize noise sizes and hop
// counts, not key material.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		panic("entropy: Intn called with non-positive n")
	}
	return int(s.Uint64() % uint64(n))
}

// IntRange returns a random int in [lo, hi], bounds inclusive.
// It panics if hi < lo.
func (s *Source) IntRange(lo, hi int) int {
	if hi < lo {
		panic("entropy: IntRange called with hi < lo")
	}
	return lo + s.Intn(hi-lo+1)
}

var (
	defaultOnce sync.Once
	defaultSrc  *Source
	initErr     error
)

// Init performs the one-time process-wide seeding of the default Source.
//
// With autoSeed true the seed is derived from the current time and PID —
// cheap, dependency-free, and sufficient for obfuscation. With autoSeed
// false the seed is drawn from crypto/rand instead.
//
// Init runs at most once; subsequent calls (and Default, if it ran first)
// leave the existing source in place and return the original error, if any.
func Init(autoSeed bool) error {
	defaultOnce.Do(func() {
		var seed [32]byte
		if autoSeed {
			seed = timeSeed()
		} else {
			if _, err := crand.Read(seed[:]); err != nil {
				initErr = fmt.Errorf("entropy: seeding from crypto/rand: %w", err)
				seed = timeSeed()
			}
		}
		defaultSrc = NewSource(seed)
	})
	return initErr
}

// Default returns the process-wide Source, seeding it from crypto/rand if
// Init was never called explicitly.
func Default() *Source {
	_ = Init(false)
	return defaultSrc
}

// timeSeed derives a 32-byte seed from the current time and PID.
func timeSeed() [32]byte {
	var raw [16]byte
	binary.LittleEndian.PutUint64(raw[0:8], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint64(raw[8:16], uint64(os.Getpid()))
	return sha256.Sum256(raw[:])
}
