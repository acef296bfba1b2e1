package obfuscate

import "github.com/Real-Fruit-Snacks/Mirage/pkg/entropy"

type settings struct {
	src      *entropy.Source
	keyReuse bool
	hardened bool
}

// Option configures a container at construction time.
type Option func(*settings)

// WithSource injects the randomness source the container draws from instead
// of the process-wide default. Deterministic sources make layouts
// reproducible for tests.
func WithSource(src *entropy.Source) Option {
	return func(s *settings) { s.src = src }
}

// WithKeyReuse enables performance mode: the random key buffer is kept
// across assignments instead of being regenerated on each one. Repeated
// writes get cheaper; a scanner correlating several snapshots gets a stable
// key to work against. Trade deliberately.
func WithKeyReuse() Option {
	return func(s *settings) { s.keyReuse = true }
}

// WithMemoryHardening mlocks the container's key and payload buffers and
// excludes them from core dumps while they are live (best effort, Linux
// only). Pair with harden.DisableCoreDumps for process-wide coverage.
func WithMemoryHardening() Option {
	return func(s *settings) { s.hardened = true }
}
