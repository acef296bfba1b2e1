package obfuscate

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/Real-Fruit-Snacks/Mirage/internal/memutil"
	"github.com/Real-Fruit-Snacks/Mirage/pkg/chain"
	"github.com/Real-Fruit-Snacks/Mirage/pkg/codec"
	"github.com/Real-Fruit-Snacks/Mirage/pkg/entropy"
	"github.com/Real-Fruit-Snacks/Mirage/pkg/masked"
)

// ErrUninitialized is returned by every read operation on a container that
// has never been assigned. Reading before the first Set is a contract
// violation, reported explicitly rather than silently yielding a default.
var ErrUninitialized = errors.New("obfuscate: value has never been assigned")

// Logical metadata fields. Their physical storage positions are randomized
// per container; see scrambleLayout.
const (
	fieldKeySize = iota
	fieldKeyOffset
	fieldKeyReadOffset
	fieldKeyHops
	fieldKeyHead
	fieldValSize
	fieldValOffset
	fieldValHops
	fieldValHead
	fieldCount
)

// decoySlotCount junk slots are interleaved with the real metadata so the
// slot array carries no positional signature.
const decoySlotCount = 4

const slotCount = fieldCount + decoySlotCount

// Value is an obfuscated container for one value of type T.
//
// All methods are safe for concurrent use; each acquires the container's
// lock for the full operation. The zero Value is not usable — construct with
// New or one of the shape shorthands.
type Value[T any] struct {
	mu    sync.Mutex
	src   *entropy.Source
	cod   codec.Codec[T]
	arena *chain.Arena

	slots  [slotCount]masked.Scalar[uint64]
	slotOf [fieldCount]uint8

	keyReuse    bool
	initialized bool
	hasKey      bool
}

// New returns an empty container using c for byte conversion. The container
// starts uninitialized: reads fail with ErrUninitialized until the first Set.
func New[T any](c codec.Codec[T], opts ...Option) *Value[T] {
	v := &Value[T]{}
	v.init(c, opts...)
	return v
}

// NewScalar returns a container for a fixed-size scalar type.
func NewScalar[T any](opts ...Option) *Value[T] {
	return New[T](codec.Scalar[T](), opts...)
}

// NewAggregate returns a container for a fixed-layout, pointer-free struct.
// The flat-layout precondition of codec.Aggregate applies unchecked.
func NewAggregate[T any](opts ...Option) *Value[T] {
	return New[T](codec.Aggregate[T](), opts...)
}

// NewSlice returns a container for an ordered sequence of fixed-size
// elements.
func NewSlice[E any](opts ...Option) *Value[[]E] {
	return New[[]E](codec.Slice[E](), opts...)
}

// NewMap returns a container for an associative map with fixed-size keys and
// values.
func NewMap[K comparable, V any](opts ...Option) *Value[map[K]V] {
	return New[map[K]V](codec.Map[K, V](), opts...)
}

func (v *Value[T]) init(c codec.Codec[T], opts ...Option) {
	s := settings{src: entropy.Default()}
	for _, o := range opts {
		o(&s)
	}
	v.src = s.src
	v.cod = c
	v.keyReuse = s.keyReuse
	v.arena = chain.NewArena(s.src, s.hardened)
	v.scrambleLayout()
}

// scrambleLayout assigns each logical metadata field a random physical slot
// and fills the remaining slots with masked pointer-shaped junk. A scanner
// that learned the struct layout of one container learns nothing about the
// next.
func (v *Value[T]) scrambleLayout() {
	perm := make([]int, slotCount)
	for i := range perm {
		perm[i] = i
	}
	for i := len(perm) - 1; i > 0; i-- {
		j := v.src.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	for i := 0; i < fieldCount; i++ {
		v.slotOf[i] = uint8(perm[i])
	}

	// Decoys look like addresses near a live stack frame, not like lengths
	// or offsets, so masked metadata and masked junk are indistinguishable.
	base := uint64(uintptr(unsafe.Pointer(&perm[0])))
	for _, d := range perm[fieldCount:] {
		v.slots[d].Set(v.src, base+uint64(v.src.Intn(1<<16)))
	}
}

func (v *Value[T]) field(i int) uint64 {
	return v.slots[v.slotOf[i]].Get()
}

func (v *Value[T]) setField(i int, x uint64) {
	v.slots[v.slotOf[i]].Set(v.src, x)
}

// Set assigns val to the container, releasing and shredding all previous
// backing buffers first. It returns the assigned value.
func (v *Value[T]) Set(val T) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setLocked(val)
	return val
}

// Get resolves and returns the stored value. It returns ErrUninitialized if
// the container has never been assigned. Get does not mutate stored state;
// repeated calls return equal results.
func (v *Value[T]) Get() (T, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.getLocked()
}

// MustGet is Get for call sites where an unassigned container is a
// programming error; it panics instead of returning ErrUninitialized.
func (v *Value[T]) MustGet() T {
	val, err := v.Get()
	if err != nil {
		panic(err)
	}
	return val
}

// IsSet reports whether the container currently holds a value.
func (v *Value[T]) IsSet() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.initialized
}

// Equal resolves the stored value and compares it to rhs under the codec's
// equality rule: element-wise for sequences and maps, byte-wise memory
// comparison for everything else.
func (v *Value[T]) Equal(rhs T) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	cur, err := v.getLocked()
	if err != nil {
		return false, err
	}
	return v.cod.Equal(cur, rhs), nil
}

// NotEqual is the negation of Equal under the same error contract.
func (v *Value[T]) NotEqual(rhs T) (bool, error) {
	eq, err := v.Equal(rhs)
	return !eq, err
}

// Destroy releases and shreds every backing buffer — payload, key, hop
// cells, decoys folded with them — and returns the container to its
// unassigned state. Destroy is idempotent.
func (v *Value[T]) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.releaseLocked(true)
}

// setLocked implements assignment. Caller holds v.mu.
func (v *Value[T]) setLocked(val T) {
	if v.initialized {
		v.releaseLocked(!v.keyReuse)
	}
	v.genKeyLocked()

	size := v.cod.SizeOf(val)
	scratch := make([]byte, size)
	v.cod.Serialize(val, scratch)
	v.storePayloadLocked(scratch)
	memutil.Shred(scratch)

	v.initialized = true
}

// getLocked implements resolution. Caller holds v.mu.
func (v *Value[T]) getLocked() (T, error) {
	var zero T
	if !v.initialized {
		return zero, ErrUninitialized
	}

	valBuf, err := v.arena.Unfold(chain.Handle(v.field(fieldValHead)), int(v.field(fieldValHops)))
	if err != nil {
		return zero, fmt.Errorf("obfuscate: resolving payload chain: %w", err)
	}
	keyBuf, err := v.arena.Unfold(chain.Handle(v.field(fieldKeyHead)), int(v.field(fieldKeyHops)))
	if err != nil {
		return zero, fmt.Errorf("obfuscate: resolving key chain: %w", err)
	}

	size := int(v.field(fieldValSize))
	valOffset := int(v.field(fieldValOffset))
	keySize := int(v.field(fieldKeySize))
	keyOffset := int(v.field(fieldKeyOffset))
	readOffset := int(v.field(fieldKeyReadOffset))

	out := make([]byte, size)
	copy(out, valBuf[valOffset:valOffset+size])
	for i := range out {
		out[i] ^= keyBuf[keyOffset+((i+readOffset)%keySize)]
	}

	val := v.cod.Deserialize(out)
	memutil.Shred(out)
	return val, nil
}

// genKeyLocked builds a fresh random key buffer and hides it behind a new
// chain. In key-reuse mode an existing key survives reassignment untouched.
func (v *Value[T]) genKeyLocked() {
	if v.keyReuse && v.hasKey {
		return
	}

	keySize := v.src.IntRange(32, 63)
	keyOffset := v.src.IntRange(8, 31)
	// The read offset rotates the cyclic key stream so byte 0 of the
	// ciphertext is not always paired with the same key byte.
	readOffset := v.src.Intn(keySize)
	allocSize := keySize + keyOffset + 8 + v.src.Intn(24)
	hops := v.src.IntRange(chain.MinHops, chain.MaxHops)

	buf := make([]byte, allocSize)
	v.src.Bytes(buf)

	h, err := v.arena.Fold(hops, buf)
	if err != nil {
		// hops is drawn from the arena's own legal range; a failure here is
		// an unrecoverable invariant break, not a caller error.
		panic("obfuscate: folding key chain: " + err.Error())
	}

	v.setField(fieldKeySize, uint64(keySize))
	v.setField(fieldKeyOffset, uint64(keyOffset))
	v.setField(fieldKeyReadOffset, uint64(readOffset))
	v.setField(fieldKeyHops, uint64(hops))
	v.setField(fieldKeyHead, uint64(h))
	v.hasKey = true
}

// storePayloadLocked ciphers plain against the live key, pads it with random
// noise on both sides, and hides the result behind a new chain.
func (v *Value[T]) storePayloadLocked(plain []byte) {
	valOffset := v.src.IntRange(8, 31)
	total := len(plain) + valOffset + 8 + v.src.Intn(24)

	buf := make([]byte, total)
	v.src.Bytes(buf[:valOffset])
	v.src.Bytes(buf[valOffset+len(plain):])
	copy(buf[valOffset:], plain)

	keyBuf, err := v.arena.Unfold(chain.Handle(v.field(fieldKeyHead)), int(v.field(fieldKeyHops)))
	if err != nil {
		panic("obfuscate: key chain vanished during assignment: " + err.Error())
	}
	keySize := int(v.field(fieldKeySize))
	keyOffset := int(v.field(fieldKeyOffset))
	readOffset := int(v.field(fieldKeyReadOffset))

	// Key bytes are consumed cyclically, rotated by the key's read offset,
	// starting at the key's own offset inside its padded buffer.
	for i := range plain {
		buf[valOffset+i] ^= keyBuf[keyOffset+((i+readOffset)%keySize)]
	}

	hops := v.src.IntRange(chain.MinHops, chain.MaxHops)
	h, err := v.arena.Fold(hops, buf)
	if err != nil {
		panic("obfuscate: folding payload chain: " + err.Error())
	}

	v.setField(fieldValSize, uint64(len(plain)))
	v.setField(fieldValOffset, uint64(valOffset))
	v.setField(fieldValHops, uint64(hops))
	v.setField(fieldValHead, uint64(h))
}

// releaseLocked frees the payload chain and, when releaseKey is set, the key
// chain, zeroing the corresponding metadata fields. Caller holds v.mu.
func (v *Value[T]) releaseLocked(releaseKey bool) {
	if v.initialized {
		_ = v.arena.Release(chain.Handle(v.field(fieldValHead)), int(v.field(fieldValHops)))
		v.setField(fieldValSize, 0)
		v.setField(fieldValOffset, 0)
		v.setField(fieldValHops, 0)
		v.setField(fieldValHead, 0)
		v.initialized = false
	}
	if releaseKey && v.hasKey {
		_ = v.arena.Release(chain.Handle(v.field(fieldKeyHead)), int(v.field(fieldKeyHops)))
		v.setField(fieldKeySize, 0)
		v.setField(fieldKeyOffset, 0)
		v.setField(fieldKeyReadOffset, 0)
		v.setField(fieldKeyHops, 0)
		v.setField(fieldKeyHead, 0)
		v.hasKey = false
	}
}
