// Package codec converts typed values to and from the flat byte buffers the
// obfuscation layer ciphers and hides. The supported value shapes form a
// closed set — scalar, fixed-layout aggregate, text, sequence, and map — each
// with its own exact byte-layout rule.
//
// Scalars and aggregates are flat in-memory copies. That makes the codec fast
// and allocation-free, and it also makes the precondition sharp: a type
// handed to Scalar or Aggregate must have a static, pointer-free,
// flat-copyable layout. The codec cannot detect violations; an aggregate
// containing a pointer, slice, map, or string round-trips into garbage
// pointers. This is a documented caller responsibility, not a runtime check.
//
// Equality follows the same split: sequences and maps compare element-wise by
// their natural pair equality, everything else compares raw memory. Two
// values that are semantically equal but differ in padding or unused bits
// therefore compare unequal — a known representation leak, preserved rather
// than papered over.
package codec

import (
	"bytes"
	"unsafe"
)

// Codec computes sizes, serializes, and deserializes values of one type.
type Codec[T any] interface {
	// SizeOf returns the exact byte length Serialize will write for v.
	SizeOf(v T) int
	// Serialize writes exactly SizeOf(v) bytes of v into dst, which must be
	// at least that long.
	Serialize(v T, dst []byte)
	// Deserialize reconstructs a value from b, which holds exactly the bytes
	// a prior Serialize produced.
	Deserialize(b []byte) T
	// Equal reports whether two values are equal under this shape's rule.
	Equal(a, b T) bool
}

// sizeOfType is the static in-memory size of T.
func sizeOfType[T any]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

// rawBytes views the in-memory representation of *v as a byte slice.
func rawBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), sizeOfType[T]())
}

// Scalar returns the codec for fixed-size scalar types (integers, floats,
// bool): a flat byte copy of the value's natural in-memory representation.
func Scalar[T any]() Codec[T] {
	return flatCodec[T]{}
}

// Aggregate returns the codec for fixed-layout structs. Mechanically it is
// identical to Scalar; it exists as a distinct constructor because the
// precondition carries all the weight here: every member of T must itself be
// static, copyable, and pointer-free. See the package comment.
func Aggregate[T any]() Codec[T] {
	return flatCodec[T]{}
}

type flatCodec[T any] struct{}

func (flatCodec[T]) SizeOf(T) int { return sizeOfType[T]() }

func (flatCodec[T]) Serialize(v T, dst []byte) {
	copy(dst, rawBytes(&v))
}

func (flatCodec[T]) Deserialize(b []byte) T {
	var v T
	copy(rawBytes(&v), b)
	return v
}

func (flatCodec[T]) Equal(a, b T) bool {
	return bytes.Equal(rawBytes(&a), rawBytes(&b))
}

// String returns the codec for text: the raw content bytes, no terminator.
func String() Codec[string] {
	return stringCodec{}
}

type stringCodec struct{}

func (stringCodec) SizeOf(v string) int { return len(v) }

func (stringCodec) Serialize(v string, dst []byte) {
	copy(dst, v)
}

func (stringCodec) Deserialize(b []byte) string {
	return string(b)
}

func (stringCodec) Equal(a, b string) bool { return a == b }

// Slice returns the codec for ordered sequences of fixed-size elements:
// elementCount * elementSize bytes, elements concatenated in order. E is
// subject to the same flat-layout precondition as Scalar.
func Slice[E any]() Codec[[]E] {
	return sliceCodec[E]{}
}

type sliceCodec[E any] struct{}

func (sliceCodec[E]) SizeOf(v []E) int {
	return len(v) * sizeOfType[E]()
}

func (sliceCodec[E]) Serialize(v []E, dst []byte) {
	es := sizeOfType[E]()
	for i := range v {
		copy(dst[i*es:], rawBytes(&v[i]))
	}
}

func (sliceCodec[E]) Deserialize(b []byte) []E {
	es := sizeOfType[E]()
	if es == 0 {
		return nil
	}
	n := len(b) / es
	out := make([]E, 0, n)
	for i := 0; i < n; i++ {
		var e E
		copy(rawBytes(&e), b[i*es:(i+1)*es])
		out = append(out, e)
	}
	return out
}

func (sliceCodec[E]) Equal(a, b []E) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(rawBytes(&a[i]), rawBytes(&b[i])) {
			return false
		}
	}
	return true
}

// Map returns the codec for associative maps: entryCount*(keySize+valueSize)
// bytes of concatenated (key, value) pairs in map iteration order. Go map
// iteration order is randomized, so the serialized byte sequence for a given
// map is itself unstable — the round-trip contract is pair equality, never
// byte equality. K and V are subject to the flat-layout precondition.
func Map[K comparable, V any]() Codec[map[K]V] {
	return mapCodec[K, V]{}
}

type mapCodec[K comparable, V any] struct{}

func (mapCodec[K, V]) SizeOf(v map[K]V) int {
	return len(v) * (sizeOfType[K]() + sizeOfType[V]())
}

func (mapCodec[K, V]) Serialize(v map[K]V, dst []byte) {
	ks, vs := sizeOfType[K](), sizeOfType[V]()
	off := 0
	for k, val := range v {
		copy(dst[off:], rawBytes(&k))
		off += ks
		copy(dst[off:], rawBytes(&val))
		off += vs
	}
}

func (mapCodec[K, V]) Deserialize(b []byte) map[K]V {
	ks, vs := sizeOfType[K](), sizeOfType[V]()
	if ks+vs == 0 {
		return map[K]V{}
	}
	n := len(b) / (ks + vs)
	out := make(map[K]V, n)
	off := 0
	for i := 0; i < n; i++ {
		var k K
		copy(rawBytes(&k), b[off:off+ks])
		off += ks
		var v V
		copy(rawBytes(&v), b[off:off+vs])
		off += vs
		out[k] = v
	}
	return out
}

func (mapCodec[K, V]) Equal(a, b map[K]V) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if !bytes.Equal(rawBytes(&av), rawBytes(&bv)) {
			return false
		}
	}
	return true
}
