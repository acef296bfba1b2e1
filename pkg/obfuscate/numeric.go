package obfuscate

import (
	"golang.org/x/exp/constraints"

	"github.com/Real-Fruit-Snacks/Mirage/pkg/codec"
)

// Numeric wraps Value with the arithmetic and bitwise operator surface for
// integer types. Non-compound operators (Add, Sub, ...) resolve the current
// value and return the result without writing back; compound operators
// (AddAssign, Inc, ...) write the result back through a full re-obfuscating
// assignment. Either way the whole read-modify-write runs under the
// container's lock, so a concurrent writer can never interleave.
//
// Division and modulo by zero panic with Go's native runtime error, exactly
// as they would on a plain integer.
type Numeric[T constraints.Integer] struct {
	Value[T]
}

// NewNumeric returns an empty numeric container.
func NewNumeric[T constraints.Integer](opts ...Option) *Numeric[T] {
	n := &Numeric[T]{}
	n.init(codec.Scalar[T](), opts...)
	return n
}

// apply runs op against the current value under the lock, optionally writing
// the result back. Every operator below reduces to this.
func (n *Numeric[T]) apply(op func(T) T, writeBack bool) (T, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	cur, err := n.getLocked()
	if err != nil {
		var zero T
		return zero, err
	}
	res := op(cur)
	if writeBack {
		n.setLocked(res)
	}
	return res, nil
}

// Add returns stored + rhs without modifying the container.
func (n *Numeric[T]) Add(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur + rhs }, false)
}

// Sub returns stored - rhs without modifying the container.
func (n *Numeric[T]) Sub(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur - rhs }, false)
}

// Mul returns stored * rhs without modifying the container.
func (n *Numeric[T]) Mul(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur * rhs }, false)
}

// Div returns stored / rhs without modifying the container.
func (n *Numeric[T]) Div(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur / rhs }, false)
}

// Mod returns stored % rhs without modifying the container.
func (n *Numeric[T]) Mod(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur % rhs }, false)
}

// And returns stored & rhs without modifying the container.
func (n *Numeric[T]) And(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur & rhs }, false)
}

// Or returns stored | rhs without modifying the container.
func (n *Numeric[T]) Or(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur | rhs }, false)
}

// Xor returns stored ^ rhs without modifying the container.
func (n *Numeric[T]) Xor(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur ^ rhs }, false)
}

// Shl returns stored << bits without modifying the container.
func (n *Numeric[T]) Shl(bits uint) (T, error) {
	return n.apply(func(cur T) T { return cur << bits }, false)
}

// Shr returns stored >> bits without modifying the container. For signed
// types this is Go's arithmetic shift.
func (n *Numeric[T]) Shr(bits uint) (T, error) {
	return n.apply(func(cur T) T { return cur >> bits }, false)
}

// AddAssign stores and returns stored + rhs.
func (n *Numeric[T]) AddAssign(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur + rhs }, true)
}

// SubAssign stores and returns stored - rhs.
func (n *Numeric[T]) SubAssign(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur - rhs }, true)
}

// MulAssign stores and returns stored * rhs.
func (n *Numeric[T]) MulAssign(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur * rhs }, true)
}

// DivAssign stores and returns stored / rhs.
func (n *Numeric[T]) DivAssign(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur / rhs }, true)
}

// ModAssign stores and returns stored % rhs.
func (n *Numeric[T]) ModAssign(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur % rhs }, true)
}

// AndAssign stores and returns stored & rhs.
func (n *Numeric[T]) AndAssign(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur & rhs }, true)
}

// OrAssign stores and returns stored | rhs.
func (n *Numeric[T]) OrAssign(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur | rhs }, true)
}

// XorAssign stores and returns stored ^ rhs.
func (n *Numeric[T]) XorAssign(rhs T) (T, error) {
	return n.apply(func(cur T) T { return cur ^ rhs }, true)
}

// Inc stores and returns stored + 1.
func (n *Numeric[T]) Inc() (T, error) {
	return n.apply(func(cur T) T { return cur + 1 }, true)
}

// Dec stores and returns stored - 1.
func (n *Numeric[T]) Dec() (T, error) {
	return n.apply(func(cur T) T { return cur - 1 }, true)
}
