// Package chain hides a buffer behind a walk of indirection cells ("hops")
// inside an owning arena.
//
// The handle a caller stores is the index of the first hop cell, several
// dereferences removed from the real buffer. Each cell encodes the jump
// distance to the next cell — not a plain index — as a bit-granularity
// offset: the stored word is the signed slot delta multiplied by 8, and a
// walker recovers the next slot as current minus stored/8 (integer division,
// truncating). A scanner that dumps one cell's raw bytes cannot reconstruct
// the next position without knowing that decoding rule, and the randomized
// hop count (1 to 7) defeats fixed-depth-dereference signatures.
//
// The arena owns every cell and every payload buffer it folds. Slots freed by
// Release are recycled by later folds, so a container that is re-assigned
// many times does not grow its arena without bound.
package chain

import (
	"encoding/binary"
	"errors"

	"github.com/Real-Fruit-Snacks/Mirage/internal/memutil"
	"github.com/Real-Fruit-Snacks/Mirage/pkg/entropy"
	"github.com/Real-Fruit-Snacks/Mirage/pkg/harden"
)

// Hop count bounds. Randomizing within [MinHops, MaxHops] is part of the
// obfuscation contract: a fixed depth would itself be a signature.
const (
	MinHops = 1
	MaxHops = 7
)

// cellSize is the byte width of one hop cell: a single encoded distance.
const cellSize = 8

var (
	// ErrHopCount is returned when a hop count falls outside [MinHops, MaxHops].
	ErrHopCount = errors.New("chain: hop count out of range")
	// ErrBadHandle is returned when a walk leaves the arena or lands on a
	// freed slot — the handle does not belong to a live chain.
	ErrBadHandle = errors.New("chain: handle does not resolve to a live chain")
)

// Handle is an opaque reference to the head cell of a folded chain. Callers
// are expected to store it in masked form; a raw Handle in memory is exactly
// the kind of breadcrumb this package exists to avoid.
type Handle uint64

// Arena owns the hop cells, payload buffers, and decoy slots of one
// obfuscated value. It is not safe for unsynchronized concurrent use; the
// owning container's mutex serializes access.
type Arena struct {
	src      *entropy.Source
	hardened bool

	slots  [][]byte
	free   []int
	decoys map[Handle][]int
}

// NewArena returns an empty arena drawing randomness from src. With hardened
// set, payload buffers are best-effort mlocked and excluded from core dumps
// while folded.
func NewArena(src *entropy.Source, hardened bool) *Arena {
	return &Arena{
		src:      src,
		hardened: hardened,
		decoys:   make(map[Handle][]int),
	}
}

// Fold takes ownership of payload and hides it behind hops indirection
// cells. Every cell but the last stores the encoded distance to the next
// cell; the last stores the distance to the payload slot. It returns the
// handle of the first cell.
//
// Random decoy slots of junk bytes are interposed between allocations so the
// arena's slot layout is not a deterministic function of fold order.
func (a *Arena) Fold(hops int, payload []byte) (Handle, error) {
	if hops < MinHops || hops > MaxHops {
		return 0, ErrHopCount
	}

	if a.hardened {
		// Best-effort: a denied mlock must not break obfuscation.
		_ = harden.LockBuffer(payload)
		_ = harden.ExcludeFromDumps(payload)
	}

	var decoys []int
	target := a.alloc(payload)

	// Chain cells from the terminal hop up to the head, each encoding the
	// bit-granularity distance down to the slot it covers.
	for i := 0; i < hops; i++ {
		if a.src.Intn(3) == 0 {
			decoys = append(decoys, a.allocDecoy())
		}
		cell := make([]byte, cellSize)
		idx := a.alloc(cell)
		dist := (int64(idx) - int64(target)) * 8
		binary.LittleEndian.PutUint64(cell, uint64(dist))
		target = idx
	}

	h := Handle(target)
	if len(decoys) > 0 {
		a.decoys[h] = decoys
	}
	return h, nil
}

// Unfold walks hops distances starting at h and returns the resolved payload
// buffer. The buffer is still owned by the arena; callers must not retain it
// past the next Fold or Release.
func (a *Arena) Unfold(h Handle, hops int) ([]byte, error) {
	if hops < MinHops || hops > MaxHops {
		return nil, ErrHopCount
	}

	idx := int64(h)
	for i := 0; i < hops; i++ {
		if !a.isCell(idx) {
			return nil, ErrBadHandle
		}
		dist := int64(binary.LittleEndian.Uint64(a.slots[idx]))
		// Distances are stored in bits; division by 8 (truncating) recovers
		// the slot delta. The walk direction is always current minus distance.
		idx -= dist / 8
	}

	if idx < 0 || idx >= int64(len(a.slots)) || a.slots[idx] == nil {
		return nil, ErrBadHandle
	}
	return a.slots[idx], nil
}

// Release walks the chain at h, shreds every hop cell and the terminal
// payload buffer, and returns their slots (plus any decoys folded with them)
// to the free list.
func (a *Arena) Release(h Handle, hops int) error {
	if hops < MinHops || hops > MaxHops {
		return ErrHopCount
	}

	// Resolve the full walk first so a bad handle frees nothing.
	cells := make([]int64, 0, hops)
	idx := int64(h)
	for i := 0; i < hops; i++ {
		if !a.isCell(idx) {
			return ErrBadHandle
		}
		cells = append(cells, idx)
		dist := int64(binary.LittleEndian.Uint64(a.slots[idx]))
		idx -= dist / 8
	}
	if idx < 0 || idx >= int64(len(a.slots)) || a.slots[idx] == nil {
		return ErrBadHandle
	}

	for _, c := range cells {
		a.releaseSlot(int(c))
	}

	// Terminal slot is the payload buffer.
	if a.hardened {
		_ = harden.UnlockBuffer(a.slots[idx])
	}
	a.releaseSlot(int(idx))

	for _, d := range a.decoys[h] {
		a.releaseSlot(d)
	}
	delete(a.decoys, h)

	return nil
}

// Live returns the number of occupied slots, decoys included. It exists for
// leak verification in tests and diagnostics, not for production logic.
func (a *Arena) Live() int {
	n := 0
	for _, s := range a.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// alloc places b into a recycled slot chosen at random from the free list,
// or appends a new slot when none is free.
func (a *Arena) alloc(b []byte) int {
	if n := len(a.free); n > 0 {
		j := a.src.Intn(n)
		idx := a.free[j]
		a.free[j] = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx] = b
		return idx
	}
	a.slots = append(a.slots, b)
	return len(a.slots) - 1
}

// allocDecoy places a junk buffer of random size and content. Decoys are
// never referenced by any chain; they exist to break up the slot layout.
func (a *Arena) allocDecoy() int {
	d := make([]byte, a.src.IntRange(8, 24))
	a.src.Bytes(d)
	return a.alloc(d)
}

// releaseSlot shreds and frees one slot.
func (a *Arena) releaseSlot(idx int) {
	memutil.Shred(a.slots[idx])
	a.slots[idx] = nil
	a.free = append(a.free, idx)
}

// isCell reports whether idx is a live hop cell.
func (a *Arena) isCell(idx int64) bool {
	return idx >= 0 && idx < int64(len(a.slots)) &&
		a.slots[idx] != nil && len(a.slots[idx]) == cellSize
}
