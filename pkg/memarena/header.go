package memarena

import (
	"unsafe"

	"github.com/flier/memarena/pkg/xunsafe/layout"
)

// classSizes are the six fixed sub-allocator block-size classes, in bytes.
// Every page the sub-allocator carves is sliced into blocks of exactly one
// of these sizes.
var classSizes = [numClasses]uint32{64, 128, 256, 512, 1024, 2048}

const numClasses = 6

// offset is a 32-bit byte offset relative to an Arena's base address. Every
// list link inside the arena (active list, per-class free lists) is stored
// this way instead of as a machine pointer, which is what makes the arena
// relocatable: the whole region can be copied or mmap'd to a new address
// without patching a single link.
//
// Zero is the null sentinel. Offset 0 is always inside the ArenaHeader
// itself, which never participates in a list, so it is safe to overload as
// "no node".
type offset uint32

const nullOffset offset = 0

// header is the control block placed at offset 0 of every arena. It is
// overlaid directly onto the caller's backing storage via an unsafe cast,
// so its field order and types are load-bearing: anything added here grows
// the overhead region computed by Initialize.
//
// The two callback hooks named in spec.md §3 are deliberately not part of
// this struct. A Go func value is not a bit-pattern that can be relocated or
// safely stored in a byte region the garbage collector doesn't scan for
// pointers (closures capture heap pointers); keeping the hooks on the Arena
// wrapper instead preserves the position-independence that actually matters
// here — the bitmap and the linked lists — without smuggling GC-managed
// pointers into caller-supplied memory. See DESIGN.md.
type header struct {
	freeListHeads [numClasses]offset
	activeHead    offset

	arenaSize uint32
	pageSize  uint32

	requestedBytes uint32
	scanCursor     uint32

	pagesInUse     uint32
	peakPagesInUse uint32

	overheadPages uint32

	dbgPageHeld uint32
}

var headerSize = uint32(layout.Size[header]())

// allocHeader precedes every live allocation's payload and every free block
// sitting on a sub-allocator free list. size doubles as the membership
// discriminator: zero means "on a free-list", nonzero means "on the active
// list" (spec.md invariants I4/I5).
//
// loc comes first: as a trailing field, the zero-size location of the
// default build would make the compiler pad the struct past 16 bytes.
type allocHeader struct {
	loc        location
	prevOffset offset
	nextOffset offset
	size       uint32
	alignment  uint32
}

var allocHeaderSize = uint32(unsafe.Sizeof(allocHeader{}))

// classIndexForSize returns the index into classSizes of the smallest class
// that can hold paddedSize bytes, or -1 if paddedSize exceeds every class.
func classIndexForSize(paddedSize uint32) int {
	for i, sz := range classSizes {
		if paddedSize <= sz {
			return i
		}
	}
	return -1
}
