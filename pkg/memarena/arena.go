// Package memarena implements a general-purpose memory allocator that
// manages a single caller-supplied contiguous byte region without any help
// from the Go runtime allocator. All of the allocator's bookkeeping — the
// control block, the page bitmap, every free list, and the active
// allocation list — lives inside that region, addressed by 32-bit intra-arena
// offsets rather than pointers, so a quiescent arena can be copied,
// memory-mapped, or relocated bit-for-bit.
//
// It is intended for games, embedded targets, and WebAssembly modules, where
// predictable behavior and page-level visibility matter more than raw
// allocation speed. It is not safe for concurrent use by more than one
// goroutine at a time; see spec.md §5.
package memarena

import (
	"unsafe"

	"github.com/flier/memarena/internal/debug"
	"github.com/flier/memarena/pkg/xunsafe"
)

// DefaultPageSize is used when Initialize is called with a zero pageSize.
const DefaultPageSize = 4096

// MinPages is the smallest arena Initialize will accept, in pages.
const MinPages = 10

// Arena manages one caller-supplied []byte region. The zero Arena is not
// usable; obtain one from Initialize.
type Arena struct {
	_ xunsafe.NoCopy

	buf    []byte
	base   unsafe.Pointer
	hdr    *header
	bitmap []uint32

	opts Options

	allocHook   AllocateHook
	releaseHook ReleaseHook
}

// AlignAndTrim adapts an arbitrary OS-returned buffer to the requirements
// Initialize places on its input: the returned slice starts at an
// alignment-byte boundary and its length is a multiple of pageSize.
//
// It returns the adjusted slice and the number of bytes dropped from the
// front (to reach alignment) and back (to reach a whole page count). If the
// alignment step alone would consume the entire buffer, it fails, returning
// a nil slice and zero.
func AlignAndTrim(mem []byte, alignment, pageSize int) ([]byte, int) {
	if len(mem) == 0 || alignment <= 0 || pageSize <= 0 {
		return nil, 0
	}

	base := uintptr(unsafe.Pointer(&mem[0]))
	aligned := (base + uintptr(alignment-1)) &^ uintptr(alignment-1)
	front := aligned - base
	if front >= uintptr(len(mem)) {
		return nil, 0
	}

	rest := mem[front:]
	usable := (len(rest) / pageSize) * pageSize

	return rest[:usable], int(front) + (len(rest) - usable)
}

// Initialize bootstraps an Arena inside mem. mem must start at an
// 8-byte-aligned address and have a length that is a multiple of pageSize
// and at least MinPages pages; pageSize must itself be a multiple of 8 and
// defaults to DefaultPageSize when zero.
//
// On success it returns a ready-to-use Arena. On any precondition
// violation, it asserts in debug builds and returns nil in release builds.
func Initialize(mem []byte, pageSize int, opts Options) *Arena {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	ok := len(mem) > 0 &&
		uintptr(unsafe.Pointer(&mem[0]))%8 == 0 &&
		pageSize%8 == 0 &&
		len(mem)%pageSize == 0 &&
		len(mem)/pageSize >= MinPages
	debug.Assert(ok, "Initialize: precondition violated (len=%d pageSize=%d)", len(mem), pageSize)
	if !ok {
		return nil
	}

	totalPages := uint32(len(mem) / pageSize)
	bitmapWords := (totalPages + 31) / 32
	bitmapBytes := bitmapWords * 4
	overheadPages := ceilDivU32(headerSize+bitmapBytes, uint32(pageSize)) + 1

	ok = overheadPages < totalPages
	debug.Assert(ok, "Initialize: arena too small to hold its own overhead (overhead=%d total=%d)", overheadPages, totalPages)
	if !ok {
		return nil
	}

	base := unsafe.Pointer(&mem[0])

	hdr := (*header)(base)
	*hdr = header{}
	hdr.arenaSize = uint32(len(mem))
	hdr.pageSize = uint32(pageSize)
	hdr.overheadPages = overheadPages

	bitmap := unsafe.Slice((*uint32)(unsafe.Add(base, headerSize)), bitmapWords)
	clear(bitmap)

	a := &Arena{
		buf:    mem,
		base:   base,
		hdr:    hdr,
		bitmap: bitmap,
		opts:   opts,
	}

	a.setRange(0, overheadPages)

	debug.Log(nil, "init", "pages=%d pageSize=%d overhead=%d", totalPages, pageSize, overheadPages)

	return a
}

// Shutdown tears down a, asserting in debug builds that nothing was leaked:
// no outstanding requested bytes, an empty active list, and every free list
// empty. Release builds skip the checks and simply clear the overhead bits.
func Shutdown(a *Arena) {
	debug.Assert(a.hdr.requestedBytes == 0, "Shutdown: %d requested bytes still outstanding", a.hdr.requestedBytes)
	debug.Assert(a.hdr.activeHead == nullOffset, "Shutdown: active list is not empty")
	for c, h := range a.hdr.freeListHeads {
		debug.Assert(h == nullOffset, "Shutdown: free list for class %d is not empty", c)
	}

	a.clearRange(0, a.hdr.overheadPages)

	for _, w := range a.bitmap {
		debug.Assert(w == 0, "Shutdown: bitmap still has used pages after clearing overhead")
	}

	debug.Log(nil, "shutdown", "ok")
}

// TotalPages returns the number of pages the arena was initialized with.
func (a *Arena) TotalPages() uint32 { return uint32(len(a.buf)) / a.hdr.pageSize }

// PageSize returns the page size the arena was initialized with.
func (a *Arena) PageSize() uint32 { return a.hdr.pageSize }

// RequestedBytes returns the running sum of user-requested sizes across
// every currently outstanding allocation (spec.md invariant I3).
func (a *Arena) RequestedBytes() uint32 { return a.hdr.requestedBytes }

// PagesInUse returns the number of pages currently marked used in the
// bitmap, including the permanently reserved overhead pages.
func (a *Arena) PagesInUse() uint32 { return a.hdr.pagesInUse }

// PeakPagesInUse returns the high-water mark of PagesInUse over the
// lifetime of the arena.
func (a *Arena) PeakPagesInUse() uint32 { return a.hdr.peakPagesInUse }

// SetHooks installs the allocate/release callbacks described in spec.md §6.
// Either may be nil to disable that hook. Hooks fire synchronously, on the
// calling goroutine, inside Allocate/Release's call frame, and must not call
// back into the arena.
func (a *Arena) SetHooks(onAllocate AllocateHook, onRelease ReleaseHook) {
	a.allocHook = onAllocate
	a.releaseHook = onRelease
}

func ceilDivU32(a, b uint32) uint32 { return (a + b - 1) / b }

// ptrAt converts an intra-arena offset into a live pointer.
func (a *Arena) ptrAt(off offset) *byte {
	return xunsafe.ByteAdd[byte](&a.buf[0], uint32(off))
}

// offsetOf converts a pointer known to lie within a's buffer into an
// intra-arena offset.
func (a *Arena) offsetOf(p unsafe.Pointer) offset {
	return offset(uintptr(p) - uintptr(a.base))
}

// headerAt overlays an allocHeader at the given intra-arena offset.
func (a *Arena) headerAt(off offset) *allocHeader {
	return xunsafe.Cast[allocHeader](a.ptrAt(off))
}

// pageAddr returns a pointer to the start of the given page index.
func (a *Arena) pageAddr(page uint32) *byte {
	return xunsafe.ByteAdd[byte](&a.buf[0], uintptr(page)*uintptr(a.hdr.pageSize))
}

// pageIndexOf returns the page index containing the given intra-arena
// offset.
func (a *Arena) pageIndexOf(off offset) uint32 {
	return uint32(off) / a.hdr.pageSize
}

// pageBytes returns the page at the given index as a []byte slice.
func (a *Arena) pageBytes(page uint32) []byte {
	start := uintptr(page) * uintptr(a.hdr.pageSize)
	return a.buf[start : start+uintptr(a.hdr.pageSize)]
}
