package memarena

import (
	"unsafe"

	"github.com/flier/memarena/internal/debug"
)

// Allocate requests bytes of memory, optionally at a hard alignment.
//
// A zero alignment means the request is unaligned and, if it is small
// enough, is eligible for the sub-allocator (spec.md §4.6); any nonzero
// alignment always takes the page-level path (§4.7) and guarantees the
// returned pointer satisfies payload % alignment == 0.
//
// bytes of zero is treated as one. loc optionally names the call site; it
// is only retained when the module is built with -tags tracklocation.
//
// Returns nil, asserting in debug builds, if the request cannot be
// satisfied — either because it would exceed the arena's capacity or
// because no suitable run of free pages exists.
func (a *Arena) Allocate(bytes, alignment int, loc string) *byte {
	if bytes <= 0 {
		bytes = 1
	}
	size := uint32(bytes)
	align := uint32(alignment)

	fits := size < a.hdr.arenaSize-a.hdr.requestedBytes
	debug.Assert(fits, "Allocate: out of memory (bytes=%d requested=%d arena=%d)", size, a.hdr.requestedBytes, a.hdr.arenaSize)
	if !fits {
		return nil
	}

	a.hdr.requestedBytes += size

	padded := size + allocHeaderSize
	if align != 0 {
		padded += align - 1
	}

	var p *byte
	if align == 0 && !a.opts.DisableSubAllocator {
		if classIdx := classIndexForSize(padded); classIdx >= 0 {
			p = a.subAllocate(size, classIdx, loc)
		} else {
			p = a.allocateLarge(size, align, padded, loc)
		}
	} else {
		p = a.allocateLarge(size, align, padded, loc)
	}

	if p == nil {
		a.hdr.requestedBytes -= size
	}

	return p
}

// Release returns a previously allocated payload pointer to the arena.
// loc is only used to enrich debug logging at the release site.
//
// Releasing a pointer whose header already reads size == 0 is a double
// free: it asserts in debug builds and is a no-op in release builds.
func (a *Arena) Release(p *byte, loc string) {
	if p == nil {
		return
	}

	hdrOff := a.offsetOf(unsafe.Pointer(p)) - offset(allocHeaderSize)
	h := a.headerAt(hdrOff)

	live := h.size != 0
	debug.Assert(live, "Release: double free at offset %d", hdrOff)
	if !live {
		return
	}

	if h.alignment == 0 && !a.opts.DisableSubAllocator {
		padded := h.size + allocHeaderSize
		if classIdx := classIndexForSize(padded); classIdx >= 0 {
			a.subRelease(hdrOff, classIdx, loc)
			return
		}
	}

	a.releaseLarge(hdrOff, loc)
}
