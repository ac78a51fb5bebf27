package memarena

import (
	"unsafe"

	"github.com/flier/memarena/internal/debug"
	"github.com/flier/memarena/pkg/xunsafe"
)

// applyFill initializes a freshly carved payload region according to the
// arena's fill policy (spec.md §4.9): FillZero clears the whole region,
// FillDebugPattern stamps it with a recognizable byte pattern so stale
// reads are obvious under a debugger, and FillNone leaves it untouched.
func (a *Arena) applyFill(payload unsafe.Pointer, bytes uint32) {
	switch a.opts.Fill {
	case FillZero:
		xunsafe.Clear((*byte)(payload), bytes)
	case FillDebugPattern:
		stampDebugFill(unsafe.Slice((*byte)(payload), bytes))
	}
}

// Set writes n copies of the single byte v starting at p, which must lie
// inside a's backing storage with at least n bytes remaining. It is the
// arena-native counterpart of the fill performed automatically on
// allocation, exposed for callers that want to re-stamp a region later.
func (a *Arena) Set(p *byte, v byte, n int) {
	if n <= 0 {
		return
	}
	buf := unsafe.Slice(p, n)
	for i := range buf {
		buf[i] = v
	}
}

// Copy moves n bytes from src to dst, both of which must lie inside a's
// backing storage. The two regions must not overlap; overlapping moves are
// not a use case this allocator's callers have (spec.md §4.9).
func (a *Arena) Copy(dst, src *byte, n int) {
	if n <= 0 {
		return
	}
	debug.Assert(!regionsOverlap(dst, src, n), "Copy: overlapping regions")
	xunsafe.Copy(dst, src, n)
}

func regionsOverlap(a, b *byte, n int) bool {
	pa, pb := uintptr(unsafe.Pointer(a)), uintptr(unsafe.Pointer(b))
	if pa == pb {
		return n > 0
	}
	if pa < pb {
		return pa+uintptr(n) > pb
	}
	return pb+uintptr(n) > pa
}
