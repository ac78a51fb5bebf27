package memarena

import (
	"unsafe"

	"github.com/flier/memarena/internal/debug"
	"github.com/flier/memarena/pkg/xunsafe"
)

// allocateLarge services a request that didn't qualify for the
// sub-allocator: either it carries a hard alignment, its padded size
// exceeds every block class, or the sub-allocator is disabled.
func (a *Arena) allocateLarge(bytes, alignment, padded uint32, loc string) *byte {
	numPages := ceilDivU32(padded, a.hdr.pageSize)

	firstPage, ok := a.findRange(numPages)
	debug.Assert(ok, "allocateLarge: no run of %d free pages available", numPages)
	if !ok {
		return nil
	}

	a.setRange(firstPage, numPages)

	raw := a.pageAddr(firstPage)

	hdrPtr := raw
	if alignment != 0 {
		target := (uintptr(unsafe.Pointer(raw)) + uintptr(allocHeaderSize) + uintptr(alignment) - 1) &^ (uintptr(alignment) - 1)
		hdrPtr = (*byte)(unsafe.Pointer(target - uintptr(allocHeaderSize)))
	}

	hdrOff := a.offsetOf(unsafe.Pointer(hdrPtr))
	h := a.headerAt(hdrOff)
	*h = allocHeader{}
	h.size = bytes
	h.alignment = alignment
	h.loc.set(loc)

	a.listAdd(&a.hdr.activeHead, hdrOff)

	payload := xunsafe.ByteAdd[byte](hdrPtr, allocHeaderSize)
	a.applyFill(unsafe.Pointer(payload), bytes)

	debug.Log(nil, "alloc-large", "bytes=%d align=%d pages=[%d,%d)", bytes, alignment, firstPage, firstPage+numPages)

	if a.allocHook != nil {
		a.allocHook(a, uintptr(unsafe.Pointer(hdrPtr)), bytes, padded, firstPage, numPages)
	}

	return payload
}

// releaseLarge returns a page-level allocation's pages to the bitmap.
func (a *Arena) releaseLarge(hdrOff offset, loc string) {
	h := a.headerAt(hdrOff)
	oldSize := h.size

	padded := oldSize + allocHeaderSize
	if h.alignment != 0 {
		padded += h.alignment - 1
	}
	numPages := ceilDivU32(padded, a.hdr.pageSize)
	firstPage := a.pageIndexOf(hdrOff)

	a.clearRange(firstPage, numPages)

	a.hdr.requestedBytes -= oldSize
	a.listRemove(&a.hdr.activeHead, hdrOff)
	h.size = 0

	debug.Log(nil, "release-large", "bytes=%d pages=[%d,%d) loc=%s", oldSize, firstPage, firstPage+numPages, loc)

	if a.releaseHook != nil {
		a.releaseHook(a, uintptr(unsafe.Pointer(a.ptrAt(hdrOff))), oldSize, padded, firstPage, numPages)
	}
}
