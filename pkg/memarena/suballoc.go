package memarena

import (
	"unsafe"

	"github.com/flier/memarena/internal/debug"
	"github.com/flier/memarena/pkg/xunsafe"
)

// subAllocate services a small, unaligned request whose padded size fits
// one of classSizes. It lazily carves a fresh page into uniform blocks the
// first time a class's free list runs dry (spec.md §4.6).
func (a *Arena) subAllocate(bytes uint32, classIdx int, loc string) *byte {
	classSize := classSizes[classIdx]
	newPage := false

	if a.hdr.freeListHeads[classIdx] == nullOffset {
		firstPage, ok := a.findRange(1)
		debug.Assert(ok, "subAllocate: no free page available for class %d", classSize)
		if !ok {
			return nil
		}
		a.setRange(firstPage, 1)
		newPage = true

		clear(a.pageBytes(firstPage))

		blocksPerPage := a.hdr.pageSize / classSize
		debug.Assert(blocksPerPage >= 1 && blocksPerPage < 128,
			"subAllocate: class %d yields %d blocks per page", classSize, blocksPerPage)

		pageStart := firstPage * a.hdr.pageSize
		for i := uint32(0); i < blocksPerPage; i++ {
			blockOff := offset(pageStart + i*classSize)
			a.listAdd(&a.hdr.freeListHeads[classIdx], blockOff)
		}
	}

	blockOff := a.hdr.freeListHeads[classIdx]
	a.listRemove(&a.hdr.freeListHeads[classIdx], blockOff)

	h := a.headerAt(blockOff)
	payload := xunsafe.ByteAdd[byte](a.ptrAt(blockOff), allocHeaderSize)
	payloadCap := classSize - allocHeaderSize

	switch a.opts.Fill {
	case FillZero:
		clear(unsafe.Slice(payload, payloadCap))
	case FillDebugPattern:
		if bytes < payloadCap {
			tail := unsafe.Slice(xunsafe.ByteAdd[byte](payload, bytes), payloadCap-bytes)
			stampDebugFill(tail)
		}
	}

	h.size = bytes
	h.alignment = 0
	h.loc.set(loc)

	a.listAdd(&a.hdr.activeHead, blockOff)

	page := a.pageIndexOf(blockOff)
	debug.Log(nil, "sub-alloc", "class=%d bytes=%d page=%d newPage=%v", classSize, bytes, page, newPage)

	if a.allocHook != nil {
		grabbed := uint32(0)
		if newPage {
			grabbed = 1
		}
		a.allocHook(a, uintptr(unsafe.Pointer(a.ptrAt(blockOff))), bytes, classSize, page, grabbed)
	}

	return payload
}

// subRelease returns a block to its class's free list and, if that empties
// the whole page, releases the page back to the page-level bitmap
// (spec.md §4.6).
func (a *Arena) subRelease(hdrOff offset, classIdx int, loc string) {
	classSize := classSizes[classIdx]

	h := a.headerAt(hdrOff)
	oldSize := h.size

	a.listRemove(&a.hdr.activeHead, hdrOff)
	h.size = 0
	a.hdr.requestedBytes -= oldSize
	a.listAdd(&a.hdr.freeListHeads[classIdx], hdrOff)

	page := a.pageIndexOf(hdrOff)
	pageStart := page * a.hdr.pageSize
	blocksPerPage := a.hdr.pageSize / classSize

	allFree := true
	for i := uint32(0); i < blocksPerPage; i++ {
		if a.headerAt(offset(pageStart + i*classSize)).size != 0 {
			allFree = false
			break
		}
	}

	pageReleased := false
	if allFree {
		// Walk the page, not the free list, to unlink every block of this
		// page for locality (spec.md §4.6 step 3).
		for i := uint32(0); i < blocksPerPage; i++ {
			a.listRemove(&a.hdr.freeListHeads[classIdx], offset(pageStart+i*classSize))
		}
		a.clearRange(page, 1)
		pageReleased = true
	}

	debug.Log(nil, "sub-release", "class=%d bytes=%d page=%d pageReleased=%v loc=%s", classSize, oldSize, page, pageReleased, loc)

	if a.releaseHook != nil {
		flag := uint32(0)
		if pageReleased {
			flag = 1
		}
		a.releaseHook(a, uintptr(unsafe.Pointer(a.ptrAt(hdrOff))), oldSize, classSize, page, flag)
	}
}
