package memarena

// AllocateHook is invoked on every large (page-level) allocation and on
// every sub-allocator call, whether or not it needed to carve a fresh page.
//
// firstPage is the index of the first page backing the allocation.
// numPages is the page count for a page-level allocation, or for a
// sub-allocator call, 1 if a new page was carved to service it and 0 if it
// was served from the class's existing free list (spec.md §6, O3).
type AllocateHook func(a *Arena, headerAddr uintptr, bytesRequested, bytesServed, firstPage, numPages uint32)

// ReleaseHook is invoked on every large release and every sub-allocator
// release.
//
// numPagesOrFreed mirrors the overload spec.md §6/O3 documents: in the
// page-level path it is the actual number of pages returned to the bitmap;
// in the sub-allocator path it is 1 if releasing this block also freed its
// whole page back to the page-level allocator, 0 otherwise.
type ReleaseHook func(a *Arena, headerAddr uintptr, oldBytesRequested, bytesServed, firstPage, numPagesOrFreed uint32)
