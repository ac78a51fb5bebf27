package memarena

import (
	"fmt"
	"strings"

	"github.com/flier/memarena/internal/debug"
)

// debugPageIndex returns the page index of the single reserved debug page,
// the last overhead page Initialize carved out (spec.md §4.10).
func (a *Arena) debugPageIndex() uint32 { return a.hdr.overheadPages - 1 }

// RequestDbgPage acquires single ownership of the reserved debug page and
// returns it as a scratch buffer. Reentrant acquisition asserts in debug
// builds and returns nil in release builds.
func (a *Arena) RequestDbgPage() []byte {
	held := a.hdr.dbgPageHeld != 0
	debug.Assert(!held, "RequestDbgPage: already held")
	if held {
		return nil
	}

	a.hdr.dbgPageHeld = 1
	return a.pageBytes(a.debugPageIndex())
}

// ReleaseDbgPage releases ownership acquired by RequestDbgPage. Releasing
// when not held asserts in debug builds and is a no-op in release builds.
func (a *Arena) ReleaseDbgPage() {
	held := a.hdr.dbgPageHeld != 0
	debug.Assert(held, "ReleaseDbgPage: not held")
	a.hdr.dbgPageHeld = 0
}

// MemInfo composes a human-readable report of the arena's current state —
// page accounting, the active-allocation list, and an ASCII bitmap chart —
// into the debug page, streaming it to writeCallback in page-sized chunks
// (spec.md §4.10).
func (a *Arena) MemInfo(writeCallback func(chunk []byte, userdata any), userdata any) {
	scratch := a.RequestDbgPage()
	if scratch == nil {
		return
	}
	defer a.ReleaseDbgPage()

	total := a.TotalPages()

	var sb strings.Builder
	fmt.Fprintf(&sb, "pages=%d page_size=%d size=%dKiB (%.2fMiB)\n",
		total, a.hdr.pageSize, a.hdr.arenaSize/1024, float64(a.hdr.arenaSize)/(1024*1024))
	fmt.Fprintf(&sb, "in_use=%d peak=%d overhead=%d free=%d\n",
		a.hdr.pagesInUse, a.hdr.peakPagesInUse, a.hdr.overheadPages, total-a.hdr.pagesInUse)
	fmt.Fprintf(&sb, "requested_bytes=%d\n", a.hdr.requestedBytes)

	sb.WriteString("active:\n")
	for off := a.hdr.activeHead; off != nullOffset; {
		h := a.headerAt(off)
		fmt.Fprintf(&sb, "  %v\n", debug.Dict("alloc",
			"offset", uint32(off),
			"size", h.size,
			"alignment", h.alignment,
			"page", a.pageIndexOf(off),
			"prev", uint32(h.prevOffset),
			"next", uint32(h.nextOffset),
			"loc", h.loc.get(),
		))
		off = h.nextOffset
	}

	sb.WriteString("bitmap:\n")
	for i := uint32(0); i < total; i++ {
		switch {
		case i < a.hdr.overheadPages:
			sb.WriteByte('!')
		case testBit(a.bitmap, i):
			sb.WriteByte('#')
		default:
			sb.WriteByte('.')
		}
		if (i+1)%80 == 0 {
			sb.WriteByte('\n')
		}
	}
	sb.WriteByte('\n')

	report := sb.String()
	for len(report) > 0 {
		n := copy(scratch, report)
		writeCallback(scratch[:n], userdata)
		report = report[n:]
	}
}

// PageContent streams the raw contents of the given page to writeCallback
// in four equal chunks (spec.md §4.10).
func (a *Arena) PageContent(page uint32, writeCallback func(chunk []byte, userdata any), userdata any) {
	debug.Assert(page < a.TotalPages(), "PageContent: page %d out of range", page)

	buf := a.pageBytes(page)
	quarter := len(buf) / 4

	for i := 0; i < 4; i++ {
		start := i * quarter
		end := start + quarter
		if i == 3 {
			end = len(buf)
		}
		writeCallback(buf[start:end], userdata)
	}
}
