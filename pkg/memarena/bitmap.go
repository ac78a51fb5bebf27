package memarena

import "github.com/flier/memarena/internal/debug"

func testBit(bitmap []uint32, i uint32) bool {
	return bitmap[i>>5]&(1<<(i&31)) != 0
}

func setBit(bitmap []uint32, i uint32) {
	bitmap[i>>5] |= 1 << (i & 31)
}

func clearBit(bitmap []uint32, i uint32) {
	bitmap[i>>5] &^= 1 << (i & 31)
}

// scanFrom looks for the first run of numPages consecutive clear bits in
// [start, limit). It returns the run's starting bit and true on success.
//
// Full 1-words are skipped 32 bits at a time; this is the same trick
// achilleasa/gopher-os's buddy allocator uses to avoid testing bits one by
// one across long used stretches.
func (a *Arena) scanFrom(start, limit, numPages uint32) (uint32, bool) {
	var runStart, runLen uint32

	i := start
	for i < limit {
		if a.bitmap[i>>5] == 0xFFFFFFFF && i&31 == 0 && i+32 <= limit {
			runStart, runLen = 0, 0
			i += 32
			continue
		}

		if !testBit(a.bitmap, i) {
			if runLen == 0 {
				runStart = i
			}
			runLen++
			if runLen == numPages {
				return runStart, true
			}
		} else {
			runLen = 0
		}
		i++
	}

	return 0, false
}

// findRange scans the bitmap for the first run of numPages consecutive free
// pages, per the search policy the arena was configured with. On success it
// advances the scan cursor to just past the run (used by CursorAdvancing).
func (a *Arena) findRange(numPages uint32) (uint32, bool) {
	total := a.TotalPages()
	if numPages == 0 || numPages > total {
		return 0, false
	}

	start := uint32(0)
	if a.opts.Search == CursorAdvancing {
		start = a.hdr.scanCursor % total
	}

	if r, ok := a.scanFrom(start, total, numPages); ok {
		a.hdr.scanCursor = r + numPages
		return r, true
	}

	if start == 0 {
		return 0, false
	}

	if r, ok := a.scanFrom(0, start, numPages); ok {
		a.hdr.scanCursor = r + numPages
		return r, true
	}

	return 0, false
}

// setRange marks [start, start+count) used, asserting every bit was
// previously clear, and updates the in-use/peak counters.
func (a *Arena) setRange(start, count uint32) {
	for i := start; i < start+count; i++ {
		debug.Assert(!testBit(a.bitmap, i), "setRange: page %d already in use", i)
		setBit(a.bitmap, i)
	}

	a.hdr.pagesInUse += count
	if a.hdr.pagesInUse > a.hdr.peakPagesInUse {
		a.hdr.peakPagesInUse = a.hdr.pagesInUse
	}
}

// clearRange marks [start, start+count) free, asserting every bit was
// previously set, and updates the in-use counter.
func (a *Arena) clearRange(start, count uint32) {
	for i := start; i < start+count; i++ {
		debug.Assert(testBit(a.bitmap, i), "clearRange: page %d already free", i)
		clearBit(a.bitmap, i)
	}

	a.hdr.pagesInUse -= count
}
