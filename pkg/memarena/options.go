package memarena

// SearchPolicy selects how FindRange resumes scanning the page bitmap.
type SearchPolicy uint8

const (
	// FirstFit always restarts the scan from bit 0.
	FirstFit SearchPolicy = iota

	// CursorAdvancing resumes the scan from the header's scan cursor,
	// wrapping around to 0 at most once.
	CursorAdvancing
)

// FillPolicy selects what, if anything, Allocate does to a freshly returned
// payload before handing it to the caller.
type FillPolicy uint8

const (
	// FillNone leaves the payload contents untouched.
	FillNone FillPolicy = iota

	// FillZero clears the payload to zero.
	FillZero

	// FillDebugPattern stamps the repeating "-MEMORY-" pattern, so stale
	// reads are obvious in a hex dump. In the sub-allocator path it covers
	// the block's unused tail past the requested bytes; in the page-level
	// path it covers the requested payload itself.
	FillDebugPattern
)

// Options configures an Arena for its entire lifetime. Initialize stores a
// copy in the Arena, and there is no way to change it afterwards.
type Options struct {
	// Search selects the page bitmap search policy. Zero value is FirstFit.
	Search SearchPolicy

	// Fill selects the on-allocate fill behavior. Zero value is FillNone.
	Fill FillPolicy

	// DisableSubAllocator forces every Allocate call, aligned or not, through
	// the page-level path. Sub-allocator classes are never carved.
	DisableSubAllocator bool
}

const debugFillPattern = "-MEMORY-"

// stampDebugFill repeats debugFillPattern over buf.
func stampDebugFill(buf []byte) {
	for i := range buf {
		buf[i] = debugFillPattern[i%len(debugFillPattern)]
	}
}
