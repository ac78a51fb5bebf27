//go:build go1.22

package memarena_test

import (
	"testing"
	"unsafe"

	. "github.com/smartystreets/goconvey/convey"

	. "github.com/flier/memarena/pkg/memarena"
)

// newTestArena builds a backing buffer large enough for MinPages+extraPages
// pages and returns a ready Arena, failing the test on any setup error.
func newTestArena(t *testing.T, extraPages int) *Arena {
	t.Helper()

	pages := MinPages + extraPages
	raw := make([]byte, pages*DefaultPageSize+8)

	buf, _ := AlignAndTrim(raw, 8, DefaultPageSize)
	if buf == nil {
		t.Fatal("AlignAndTrim failed to produce a usable buffer")
	}

	a := Initialize(buf, DefaultPageSize, Options{})
	if a == nil {
		t.Fatal("Initialize returned nil")
	}

	return a
}

func TestAlignAndTrim(t *testing.T) {
	Convey("Given an oversized raw buffer", t, func() {
		raw := make([]byte, 10*DefaultPageSize+37)

		Convey("When aligning and trimming it to page boundaries", func() {
			buf, dropped := AlignAndTrim(raw, 8, DefaultPageSize)

			Convey("Then the result is a whole multiple of the page size", func() {
				So(len(buf)%DefaultPageSize, ShouldEqual, 0)
				So(dropped, ShouldBeGreaterThan, 0)
			})

			Convey("Then the result starts 8-byte aligned", func() {
				So(uintptr(unsafe.Pointer(&buf[0]))%8, ShouldEqual, uintptr(0))
			})
		})

		Convey("When the buffer is too small to align", func() {
			buf, dropped := AlignAndTrim(nil, 8, DefaultPageSize)

			Convey("Then it fails by returning a nil slice and zero", func() {
				So(buf, ShouldBeNil)
				So(dropped, ShouldEqual, 0)
			})
		})
	})
}

func TestInitializeAndShutdown(t *testing.T) {
	Convey("Given a freshly initialized arena", t, func() {
		a := newTestArena(t, 0)

		Convey("Then it reports zero requested bytes", func() {
			So(a.RequestedBytes(), ShouldEqual, uint32(0))
		})

		Convey("Then its overhead pages are already accounted for", func() {
			So(a.PagesInUse(), ShouldBeGreaterThan, uint32(0))
			So(a.PagesInUse(), ShouldBeLessThan, a.TotalPages())
		})

		Convey("When Shutdown is called with nothing outstanding", func() {
			Shutdown(a)

			Convey("Then it does not panic", func() {
				So(true, ShouldBeTrue)
			})
		})
	})
}

func TestAllocateSmallUnaligned(t *testing.T) {
	Convey("Given an arena", t, func() {
		a := newTestArena(t, 0)
		baseline := a.PagesInUse()

		Convey("When allocating 50 unaligned bytes", func() {
			p := a.Allocate(50, 0, "")

			Convey("Then it succeeds and is sub-allocator backed", func() {
				So(p, ShouldNotBeNil)
				So(a.RequestedBytes(), ShouldEqual, uint32(50))
				So(a.PagesInUse(), ShouldEqual, baseline+1)
			})

			Convey("Then releasing it returns the carved page", func() {
				a.Release(p, "")

				So(a.RequestedBytes(), ShouldEqual, uint32(0))
				So(a.PagesInUse(), ShouldEqual, baseline)
			})
		})
	})
}

func TestAllocateAlignedLarge(t *testing.T) {
	Convey("Given an arena", t, func() {
		a := newTestArena(t, 10)

		Convey("When allocating 10000 bytes at a 64-byte alignment", func() {
			p := a.Allocate(10000, 64, "")

			Convey("Then the payload pointer honors the alignment", func() {
				So(p, ShouldNotBeNil)
				So(uintptr(unsafe.Pointer(p))%64, ShouldEqual, uintptr(0))
			})

			Convey("Then requested bytes reflects the user size, not the padded size", func() {
				So(a.RequestedBytes(), ShouldEqual, uint32(10000))
			})

			Convey("Then releasing it restores the prior counters", func() {
				before := a.PagesInUse()
				a.Release(p, "")

				So(a.RequestedBytes(), ShouldEqual, uint32(0))
				So(a.PagesInUse(), ShouldBeLessThan, before)
			})
		})
	})
}

func TestInterleavedSubAllocation(t *testing.T) {
	Convey("Given an arena", t, func() {
		a := newTestArena(t, 5)
		baseline := a.PagesInUse()

		// 40 bytes plus one allocHeader (16 or 24 bytes) fits class 64, whose
		// 4096-byte page holds 64 blocks, so the 65th allocation needs a
		// second page.
		Convey("When 65 successive unaligned 40-byte allocations are made", func() {
			ptrs := make([]*byte, 65)
			for i := range ptrs {
				ptrs[i] = a.Allocate(40, 0, "")
				So(ptrs[i], ShouldNotBeNil)
			}

			Convey("Then a second class-64 page was carved", func() {
				So(a.PagesInUse(), ShouldEqual, baseline+2)
			})

			Convey("Then releasing them all in reverse order frees both pages", func() {
				for i := len(ptrs) - 1; i >= 0; i-- {
					a.Release(ptrs[i], "")
				}

				So(a.RequestedBytes(), ShouldEqual, uint32(0))
				So(a.PagesInUse(), ShouldEqual, baseline)
			})
		})
	})
}

func TestAllocateExhaustion(t *testing.T) {
	Convey("Given a small arena", t, func() {
		a := newTestArena(t, 0)
		arenaSize := int(a.TotalPages() * a.PageSize())

		Convey("When a request exceeds the arena's own size", func() {
			before := a.RequestedBytes()
			p := a.Allocate(arenaSize, 0, "")

			Convey("Then it fails without mutating any counter", func() {
				So(p, ShouldBeNil)
				So(a.RequestedBytes(), ShouldEqual, before)
			})
		})
	})
}

func TestSetAndCopy(t *testing.T) {
	Convey("Given an arena with two allocations", t, func() {
		a := newTestArena(t, 0)
		dst := a.Allocate(64, 0, "")
		src := a.Allocate(64, 0, "")
		So(dst, ShouldNotBeNil)
		So(src, ShouldNotBeNil)

		Convey("When Set stamps the source with a byte value", func() {
			a.Set(src, 0xAB, 64)

			Convey("Then every byte of the region reads back that value", func() {
				buf := unsafe.Slice(src, 64)
				for _, b := range buf {
					So(b, ShouldEqual, byte(0xAB))
				}
			})

			Convey("Then Copy reproduces the region at dst", func() {
				a.Copy(dst, src, 64)

				got := unsafe.Slice(dst, 64)
				want := unsafe.Slice(src, 64)
				for i := range got {
					So(got[i], ShouldEqual, want[i])
				}
			})
		})
	})
}

func TestDebugSurface(t *testing.T) {
	Convey("Given an arena with one outstanding allocation", t, func() {
		a := newTestArena(t, 0)
		p := a.Allocate(128, 0, "caller-site")
		So(p, ShouldNotBeNil)

		Convey("When MemInfo is composed", func() {
			var chunks [][]byte
			a.MemInfo(func(chunk []byte, _ any) {
				cp := make([]byte, len(chunk))
				copy(cp, chunk)
				chunks = append(chunks, cp)
			}, nil)

			Convey("Then at least one chunk is produced", func() {
				So(len(chunks), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When PageContent streams page 0", func() {
			var total int
			a.PageContent(0, func(chunk []byte, _ any) {
				total += len(chunk)
			}, nil)

			Convey("Then it streams exactly one page's worth of bytes", func() {
				So(total, ShouldEqual, int(a.PageSize()))
			})
		})

		Convey("When the debug page is already held", func() {
			held := a.RequestDbgPage()
			So(held, ShouldNotBeNil)

			Convey("Then a reentrant request returns nil", func() {
				So(a.RequestDbgPage(), ShouldBeNil)
				a.ReleaseDbgPage()
			})
		})
	})
}
