package memarena

import (
	"errors"
	"unsafe"

	"github.com/flier/memarena/pkg/xunsafe"
	"github.com/flier/memarena/pkg/xunsafe/layout"
)

// ErrOutOfMemory is returned by New when the arena cannot satisfy the
// allocation backing the new value.
var ErrOutOfMemory = errors.New("memarena: out of memory")

// New allocates room for one T inside a, copies value into it, and returns
// a pointer to the live copy. It is the generic counterpart of the
// teacher's arena.New, generalized from up-to-three positional constructor
// arguments to a single value of any type (spec.md §4.11).
func New[T any](a *Arena, value T) (*T, error) {
	layout := layout.Of[T]()

	p := a.Allocate(layout.Size, layout.Align, "")
	if p == nil {
		return nil, ErrOutOfMemory
	}

	obj := xunsafe.Cast[T](p)
	*obj = value

	return obj, nil
}

// Delete releases the allocation backing p, which must have been returned
// by New[T] against the same arena. p is not zeroed; callers that need
// defined post-free contents should zero *p themselves before calling
// Delete.
func Delete[T any](a *Arena, p *T) {
	if p == nil {
		return
	}

	a.Release((*byte)(unsafe.Pointer(p)), "")
}
