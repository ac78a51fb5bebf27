//go:build !tracklocation

package memarena

// location is a zero-size stand-in for the call-site string, present so
// AllocationHeader keeps the same field without widening it when the module
// is built without `-tags tracklocation`. See location_on.go.
type location struct{}

func (l *location) set(string) {}

func (l *location) get() string { return "" }
