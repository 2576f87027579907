package lib

import "unsafe"

// PtrLess reports whether a orders before b under a total order over
// pointer values. Comparing unrelated pointers with the built-in `<`
// operator is not available in Go for unsafe.Pointer, and even in
// languages that allow it the result is undefined across unrelated
// allocations; PtrLess instead orders by the pointers' integer
// representation, which is total and stable for the lifetime of the
// process.
func PtrLess(a, b unsafe.Pointer) bool {
	return uintptr(a) < uintptr(b)
}

// PtrCompare returns -1, 0 or 1 as a orders before, equal to, or after
// b under the same total order used by PtrLess.
func PtrCompare(a, b unsafe.Pointer) int {
	pa, pb := uintptr(a), uintptr(b)
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}
