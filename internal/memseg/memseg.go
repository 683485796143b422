// Package memseg carves device memory mappings into non-overlapping segment
// views and places typed objects in them.
//
// A Segment is a half-open window [Begin, End) of one backing mapping.
// Positions are absolute byte offsets into the mapping, not offsets from the
// segment start, so alignment checks are physically meaningful and positions
// keep their meaning across splits. Misuse (splitting a consumed segment,
// allocating past capacity, touching a released allocation) is a programmer
// error and panics.
//
// Segments are not safe for concurrent use.
package memseg

import (
	"fmt"
	"reflect"
	"unsafe"
)

type state uint8

const (
	live state = iota
	consumed
	busy
)

// Segment is a view over a contiguous span of device memory. At any moment a
// span of the backing mapping is reachable through exactly one live segment,
// so two segments never alias.
type Segment struct {
	mem   []byte
	from  int
	to    int
	state state
}

// New returns a segment over mem[from:to]. Positions handed to SplitAt are
// absolute, in the same coordinate system as from and to.
func New(mem []byte, from, to int) *Segment {
	if from < 0 || from > to || to > len(mem) {
		panic(fmt.Sprintf("memseg: segment [%#x, %#x) outside mapping of %#x bytes", from, to, len(mem)))
	}
	return &Segment{mem: mem, from: from, to: to}
}

// Begin returns the absolute position of the first byte of the segment.
func (s *Segment) Begin() int {
	s.checkConsumed("Begin")
	return s.from
}

// End returns the absolute position one past the last byte of the segment.
func (s *Segment) End() int {
	s.checkConsumed("End")
	return s.to
}

// SplitAt divides the segment at the absolute position pos, returning the
// views [Begin, pos) and [pos, End). The receiver is consumed: any later use
// of it panics. pos may equal Begin or End, leaving one half empty; a pos
// outside the segment panics.
func (s *Segment) SplitAt(pos int) (*Segment, *Segment) {
	s.checkLive("SplitAt")
	if pos < s.from || pos > s.to {
		panic(fmt.Sprintf("memseg: split position %#x outside segment [%#x, %#x]", pos, s.from, s.to))
	}
	s.state = consumed
	lo := &Segment{mem: s.mem, from: s.from, to: pos}
	hi := &Segment{mem: s.mem, from: pos, to: s.to}
	return lo, hi
}

func (s *Segment) checkConsumed(op string) {
	if s.state == consumed {
		panic("memseg: " + op + " on a segment consumed by SplitAt")
	}
}

func (s *Segment) checkLive(op string) {
	switch s.state {
	case consumed:
		panic("memseg: " + op + " on a segment consumed by SplitAt")
	case busy:
		panic("memseg: " + op + " on a segment with an outstanding allocation")
	}
}

// Ref is an allocation placed at the start of a segment. The segment refuses
// further splits and allocations until Release is called.
type Ref[T any] struct {
	seg *Segment
	p   *T
}

// Alloc places a copy of v at the start of the segment.
//
// T must be pointer-free (device memory is invisible to the garbage
// collector) and have nonzero size. The segment start must satisfy T's
// alignment and T must fit in the segment; violations panic.
func Alloc[T any](s *Segment, v T) *Ref[T] {
	r := AllocUninit[T](s)
	*r.p = v
	return r
}

// AllocUninit places a T at the start of the segment without initializing
// it: the object has whatever contents the memory already held. Skipping the
// copy matters for large sample buffers the coprocessor fills anyway. The
// constraints are those of Alloc.
func AllocUninit[T any](s *Segment) *Ref[T] {
	s.checkLive("Alloc")

	t := reflect.TypeFor[T]()
	var zero T
	size := int(unsafe.Sizeof(zero))
	align := int(unsafe.Alignof(zero))

	if hasPointers(t) {
		panic(fmt.Sprintf("memseg: cannot place %v in device memory: type contains pointers", t))
	}
	if size == 0 {
		panic(fmt.Sprintf("memseg: cannot place zero-size type %v in device memory", t))
	}
	if s.from%align != 0 {
		panic(fmt.Sprintf("memseg: segment start %#x is not %d-byte aligned for %v", s.from, align, t))
	}
	if size > s.to-s.from {
		panic(fmt.Sprintf("memseg: %v needs %#x bytes, segment [%#x, %#x) holds %#x", t, size, s.from, s.to, s.to-s.from))
	}

	s.state = busy
	return &Ref[T]{seg: s, p: (*T)(unsafe.Pointer(&s.mem[s.from]))}
}

// Ptr returns the placed object. It panics after Release.
func (r *Ref[T]) Ptr() *T {
	if r.p == nil {
		panic("memseg: use of a released allocation")
	}
	return r.p
}

// Release returns the segment to the allocatable state. The pointer obtained
// through Ptr must not be used afterwards; Release panics if called twice.
func (r *Ref[T]) Release() {
	if r.p == nil {
		panic("memseg: allocation released twice")
	}
	r.p = nil
	r.seg.state = live
}

// hasPointers reports whether values of type t contain any pointer the
// collector would need to see.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
