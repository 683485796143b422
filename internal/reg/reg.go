// Package reg provides access to memory-mapped 32-bit registers.
//
// Every load and store goes through sync/atomic so each access is issued
// exactly once, in program order, and is never widened, narrowed, or elided.
// Ordinary slice indexing into a device mapping gives none of these
// guarantees.
package reg

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// U32 is a single 32-bit cell in device memory. The zero value is ready to
// use. U32 is exported so callers can embed live cells in control structures
// placed in shared memory.
type U32 struct {
	v uint32
}

// Load reads the cell.
func (r *U32) Load() uint32 { return atomic.LoadUint32(&r.v) }

// Store writes the cell.
func (r *U32) Store(v uint32) { atomic.StoreUint32(&r.v, v) }

// Block is a window of consecutive 32-bit registers addressed by word index.
// Out-of-range indexes panic.
type Block interface {
	Load(i int) uint32
	Store(i int, v uint32)
	Words() int
}

// MapBlock returns a Block over words consecutive registers starting at byte
// offset off in mem. The window must lie inside mem and start on a 4-byte
// boundary; a violation is a layout bug and panics.
func MapBlock(mem []byte, off, words int) Block {
	if off < 0 || words <= 0 || off+words*4 > len(mem) {
		panic(fmt.Sprintf("reg: block [%#x, %#x) outside mapping of %#x bytes", off, off+words*4, len(mem)))
	}
	base := unsafe.Pointer(&mem[off])
	if uintptr(base)%4 != 0 {
		panic(fmt.Sprintf("reg: block base at offset %#x is not 32-bit aligned", off))
	}
	return &mapped{regs: unsafe.Slice((*U32)(base), words)}
}

type mapped struct {
	regs []U32
}

func (m *mapped) Load(i int) uint32     { return m.regs[i].Load() }
func (m *mapped) Store(i int, v uint32) { m.regs[i].Store(v) }
func (m *mapped) Words() int            { return len(m.regs) }

var (
	_ Block = (*mapped)(nil)
)
