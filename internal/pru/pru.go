// Package pru controls the two coprocessor cores: loading code images into
// instruction RAM and starting, halting, and resetting execution.
package pru

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/beaglekit/pruss/internal/reg"
)

// Core control register values. The control register is word 0 of each
// core's control block.
const (
	ctrlReg = 0

	ctrlSoftReset = 0 // core held in soft reset
	ctrlHalt      = 1 // core stopped, state preserved
	ctrlRun       = 2 // core executing
)

// Loader writes code images into one core's instruction RAM.
//
// Loads must not overlap with each other; the handles they return may be
// shared across goroutines.
type Loader struct {
	name string
	ctrl reg.Block
	iram reg.Block
	gen  atomic.Uint32
}

// NewLoader returns a loader for one core. name tags errors and panics
// ("pru0"); ctrl is the core's control block and iram its instruction RAM
// window, whose size fixes the image capacity.
func NewLoader(name string, ctrl, iram reg.Block) *Loader {
	return &Loader{name: name, ctrl: ctrl, iram: iram}
}

// Capacity returns the instruction RAM size in bytes.
func (l *Loader) Capacity() int { return l.iram.Words() * 4 }

// Reset holds the core in soft reset by clearing its control register.
func (l *Loader) Reset() {
	l.ctrl.Store(ctrlReg, ctrlSoftReset)
}

// LoadCode resets the core, then copies a code image from r into instruction
// RAM. The reset always happens first: a load never targets a running core.
//
// An image may fill the instruction RAM exactly. One that does not fit, or
// an empty one, yields an error wrapping os.ErrInvalid and leaves the
// instruction RAM unwritten; other read errors are forwarded. On success the
// returned handle controls the new image and handles from earlier loads on
// this core go stale: their operations panic.
func (l *Loader) LoadCode(r io.Reader) (*Code, error) {
	l.Reset()

	// Stage through a buffer one byte larger than the instruction RAM: a
	// full read can only mean the image does not fit.
	buf := make([]byte, l.Capacity()+1)
	n, err := io.ReadFull(r, buf)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%s: code image exceeds instruction RAM capacity of %d bytes: %w", l.name, l.Capacity(), os.ErrInvalid)
	case err == io.EOF:
		return nil, fmt.Errorf("%s: empty code image: %w", l.name, os.ErrInvalid)
	case err != io.ErrUnexpectedEOF:
		return nil, fmt.Errorf("%s: read code image: %w", l.name, err)
	}

	// Whole words, ascending, the final partial word zero padded.
	for i := 0; i < n; i += 4 {
		var w [4]byte
		copy(w[:], buf[i:min(i+4, n)])
		l.iram.Store(i/4, binary.NativeEndian.Uint32(w[:]))
	}

	return &Code{l: l, gen: l.gen.Add(1)}, nil
}

// Code is a handle to the image most recently loaded into a core.
type Code struct {
	l   *Loader
	gen uint32
}

// Run starts the loaded code or, after Halt, resumes it.
func (c *Code) Run() {
	c.check("Run")
	c.l.ctrl.Store(ctrlReg, ctrlRun)
}

// Halt stops execution and preserves core state. Run resumes it.
func (c *Code) Halt() {
	c.check("Halt")
	c.l.ctrl.Store(ctrlReg, ctrlHalt)
}

// Reset puts the core back in soft reset.
func (c *Code) Reset() {
	c.check("Reset")
	c.l.ctrl.Store(ctrlReg, ctrlSoftReset)
}

func (c *Code) check(op string) {
	if c.gen != c.l.gen.Load() {
		panic(fmt.Sprintf("%s: %s on a stale code handle: a newer image was loaded", c.l.name, op))
	}
}
