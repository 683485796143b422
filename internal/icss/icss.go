//go:build linux

// Package icss assembles the coprocessor subsystem context: the memory
// windows of the kernel device, the interrupt controller, one loader per
// core, and the data RAM segments.
package icss

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/beaglekit/pruss/internal/intc"
	"github.com/beaglekit/pruss/internal/memseg"
	"github.com/beaglekit/pruss/internal/pru"
	"github.com/beaglekit/pruss/internal/reg"
	"github.com/beaglekit/pruss/internal/uio"
)

// Subsystem memory map, as byte offsets into the coprocessor window.
const (
	Dram0Offset = 0x00000 // 8kB data RAM, core 0
	Dram0Size   = 0x02000
	Dram1Offset = 0x02000 // 8kB data RAM, core 1
	Dram1Size   = 0x02000
	Dram2Offset = 0x10000 // 12kB shared data RAM
	Dram2Size   = 0x03000

	IntcOffset     = 0x20000 // interrupt controller registers
	Pru0CtrlOffset = 0x22000 // core 0 control block
	Pru1CtrlOffset = 0x24000 // core 1 control block

	Iram0Offset = 0x34000 // 8kB instruction RAM, core 0
	Iram0Size   = 0x02000
	Iram1Offset = 0x38000 // 8kB instruction RAM, core 1
	Iram1Size   = 0x02000

	// Register window sizes in words: the controller block runs to the
	// core 0 control block, control blocks use only the first word.
	intcWords = (Pru0CtrlOffset - IntcOffset) / 4
	ctrlWords = 8
)

// pruWindowMin is the smallest usable coprocessor window: it must reach the
// end of core 1's instruction RAM.
const pruWindowMin = Iram1Offset + Iram1Size

// Only one subsystem context may exist per process: the windows alias
// device state that a second context would fight over.
var active atomic.Bool

// Subsystem is an open coprocessor subsystem.
//
// The controller, the loaders, and the segments borrow the device windows
// and stay valid until Close. Wait handles from Intc.RegisterIrq are owned
// by their callers and survive Close.
type Subsystem struct {
	fd      int
	prumap  *uio.Mapping
	hostmap *uio.Mapping
	closed  atomic.Bool

	// Intc is the interrupt controller, configured at Open.
	Intc *intc.Controller

	// Pru0 and Pru1 load and control the two cores.
	Pru0 *pru.Loader
	Pru1 *pru.Loader

	// The data RAM views. Dram0 and Dram1 are private to their cores by
	// convention, Dram2 is shared between the cores, and Hostram is the
	// DDR region shared with the host.
	Dram0   *memseg.Segment
	Dram1   *memseg.Segment
	Dram2   *memseg.Segment
	Hostram *memseg.Segment
}

// Open claims the process-wide subsystem context, maps both device windows,
// applies the interrupt routing in cfg, and returns the assembled subsystem.
// The claim is released again on every failure path.
func Open(cfg *intc.Config, opts ...Option) (*Subsystem, error) {
	if !active.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInstantiated
	}

	s, err := open(cfg, parsePathOptions(opts))
	if err != nil {
		active.Store(false)
		return nil, err
	}
	return s, nil
}

func open(cfg *intc.Config, paths Paths) (*Subsystem, error) {
	fd, err := uio.OpenDevice(paths.Device)
	if err != nil {
		return nil, translate(err)
	}

	pruSize, err := uio.ReadMapSize(paths.PruMemSizeFile)
	if err != nil {
		unix.Close(fd)
		return nil, translate(err)
	}
	hostSize, err := uio.ReadMapSize(paths.HostMemSizeFile)
	if err != nil {
		unix.Close(fd)
		return nil, translate(err)
	}
	if pruSize < pruWindowMin {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: coprocessor window of %#x bytes does not cover the subsystem memory map (%#x bytes)", ErrOtherDevice, pruSize, pruWindowMin)
	}

	prumap, err := uio.MapRegion(fd, pruSize, 0)
	if err != nil {
		unix.Close(fd)
		return nil, translate(err)
	}
	hostmap, err := uio.MapRegion(fd, hostSize, 1)
	if err != nil {
		prumap.Close()
		unix.Close(fd)
		return nil, translate(err)
	}

	events := func(e intc.Evtout) (*os.File, error) {
		f, err := uio.OpenEvent(paths.EventPrefix, int(e))
		if err != nil {
			return nil, translate(err)
		}
		return f, nil
	}
	ic := intc.New(reg.MapBlock(prumap.Mem, IntcOffset, intcWords), events)
	ic.Apply(cfg)

	pru0 := pru.NewLoader("pru0",
		reg.MapBlock(prumap.Mem, Pru0CtrlOffset, ctrlWords),
		reg.MapBlock(prumap.Mem, Iram0Offset, Iram0Size/4))
	pru1 := pru.NewLoader("pru1",
		reg.MapBlock(prumap.Mem, Pru1CtrlOffset, ctrlWords),
		reg.MapBlock(prumap.Mem, Iram1Offset, Iram1Size/4))

	s := &Subsystem{
		fd:      fd,
		prumap:  prumap,
		hostmap: hostmap,

		Intc: ic,
		Pru0: pru0,
		Pru1: pru1,

		Dram0:   memseg.New(prumap.Mem, Dram0Offset, Dram0Offset+Dram0Size),
		Dram1:   memseg.New(prumap.Mem, Dram1Offset, Dram1Offset+Dram1Size),
		Dram2:   memseg.New(prumap.Mem, Dram2Offset, Dram2Offset+Dram2Size),
		Hostram: memseg.New(hostmap.Mem, 0, hostSize),
	}

	// Catch subsystems that are garbage collected without being closed.
	runtime.SetFinalizer(s, func(s *Subsystem) {
		if !s.closed.Load() {
			slog.Debug("pruss: subsystem was not closed before garbage collection, cleaning up")
			s.Close()
		}
	})

	return s, nil
}

// Close resets both cores, unmaps the windows, closes the device, and
// releases the process-wide claim. A second Close is a no-op. The first
// error is returned; later ones are logged.
func (s *Subsystem) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	// Stop instruction execution before the windows go away.
	s.Pru0.Reset()
	s.Pru1.Reset()

	var first error
	keep := func(err error) {
		if err == nil {
			return
		}
		if first == nil {
			first = err
		} else {
			slog.Debug("pruss: close subsystem", "error", err)
		}
	}

	keep(s.prumap.Close())
	keep(s.hostmap.Close())
	keep(unix.Close(s.fd))

	active.Store(false)
	return first
}
