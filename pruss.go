//go:build linux

// Package pruss drives the dual-core programmable real-time unit subsystem
// found on AM335x processors through the uio_pruss kernel interface. It maps
// the subsystem memory windows, loads and controls the two cores, routes
// system events to the host, and hands out typed views of the data RAMs.
//
// A process holds at most one Subsystem at a time:
//
//	pru, err := pruss.Open(nil)
//	if err != nil {
//		return err
//	}
//	defer pru.Close()
//
//	irq, err := pru.Intc.RegisterIrq(pruss.Evtout0)
//	if err != nil {
//		return err
//	}
//	defer irq.Close()
//
//	fw, err := os.Open("firmware.bin")
//	if err != nil {
//		return err
//	}
//	defer fw.Close()
//
//	code, err := pru.Pru0.LoadCode(fw)
//	if err != nil {
//		return err
//	}
//	code.Run()
//
//	if _, err := irq.Wait(); err != nil {
//		return err
//	}
package pruss

import (
	"github.com/beaglekit/pruss/internal/icss"
	"github.com/beaglekit/pruss/internal/intc"
	"github.com/beaglekit/pruss/internal/memseg"
	"github.com/beaglekit/pruss/internal/pru"
	"github.com/beaglekit/pruss/internal/reg"
)

// -----------------------------------------------------------------------------
// Type Aliases - These re-export types from the internal packages
// -----------------------------------------------------------------------------

// Subsystem is an open coprocessor subsystem. See Open.
type Subsystem = icss.Subsystem

// IntcConfig describes how system events reach the cores and the host.
type IntcConfig = intc.Config

// Intc drives the subsystem interrupt controller.
type Intc = intc.Controller

// Irq waits for event out notifications on one line.
type Irq = intc.Irq

// Loader loads code images into one core's instruction RAM.
type Loader = pru.Loader

// Code controls the execution of a loaded code image.
type Code = pru.Code

// Segment is a range of subsystem data RAM that values can be allocated in.
type Segment = memseg.Segment

// Ref is a value allocated in subsystem data RAM. See Alloc.
type Ref[T any] = memseg.Ref[T]

// U32 is a 32-bit device register. Use it for fields of structs allocated
// in data RAM that both the host and a core access concurrently.
type U32 = reg.U32

// Sysevt is a system event index.
type Sysevt = intc.Sysevt

// Channel is an interrupt controller channel index.
type Channel = intc.Channel

// Host is a host interrupt index. Hosts 0 and 1 interrupt the cores,
// hosts 2 through 9 drive the event out lines.
type Host = intc.Host

// Evtout is an event out line index.
type Evtout = intc.Evtout

// SysevtToChannel maps one system event to a channel.
type SysevtToChannel = intc.SysevtToChannel

// ChannelToHost maps one channel to a host interrupt.
type ChannelToHost = intc.ChannelToHost

// Option adjusts where Open looks for the kernel interface.
type Option = icss.Option

// Subsystem memory map constants, as byte offsets into the coprocessor
// window.
const (
	Dram0Offset = icss.Dram0Offset
	Dram0Size   = icss.Dram0Size
	Dram1Offset = icss.Dram1Offset
	Dram1Size   = icss.Dram1Size
	Dram2Offset = icss.Dram2Offset
	Dram2Size   = icss.Dram2Size
	Iram0Size   = icss.Iram0Size
	Iram1Size   = icss.Iram1Size
)

// Index space sizes.
const (
	NumSysevts  = intc.NumSysevts
	NumChannels = intc.NumChannels
	NumHosts    = intc.NumHosts
	NumEvtouts  = intc.NumEvtouts
)

// System event indexes.
const (
	Sysevt0  = intc.Sysevt0
	Sysevt1  = intc.Sysevt1
	Sysevt2  = intc.Sysevt2
	Sysevt3  = intc.Sysevt3
	Sysevt4  = intc.Sysevt4
	Sysevt5  = intc.Sysevt5
	Sysevt6  = intc.Sysevt6
	Sysevt7  = intc.Sysevt7
	Sysevt8  = intc.Sysevt8
	Sysevt9  = intc.Sysevt9
	Sysevt10 = intc.Sysevt10
	Sysevt11 = intc.Sysevt11
	Sysevt12 = intc.Sysevt12
	Sysevt13 = intc.Sysevt13
	Sysevt14 = intc.Sysevt14
	Sysevt15 = intc.Sysevt15
	Sysevt16 = intc.Sysevt16
	Sysevt17 = intc.Sysevt17
	Sysevt18 = intc.Sysevt18
	Sysevt19 = intc.Sysevt19
	Sysevt20 = intc.Sysevt20
	Sysevt21 = intc.Sysevt21
	Sysevt22 = intc.Sysevt22
	Sysevt23 = intc.Sysevt23
	Sysevt24 = intc.Sysevt24
	Sysevt25 = intc.Sysevt25
	Sysevt26 = intc.Sysevt26
	Sysevt27 = intc.Sysevt27
	Sysevt28 = intc.Sysevt28
	Sysevt29 = intc.Sysevt29
	Sysevt30 = intc.Sysevt30
	Sysevt31 = intc.Sysevt31
	Sysevt32 = intc.Sysevt32
	Sysevt33 = intc.Sysevt33
	Sysevt34 = intc.Sysevt34
	Sysevt35 = intc.Sysevt35
	Sysevt36 = intc.Sysevt36
	Sysevt37 = intc.Sysevt37
	Sysevt38 = intc.Sysevt38
	Sysevt39 = intc.Sysevt39
	Sysevt40 = intc.Sysevt40
	Sysevt41 = intc.Sysevt41
	Sysevt42 = intc.Sysevt42
	Sysevt43 = intc.Sysevt43
	Sysevt44 = intc.Sysevt44
	Sysevt45 = intc.Sysevt45
	Sysevt46 = intc.Sysevt46
	Sysevt47 = intc.Sysevt47
	Sysevt48 = intc.Sysevt48
	Sysevt49 = intc.Sysevt49
	Sysevt50 = intc.Sysevt50
	Sysevt51 = intc.Sysevt51
	Sysevt52 = intc.Sysevt52
	Sysevt53 = intc.Sysevt53
	Sysevt54 = intc.Sysevt54
	Sysevt55 = intc.Sysevt55
	Sysevt56 = intc.Sysevt56
	Sysevt57 = intc.Sysevt57
	Sysevt58 = intc.Sysevt58
	Sysevt59 = intc.Sysevt59
	Sysevt60 = intc.Sysevt60
	Sysevt61 = intc.Sysevt61
	Sysevt62 = intc.Sysevt62
	Sysevt63 = intc.Sysevt63
)

// Channel indexes.
const (
	Channel0 = intc.Channel0
	Channel1 = intc.Channel1
	Channel2 = intc.Channel2
	Channel3 = intc.Channel3
	Channel4 = intc.Channel4
	Channel5 = intc.Channel5
	Channel6 = intc.Channel6
	Channel7 = intc.Channel7
	Channel8 = intc.Channel8
	Channel9 = intc.Channel9
)

// Host interrupt indexes.
const (
	HostPru0    = intc.HostPru0
	HostPru1    = intc.HostPru1
	HostEvtout0 = intc.HostEvtout0
	HostEvtout1 = intc.HostEvtout1
	HostEvtout2 = intc.HostEvtout2
	HostEvtout3 = intc.HostEvtout3
	HostEvtout4 = intc.HostEvtout4
	HostEvtout5 = intc.HostEvtout5
	HostEvtout6 = intc.HostEvtout6
	HostEvtout7 = intc.HostEvtout7
)

// Event out line indexes.
const (
	Evtout0 = intc.Evtout0
	Evtout1 = intc.Evtout1
	Evtout2 = intc.Evtout2
	Evtout3 = intc.Evtout3
	Evtout4 = intc.Evtout4
	Evtout5 = intc.Evtout5
	Evtout6 = intc.Evtout6
	Evtout7 = intc.Evtout7
)

// Common sentinel errors. Match with errors.Is.
var (
	// ErrAlreadyInstantiated indicates a Subsystem already exists in this
	// process. Close it before opening another.
	ErrAlreadyInstantiated = icss.ErrAlreadyInstantiated

	// ErrPermissionDenied indicates the kernel interface exists but access
	// was refused. Check the device node permissions.
	ErrPermissionDenied = icss.ErrPermissionDenied

	// ErrDeviceNotFound indicates the device node or one of its sysfs
	// attributes is missing, typically because the uio_pruss kernel module
	// is not loaded.
	ErrDeviceNotFound = icss.ErrDeviceNotFound

	// ErrOtherDevice covers every other operating system failure while
	// talking to the kernel interface.
	ErrOtherDevice = icss.ErrOtherDevice
)

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

// WithDevice sets the UIO device node exposing the subsystem memory windows.
// The default is /dev/uio0.
func WithDevice(path string) Option {
	return &deviceOption{path: path}
}

type deviceOption struct{ path string }

func (*deviceOption) IsOption()        {}
func (o *deviceOption) Device() string { return o.path }

// WithMemSizeFiles sets the sysfs attributes holding the sizes of the
// coprocessor and host memory windows. The defaults are the map0 and map1
// size files of /sys/class/uio/uio0.
func WithMemSizeFiles(pruMem, hostMem string) Option {
	return &memSizeFilesOption{pruMem: pruMem, hostMem: hostMem}
}

type memSizeFilesOption struct{ pruMem, hostMem string }

func (*memSizeFilesOption) IsOption() {}
func (o *memSizeFilesOption) MemSizeFiles() (string, string) {
	return o.pruMem, o.hostMem
}

// WithEventPrefix sets the path fragment that event out line numbers are
// appended to when opening notification devices. Line n is UIO device n, so
// the default prefix /dev/uio names /dev/uio0 through /dev/uio7.
func WithEventPrefix(prefix string) Option {
	return &eventPrefixOption{prefix: prefix}
}

type eventPrefixOption struct{ prefix string }

func (*eventPrefixOption) IsOption()             {}
func (o *eventPrefixOption) EventPrefix() string { return o.prefix }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

// Open claims the process-wide subsystem context, maps the device memory
// windows, and applies the interrupt routing in cfg. A nil cfg applies
// DefaultIntcConfig. The caller must call Close on the returned Subsystem
// when finished.
func Open(cfg *IntcConfig, opts ...Option) (*Subsystem, error) {
	if cfg == nil {
		cfg = intc.DefaultConfig()
	}
	return icss.Open(cfg, opts...)
}

// NewIntcConfig returns an empty interrupt routing. Fill it with the
// IntcConfig setters before passing it to Open.
func NewIntcConfig() *IntcConfig {
	return intc.NewConfig()
}

// DefaultIntcConfig returns the canonical routing: system events 17 through
// 22 are spread over four channels driving the two cores and the first two
// event out lines.
func DefaultIntcConfig() *IntcConfig {
	return intc.DefaultConfig()
}

// ParseIntcConfig decodes an interrupt routing from YAML.
func ParseIntcConfig(data []byte) (*IntcConfig, error) {
	return intc.ParseConfig(data)
}

// LoadIntcConfig reads an interrupt routing from a YAML file.
func LoadIntcConfig(path string) (*IntcConfig, error) {
	return intc.LoadConfigFile(path)
}

// NewSysevt returns the system event with the given index. It panics when
// the index is out of range.
func NewSysevt(n uint8) Sysevt { return intc.NewSysevt(n) }

// NewChannel returns the channel with the given index. It panics when the
// index is out of range.
func NewChannel(n uint8) Channel { return intc.NewChannel(n) }

// NewHost returns the host interrupt with the given index. It panics when
// the index is out of range.
func NewHost(n uint8) Host { return intc.NewHost(n) }

// NewEvtout returns the event out line with the given index. It panics when
// the index is out of range.
func NewEvtout(n uint8) Evtout { return intc.NewEvtout(n) }

// Alloc places a copy of v at the start of segment s and returns a reference
// to it. It panics when T contains pointers or does not fit the segment. The
// segment stays busy until the reference is released.
func Alloc[T any](s *Segment, v T) *Ref[T] {
	return memseg.Alloc(s, v)
}

// AllocUninit is Alloc without the initial store: the referenced value keeps
// whatever the RAM currently holds.
func AllocUninit[T any](s *Segment) *Ref[T] {
	return memseg.AllocUninit[T](s)
}
