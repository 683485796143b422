//go:build ignore

// This file demonstrates every public API in the pruss package.
// It is excluded from the build and serves as a reference and compile-time check.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	pruss "github.com/beaglekit/pruss"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// =========================================================================
	// IntcConfig - interrupt routing
	// =========================================================================

	// The default routing covers the common case: system events 17 through
	// 22 spread over the two cores and the first two event out lines.
	cfg := pruss.DefaultIntcConfig()

	// Build a custom routing from scratch.
	custom := pruss.NewIntcConfig()
	custom.MapSysevtsToChannels([]pruss.SysevtToChannel{
		{Sysevt: pruss.Sysevt19, Channel: pruss.Channel2},
		{Sysevt: pruss.Sysevt20, Channel: pruss.Channel3},
	})
	custom.MapChannelsToHosts([]pruss.ChannelToHost{
		{Channel: pruss.Channel2, Host: pruss.HostEvtout0},
		{Channel: pruss.Channel3, Host: pruss.HostEvtout1},
	})
	custom.AutoEnableSysevts()
	custom.AutoEnableHosts()

	// Or spell the enables out.
	custom.EnableSysevts([]pruss.Sysevt{pruss.Sysevt19, pruss.Sysevt20})
	custom.EnableHosts([]pruss.Host{pruss.HostEvtout0, pruss.HostEvtout1})

	// Routings also load from YAML.
	_, _ = pruss.ParseIntcConfig([]byte("events:\n  - sysevt: 19\n    channel: 2\nhosts:\n  - channel: 2\n    host: 2\n"))
	_, _ = pruss.LoadIntcConfig("routing.yaml")

	// Checked index constructors panic on out-of-range values.
	_ = pruss.NewSysevt(21)
	_ = pruss.NewChannel(3)
	_ = pruss.NewHost(2)
	_ = pruss.NewEvtout(1)
	_ = pruss.Evtout1.Host() // the host interrupt behind an event out line

	// =========================================================================
	// Open - claiming the subsystem
	// =========================================================================

	// Open with the default kernel interface paths. A nil config applies
	// DefaultIntcConfig.
	pru, err := pruss.Open(cfg,
		pruss.WithDevice("/dev/uio0"),
		pruss.WithMemSizeFiles(
			"/sys/class/uio/uio0/maps/map0/size",
			"/sys/class/uio/uio0/maps/map1/size",
		),
		pruss.WithEventPrefix("/dev/uio"),
	)
	switch {
	case errors.Is(err, pruss.ErrAlreadyInstantiated):
		return fmt.Errorf("subsystem already open in this process: %w", err)
	case errors.Is(err, pruss.ErrDeviceNotFound):
		return fmt.Errorf("is the uio_pruss module loaded? %w", err)
	case errors.Is(err, pruss.ErrPermissionDenied):
		return fmt.Errorf("check the device permissions: %w", err)
	case errors.Is(err, pruss.ErrOtherDevice):
		return err
	case err != nil:
		return err
	}
	defer pru.Close()

	// =========================================================================
	// Irq - waiting for events
	// =========================================================================

	irq, err := pru.Intc.RegisterIrq(pruss.Evtout0)
	if err != nil {
		return fmt.Errorf("register irq: %w", err)
	}
	defer irq.Close()
	_ = irq.Evtout()

	// =========================================================================
	// Loader and Code - running firmware
	// =========================================================================

	_ = pru.Pru0.Capacity() // instruction RAM size in bytes

	image := bytes.NewReader([]byte{0x24, 0x00, 0x00, 0x24}) // normally os.Open a firmware file
	code, err := pru.Pru0.LoadCode(image)
	if err != nil {
		return fmt.Errorf("load code: %w", err)
	}

	code.Run()
	code.Halt()
	code.Reset()
	code.Run()

	// Loading a new image invalidates earlier Code handles. Their methods
	// panic from then on.
	fresh, err := pru.Pru0.LoadCode(bytes.NewReader([]byte{0x2a, 0x00, 0x00, 0x00}))
	if err != nil {
		return fmt.Errorf("load code: %w", err)
	}
	fresh.Run()

	// =========================================================================
	// Segments and Alloc - typed views of data RAM
	// =========================================================================

	// Carve the core 0 data RAM into two independent segments.
	lo, hi := pru.Dram0.SplitAt(0x1000)
	_, _ = lo.Begin(), lo.End()

	// Place a value in RAM. The type must be free of pointers.
	type sample struct {
		Magic   uint32
		Scale   uint16
		Levels  [16]uint8
		Control pruss.U32 // safe for concurrent host and core access
	}
	ref := pruss.Alloc(hi, sample{Magic: 0xbeef1e57, Scale: 4})
	ref.Ptr().Levels[0] = 0x80
	ref.Ptr().Control.Store(1)
	_ = ref.Ptr().Control.Load()
	ref.Release()

	// AllocUninit skips the initial store and exposes the RAM as it is.
	raw := pruss.AllocUninit[[64]byte](hi)
	_ = raw.Ptr()[0]
	raw.Release()

	// The other RAMs work the same way.
	_ = pru.Dram1   // 8kB, core 1
	_ = pru.Dram2   // 12kB, shared between the cores
	_ = pru.Hostram // DDR window shared with the host

	// =========================================================================
	// Intc - poking the interrupt controller directly
	// =========================================================================

	pru.Intc.SendSysevt(pruss.Sysevt21)   // fire an event from the host
	pru.Intc.ClearSysevt(pruss.Sysevt21)  // acknowledge it
	pru.Intc.EnableSysevt(pruss.Sysevt21) // gate a single event
	pru.Intc.DisableSysevt(pruss.Sysevt21)
	pru.Intc.EnableHost(pruss.HostEvtout0) // re-arm a host interrupt
	pru.Intc.DisableHost(pruss.HostEvtout0)
	_ = pru.Intc.RawStatus() // all 64 raw event status bits

	// =========================================================================
	// Wait loop - the usual event handling shape
	// =========================================================================

	count, err := irq.Wait()
	if err != nil {
		return fmt.Errorf("wait: %w", err)
	}
	fmt.Printf("event out 0 fired, %d occurrences so far\n", count)
	pru.Intc.ClearSysevt(pruss.Sysevt19)
	pru.Intc.EnableHost(pruss.Evtout0.Host())

	return pru.Close()
}
