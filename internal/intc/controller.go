package intc

import (
	"fmt"
	"os"

	"github.com/beaglekit/pruss/internal/reg"
)

// Interrupt controller register offsets, in 32-bit words from the controller
// base.
const (
	gerReg    = 0x004 // Global Interrupt Enable
	sicrReg   = 0x009 // System Interrupt Status Indexed Clear
	eisrReg   = 0x00a // System Interrupt Enable Indexed Set
	eicrReg   = 0x00b // System Interrupt Enable Indexed Clear
	hieisrReg = 0x00d // Host Interrupt Enable Indexed Set
	hidisrReg = 0x00e // Host Interrupt Enable Indexed Clear
	srsr1Reg  = 0x080 // System Interrupt Status Raw/Set, events 0-31
	srsr2Reg  = 0x081 // System Interrupt Status Raw/Set, events 32-63
	secr1Reg  = 0x0a0 // System Interrupt Status Enabled/Clear, events 0-31
	secr2Reg  = 0x0a1 // System Interrupt Status Enabled/Clear, events 32-63
	esr1Reg   = 0x0c0 // System Interrupt Enable Set, events 0-31
	esr2Reg   = 0x0c1 // System Interrupt Enable Set, events 32-63
	cmrReg    = 0x100 // Channel Map, 16 registers, one event per byte lane
	hmrReg    = 0x200 // Host Interrupt Map, 3 registers, one channel per byte lane
	sipr1Reg  = 0x340 // System Interrupt Polarity, events 0-31
	sipr2Reg  = 0x341 // System Interrupt Polarity, events 32-63
	sitr1Reg  = 0x360 // System Interrupt Type, events 0-31
	sitr2Reg  = 0x361 // System Interrupt Type, events 32-63

	numCmrRegs = 16
	numHmrRegs = 3
)

// Controller drives the subsystem interrupt controller.
//
// Every method issues single-word register writes in the order given. There
// is no locking and no higher-level transaction: concurrent callers
// interleave at word granularity, the same as two bus masters would.
type Controller struct {
	b      reg.Block
	events func(Evtout) (*os.File, error)
}

// New returns a controller over the register window b. events opens the
// per-line notification device; RegisterIrq uses it.
func New(b reg.Block, events func(Evtout) (*os.File, error)) *Controller {
	if b.Words() <= sitr2Reg {
		panic(fmt.Sprintf("intc: register window of %d words is too small", b.Words()))
	}
	return &Controller{b: b, events: events}
}

// Apply writes the routing described by cfg into the controller. It is
// normally called once, during subsystem construction, before any core runs.
// The write sequence is fixed: polarity, channel map, host map, type, event
// enables and clears, host enables, global enable.
func (c *Controller) Apply(cfg *Config) {
	// All system interrupts are active high.
	c.b.Store(sipr1Reg, 0xffffffff)
	c.b.Store(sipr2Reg, 0xffffffff)

	// Clear the channel map registers, then connect each event to its
	// channel. Each register maps four events, one per byte lane.
	for i := 0; i < numCmrRegs; i++ {
		c.b.Store(cmrReg+i, 0)
	}
	for _, m := range cfg.sysevtToChannel {
		i := cmrReg + int(m.Sysevt>>2)
		c.b.Store(i, c.b.Load(i)|uint32(m.Channel)<<((uint32(m.Sysevt)&3)*8))
	}

	// Clear the host map registers, then connect each channel to its host.
	for i := 0; i < numHmrRegs; i++ {
		c.b.Store(hmrReg+i, 0)
	}
	for _, m := range cfg.channelToHost {
		i := hmrReg + int(m.Channel>>2)
		c.b.Store(i, c.b.Load(i)|uint32(m.Host)<<((uint32(m.Channel)&3)*8))
	}

	// All system interrupts are pulse type.
	c.b.Store(sitr1Reg, 0)
	c.b.Store(sitr2Reg, 0)

	// Enable the configured events and clear any that were already pending.
	var mask1, mask2 uint32
	for _, e := range cfg.sysevtEnable {
		if e < 32 {
			mask1 |= 1 << e
		} else {
			mask2 |= 1 << (e - 32)
		}
	}
	c.b.Store(esr1Reg, mask1)
	c.b.Store(secr1Reg, mask1)
	c.b.Store(esr2Reg, mask2)
	c.b.Store(secr2Reg, mask2)

	// Enable the configured host lines, one indexed write each.
	for _, h := range cfg.hostEnable {
		c.b.Store(hieisrReg, uint32(h))
	}

	// Global enable, last.
	c.b.Store(gerReg, 1)
}

// SendSysevt raises a system event from the host side.
func (c *Controller) SendSysevt(e Sysevt) {
	if e < 32 {
		c.b.Store(srsr1Reg, 1<<e)
	} else {
		c.b.Store(srsr2Reg, 1<<(e-32))
	}
}

// ClearSysevt clears a pending system event.
func (c *Controller) ClearSysevt(e Sysevt) {
	c.b.Store(sicrReg, uint32(e))
}

// EnableSysevt enables a system event.
func (c *Controller) EnableSysevt(e Sysevt) {
	c.b.Store(eisrReg, uint32(e))
}

// DisableSysevt disables a system event.
func (c *Controller) DisableSysevt(e Sysevt) {
	c.b.Store(eicrReg, uint32(e))
}

// EnableHost enables or re-arms a host interrupt line.
//
// Re-arming and clearing the triggering system event are two independent
// writes. Re-arm before the event is cleared and the line fires again.
func (c *Controller) EnableHost(h Host) {
	c.b.Store(hieisrReg, uint32(h))
}

// DisableHost disables a host interrupt line.
func (c *Controller) DisableHost(h Host) {
	c.b.Store(hidisrReg, uint32(h))
}

// RawStatus returns the raw pending bits of all 64 system events, event 0 in
// bit 0, regardless of whether the events are enabled.
func (c *Controller) RawStatus() uint64 {
	lo := c.b.Load(srsr1Reg)
	hi := c.b.Load(srsr2Reg)
	return uint64(hi)<<32 | uint64(lo)
}

// RegisterIrq opens a wait handle for an event out line. Register the handle
// before the first occurrence fires, or the first wait may miss it. The
// caller owns the handle; closing the subsystem does not close it.
func (c *Controller) RegisterIrq(e Evtout) (*Irq, error) {
	f, err := c.events(e)
	if err != nil {
		return nil, fmt.Errorf("intc: open event device for evtout %d: %w", e, err)
	}
	return &Irq{f: f, evtout: e}, nil
}
