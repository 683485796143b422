package intc

import "fmt"

// SysevtToChannel connects a system event to a channel.
type SysevtToChannel struct {
	Sysevt  Sysevt
	Channel Channel
}

// ChannelToHost connects a channel to a host interrupt line.
type ChannelToHost struct {
	Channel Channel
	Host    Host
}

// Config describes a complete interrupt routing: which system events feed
// which channels, which channels feed which host lines, and which events and
// lines start out enabled. It is plain data; nothing touches the device
// until a Controller applies it.
//
// A channel can take any number of events and a host line any number of
// channels, but an event feeds exactly one channel and a channel exactly one
// host line. The setters panic when a mapping breaks that rule, before any
// register write can happen.
type Config struct {
	sysevtToChannel []SysevtToChannel
	channelToHost   []ChannelToHost
	sysevtEnable    []Sysevt
	hostEnable      []Host
}

// NewConfig returns an empty routing.
func NewConfig() *Config { return &Config{} }

// DefaultConfig returns the canonical routing, the same one the C prussdrv
// library installs with its PRUSS_INTC_INITDATA macro:
//
//   - events 17 through 22 mapped to channels 1, 0, 2, 3, 0, 1,
//   - channels 0 through 3 mapped to core 0, core 1, event out 0 and
//     event out 1,
//   - all six events and all four host lines enabled.
func DefaultConfig() *Config {
	c := NewConfig()
	c.MapSysevtsToChannels([]SysevtToChannel{
		{Sysevt17, Channel1},
		{Sysevt18, Channel0},
		{Sysevt19, Channel2},
		{Sysevt20, Channel3},
		{Sysevt21, Channel0},
		{Sysevt22, Channel1},
	})
	c.MapChannelsToHosts([]ChannelToHost{
		{Channel0, HostPru0},
		{Channel1, HostPru1},
		{Channel2, HostEvtout0},
		{Channel3, HostEvtout1},
	})
	c.AutoEnableSysevts()
	c.AutoEnableHosts()
	return c
}

// MapSysevtsToChannels replaces the event-to-channel routing. Mapping the
// same event twice panics.
func (c *Config) MapSysevtsToChannels(m []SysevtToChannel) {
	seen := bitfield{width: NumSysevts}
	c.sysevtToChannel = make([]SysevtToChannel, 0, len(m))
	for _, sc := range m {
		checkRange(uint8(sc.Channel), NumChannels, "channel")
		if !seen.trySet(uint8(sc.Sysevt)) {
			panic(fmt.Sprintf("intc: system event %d assigned to more than one channel", sc.Sysevt))
		}
		c.sysevtToChannel = append(c.sysevtToChannel, sc)
	}
}

// MapChannelsToHosts replaces the channel-to-host routing. Mapping the same
// channel twice panics.
func (c *Config) MapChannelsToHosts(m []ChannelToHost) {
	seen := bitfield{width: NumChannels}
	c.channelToHost = make([]ChannelToHost, 0, len(m))
	for _, ch := range m {
		checkRange(uint8(ch.Host), NumHosts, "host interrupt")
		if !seen.trySet(uint8(ch.Channel)) {
			panic(fmt.Sprintf("intc: channel %d assigned to more than one host", ch.Channel))
		}
		c.channelToHost = append(c.channelToHost, ch)
	}
}

// EnableSysevts replaces the set of initially enabled system events.
// Enabling the same event twice panics.
func (c *Config) EnableSysevts(evts []Sysevt) {
	seen := bitfield{width: NumSysevts}
	c.sysevtEnable = make([]Sysevt, 0, len(evts))
	for _, e := range evts {
		if !seen.trySet(uint8(e)) {
			panic(fmt.Sprintf("intc: system event %d enabled more than once", e))
		}
		c.sysevtEnable = append(c.sysevtEnable, e)
	}
}

// EnableHosts replaces the set of initially enabled host lines. Enabling the
// same line twice panics.
func (c *Config) EnableHosts(hosts []Host) {
	seen := bitfield{width: NumHosts}
	c.hostEnable = make([]Host, 0, len(hosts))
	for _, h := range hosts {
		if !seen.trySet(uint8(h)) {
			panic(fmt.Sprintf("intc: host interrupt %d enabled more than once", h))
		}
		c.hostEnable = append(c.hostEnable, h)
	}
}

// AutoEnableSysevts enables exactly the events that are mapped to a channel.
func (c *Config) AutoEnableSysevts() {
	c.sysevtEnable = make([]Sysevt, 0, len(c.sysevtToChannel))
	for _, sc := range c.sysevtToChannel {
		c.sysevtEnable = append(c.sysevtEnable, sc.Sysevt)
	}
}

// AutoEnableHosts enables exactly the host lines that a channel is mapped to.
func (c *Config) AutoEnableHosts() {
	c.hostEnable = make([]Host, 0, len(c.channelToHost))
	for _, ch := range c.channelToHost {
		c.hostEnable = append(c.hostEnable, ch.Host)
	}
}

// bitfield tracks indexes already used while building a Config.
type bitfield struct {
	bits  uint64
	width uint8
}

// trySet sets bit n and reports whether it was previously clear. Bits at or
// past the width panic.
func (b *bitfield) trySet(n uint8) bool {
	checkRange(n, b.width, "index")
	mask := uint64(1) << n
	if b.bits&mask != 0 {
		return false
	}
	b.bits |= mask
	return true
}
