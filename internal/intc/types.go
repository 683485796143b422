// Package intc drives the subsystem interrupt controller: 64 system events
// funneled through 10 channels onto 10 host interrupt lines, of which the
// last 8 are visible to the host as event out lines.
package intc

import "fmt"

// Line counts of the interrupt controller.
const (
	NumSysevts  = 64
	NumChannels = 10
	NumHosts    = 10
	NumEvtouts  = 8
)

// Sysevt is one of the 64 system events the cores and subsystem peripherals
// can raise.
type Sysevt uint8

// Channel is one of the 10 interrupt channels system events are mapped to.
type Channel uint8

// Host is one of the 10 host interrupt lines channels are mapped to. Lines 0
// and 1 feed the two cores; lines 2 through 9 are the event out lines.
type Host uint8

// Evtout is one of the 8 host-visible event out lines.
type Evtout uint8

const (
	Sysevt0 Sysevt = iota
	Sysevt1
	Sysevt2
	Sysevt3
	Sysevt4
	Sysevt5
	Sysevt6
	Sysevt7
	Sysevt8
	Sysevt9
	Sysevt10
	Sysevt11
	Sysevt12
	Sysevt13
	Sysevt14
	Sysevt15
	Sysevt16
	Sysevt17
	Sysevt18
	Sysevt19
	Sysevt20
	Sysevt21
	Sysevt22
	Sysevt23
	Sysevt24
	Sysevt25
	Sysevt26
	Sysevt27
	Sysevt28
	Sysevt29
	Sysevt30
	Sysevt31
	Sysevt32
	Sysevt33
	Sysevt34
	Sysevt35
	Sysevt36
	Sysevt37
	Sysevt38
	Sysevt39
	Sysevt40
	Sysevt41
	Sysevt42
	Sysevt43
	Sysevt44
	Sysevt45
	Sysevt46
	Sysevt47
	Sysevt48
	Sysevt49
	Sysevt50
	Sysevt51
	Sysevt52
	Sysevt53
	Sysevt54
	Sysevt55
	Sysevt56
	Sysevt57
	Sysevt58
	Sysevt59
	Sysevt60
	Sysevt61
	Sysevt62
	Sysevt63
)

const (
	Channel0 Channel = iota
	Channel1
	Channel2
	Channel3
	Channel4
	Channel5
	Channel6
	Channel7
	Channel8
	Channel9
)

const (
	HostPru0 Host = iota
	HostPru1
	HostEvtout0
	HostEvtout1
	HostEvtout2
	HostEvtout3
	HostEvtout4
	HostEvtout5
	HostEvtout6
	HostEvtout7
)

const (
	Evtout0 Evtout = iota
	Evtout1
	Evtout2
	Evtout3
	Evtout4
	Evtout5
	Evtout6
	Evtout7
)

// Host returns the host interrupt line an event out arrives on. Event out
// lines start at host line 2.
func (e Evtout) Host() Host { return Host(e) + 2 }

// NewSysevt returns the system event with index n (0 to 63). Out-of-range
// indexes panic; the constants are the usual way in.
func NewSysevt(n uint8) Sysevt {
	checkRange(n, NumSysevts, "system event")
	return Sysevt(n)
}

// NewChannel returns the channel with index n (0 to 9).
func NewChannel(n uint8) Channel {
	checkRange(n, NumChannels, "channel")
	return Channel(n)
}

// NewHost returns the host interrupt line with index n (0 to 9).
func NewHost(n uint8) Host {
	checkRange(n, NumHosts, "host interrupt")
	return Host(n)
}

// NewEvtout returns the event out line with index n (0 to 7).
func NewEvtout(n uint8) Evtout {
	checkRange(n, NumEvtouts, "event out")
	return Evtout(n)
}

func checkRange(v uint8, n uint8, what string) {
	if v >= n {
		panic(fmt.Sprintf("intc: %s %d out of range (max %d)", what, v, n-1))
	}
}
