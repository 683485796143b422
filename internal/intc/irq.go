package intc

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Irq waits for occurrences on one event out line.
//
// The kernel delivers a cumulative 4-byte occurrence count per blocking
// read, one value per read. A handle outlives the subsystem that created it;
// the caller closes it independently. Waiting on one handle from two
// goroutines at once is a caller error.
type Irq struct {
	f      *os.File
	evtout Evtout
}

// Wait blocks until the line fires and returns the cumulative occurrence
// count, little-endian as delivered.
func (q *Irq) Wait() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(q.f, buf[:]); err != nil {
		return 0, fmt.Errorf("intc: wait on evtout %d: %w", q.evtout, err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// Evtout returns the line this handle waits on.
func (q *Irq) Evtout() Evtout { return q.evtout }

// Close releases the notification device.
func (q *Irq) Close() error { return q.f.Close() }
