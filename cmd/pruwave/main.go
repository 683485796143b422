//go:build linux

// Command pruwave plays a waveform through a firmware running on core 0.
// The host computes one period of the wave into core 0's data RAM, the
// firmware streams the samples, and a keypress stops playback cleanly: the
// host fires a system event at the core and waits for the acknowledgement
// before halting it.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"golang.org/x/term"

	pruss "github.com/beaglekit/pruss"
)

// coreHz is the instruction clock of the cores.
const coreHz = 200_000_000

// wavetable is the block the firmware expects at the start of core 0's data
// RAM.
type wavetable struct {
	Period  pruss.U32 // core cycles between samples
	Length  pruss.U32 // number of valid samples
	Samples [256]uint8
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	fw := fs.String("fw", "", "Waveform firmware for core 0")
	freq := fs.Float64("freq", 440, "Waveform frequency in Hz")
	amp := fs.Float64("amp", 1, "Amplitude between 0 and 1")
	shape := fs.String("shape", "sine", "Waveform shape (sine|square|triangle)")
	stopEvt := fs.Uint("stop-sysevt", 21, "System event that tells the firmware to stop")
	ackEvt := fs.Uint("ack-evtout", 0, "Event out line the firmware acknowledges on")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("Parse flags: %v", err)
	}
	if *fw == "" {
		log.Fatalf("Waveform firmware is required")
	}
	if *freq <= 0 {
		log.Fatalf("Frequency must be positive")
	}
	if *amp < 0 || *amp > 1 {
		log.Fatalf("Amplitude %v out of range", *amp)
	}
	if *stopEvt >= pruss.NumSysevts {
		log.Fatalf("System event %d out of range", *stopEvt)
	}
	if *ackEvt >= pruss.NumEvtouts {
		log.Fatalf("Event out line %d out of range", *ackEvt)
	}

	if err := run(*fw, *freq, *amp, *shape, uint8(*stopEvt), uint8(*ackEvt)); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(fw string, freq, amp float64, shape string, stopEvt, ackEvt uint8) error {
	table, err := makeTable(shape, amp)
	if err != nil {
		return err
	}

	var wt wavetable
	wt.Samples = table
	wt.Length.Store(uint32(len(table)))
	period := coreHz / (freq * float64(len(table)))
	if period < 1 {
		return fmt.Errorf("%g Hz is too fast for a %d sample table", freq, len(table))
	}
	wt.Period.Store(uint32(period))

	pru, err := pruss.Open(nil)
	if err != nil {
		return err
	}
	defer pru.Close()

	irq, err := pru.Intc.RegisterIrq(pruss.NewEvtout(ackEvt))
	if err != nil {
		return err
	}
	defer irq.Close()

	ref := pruss.Alloc(pru.Dram0, wt)
	defer ref.Release()

	f, err := os.Open(fw)
	if err != nil {
		return err
	}
	code, err := pru.Pru0.LoadCode(f)
	f.Close()
	if err != nil {
		return err
	}
	code.Run()

	fmt.Printf("playing %s at %g Hz, press any key to stop\n", shape, freq)
	if err := waitKeypress(); err != nil {
		return err
	}

	// Ask the firmware to stop and wait for its acknowledgement so the
	// last sample finishes before the core halts.
	pru.Intc.SendSysevt(pruss.NewSysevt(stopEvt))
	if _, err := irq.Wait(); err != nil {
		return err
	}
	code.Halt()

	return pru.Close()
}

// makeTable computes one period of the wave, biased to unsigned samples
// around 128.
func makeTable(shape string, amp float64) ([256]uint8, error) {
	var t [256]uint8
	for i := range t {
		x := float64(i) / float64(len(t))
		var s float64
		switch shape {
		case "sine":
			s = math.Sin(2 * math.Pi * x)
		case "square":
			s = 1
			if x >= 0.5 {
				s = -1
			}
		case "triangle":
			s = 4*x - 1
			if x >= 0.5 {
				s = 3 - 4*x
			}
		default:
			return t, fmt.Errorf("unknown shape %q", shape)
		}
		t[i] = uint8(math.Round((s*amp + 1) / 2 * 255))
	}
	return t, nil
}

// waitKeypress returns on the first byte of input. A terminal is switched to
// raw mode so a bare keypress is enough.
func waitKeypress() error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		buf := make([]byte, 1)
		os.Stdin.Read(buf)
		return nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enable raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	if _, err := os.Stdin.Read(buf); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	return nil
}
