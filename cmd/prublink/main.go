//go:build linux

// Command prublink loads a firmware image into core 0 and services its
// event notifications: wait, acknowledge, re-arm, repeat.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	pruss "github.com/beaglekit/pruss"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	fw := fs.String("fw", "", "Firmware image to load into core 0")
	count := fs.Int("count", 10, "Number of notifications to service before exiting")
	sysevt := fs.Uint("sysevt", 19, "System event the firmware fires")
	evtout := fs.Uint("evtout", 0, "Event out line the event is routed to")
	config := fs.String("config", "", "YAML interrupt routing (default routing when empty)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("Parse flags: %v", err)
	}
	if *fw == "" {
		log.Fatalf("Firmware image is required")
	}
	if *sysevt >= pruss.NumSysevts {
		log.Fatalf("System event %d out of range", *sysevt)
	}
	if *evtout >= pruss.NumEvtouts {
		log.Fatalf("Event out line %d out of range", *evtout)
	}

	if err := run(*fw, *config, *count, uint8(*sysevt), uint8(*evtout)); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(fw, config string, count int, sysevt, evtout uint8) error {
	var cfg *pruss.IntcConfig
	if config != "" {
		var err error
		cfg, err = pruss.LoadIntcConfig(config)
		if err != nil {
			return err
		}
	}

	pru, err := pruss.Open(cfg)
	if err != nil {
		if errors.Is(err, pruss.ErrDeviceNotFound) {
			return fmt.Errorf("%w (is the uio_pruss module loaded?)", err)
		}
		return err
	}
	defer pru.Close()

	// Register before the firmware starts so no notification is missed.
	irq, err := pru.Intc.RegisterIrq(pruss.NewEvtout(evtout))
	if err != nil {
		return err
	}
	defer irq.Close()

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

	ev := pruss.NewSysevt(sysevt)
	host := pruss.NewEvtout(evtout).Host()
	for i := range count {
		n, err := irq.Wait()
		if err != nil {
			return err
		}
		pru.Intc.ClearSysevt(ev)
		pru.Intc.EnableHost(host)
		fmt.Printf("notification %d of %d (%d so far on this line)\n", i+1, count, n)
	}

	return pru.Close()
}
