//go:build linux

// Command pructl inspects and exercises the subsystem interrupt plumbing
// without loading any firmware. It owns the subsystem while it runs, so the
// cores are reset when it exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/schollz/progressbar/v3"

	pruss "github.com/beaglekit/pruss"
)

const usage = `usage: pructl <command> [flags]

commands:
  apply    apply an interrupt routing to the controller
  trigger  fire a system event from the host
  wait     wait for notifications on an event out line
  watch    periodically print the raw event status bits
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "apply":
		err = cmdApply(os.Args[2:])
	case "trigger":
		err = cmdTrigger(os.Args[2:])
	case "wait":
		err = cmdWait(os.Args[2:])
	case "watch":
		err = cmdWatch(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func openSubsystem(config string) (*pruss.Subsystem, error) {
	var cfg *pruss.IntcConfig
	if config != "" {
		var err error
		cfg, err = pruss.LoadIntcConfig(config)
		if err != nil {
			return nil, err
		}
	}
	pru, err := pruss.Open(cfg)
	if err != nil && errors.Is(err, pruss.ErrDeviceNotFound) {
		return nil, fmt.Errorf("%w (is the uio_pruss module loaded?)", err)
	}
	return pru, err
}

func cmdApply(args []string) error {
	fs := flag.NewFlagSet("pructl apply", flag.ExitOnError)
	config := fs.String("config", "", "YAML interrupt routing (default routing when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pru, err := openSubsystem(*config)
	if err != nil {
		return err
	}
	fmt.Println("routing applied")
	return pru.Close()
}

func cmdTrigger(args []string) error {
	fs := flag.NewFlagSet("pructl trigger", flag.ExitOnError)
	config := fs.String("config", "", "YAML interrupt routing (default routing when empty)")
	sysevt := fs.Uint("sysevt", 19, "System event to fire")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sysevt >= pruss.NumSysevts {
		return fmt.Errorf("system event %d out of range", *sysevt)
	}

	pru, err := openSubsystem(*config)
	if err != nil {
		return err
	}
	defer pru.Close()

	pru.Intc.SendSysevt(pruss.NewSysevt(uint8(*sysevt)))
	fmt.Printf("fired system event %d, raw status %#016x\n", *sysevt, pru.Intc.RawStatus())
	return pru.Close()
}

func cmdWait(args []string) error {
	fs := flag.NewFlagSet("pructl wait", flag.ExitOnError)
	config := fs.String("config", "", "YAML interrupt routing (default routing when empty)")
	evtout := fs.Uint("evtout", 0, "Event out line to wait on")
	count := fs.Int("count", 10, "Number of notifications to wait for")
	clear := fs.Int("clear", -1, "System event to clear after each notification (-1 for none)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *evtout >= pruss.NumEvtouts {
		return fmt.Errorf("event out line %d out of range", *evtout)
	}
	if *clear >= pruss.NumSysevts {
		return fmt.Errorf("system event %d out of range", *clear)
	}

	pru, err := openSubsystem(*config)
	if err != nil {
		return err
	}
	defer pru.Close()

	line := pruss.NewEvtout(uint8(*evtout))
	irq, err := pru.Intc.RegisterIrq(line)
	if err != nil {
		return err
	}
	defer irq.Close()

	pb := progressbar.Default(int64(*count))
	defer pb.Close()

	for range *count {
		if _, err := irq.Wait(); err != nil {
			return err
		}
		if *clear >= 0 {
			pru.Intc.ClearSysevt(pruss.NewSysevt(uint8(*clear)))
		}
		pru.Intc.EnableHost(line.Host())
		pb.Add(1)
	}

	return pru.Close()
}

func cmdWatch(args []string) error {
	fs := flag.NewFlagSet("pructl watch", flag.ExitOnError)
	config := fs.String("config", "", "YAML interrupt routing (default routing when empty)")
	interval := fs.Duration("interval", time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pru, err := openSubsystem(*config)
	if err != nil {
		return err
	}
	defer pru.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		status := pru.Intc.RawStatus()
		fmt.Print(ansi.EraseEntireScreen, ansi.CursorHomePosition)
		fmt.Printf("raw event status %#016x\n\n", status)
		for e := 0; e < pruss.NumSysevts; e++ {
			if status&(1<<e) != 0 {
				fmt.Printf("  event %d pending\n", e)
			}
		}
		select {
		case <-ctx.Done():
			return pru.Close()
		case <-ticker.C:
		}
	}
}
