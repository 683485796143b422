//go:build linux

package icss

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/beaglekit/pruss/internal/intc"
	"github.com/beaglekit/pruss/internal/memseg"
)

// Local path options. The exported constructors live in the root package.
type devOpt struct{ path string }

func (devOpt) IsOption()        {}
func (o devOpt) Device() string { return o.path }

type sizesOpt struct{ pru, host string }

func (sizesOpt) IsOption()                        {}
func (o sizesOpt) MemSizeFiles() (string, string) { return o.pru, o.host }

type evtOpt struct{ prefix string }

func (evtOpt) IsOption()             {}
func (o evtOpt) EventPrefix() string { return o.prefix }

// fixture builds a fake kernel interface in a temp dir: a zeroed regular
// file standing in for the device node, and the two sysfs size attributes.
// Window writes land in the file, so tests can assert against file bytes.
func fixture(t *testing.T) (dev string, opts []Option) {
	t.Helper()
	dir := t.TempDir()

	// The file must back both mappings: the coprocessor window at page 0
	// and the host window at page 1.
	size := 0x40000
	if m := os.Getpagesize() + 0x8000; size < m {
		size = m
	}
	dev = filepath.Join(dir, "uio0")
	f, err := os.Create(dev)
	if err != nil {
		t.Fatalf("create device file: %v", err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		t.Fatalf("size device file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close device file: %v", err)
	}

	pruSize := filepath.Join(dir, "map0_size")
	hostSize := filepath.Join(dir, "map1_size")
	if err := os.WriteFile(pruSize, []byte("0x00040000\n"), 0o644); err != nil {
		t.Fatalf("write size file: %v", err)
	}
	if err := os.WriteFile(hostSize, []byte("0x00008000\n"), 0o644); err != nil {
		t.Fatalf("write size file: %v", err)
	}

	opts = []Option{
		devOpt{dev},
		sizesOpt{pruSize, hostSize},
		evtOpt{filepath.Join(dir, "evt")},
	}
	return dev, opts
}

func deviceBytes(t *testing.T, dev string) []byte {
	t.Helper()
	data, err := os.ReadFile(dev)
	if err != nil {
		t.Fatalf("read device file: %v", err)
	}
	return data
}

func TestOpenAppliesRouting(t *testing.T) {
	dev, opts := fixture(t)

	s, err := Open(intc.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	data := deviceBytes(t, dev)
	checks := []struct {
		name string
		off  int
		want uint32
	}{
		{"global enable", 0x20010, 1},
		{"event map reg 4", 0x20410, 0x02000100},
		{"event map reg 5", 0x20414, 0x00010003},
		{"channel map reg 0", 0x20800, 0x03020100},
		{"event enable set 1", 0x20300, 0x007e0000},
		{"polarity set 1", 0x20d00, 0xffffffff},
		{"type set 1", 0x20d80, 0},
	}
	for _, c := range checks {
		if got := binary.NativeEndian.Uint32(data[c.off:]); got != c.want {
			t.Errorf("%s = %#x, want %#x", c.name, got, c.want)
		}
	}
}

func TestOpenSingleton(t *testing.T) {
	_, opts := fixture(t)

	s, err := Open(intc.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := Open(intc.DefaultConfig(), opts...); !errors.Is(err, ErrAlreadyInstantiated) {
		t.Fatalf("second open: %v, want ErrAlreadyInstantiated", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second close: %v, want nil", err)
	}

	s2, err := Open(intc.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	if err := s2.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	t.Run("missing device", func(t *testing.T) {
		_, opts := fixture(t)
		opts = append(opts, devOpt{filepath.Join(t.TempDir(), "uio9")})
		if _, err := Open(intc.DefaultConfig(), opts...); !errors.Is(err, ErrDeviceNotFound) {
			t.Fatalf("open: %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("missing size file", func(t *testing.T) {
		_, opts := fixture(t)
		missing := filepath.Join(t.TempDir(), "size")
		opts = append(opts, sizesOpt{missing, missing})
		if _, err := Open(intc.DefaultConfig(), opts...); !errors.Is(err, ErrDeviceNotFound) {
			t.Fatalf("open: %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("malformed size file", func(t *testing.T) {
		_, opts := fixture(t)
		bad := filepath.Join(t.TempDir(), "size")
		if err := os.WriteFile(bad, []byte("garbage\n"), 0o644); err != nil {
			t.Fatalf("write size file: %v", err)
		}
		opts = append(opts, sizesOpt{bad, bad})
		if _, err := Open(intc.DefaultConfig(), opts...); !errors.Is(err, ErrOtherDevice) {
			t.Fatalf("open: %v, want ErrOtherDevice", err)
		}
	})

	t.Run("undersized window", func(t *testing.T) {
		_, opts := fixture(t)
		small := filepath.Join(t.TempDir(), "size")
		if err := os.WriteFile(small, []byte("0x00001000\n"), 0o644); err != nil {
			t.Fatalf("write size file: %v", err)
		}
		opts = append(opts, sizesOpt{small, small})
		if _, err := Open(intc.DefaultConfig(), opts...); !errors.Is(err, ErrOtherDevice) {
			t.Fatalf("open: %v, want ErrOtherDevice", err)
		}
	})

	t.Run("permission denied", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skipf("running as root, file modes are not enforced")
		}
		dev, opts := fixture(t)
		if err := os.Chmod(dev, 0); err != nil {
			t.Fatalf("chmod: %v", err)
		}
		if _, err := Open(intc.DefaultConfig(), opts...); !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("open: %v, want ErrPermissionDenied", err)
		}
	})

	// Every failure above must have released the process claim.
	t.Run("claim released after failure", func(t *testing.T) {
		_, opts := fixture(t)
		s, err := Open(intc.DefaultConfig(), opts...)
		if err != nil {
			t.Fatalf("open after failed opens: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
}

func TestLoadAndControl(t *testing.T) {
	dev, opts := fixture(t)

	s, err := Open(intc.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if got := s.Pru0.Capacity(); got != Iram0Size {
		t.Fatalf("pru0 capacity = %#x, want %#x", got, Iram0Size)
	}

	image := []byte{
		0x24, 0x00, 0x00, 0x24,
		0x10, 0xff, 0xff, 0xf1,
		0x2a, 0x00, 0x00, 0x00,
		0xbe,
	}
	code, err := s.Pru0.LoadCode(bytes.NewReader(image))
	if err != nil {
		t.Fatalf("load code: %v", err)
	}

	data := deviceBytes(t, dev)
	if got := data[Iram0Offset : Iram0Offset+len(image)]; !bytes.Equal(got, image) {
		t.Errorf("instruction RAM = % x, want % x", got, image)
	}
	if got := data[Iram0Offset+len(image) : Iram0Offset+16]; !bytes.Equal(got, []byte{0, 0, 0}) {
		t.Errorf("image tail = % x, want zero padding", got)
	}

	code.Run()
	if got := binary.NativeEndian.Uint32(deviceBytes(t, dev)[Pru0CtrlOffset:]); got != 2 {
		t.Errorf("control word after run = %#x, want 2", got)
	}
	code.Halt()
	if got := binary.NativeEndian.Uint32(deviceBytes(t, dev)[Pru0CtrlOffset:]); got != 1 {
		t.Errorf("control word after halt = %#x, want 1", got)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data = deviceBytes(t, dev)
	if got := binary.NativeEndian.Uint32(data[Pru0CtrlOffset:]); got != 0 {
		t.Errorf("core 0 control word after close = %#x, want reset", got)
	}
	if got := binary.NativeEndian.Uint32(data[Pru1CtrlOffset:]); got != 0 {
		t.Errorf("core 1 control word after close = %#x, want reset", got)
	}
}

func TestSegments(t *testing.T) {
	dev, opts := fixture(t)

	s, err := Open(intc.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	checks := []struct {
		name       string
		seg        *memseg.Segment
		begin, end int
	}{
		{"dram0", s.Dram0, Dram0Offset, Dram0Offset + Dram0Size},
		{"dram1", s.Dram1, Dram1Offset, Dram1Offset + Dram1Size},
		{"dram2", s.Dram2, Dram2Offset, Dram2Offset + Dram2Size},
		{"hostram", s.Hostram, 0, 0x8000},
	}
	for _, c := range checks {
		if got := c.seg.Begin(); got != c.begin {
			t.Errorf("%s begin = %#x, want %#x", c.name, got, c.begin)
		}
		if got := c.seg.End(); got != c.end {
			t.Errorf("%s end = %#x, want %#x", c.name, got, c.end)
		}
	}

	// Values allocated in shared RAM land in the coprocessor window.
	ref := memseg.Alloc[uint32](s.Dram2, 0xcafef00d)
	if got := binary.NativeEndian.Uint32(deviceBytes(t, dev)[Dram2Offset:]); got != 0xcafef00d {
		t.Errorf("shared RAM word = %#x, want 0xcafef00d", got)
	}
	ref.Release()

	// Host RAM is the second page of the device.
	href := memseg.Alloc[uint64](s.Hostram, 0x1122334455667788)
	hostOff := os.Getpagesize()
	if got := binary.NativeEndian.Uint64(deviceBytes(t, dev)[hostOff:]); got != 0x1122334455667788 {
		t.Errorf("host RAM word = %#x, want 0x1122334455667788", got)
	}
	href.Release()
}

func TestRegisterIrq(t *testing.T) {
	dev, opts := fixture(t)

	s, err := Open(intc.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	// A fifo stands in for the notification device: reads block until the
	// writer delivers a count, like the real device blocks until the
	// event fires.
	fifo := filepath.Join(filepath.Dir(dev), "evt2")
	if err := unix.Mkfifo(fifo, 0o600); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		w, err := os.OpenFile(fifo, os.O_WRONLY, 0)
		if err != nil {
			done <- err
			return
		}
		defer w.Close()
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], 7)
		_, err = w.Write(buf[:])
		done <- err
	}()

	irq, err := s.Intc.RegisterIrq(intc.Evtout2)
	if err != nil {
		t.Fatalf("register irq: %v", err)
	}
	defer irq.Close()

	count, err := irq.Wait()
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if count != 7 {
		t.Errorf("count = %d, want 7", count)
	}
	if err := <-done; err != nil {
		t.Fatalf("event writer: %v", err)
	}

	// Lines without a device report the translated kind.
	if _, err := s.Intc.RegisterIrq(intc.Evtout5); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("register missing line: %v, want ErrDeviceNotFound", err)
	}
}
