//go:build linux

// Package uio talks to the kernel userspace I/O driver: the device node
// whose pages expose the subsystem memory windows, the sysfs attributes
// publishing the window sizes, and the per-line notification devices.
package uio

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// OpenDevice opens the UIO device node for memory mapping. O_SYNC keeps the
// mappings uncached.
func OpenDevice(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("open %s: %w", path, err)
	}
	return fd, nil
}

// Mapping is one memory window of the device.
type Mapping struct {
	Mem []byte
}

// MapRegion maps size bytes of the device's numbered region, read-write and
// shared. The kernel places region n at page offset n.
func MapRegion(fd, size, region int) (*Mapping, error) {
	mem, err := unix.Mmap(
		fd,
		int64(region)*int64(os.Getpagesize()),
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("map region %d (%#x bytes): %w", region, size, err)
	}
	return &Mapping{Mem: mem}, nil
}

// Close unmaps the window. Mem must not be touched afterwards. A second
// Close is a no-op.
func (m *Mapping) Close() error {
	if m.Mem == nil {
		return nil
	}
	mem := m.Mem
	m.Mem = nil
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("unmap region: %w", err)
	}
	return nil
}

// ReadMapSize reads a sysfs map size attribute: an ASCII hex value with an
// 0x prefix and a trailing newline.
func ReadMapSize(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read map size: %w", err)
	}
	text := strings.TrimSpace(string(data))
	hex, ok := strings.CutPrefix(text, "0x")
	if !ok {
		return 0, fmt.Errorf("map size %s: %q has no 0x prefix", path, text)
	}
	size, err := strconv.ParseUint(hex, 16, 31)
	if err != nil {
		return 0, fmt.Errorf("map size %s: %w", path, err)
	}
	return int(size), nil
}

// OpenEvent opens the numbered notification device read-only. The prefix is
// a path fragment the line number is appended to: "/dev/uio" and line 5 name
// /dev/uio5.
func OpenEvent(prefix string, n int) (*os.File, error) {
	return os.Open(prefix + strconv.Itoa(n))
}
