//go:build linux

package uio

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadMapSize(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"with newline", "0x00040000\n", 0x40000, false},
		{"bare", "0x8000", 0x8000, false},
		{"zero", "0x0\n", 0, false},
		{"no prefix", "40000\n", 0, true},
		{"not hex", "0xzz\n", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadMapSize(writeFile(t, "size", tt.content))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadMapSize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ReadMapSize() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestReadMapSizeMissing(t *testing.T) {
	_, err := ReadMapSize(filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadMapSize() error = %v, want fs.ErrNotExist", err)
	}
}

func TestMapRegionRoundTrip(t *testing.T) {
	page := os.Getpagesize()
	path := filepath.Join(t.TempDir(), "device")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(path, int64(2*page)); err != nil {
		t.Fatal(err)
	}

	fd, err := OpenDevice(path)
	if err != nil {
		t.Fatalf("OpenDevice() error = %v", err)
	}
	defer unix.Close(fd)

	m, err := MapRegion(fd, 16, 1)
	if err != nil {
		t.Fatalf("MapRegion() error = %v", err)
	}

	copy(m.Mem, []byte("coprocessor data"))
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}

	// Region 1 lives one page into the device.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := data[page : page+16]; !bytes.Equal(got, []byte("coprocessor data")) {
		t.Errorf("device bytes = %q, want %q", got, "coprocessor data")
	}
}

func TestOpenDeviceMissing(t *testing.T) {
	_, err := OpenDevice(filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("OpenDevice() error = %v, want fs.ErrNotExist", err)
	}
}

func TestMapRegionBadDescriptor(t *testing.T) {
	if _, err := MapRegion(-1, 16, 0); err == nil {
		t.Error("MapRegion(-1) = nil error")
	}
}

func TestOpenEvent(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "uio")
	if err := os.WriteFile(prefix+"3", []byte{1, 0, 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenEvent(prefix, 3)
	if err != nil {
		t.Fatalf("OpenEvent() error = %v", err)
	}
	f.Close()

	if _, err := OpenEvent(prefix, 4); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("OpenEvent() error = %v, want fs.ErrNotExist", err)
	}
}
