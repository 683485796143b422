package icss

// Option adjusts where the subsystem looks for the kernel interface. The
// root package provides the constructors.
type Option interface {
	IsOption()
}

// Paths locates the kernel interface.
type Paths struct {
	// Device is the UIO node exposing both memory windows.
	Device string

	// PruMemSizeFile and HostMemSizeFile are the sysfs attributes holding
	// the window sizes.
	PruMemSizeFile  string
	HostMemSizeFile string

	// EventPrefix forms notification device paths when the line number is
	// appended. Event out line n is UIO device n, so the default prefix
	// yields /dev/uio0 through /dev/uio7.
	EventPrefix string
}

// DefaultPaths returns the standard uio_pruss locations.
func DefaultPaths() Paths {
	return Paths{
		Device:          "/dev/uio0",
		PruMemSizeFile:  "/sys/class/uio/uio0/maps/map0/size",
		HostMemSizeFile: "/sys/class/uio/uio0/maps/map1/size",
		EventPrefix:     "/dev/uio",
	}
}

// parsePathOptions folds options over the default paths.
func parsePathOptions(opts []Option) Paths {
	paths := DefaultPaths()
	for _, opt := range opts {
		switch o := opt.(type) {
		case interface{ Device() string }:
			paths.Device = o.Device()
		case interface{ MemSizeFiles() (string, string) }:
			paths.PruMemSizeFile, paths.HostMemSizeFile = o.MemSizeFiles()
		case interface{ EventPrefix() string }:
			paths.EventPrefix = o.EventPrefix()
		}
	}
	return paths
}
