package icss

import (
	"errors"
	"fmt"
	"io/fs"
)

// Error kinds for opening and using the subsystem. Match with errors.Is.
var (
	// ErrAlreadyInstantiated reports that a subsystem context already
	// exists in this process.
	ErrAlreadyInstantiated = errors.New("pruss: subsystem already instantiated")

	// ErrPermissionDenied reports that a kernel object exists but access
	// to it was refused.
	ErrPermissionDenied = errors.New("pruss: permission denied")

	// ErrDeviceNotFound reports that the device node or one of its sysfs
	// attributes is missing, typically because the uio_pruss module is not
	// loaded.
	ErrDeviceNotFound = errors.New("pruss: device not found")

	// ErrOtherDevice covers every other operating system failure.
	ErrOtherDevice = errors.New("pruss: device error")
)

// translate folds an OS error into one of the public kinds, keeping the
// cause in the message. The mapping is total: every error becomes a kind.
func translate(err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
	default:
		return fmt.Errorf("%w: %v", ErrOtherDevice, err)
	}
}
