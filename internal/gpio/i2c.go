package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// I2CDevice describes an I2C GPIO expander that the kernel must be told about
// before its gpiochip appears.
type I2CDevice struct {
	// AdapterDir is the sysfs adapter directory, e.g. /sys/class/i2c-adapter/i2c-1.
	AdapterDir string
	Bus        int
	Addr       uint16
	// Driver is the kernel driver name, e.g. pcf8575.
	Driver string
	// Settle is how long to wait after instantiation before checking for the device.
	Settle time.Duration
}

// DevicePath returns the sysfs directory the kernel creates for the device.
func (d I2CDevice) DevicePath() string {
	return filepath.Join(d.AdapterDir, fmt.Sprintf("%d-%04x", d.Bus, d.Addr))
}

// EnsureI2CDevice instantiates d through the adapter's new_device file unless
// it already exists. It reports whether a new device was created.
func EnsureI2CDevice(d I2CDevice) (bool, error) {
	if _, err := os.Stat(d.DevicePath()); err == nil {
		return false, nil
	}

	newDevice, err := filepath.EvalSymlinks(filepath.Join(d.AdapterDir, "new_device"))
	if err != nil {
		return false, fmt.Errorf("resolve new_device: %w", err)
	}
	line := fmt.Sprintf("%s 0x%02x", d.Driver, d.Addr)
	if err := os.WriteFile(newDevice, []byte(line), 0o200); err != nil {
		return false, fmt.Errorf("write %q to %s: %w", line, newDevice, err)
	}

	if d.Settle > 0 {
		time.Sleep(d.Settle)
	}
	if _, err := os.Stat(d.DevicePath()); err != nil {
		return true, fmt.Errorf("i2c device %s did not appear: %w", d.DevicePath(), err)
	}
	return true, nil
}
