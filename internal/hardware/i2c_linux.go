//go:build linux && !tinygo

package hardware

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	i2cRdwrIOCTL = 0x0707 // I2C_RDWR ioctl, combined write+read with REPEATED START
	i2cMsgRD     = 0x0001 // i2c_msg flag: read direction

	// DefaultOpsPerSec caps transactions on the shared bus.
	DefaultOpsPerSec = 500
)

// i2cMsg mirrors struct i2c_msg from linux/i2c.h
type i2cMsg struct {
	addr   uint16
	flags  uint16
	length uint16
	_pad   uint16 // struct alignment
	buf    uintptr
}

// i2cRdwr mirrors struct i2c_rdwr_ioctl_data from linux/i2c-dev.h
type i2cRdwr struct {
	msgs  uintptr
	nmsgs uint32
}

// LinuxI2C is an I2C bus on /dev/i2c-N driven with I2C_RDWR ioctls.
// It implements periph's i2c.BusCloser.
type LinuxI2C struct {
	mu      sync.Mutex
	path    string
	fd      int
	limiter *rate.Limiter
}

var _ i2c.BusCloser = (*LinuxI2C)(nil)

// OpenLinuxI2C opens the I2C character device at path. opsPerSec <= 0 selects
// DefaultOpsPerSec.
func OpenLinuxI2C(path string, opsPerSec int) (*LinuxI2C, error) {
	if opsPerSec <= 0 {
		opsPerSec = DefaultOpsPerSec
	}
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %s: %w", path, err)
	}
	return &LinuxI2C{
		path:    path,
		fd:      fd,
		limiter: rate.NewLimiter(rate.Limit(opsPerSec), 10),
	}, nil
}

func (d *LinuxI2C) String() string { return d.path }

// Tx writes w then reads len(r) bytes from addr. With both set the two messages
// are issued in one ioctl so the kernel joins them with a repeated start.
func (d *LinuxI2C) Tx(addr uint16, w, r []byte) error {
	time.Sleep(d.limiter.Reserve().Delay())

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return fmt.Errorf("i2c: %s closed", d.path)
	}

	msgs := make([]i2cMsg, 0, 2)
	if len(w) > 0 || len(r) == 0 {
		m := i2cMsg{addr: addr, length: uint16(len(w))}
		if len(w) > 0 {
			m.buf = uintptr(unsafe.Pointer(&w[0]))
		}
		msgs = append(msgs, m)
	}
	if len(r) > 0 {
		msgs = append(msgs, i2cMsg{
			addr:   addr,
			flags:  i2cMsgRD,
			length: uint16(len(r)),
			buf:    uintptr(unsafe.Pointer(&r[0])),
		})
	}
	rdwr := i2cRdwr{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(len(msgs))}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), i2cRdwrIOCTL, uintptr(unsafe.Pointer(&rdwr))); errno != 0 {
		if errno == unix.EREMOTEIO || errno == unix.ENXIO {
			return fmt.Errorf("i2c: I2C_RDWR 0x%02x: %w", addr, ErrNACK)
		}
		return fmt.Errorf("i2c: I2C_RDWR 0x%02x: %w", addr, errno)
	}
	return nil
}

// SetSpeed is not supported: the kernel adapter's clock comes from the device
// tree (dtparam=i2c_arm_baudrate on a Pi).
func (d *LinuxI2C) SetSpeed(f physic.Frequency) error {
	return fmt.Errorf("i2c: %s: bus speed is fixed by the kernel driver (requested %s)", d.path, f)
}

// Close releases the I2C file descriptor.
func (d *LinuxI2C) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
