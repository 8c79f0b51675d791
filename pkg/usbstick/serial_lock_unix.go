//go:build linux || darwin || freebsd

package usbstick

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// portLock holds a second descriptor on the device node carrying a
// non-blocking flock.
type portLock struct {
	f *os.File
}

func lockPort(name string) (*portLock, error) {
	f, err := os.OpenFile(name, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, err
	}
	return &portLock{f: f}, nil
}

// exclusive sets TIOCEXCL so later opens of the tty fail with EBUSY.
// Nodes that are not terminals only get the flock.
func (l *portLock) exclusive() error {
	err := unix.IoctlSetInt(int(l.f.Fd()), unix.TIOCEXCL, 0)
	if errors.Is(err, unix.ENOTTY) {
		return nil
	}
	return err
}

func (l *portLock) Close() error {
	return l.f.Close()
}
