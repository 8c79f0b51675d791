//go:build !(linux || darwin || freebsd)

package usbstick

// portLock is a no-op where flock and TIOCEXCL are unavailable; the
// serial open itself is the only claim.
type portLock struct{}

func lockPort(string) (*portLock, error) { return &portLock{}, nil }

func (*portLock) exclusive() error { return nil }

func (*portLock) Close() error { return nil }
