// Package applock holds the single-instance advisory lock that keeps two
// daemons from draining the same spool directory.
package applock

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Lock is a held instance lock; Close releases it.
type Lock struct {
	file *os.File
}

// Acquire creates lockDir if needed, opens fileName inside it for writing,
// and takes an exclusive non-blocking flock. A second instance holding the
// lock yields an error; the caller treats that as startup-fatal.
func Acquire(lockDir, fileName string) (*Lock, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := filepath.Join(lockDir, fileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %q: %w", path, err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to lock file %q: %w", path, err)
	}
	return &Lock{file: file}, nil
}

// Close releases the lock and the underlying descriptor. Safe to call more
// than once.
func (l *Lock) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
