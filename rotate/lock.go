package rotate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
)

// LockFileName is the sentinel created in a log directory while a rotation
// shuffles files in it.
const LockFileName = "rotate.lock"

// LockFile takes an exclusive, non-blocking flock on f. The lock lives as
// long as f stays open, and the kernel drops it if the process dies.
func LockFile(f *os.File) error {
	if err := flock(f); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return &FileLockedError{Path: f.Name()}
		}
		return fmt.Errorf("failed to lock %s: %w", f.Name(), err)
	}
	return nil
}

func flock(f *os.File) error {
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// DirLock is a held rotation lock on a directory.
type DirLock struct {
	file *os.File
	path string
}

// TryLockDir acquires the rotation lock of dir without waiting. It returns
// ErrRotationLocked when another rotation holds it.
func TryLockDir(dir string) (*DirLock, error) {
	path := filepath.Join(dir, LockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open rotation lock %s: %w", path, err)
	}

	if err := flock(f); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrRotationLocked
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	// The previous holder unlinks the sentinel before unlocking it. If we
	// opened that unlinked inode, our flock guards nothing.
	held, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat rotation lock %s: %w", path, err)
	}
	current, err := os.Stat(path)
	if err != nil || !os.SameFile(held, current) {
		f.Close()
		return nil, ErrRotationLocked
	}

	return &DirLock{file: f, path: path}, nil
}

// Release removes the sentinel and drops the lock.
func (l *DirLock) Release() error {
	var result *multierror.Error
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		result = multierror.Append(result, fmt.Errorf("failed to remove rotation lock: %w", err))
	}
	if err := l.file.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to close rotation lock: %w", err))
	}
	return result.ErrorOrNil()
}
