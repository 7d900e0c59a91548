package rotate

import (
	"errors"
	"fmt"
)

// ErrRotationLocked is returned by TryLockDir when another rotation holds
// the directory's sentinel lock.
var ErrRotationLocked = errors.New("rotation already in progress in this directory")

// FileLockedError means the destination file is exclusively held by
// another writer, most likely another outrotate instance.
type FileLockedError struct {
	Path string
}

func (e *FileLockedError) Error() string {
	return fmt.Sprintf("log file %q is locked, maybe another outrotate instance is running", e.Path)
}

// InvalidFileNameError is returned when a directory entry scanned during
// rotation is not valid UTF-8. Name holds the raw bytes.
type InvalidFileNameError struct {
	Dir  string
	Name []byte
}

func (e *InvalidFileNameError) Error() string {
	return fmt.Sprintf("file name %q in %s includes invalid unicode data", e.Name, e.Dir)
}
