package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
)

// ErrLocked is returned by Run when another refresh holds the lock file.
var ErrLocked = errors.New("another refresh is already running")

type fileLock struct {
	path string
}

// acquireLock creates path exclusively. A lock left behind by a crashed run
// must be removed by hand.
func acquireLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, path)
	}
	if err != nil {
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	_, werr := f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(path) //nolint:errcheck // best effort cleanup of a half-written lock
		return nil, fmt.Errorf("write lock file: %w", werr)
	}
	return &fileLock{path: path}, nil
}

func (l *fileLock) release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}
