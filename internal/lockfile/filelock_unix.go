//go:build !windows

package lockfile

import (
	stderrors "errors"
	"os"

	"golang.org/x/sys/unix"
)

var errLocked = stderrors.New("lock held by another process")

type fileLock struct {
	file *os.File
}

// tryLockFile takes a non-blocking exclusive flock on path.
func tryLockFile(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if stderrors.Is(err, unix.EWOULDBLOCK) {
			return nil, errLocked
		}
		return nil, err
	}
	return &fileLock{file: f}, nil
}

func (l *fileLock) release() error {
	if l.file == nil {
		return nil
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}
