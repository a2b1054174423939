//go:build windows

package lockfile

import (
	stderrors "errors"
	"os"
)

var errLocked = stderrors.New("lock held by another process")

type fileLock struct {
	file *os.File
}

// tryLockFile only opens the lock file on Windows; the in-process mutex is
// the single-writer guard there.
func tryLockFile(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &fileLock{file: f}, nil
}

func (l *fileLock) release() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
