package storage

import (
	"os"
	"path/filepath"
	"syscall"
)

// fileLock is an exclusive flock on a lock file next to the store.
type fileLock struct {
	path string
	file *os.File
}

func newFileLock(path string) *fileLock {
	return &fileLock{path: path}
}

// lock blocks until the exclusive lock is held.
// The lock file and its directory are created if missing.
func (l *fileLock) lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return err
	}
	l.file = f
	return nil
}

// unlock releases the lock. Calling it without holding the lock is a no-op.
func (l *fileLock) unlock() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
