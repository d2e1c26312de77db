package daemon

import (
	"errors"
	"fmt"
	"os"
)

var ErrLockHeld = errors.New("another spreadsheet-agent daemon is already running (lock held)")

type LockFile struct {
	path string
	file *os.File
}

func NewLockFile(path string) *LockFile {
	return &LockFile{path: path}
}

// Acquire takes an exclusive, non-blocking lock. It returns ErrLockHeld when
// another process owns it.
func (l *LockFile) Acquire() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := lockFile(f); err != nil {
		f.Close()
		return err
	}

	l.file = f
	return nil
}

func (l *LockFile) Release() error {
	if l.file == nil {
		return nil
	}

	unlockFile(l.file)

	err := l.file.Close()
	l.file = nil

	os.Remove(l.path)

	return err
}

func (l *LockFile) IsLocked() bool {
	return l.file != nil
}

func (l *LockFile) Path() string {
	return l.path
}
