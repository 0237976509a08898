package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

var (
	// ErrLockTimeout indicates another run held the lock for longer than the timeout
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrLockWouldBlock indicates the lock is held by another run
	ErrLockWouldBlock = errors.New("lock is held by another run")
)

// RunLock serializes pipeline runs sharing a state directory using flock(2).
// The lock is released by the kernel if the process exits or crashes.
type RunLock struct {
	path string
	file *os.File
}

// NewRunLock creates a run lock backed by the file at path.
func NewRunLock(path string) *RunLock {
	return &RunLock{path: path}
}

// TryAcquire takes the lock without waiting.
// Returns ErrLockWouldBlock if another run holds it.
func (l *RunLock) TryAcquire() error {
	if err := l.open(); err != nil {
		return err
	}

	if err := l.flock(); err != nil {
		l.close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return ErrLockWouldBlock
		}
		return fmt.Errorf("flock failed: %w", err)
	}
	return nil
}

// Acquire takes the lock, waiting up to timeout for another run to release it.
// A zero timeout behaves like TryAcquire.
func (l *RunLock) Acquire(ctx context.Context, timeout time.Duration) error {
	err := l.TryAcquire()
	if !errors.Is(err, ErrLockWouldBlock) || timeout <= 0 {
		return err
	}

	deadline := time.Now().Add(timeout)
	pollInterval := 10 * time.Millisecond
	maxPollInterval := 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
			pollInterval = min(pollInterval*2, maxPollInterval)
		}

		err := l.TryAcquire()
		if !errors.Is(err, ErrLockWouldBlock) {
			return err
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
	}
}

// Release gives up the lock. Releasing an unheld lock is a no-op.
func (l *RunLock) Release() error {
	if l.file == nil {
		return nil
	}

	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("flock unlock failed: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close failed: %w", closeErr)
	}
	return nil
}

// Held reports whether this instance holds the lock.
func (l *RunLock) Held() bool {
	return l.file != nil
}

// Path returns the path to the lock file.
func (l *RunLock) Path() string {
	return l.path
}

func (l *RunLock) flock() error {
	return syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

// open creates the lock file and its parent directories if needed.
func (l *RunLock) open() error {
	if l.file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	l.file = file
	return nil
}

func (l *RunLock) close() {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}
