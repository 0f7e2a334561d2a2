package history

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// fileLock is a multi-reader/single-writer lock shared between processes.
//
// It is a flock(2) on a per-user file: LOCK_SH for readers and LOCK_EX for
// the writer. The kernel drops a process's hold when its descriptor goes
// away, including when the process dies, so a crashed shell never leaves the
// history locked. Goroutines of one process share a single hold per role,
// readers are counted so the shared hold is only released by the last one.
type fileLock struct {
	f *os.File

	rw sync.RWMutex

	mu      sync.Mutex
	readers int
}

func openLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("cannot open history lock: %w", err)
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) flock(how int) error {
	for {
		err := unix.Flock(int(l.f.Fd()), how)
		if err != unix.EINTR {
			return err
		}
	}
}

// RLock acquires the lock for reading: it waits while a writer holds it.
func (l *fileLock) RLock() error {
	l.rw.RLock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readers == 0 {
		if err := l.flock(unix.LOCK_SH); err != nil {
			l.rw.RUnlock()
			return fmt.Errorf("cannot read-lock history: %w", err)
		}
	}
	l.readers++
	return nil
}

func (l *fileLock) RUnlock() error {
	defer l.rw.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.readers--
	if l.readers == 0 {
		if err := l.flock(unix.LOCK_UN); err != nil {
			return fmt.Errorf("cannot unlock history: %w", err)
		}
	}
	return nil
}

// Lock acquires the lock for writing: it waits for every reader and writer.
func (l *fileLock) Lock() error {
	l.rw.Lock()
	if err := l.flock(unix.LOCK_EX); err != nil {
		l.rw.Unlock()
		return fmt.Errorf("cannot write-lock history: %w", err)
	}
	return nil
}

func (l *fileLock) Unlock() error {
	defer l.rw.Unlock()
	if err := l.flock(unix.LOCK_UN); err != nil {
		return fmt.Errorf("cannot unlock history: %w", err)
	}
	return nil
}

func (l *fileLock) Close() error {
	return l.f.Close()
}
