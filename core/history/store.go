// Package history is the command history shared by every shell of a user.
//
// The history is a fixed-size ring of lines kept in shared memory. The first
// shell to attach loads it from the user's history file, the last one to
// detach writes it back. Access is serialized with a crash-safe
// multi-reader/single-writer lock.
package history

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/josephlewis42/lish/core/cmdtree"
	"github.com/josephlewis42/lish/core/config"
	"github.com/spf13/afero"
)

// ErrorStatus is the exit status of the diagnostic lines returned on misses.
const ErrorStatus = 127

// Options configure a Store.
type Options struct {
	// Capacity is the number of lines kept.
	Capacity int
	// LineLength is the slot size, lines keep at most LineLength-1 bytes.
	LineLength int
	// Key identifies the shared segment.
	Key int
	// LockPath is the lock file shared by every attacher.
	LockPath string
	// File is the persisted history, empty to keep it in memory only.
	File string
	// Fs holds File.
	Fs afero.Fs
	// Name prefixes diagnostics.
	Name string

	// Segment overrides the System V segment.
	Segment Segment
}

// OptionsFromConfig builds the options for the user uid whose home is home.
func OptionsFromConfig(cfg *config.Configuration, home string, uid int, name string) Options {
	return Options{
		Capacity:   cfg.History.Capacity,
		LineLength: cfg.History.LineLength,
		Key:        cfg.History.IPCKey + uid,
		LockPath:   filepath.Join(cfg.LockDir(), fmt.Sprintf("lish-%d.lock", uid)),
		File:       cfg.HistoryPath(home),
		Fs:         cfg.Fs(),
		Name:       name,
	}
}

// Store is one shell's attachment to the shared history.
type Store struct {
	opts Options
	seg  Segment
	lock *fileLock
	ring *ring

	closed bool
}

// Open attaches to the shared history, initializing it from the history file
// if this is the first attacher.
func Open(opts Options) (*Store, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Name == "" {
		opts.Name = "lish"
	}

	size := RingSize(opts.Capacity, opts.LineLength)
	seg := opts.Segment
	if seg == nil {
		var err error
		if seg, err = AttachSysV(opts.Key, size); err != nil {
			return nil, err
		}
	}
	if len(seg.Bytes()) < size {
		seg.Detach()
		return nil, fmt.Errorf("shared memory segment too small: %d < %d bytes", len(seg.Bytes()), size)
	}

	lock, err := openLock(opts.LockPath)
	if err != nil {
		seg.Detach()
		return nil, err
	}

	s := &Store{
		opts: opts,
		seg:  seg,
		lock: lock,
		ring: newRing(seg.Bytes(), opts.Capacity, opts.LineLength),
	}

	err = s.withWrite(func() error {
		attached, err := s.seg.Attached()
		if err != nil {
			return err
		}
		if attached > 1 && s.ring.initialized() {
			return nil
		}
		s.ring.reset()
		return s.load()
	})
	if err != nil {
		s.lock.Close()
		s.seg.Detach()
		return nil, err
	}
	return s, nil
}

func (s *Store) withRead(fn func() error) error {
	if err := s.lock.RLock(); err != nil {
		return err
	}
	fnErr := fn()
	if err := s.lock.RUnlock(); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}

func (s *Store) withWrite(fn func() error) error {
	if err := s.lock.Lock(); err != nil {
		return err
	}
	fnErr := fn()
	if err := s.lock.Unlock(); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}

// load appends the history file to the ring. A missing file is empty.
func (s *Store) load() error {
	if s.opts.File == "" {
		return nil
	}
	f, err := s.opts.Fs.Open(s.opts.File)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot read history: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, s.opts.LineLength), 1<<20)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			s.ring.add(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("cannot read history: %w", err)
	}
	return nil
}

func (s *Store) persist() error {
	if s.opts.File == "" {
		return nil
	}
	var b strings.Builder
	for _, e := range s.ring.entries() {
		b.WriteString(e.Line)
		b.WriteString("\n")
	}
	if err := afero.WriteFile(s.opts.Fs, s.opts.File, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("cannot write history: %w", err)
	}
	return nil
}

// Diagnostic is the command line returned in place of a missing entry: it
// prints msg and fails with ErrorStatus.
func Diagnostic(name, msg string) string {
	return fmt.Sprintf("(echo %s; exit %d)", cmdtree.Quote(name+": "+msg), ErrorStatus)
}

func (s *Store) diagnostic(format string, a ...interface{}) string {
	return Diagnostic(s.opts.Name, fmt.Sprintf(format, a...))
}

// Last returns the most recent line.
func (s *Store) Last() (out string, err error) {
	err = s.withRead(func() error {
		line, ok := s.ring.last()
		if !ok {
			line = s.diagnostic("no command entered yet")
		}
		out = line
		return nil
	})
	return
}

// Nth returns the line with logical index i.
func (s *Store) Nth(i int64) (out string, err error) {
	err = s.withRead(func() error {
		line, ok := s.ring.nth(i)
		if !ok {
			line = s.diagnostic("%d: no such history index", i)
		}
		out = line
		return nil
	})
	return
}

// Search returns the most recent line starting with prefix.
func (s *Store) Search(prefix string) (out string, err error) {
	err = s.withRead(func() error {
		line, ok := s.ring.search(prefix)
		if !ok {
			line = s.diagnostic("%s: no command beginning with that in history", prefix)
		}
		out = line
		return nil
	})
	return
}

// Add appends a line, evicting the oldest one when full. Blank lines are
// ignored.
func (s *Store) Add(line string) error {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil
	}
	return s.withWrite(func() error {
		s.ring.add(line)
		return nil
	})
}

// Clear removes every entry.
func (s *Store) Clear() error {
	return s.withWrite(func() error {
		s.ring.reset()
		return nil
	})
}

// Entries is a snapshot of the history, oldest first.
func (s *Store) Entries() (out []Entry, err error) {
	err = s.withRead(func() error {
		out = s.ring.entries()
		return nil
	})
	return
}

// List writes the history, oldest first, with logical indexes.
func (s *Store) List(w io.Writer) error {
	entries, err := s.Entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "[%2d] %s\n", e.Index, e.Line); err != nil {
			return err
		}
	}
	return nil
}

// Close detaches from the shared history. The last shell to detach writes
// the history file and removes the segment.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	// Detach before unlocking: the next closer must see the lower count.
	detached := false
	err := s.withWrite(func() error {
		detached = true
		attached, err := s.seg.Attached()
		if err != nil {
			s.seg.Detach()
			return err
		}

		var lastErr error
		if attached <= 1 {
			lastErr = s.persist()
			if err := s.seg.Remove(); err != nil && lastErr == nil {
				lastErr = err
			}
		}
		if err := s.seg.Detach(); err != nil && lastErr == nil {
			lastErr = err
		}
		return lastErr
	})
	if !detached {
		s.seg.Detach()
	}

	if closeErr := s.lock.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
