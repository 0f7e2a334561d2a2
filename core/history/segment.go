package history

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Segment is memory shared by every shell of one user.
type Segment interface {
	// Bytes is the attached memory.
	Bytes() []byte
	// Attached is the number of processes currently attached, this one
	// included.
	Attached() (int, error)
	// Remove marks the segment for destruction once everyone detached.
	Remove() error
	// Detach unmaps the segment; Bytes must not be used afterwards.
	Detach() error
}

// sysvSegment is a System V shared memory segment.
type sysvSegment struct {
	id   int
	data []byte
}

// AttachSysV creates or looks up the segment with the given key and
// attaches it.
func AttachSysV(key, size int) (Segment, error) {
	id, err := unix.SysvShmGet(key, size, unix.IPC_CREAT|0600)
	if err != nil {
		return nil, fmt.Errorf("cannot get shared memory segment %#x: %w", key, err)
	}
	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot attach shared memory segment %#x: %w", key, err)
	}
	return &sysvSegment{id: id, data: data}, nil
}

func (s *sysvSegment) Bytes() []byte {
	return s.data
}

func (s *sysvSegment) Attached() (int, error) {
	var desc unix.SysvShmDesc
	if _, err := unix.SysvShmCtl(s.id, unix.IPC_STAT, &desc); err != nil {
		return 0, fmt.Errorf("cannot stat shared memory segment: %w", err)
	}
	return int(desc.Nattch), nil
}

func (s *sysvSegment) Remove() error {
	if _, err := unix.SysvShmCtl(s.id, unix.IPC_RMID, nil); err != nil {
		return fmt.Errorf("cannot remove shared memory segment: %w", err)
	}
	return nil
}

func (s *sysvSegment) Detach() error {
	if err := unix.SysvShmDetach(s.data); err != nil {
		return fmt.Errorf("cannot detach shared memory segment: %w", err)
	}
	return nil
}

// MemorySegment emulates a shared segment inside one process. Every Attach
// returns a handle onto the same memory until it is removed.
type MemorySegment struct {
	mu       sync.Mutex
	size     int
	data     []byte
	attached int
}

func NewMemorySegment(size int) *MemorySegment {
	return &MemorySegment{size: size, data: make([]byte, size)}
}

// Attach returns a new handle onto the segment.
func (m *MemorySegment) Attach() Segment {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attached++
	return &memoryHandle{segment: m, data: m.data}
}

// Attached is the number of live handles.
func (m *MemorySegment) Attached() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.attached
}

type memoryHandle struct {
	segment *MemorySegment
	data    []byte
}

func (h *memoryHandle) Bytes() []byte {
	return h.data
}

func (h *memoryHandle) Attached() (int, error) {
	return h.segment.Attached(), nil
}

func (h *memoryHandle) Remove() error {
	m := h.segment
	m.mu.Lock()
	defer m.mu.Unlock()

	// Later attachers get fresh memory, like a new System V segment.
	m.data = make([]byte, m.size)
	return nil
}

func (h *memoryHandle) Detach() error {
	m := h.segment
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attached--
	h.data = nil
	return nil
}
