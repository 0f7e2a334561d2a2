package history

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode/utf8"
)

// Ring layout inside the shared segment. All fields are little endian.
const (
	ringMagic = 0x4c495348 // "LISH"

	offMagic    = 0
	offCapacity = 4
	offLineLen  = 8
	offNewest   = 12
	offOldest   = 16
	offDropped  = 24
	headerSize  = 32
)

// RingSize is the number of bytes a ring of the given shape occupies.
func RingSize(capacity, lineLen int) int {
	return headerSize + capacity*lineLen
}

// Entry is one history line with its logical index.
type Entry struct {
	Index int64
	Line  string
}

// ring is a view of the history ring over a byte region. It does no locking.
type ring struct {
	buf      []byte
	capacity int
	lineLen  int
}

func newRing(buf []byte, capacity, lineLen int) *ring {
	return &ring{buf: buf[:RingSize(capacity, lineLen)], capacity: capacity, lineLen: lineLen}
}

func (r *ring) u32(off int) uint32 {
	return binary.LittleEndian.Uint32(r.buf[off:])
}

func (r *ring) putU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(r.buf[off:], v)
}

func (r *ring) newest() int {
	return int(int32(r.u32(offNewest)))
}

func (r *ring) oldest() int {
	return int(int32(r.u32(offOldest)))
}

func (r *ring) dropped() int64 {
	return int64(binary.LittleEndian.Uint64(r.buf[offDropped:]))
}

func (r *ring) setNewest(i int) {
	r.putU32(offNewest, uint32(int32(i)))
}

func (r *ring) setOldest(i int) {
	r.putU32(offOldest, uint32(int32(i)))
}

func (r *ring) setDropped(n int64) {
	binary.LittleEndian.PutUint64(r.buf[offDropped:], uint64(n))
}

// initialized reports whether the header was written by a ring of this shape.
func (r *ring) initialized() bool {
	return r.u32(offMagic) == ringMagic &&
		int(r.u32(offCapacity)) == r.capacity &&
		int(r.u32(offLineLen)) == r.lineLen
}

func (r *ring) reset() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.putU32(offMagic, ringMagic)
	r.putU32(offCapacity, uint32(r.capacity))
	r.putU32(offLineLen, uint32(r.lineLen))
	r.setNewest(-1)
	r.setOldest(-1)
	r.setDropped(0)
}

func (r *ring) slot(i int) []byte {
	start := headerSize + i*r.lineLen
	return r.buf[start : start+r.lineLen]
}

func (r *ring) get(i int) string {
	s := r.slot(i)
	if n := bytes.IndexByte(s, 0); n >= 0 {
		s = s[:n]
	}
	return string(s)
}

func (r *ring) put(i int, line string) {
	s := r.slot(i)
	line = truncate(line, r.lineLen-1)
	n := copy(s, line)
	for ; n < len(s); n++ {
		s[n] = 0
	}
}

// truncate cuts line to at most max bytes without splitting a rune.
func truncate(line string, max int) string {
	if len(line) <= max {
		return line
	}
	line = line[:max]
	for len(line) > 0 && !utf8.ValidString(line) {
		line = line[:len(line)-1]
	}
	return line
}

func (r *ring) add(line string) {
	next := (r.newest() + 1) % r.capacity
	r.put(next, line)
	r.setNewest(next)

	switch oldest := r.oldest(); {
	case oldest == -1:
		r.setOldest(next)
	case next == oldest:
		r.setOldest((oldest + 1) % r.capacity)
		r.setDropped(r.dropped() + 1)
	}
}

func (r *ring) last() (string, bool) {
	newest := r.newest()
	if newest < 0 {
		return "", false
	}
	line := r.get(newest)
	return line, line != ""
}

func (r *ring) nth(i int64) (string, bool) {
	oldest, dropped := r.oldest(), r.dropped()
	if oldest < 0 || i < dropped || i >= dropped+int64(r.capacity) {
		return "", false
	}
	line := r.get((oldest + int(i-dropped)) % r.capacity)
	return line, line != ""
}

func (r *ring) search(prefix string) (string, bool) {
	i := r.newest()
	if i < 0 {
		return "", false
	}
	for n := 0; n < r.capacity; n++ {
		line := r.get(i)
		if line == "" {
			break
		}
		if strings.HasPrefix(line, prefix) {
			return line, true
		}
		i = (i - 1 + r.capacity) % r.capacity
	}
	return "", false
}

func (r *ring) entries() []Entry {
	oldest, newest := r.oldest(), r.newest()
	if oldest < 0 {
		return nil
	}
	count := (newest-oldest+r.capacity)%r.capacity + 1
	out := make([]Entry, 0, count)
	for k := 0; k < count; k++ {
		out = append(out, Entry{
			Index: r.dropped() + int64(k),
			Line:  r.get((oldest + k) % r.capacity),
		})
	}
	return out
}
