// Package stream implements remux.Stream over memory, files and plain
// io.Reader/io.Writer values.
package stream

import (
	"io"

	"github.com/ugparu/remux/utils"
)

// Memory is a seekable in-memory stream. Writes overwrite or extend the
// buffer at the current position.
type Memory struct {
	buf      []byte
	pos      int64
	writable bool
	closed   bool
}

// NewMemory returns a read only stream over data.
func NewMemory(data []byte) *Memory {
	return &Memory{buf: data}
}

// NewMemoryWriter returns an empty read/write stream.
func NewMemoryWriter() *Memory {
	return &Memory{writable: true}
}

func (m *Memory) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *Memory) Write(p []byte) (int, error) {
	if !m.writable || m.closed {
		return 0, &utils.NotWritableError{}
	}
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		if end > int64(cap(m.buf)) {
			grown := make([]byte, end, max(end, 2*int64(cap(m.buf))))
			copy(grown, m.buf)
			m.buf = grown
		} else {
			m.buf = m.buf[:end]
		}
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *Memory) Close() error {
	m.closed = true
	return nil
}

func (m *Memory) CanRead() bool   { return !m.closed }
func (m *Memory) CanWrite() bool  { return m.writable && !m.closed }
func (m *Memory) CanSeek() bool   { return true }
func (m *Memory) CanRewind() bool { return true }
func (m *Memory) Position() int64 { return m.pos }

func (m *Memory) Available() int64 {
	return max(int64(len(m.buf))-m.pos, 0)
}

// Skip moves forward. A read only stream cannot move past its end.
func (m *Memory) Skip(n int64) error {
	if n < 0 {
		return &utils.InvalidOffsetError{What: "skip", Offset: n}
	}
	if !m.writable && m.pos+n > int64(len(m.buf)) {
		missing := m.pos + n - int64(len(m.buf))
		m.pos = int64(len(m.buf))
		return &utils.TruncatedStreamError{Missing: missing}
	}
	m.pos += n
	return nil
}

func (m *Memory) SeekTo(pos int64) error {
	if pos < 0 {
		return &utils.InvalidOffsetError{What: "seek", Offset: pos}
	}
	m.pos = pos
	return nil
}

func (m *Memory) Rewind() error {
	m.pos = 0
	return nil
}

// Bytes returns the whole buffer.
func (m *Memory) Bytes() []byte {
	return m.buf
}
