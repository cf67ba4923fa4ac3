// Package cursor implements a buffered, position tracking reader over a
// remux.Stream with size bounded sub views.
package cursor

import (
	"errors"
	"io"

	"github.com/ugparu/remux"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/bits/pio"
	"github.com/ugparu/remux/utils/buffer"
)

// Cursor reads a stream through a pooled block buffer.
type Cursor struct {
	src   remux.Stream
	block buffer.PooledBuffer
	off   int
	end   int
	pos   int64
	eof   bool
}

// New returns a cursor positioned at the current stream position.
func New(src remux.Stream) *Cursor {
	return &Cursor{
		src:   src,
		block: buffer.GetBlock(),
		pos:   src.Position(),
	}
}

func (c *Cursor) buffered() int {
	return c.end - c.off
}

func (c *Cursor) fill() error {
	if c.eof {
		return io.EOF
	}
	data := c.block.Data()
	c.off, c.end = 0, 0
	for c.end == 0 {
		n, err := c.src.Read(data)
		c.end = n
		if err != nil {
			if errors.Is(err, io.EOF) {
				if n == 0 {
					c.eof = true
					return io.EOF
				}
				return nil
			}
			return err
		}
		if n == 0 && c.src.Available() == 0 {
			c.eof = true
			return io.EOF
		}
	}
	return nil
}

// Read implements io.Reader. Large reads bypass the block buffer.
func (c *Cursor) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if c.buffered() == 0 {
		if len(p) >= buffer.BlockSize && !c.eof {
			n, err := c.src.Read(p)
			c.pos += int64(n)
			if errors.Is(err, io.EOF) && n > 0 {
				err = nil
			}
			return n, err
		}
		if err := c.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, c.block.Data()[c.off:c.end])
	c.off += n
	c.pos += int64(n)
	return n, nil
}

// ReadFull fills p or fails with TruncatedStreamError.
func (c *Cursor) ReadFull(p []byte) error {
	read := 0
	for read < len(p) {
		n, err := c.Read(p[read:])
		read += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				return &utils.TruncatedStreamError{Missing: int64(len(p) - read)}
			}
			return err
		}
	}
	return nil
}

func (c *Cursor) fixed(size int) ([]byte, error) {
	if c.buffered() >= size {
		b := c.block.Data()[c.off : c.off+size]
		c.off += size
		c.pos += int64(size)
		return b, nil
	}
	b := make([]byte, size)
	if err := c.ReadFull(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Cursor) ReadU8() (uint8, error) {
	b, err := c.fixed(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) ReadU16() (uint16, error) {
	b, err := c.fixed(2)
	if err != nil {
		return 0, err
	}
	return pio.U16BE(b), nil
}

func (c *Cursor) ReadI16() (int16, error) {
	v, err := c.ReadU16()
	return int16(v), err
}

func (c *Cursor) ReadU24() (uint32, error) {
	b, err := c.fixed(3)
	if err != nil {
		return 0, err
	}
	return pio.U24BE(b), nil
}

func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.fixed(4)
	if err != nil {
		return 0, err
	}
	return pio.U32BE(b), nil
}

func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

func (c *Cursor) ReadU64() (uint64, error) {
	b, err := c.fixed(8)
	if err != nil {
		return 0, err
	}
	return pio.U64BE(b), nil
}

func (c *Cursor) ReadI64() (int64, error) {
	v, err := c.ReadU64()
	return int64(v), err
}

func (c *Cursor) ReadU32LE() (uint32, error) {
	b, err := c.fixed(4)
	if err != nil {
		return 0, err
	}
	return pio.U32LE(b), nil
}

// Skip discards n bytes.
func (c *Cursor) Skip(n int64) error {
	if n < 0 {
		return &utils.InvalidOffsetError{What: "skip", Offset: n}
	}
	if int64(c.buffered()) >= n {
		c.off += int(n)
		c.pos += n
		return nil
	}
	rest := n - int64(c.buffered())
	c.pos += int64(c.buffered())
	c.off, c.end = 0, 0
	if c.eof {
		return &utils.TruncatedStreamError{Missing: rest}
	}
	before := c.src.Position()
	err := c.src.Skip(rest)
	c.pos += c.src.Position() - before
	return err
}

// Position returns the absolute position of the next unread byte.
func (c *Cursor) Position() int64 {
	return c.pos
}

// Available returns the bytes left, -1 when the stream cannot tell.
func (c *Cursor) Available() int64 {
	if c.eof {
		return int64(c.buffered())
	}
	left := c.src.Available()
	if left < 0 {
		return -1
	}
	return left + int64(c.buffered())
}

// More reports whether at least one byte is left to read.
func (c *Cursor) More() (bool, error) {
	if c.buffered() > 0 {
		return true, nil
	}
	if left := c.src.Available(); left >= 0 && !c.eof {
		return left > 0, nil
	}
	if err := c.fill(); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Cursor) CanRewind() bool {
	return c.src.CanRewind()
}

// Rewind moves back to the start of the stream.
func (c *Cursor) Rewind() error {
	if !c.src.CanRewind() {
		return &utils.NotRewindableError{}
	}
	if err := c.src.Rewind(); err != nil {
		return err
	}
	c.off, c.end = 0, 0
	c.pos = 0
	c.eof = false
	return nil
}

// View returns a reader limited to the next size bytes.
func (c *Cursor) View(size int64) *View {
	return &View{c: c, remaining: size}
}

// Close releases the block buffer and closes the stream.
func (c *Cursor) Close() error {
	if c.block != nil {
		c.block.Release()
		c.block = nil
	}
	return c.src.Close()
}
