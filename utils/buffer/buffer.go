package buffer

import (
	"sync"
)

const (
	defaultBufSize = 4 * 1024
	// BlockSize is the read block used by stream cursors.
	BlockSize  = 128 * 1024
	maxBufSize = 4 * 1024 * 1024
)

var bufPool = sync.Pool{
	New: func() any {
		return &memBuffer{
			buf: make([]byte, 0, defaultBufSize),
		}
	},
}

var blockPool = sync.Pool{
	New: func() any {
		return &memBuffer{
			buf: make([]byte, 0, BlockSize),
		}
	},
}

// Get returns a buffer of the given length. Contents are not zeroed.
func Get(size int) PooledBuffer {
	var b *memBuffer
	if size >= BlockSize {
		b = blockPool.Get().(*memBuffer)
	} else {
		b = bufPool.Get().(*memBuffer)
	}

	if cap(b.buf) < size {
		b.buf = make([]byte, size)
	}

	b.buf = b.buf[:size]
	return b
}

// GetBlock returns a BlockSize buffer.
func GetBlock() PooledBuffer {
	return Get(BlockSize)
}

type memBuffer struct {
	buf []byte
}

func (b *memBuffer) Data() []byte {
	return b.buf
}

func (b *memBuffer) Len() int {
	return len(b.buf)
}

func (b *memBuffer) Cap() int {
	return cap(b.buf)
}

// Resize keeps the capacity when the new length fits.
func (b *memBuffer) Resize(size int) {
	if size > cap(b.buf) {
		newBuf := make([]byte, size)
		copy(newBuf, b.buf)
		b.buf = newBuf
	} else {
		b.buf = b.buf[:size]
	}
}

func (b *memBuffer) Release() {
	// oversized buffers are left to the GC
	if cap(b.buf) > maxBufSize {
		return
	}

	b.buf = b.buf[:0]
	if cap(b.buf) >= BlockSize {
		blockPool.Put(b)
	} else {
		bufPool.Put(b)
	}
}
