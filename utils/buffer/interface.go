// Package buffer pools the byte slices used for stream read blocks and box
// marshaling.
package buffer

// PooledBuffer is a byte slice borrowed from one of the pools. Buffers of
// BlockSize and above go back to the block pool.
type PooledBuffer interface {
	Data() []byte
	Len() int
	Cap() int
	// Resize changes the length, reallocating when it exceeds Cap.
	Resize(int)
	// Release returns the buffer. It must not be used afterwards.
	Release()
}
