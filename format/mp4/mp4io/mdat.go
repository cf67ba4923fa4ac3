package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const MDAT = Tag(0x6d646174)

// MediaDataHeader returns the header of an mdat holding payload bytes. The
// wide form uses a 64-bit largesize field.
func MediaDataHeader(payload uint64, wide bool) []byte {
	if !wide {
		b := make([]byte, HeaderSize)
		pio.PutU32BE(b, uint32(payload+HeaderSize))
		pio.PutU32BE(b[4:], uint32(MDAT))
		return b
	}
	b := make([]byte, HeaderSize+8)
	pio.PutU32BE(b, 1)
	pio.PutU32BE(b[4:], uint32(MDAT))
	pio.PutU64BE(b[8:], payload+HeaderSize+8)
	return b
}
