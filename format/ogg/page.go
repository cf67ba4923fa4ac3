package ogg

import (
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/bits/pio"
)

// Page header type flags.
const (
	FlagContinued = 0x01
	FlagFirst     = 0x02
	FlagLast      = 0x04
)

const (
	headerSize     = 27
	checksumOffset = 22
	maxSegments    = 255
	// MaxPacketSize is the largest packet whose lacing fits one page.
	MaxPacketSize = maxSegments*255 - 1
)

// lacing returns the segment table entries of a packet: 255 for every full
// chunk, then the remainder, which is 0 when size is a multiple of 255.
func lacing(size int) []byte {
	entries := make([]byte, 0, size/255+1)
	for ; size >= 255; size -= 255 {
		entries = append(entries, 255)
	}
	return append(entries, byte(size))
}

// page accumulates whole packets.
type page struct {
	table []byte
	data  []byte
}

// fits reports whether a packet of size still fits the segment table.
func (p *page) fits(size int) bool {
	return len(p.table)+size/255+1 <= maxSegments
}

// reserve adds the lacing of a packet of size and returns the slice its
// bytes must be copied into. It fails when the packet can never fit a page.
func (p *page) reserve(size int) ([]byte, error) {
	if size > MaxPacketSize {
		return nil, &utils.PacketTooLargeError{Size: size}
	}
	p.table = append(p.table, lacing(size)...)
	start := len(p.data)
	p.data = append(p.data, make([]byte, size)...)
	return p.data[start:], nil
}

func (p *page) empty() bool {
	return len(p.table) == 0
}

func (p *page) reset() {
	p.table = p.table[:0]
	p.data = p.data[:0]
}

// header returns the page header with its checksum over the header and the
// page data.
func (p *page) header(flag byte, granule int64, serial, sequence uint32) []byte {
	h := make([]byte, headerSize+len(p.table))
	copy(h, "OggS")
	h[5] = flag
	pio.PutU64LE(h[6:], uint64(granule))
	pio.PutU32LE(h[14:], serial)
	pio.PutU32LE(h[18:], sequence)
	h[26] = byte(len(p.table))
	copy(h[headerSize:], p.table)
	crc := Checksum(Checksum(0, h), p.data)
	pio.PutU32LE(h[checksumOffset:], crc)
	return h
}
