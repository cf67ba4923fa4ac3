package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const STSZ = Tag(0x7374737a)

func (self SampleSize) Tag() Tag {
	return STSZ
}

// SampleSize is the stsz box. A non zero SampleSize means every one of the
// SampleCount samples has that size and Entries is empty.
type SampleSize struct {
	Version     uint8
	Flags       uint32
	SampleSize  uint32
	SampleCount uint32
	Entries     []uint32
	AtomPos
}

func (self SampleSize) count() uint32 {
	if self.SampleSize != 0 {
		return self.SampleCount
	}
	return uint32(len(self.Entries))
}

func (self SampleSize) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(STSZ))
	n += 8
	pio.PutU8(b[n:], self.Version)
	pio.PutU24BE(b[n+1:], self.Flags)
	n += 4
	pio.PutU32BE(b[n:], self.SampleSize)
	n += 4
	pio.PutU32BE(b[n:], self.count())
	n += 4
	if self.SampleSize == 0 {
		for _, entry := range self.Entries {
			pio.PutU32BE(b[n:], entry)
			n += 4
		}
	}
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self SampleSize) Len() (n int) {
	n += 20
	if self.SampleSize == 0 {
		n += 4 * len(self.Entries)
	}
	return
}
func (self *SampleSize) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	n += 8
	if len(b) < n+12 {
		err = parseErr("SampleSize", n+offset, err)
		return
	}
	self.Version = pio.U8(b[n:])
	self.Flags = pio.U24BE(b[n+1:])
	n += 4
	self.SampleSize = pio.U32BE(b[n:])
	n += 4
	self.SampleCount = pio.U32BE(b[n:])
	n += 4
	if self.SampleSize != 0 {
		return
	}
	if len(b) < n+4*int(self.SampleCount) {
		err = parseErr("uint32", n+offset, err)
		return
	}
	self.Entries = make([]uint32, self.SampleCount)
	for i := range self.Entries {
		self.Entries[i] = pio.U32BE(b[n:])
		n += 4
	}
	return
}
func (self SampleSize) Children() (r []Atom) {
	return
}
