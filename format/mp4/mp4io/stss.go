package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const STSS = Tag(0x73747373)

func (self SyncSample) Tag() Tag {
	return STSS
}

// SyncSample is the stss box. Entries are 1-based sample numbers.
type SyncSample struct {
	Version uint8
	Flags   uint32
	Entries []uint32
	AtomPos
}

func (self SyncSample) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(STSS))
	n += 8
	pio.PutU8(b[n:], self.Version)
	pio.PutU24BE(b[n+1:], self.Flags)
	n += 4
	pio.PutU32BE(b[n:], uint32(len(self.Entries)))
	n += 4
	for _, entry := range self.Entries {
		pio.PutU32BE(b[n:], entry)
		n += 4
	}
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self SyncSample) Len() int {
	return 16 + 4*len(self.Entries)
}
func (self *SyncSample) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	n += 8
	if len(b) < n+8 {
		err = parseErr("Version", n+offset, err)
		return
	}
	self.Version = pio.U8(b[n:])
	self.Flags = pio.U24BE(b[n+1:])
	n += 4
	count := int(pio.U32BE(b[n:]))
	n += 4
	if len(b) < n+4*count {
		err = parseErr("uint32", n+offset, err)
		return
	}
	self.Entries = make([]uint32, count)
	for i := range self.Entries {
		self.Entries[i] = pio.U32BE(b[n:])
		n += 4
	}
	return
}
func (self SyncSample) Children() (r []Atom) {
	return
}
