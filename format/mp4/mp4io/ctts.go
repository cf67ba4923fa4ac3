package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const CTTS = Tag(0x63747473)

func (self CompositionOffset) Tag() Tag {
	return CTTS
}

// CompositionOffset is the ctts box. Version 1 allows negative offsets.
type CompositionOffset struct {
	Version uint8
	Flags   uint32
	Entries []CompositionOffsetEntry
	AtomPos
}

func (self CompositionOffset) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(CTTS))
	n += 8
	pio.PutU8(b[n:], self.Version)
	pio.PutU24BE(b[n+1:], self.Flags)
	n += 4
	pio.PutU32BE(b[n:], uint32(len(self.Entries)))
	n += 4
	for _, entry := range self.Entries {
		PutCompositionOffsetEntry(b[n:], entry)
		n += LenCompositionOffsetEntry
	}
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self CompositionOffset) Len() int {
	return 16 + LenCompositionOffsetEntry*len(self.Entries)
}
func (self *CompositionOffset) Unmarshal(b []byte, offset int) (n int, err error) {
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
	if len(b) < n+LenCompositionOffsetEntry*count {
		err = parseErr("CompositionOffsetEntry", n+offset, err)
		return
	}
	self.Entries = make([]CompositionOffsetEntry, count)
	for i := range self.Entries {
		self.Entries[i] = GetCompositionOffsetEntry(b[n:])
		n += LenCompositionOffsetEntry
	}
	return
}
func (self CompositionOffset) Children() (r []Atom) {
	return
}
