package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const STSC = Tag(0x73747363)

func (self SampleToChunk) Tag() Tag {
	return STSC
}

type SampleToChunk struct {
	Version uint8
	Flags   uint32
	Entries []SampleToChunkEntry
	AtomPos
}

func (self SampleToChunk) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(STSC))
	n += 8
	pio.PutU8(b[n:], self.Version)
	pio.PutU24BE(b[n+1:], self.Flags)
	n += 4
	pio.PutU32BE(b[n:], uint32(len(self.Entries)))
	n += 4
	for _, entry := range self.Entries {
		PutSampleToChunkEntry(b[n:], entry)
		n += LenSampleToChunkEntry
	}
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self SampleToChunk) Len() int {
	return 16 + LenSampleToChunkEntry*len(self.Entries)
}
func (self *SampleToChunk) Unmarshal(b []byte, offset int) (n int, err error) {
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
	if len(b) < n+LenSampleToChunkEntry*count {
		err = parseErr("SampleToChunkEntry", n+offset, err)
		return
	}
	self.Entries = make([]SampleToChunkEntry, count)
	for i := range self.Entries {
		self.Entries[i] = GetSampleToChunkEntry(b[n:])
		n += LenSampleToChunkEntry
	}
	return
}
func (self SampleToChunk) Children() (r []Atom) {
	return
}
