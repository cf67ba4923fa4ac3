package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const (
	STCO = Tag(0x7374636f)
	CO64 = Tag(0x636f3634)
)

// ChunkOffset is stco, or co64 when Wide is set.
type ChunkOffset struct {
	Version uint8
	Flags   uint32
	Wide    bool
	Entries []uint64
	AtomPos
}

func (self ChunkOffset) Tag() Tag {
	if self.Wide {
		return CO64
	}
	return STCO
}

func (self ChunkOffset) entrySize() int {
	if self.Wide {
		return 8
	}
	return 4
}

func (self ChunkOffset) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(self.Tag()))
	n += 8
	pio.PutU8(b[n:], self.Version)
	pio.PutU24BE(b[n+1:], self.Flags)
	n += 4
	pio.PutU32BE(b[n:], uint32(len(self.Entries)))
	n += 4
	for _, entry := range self.Entries {
		if self.Wide {
			pio.PutU64BE(b[n:], entry)
		} else {
			pio.PutU32BE(b[n:], uint32(entry))
		}
		n += self.entrySize()
	}
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self ChunkOffset) Len() int {
	return 16 + self.entrySize()*len(self.Entries)
}
func (self *ChunkOffset) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	n += 8
	if len(b) < n+8 {
		err = parseErr("Version", n+offset, err)
		return
	}
	self.Wide = Tag(pio.U32BE(b[4:])) == CO64
	self.Version = pio.U8(b[n:])
	self.Flags = pio.U24BE(b[n+1:])
	n += 4
	count := int(pio.U32BE(b[n:]))
	n += 4
	if len(b) < n+self.entrySize()*count {
		err = parseErr("Entries", n+offset, err)
		return
	}
	self.Entries = make([]uint64, count)
	for i := range self.Entries {
		if self.Wide {
			self.Entries[i] = pio.U64BE(b[n:])
		} else {
			self.Entries[i] = uint64(pio.U32BE(b[n:]))
		}
		n += self.entrySize()
	}
	return
}
func (self ChunkOffset) Children() (r []Atom) {
	return
}
