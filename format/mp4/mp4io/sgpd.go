package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const (
	SGPD = Tag(0x73677064)
	SBGP = Tag(0x73626770)
	ROLL = Tag(0x726f6c6c)
)

// SampleGroupDesc is a version 1 sgpd box with fixed length entries.
type SampleGroupDesc struct {
	Version       uint8
	Flags         uint32
	GroupingType  Tag
	DefaultLength uint32
	Entries       [][]byte
	AtomPos
}

// NewRollGroupDesc returns the audio pre-roll description with a roll
// distance of -1.
func NewRollGroupDesc() *SampleGroupDesc {
	return &SampleGroupDesc{
		Version:       1,
		GroupingType:  ROLL,
		DefaultLength: 2,
		Entries:       [][]byte{{0xFF, 0xFF}},
	}
}

func (self SampleGroupDesc) Tag() Tag {
	return SGPD
}

func (self SampleGroupDesc) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(SGPD))
	n += 8
	pio.PutU8(b[n:], self.Version)
	pio.PutU24BE(b[n+1:], self.Flags)
	n += 4
	pio.PutU32BE(b[n:], uint32(self.GroupingType))
	n += 4
	if self.Version == 1 {
		pio.PutU32BE(b[n:], self.DefaultLength)
		n += 4
	}
	pio.PutU32BE(b[n:], uint32(len(self.Entries)))
	n += 4
	for _, entry := range self.Entries {
		if self.Version == 1 && self.DefaultLength == 0 {
			pio.PutU32BE(b[n:], uint32(len(entry)))
			n += 4
		}
		n += copy(b[n:], entry)
	}
	pio.PutU32BE(b[0:], uint32(n))
	return
}

func (self SampleGroupDesc) Len() (n int) {
	n += 8 + 4 + 4 + 4
	if self.Version == 1 {
		n += 4
	}
	for _, entry := range self.Entries {
		if self.Version == 1 && self.DefaultLength == 0 {
			n += 4
		}
		n += len(entry)
	}
	return
}

func (self *SampleGroupDesc) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	n += 8
	if len(b) < n+12 {
		err = parseErr("GroupingType", n+offset, err)
		return
	}
	self.Version = pio.U8(b[n:])
	self.Flags = pio.U24BE(b[n+1:])
	n += 4
	self.GroupingType = Tag(pio.U32BE(b[n:]))
	n += 4
	if self.Version == 1 {
		self.DefaultLength = pio.U32BE(b[n:])
		n += 4
	}
	if len(b) < n+4 {
		err = parseErr("EntryCount", n+offset, err)
		return
	}
	count := int(pio.U32BE(b[n:]))
	n += 4
	// version 0 entries have no declared length; keep the rest as one entry
	if self.Version == 0 {
		self.Entries = [][]byte{b[n:]}
		n = len(b)
		return
	}
	for i := 0; i < count; i++ {
		size := int(self.DefaultLength)
		if size == 0 {
			if len(b) < n+4 {
				err = parseErr("DescriptionLength", n+offset, err)
				return
			}
			size = int(pio.U32BE(b[n:]))
			n += 4
		}
		if len(b) < n+size {
			err = parseErr("Description", n+offset, err)
			return
		}
		self.Entries = append(self.Entries, b[n:n+size])
		n += size
	}
	return
}

func (self SampleGroupDesc) Children() (r []Atom) {
	return
}

type SampleToGroupEntry struct {
	SampleCount           uint32
	GroupDescriptionIndex uint32
}

// SampleToGroup is a version 0 sbgp box.
type SampleToGroup struct {
	Version      uint8
	Flags        uint32
	GroupingType Tag
	Entries      []SampleToGroupEntry
	AtomPos
}

func (self SampleToGroup) Tag() Tag {
	return SBGP
}

func (self SampleToGroup) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(SBGP))
	n += 8
	pio.PutU8(b[n:], self.Version)
	pio.PutU24BE(b[n+1:], self.Flags)
	n += 4
	pio.PutU32BE(b[n:], uint32(self.GroupingType))
	n += 4
	if self.Version == 1 {
		pio.PutU32BE(b[n:], 0)
		n += 4
	}
	pio.PutU32BE(b[n:], uint32(len(self.Entries)))
	n += 4
	for _, entry := range self.Entries {
		pio.PutU32BE(b[n:], entry.SampleCount)
		pio.PutU32BE(b[n+4:], entry.GroupDescriptionIndex)
		n += 8
	}
	pio.PutU32BE(b[0:], uint32(n))
	return
}

func (self SampleToGroup) Len() (n int) {
	n += 8 + 4 + 4 + 4 + 8*len(self.Entries)
	if self.Version == 1 {
		n += 4
	}
	return
}

func (self *SampleToGroup) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	n += 8
	if len(b) < n+8 {
		err = parseErr("GroupingType", n+offset, err)
		return
	}
	self.Version = pio.U8(b[n:])
	self.Flags = pio.U24BE(b[n+1:])
	n += 4
	self.GroupingType = Tag(pio.U32BE(b[n:]))
	n += 4
	if self.Version == 1 {
		n += 4
	}
	if len(b) < n+4 {
		err = parseErr("EntryCount", n+offset, err)
		return
	}
	count := int(pio.U32BE(b[n:]))
	n += 4
	if len(b) < n+8*count {
		err = parseErr("Entries", n+offset, err)
		return
	}
	self.Entries = make([]SampleToGroupEntry, count)
	for i := range self.Entries {
		self.Entries[i].SampleCount = pio.U32BE(b[n:])
		self.Entries[i].GroupDescriptionIndex = pio.U32BE(b[n+4:])
		n += 8
	}
	return
}

func (self SampleToGroup) Children() (r []Atom) {
	return
}
