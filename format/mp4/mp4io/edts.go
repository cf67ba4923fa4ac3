package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const (
	EDTS = Tag(0x65647473)
	ELST = Tag(0x656c7374)
)

// EditBox is the edts container. Only its elst child is decoded.
type EditBox struct {
	List     *EditList
	Unknowns []Atom
	AtomPos
}

func (self EditBox) Tag() Tag {
	return EDTS
}

func (self EditBox) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(EDTS))
	n += 8
	if self.List != nil {
		n += self.List.Marshal(b[n:])
	}
	n += marshalAll(b[n:], self.Unknowns)
	pio.PutU32BE(b[0:], uint32(n))
	return
}

func (self EditBox) Len() (n int) {
	n += 8
	if self.List != nil {
		n += self.List.Len()
	}
	n += lenAll(self.Unknowns)
	return
}

func (self *EditBox) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	return walk(b, 8, offset, func(tag Tag, box []byte, off int) (err error) {
		switch tag {
		case ELST:
			self.List, err = decode[EditList](box, off)
		default:
			self.Unknowns = append(self.Unknowns, unknown(box, off))
		}
		return
	})
}

func (self EditBox) Children() (r []Atom) {
	if self.List != nil {
		r = append(r, self.List)
	}
	return append(r, self.Unknowns...)
}

// EditList is the elst box. Version 1 uses 64 bit durations and media times.
type EditList struct {
	Version uint8
	Flags   uint32
	Entries []EditListEntry
	AtomPos
}

func (self EditList) Tag() Tag {
	return ELST
}

func (self EditList) entrySize() int {
	if self.Version == 1 {
		return 20
	}
	return 12
}

func (self EditList) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(ELST))
	n += 8
	pio.PutU8(b[n:], self.Version)
	n += 1
	pio.PutU24BE(b[n:], self.Flags)
	n += 3
	pio.PutU32BE(b[n:], uint32(len(self.Entries)))
	n += 4
	for _, entry := range self.Entries {
		if self.Version == 1 {
			pio.PutU64BE(b[n:], entry.SegmentDuration)
			pio.PutI64BE(b[n+8:], entry.MediaTime)
			n += 16
		} else {
			pio.PutU32BE(b[n:], uint32(entry.SegmentDuration))
			pio.PutI32BE(b[n+4:], int32(entry.MediaTime))
			n += 8
		}
		PutFixed32(b[n:], entry.MediaRate)
		n += 4
	}
	pio.PutU32BE(b[0:], uint32(n))
	return
}

func (self EditList) Len() int {
	return 8 + 4 + 4 + len(self.Entries)*self.entrySize()
}

func (self *EditList) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	n += 8
	if len(b) < n+8 {
		err = parseErr("Version", n+offset, err)
		return
	}
	self.Version = pio.U8(b[n:])
	n += 1
	self.Flags = pio.U24BE(b[n:])
	n += 3
	count := int(pio.U32BE(b[n:]))
	n += 4
	if len(b) < n+count*self.entrySize() {
		err = parseErr("Entries", n+offset, err)
		return
	}
	self.Entries = make([]EditListEntry, count)
	for i := range self.Entries {
		if self.Version == 1 {
			self.Entries[i].SegmentDuration = pio.U64BE(b[n:])
			self.Entries[i].MediaTime = pio.I64BE(b[n+8:])
			n += 16
		} else {
			self.Entries[i].SegmentDuration = uint64(pio.U32BE(b[n:]))
			self.Entries[i].MediaTime = int64(pio.I32BE(b[n+4:]))
			n += 8
		}
		self.Entries[i].MediaRate = GetFixed32(b[n:])
		n += 4
	}
	return
}

func (self EditList) Children() (r []Atom) {
	return
}
