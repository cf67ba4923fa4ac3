package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const (
	MFRA = Tag(0x6d667261)
	TFRA = Tag(0x74667261)
	MFRO = Tag(0x6d66726f)
)

// MovieFragRandomAccess is the mfra box. The trailing mfro always records the
// size of the whole mfra when marshaled.
type MovieFragRandomAccess struct {
	Tracks   []*TrackFragRandomAccess
	Offset   *MovieFragRandomAccessOffset
	Unknowns []Atom
	AtomPos
}

func (self MovieFragRandomAccess) Tag() Tag {
	return MFRA
}

func (self MovieFragRandomAccess) Children() (r []Atom) {
	for _, atom := range self.Tracks {
		r = append(r, atom)
	}
	r = append(r, self.Unknowns...)
	if self.Offset != nil {
		r = append(r, self.Offset)
	}
	return
}

func (self MovieFragRandomAccess) Len() (n int) {
	n = 8 + mfroLen
	for _, atom := range self.Tracks {
		n += atom.Len()
	}
	return n + lenAll(self.Unknowns)
}

func (self MovieFragRandomAccess) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(MFRA))
	n = 8
	for _, atom := range self.Tracks {
		n += atom.Marshal(b[n:])
	}
	n += marshalAll(b[n:], self.Unknowns)
	mfro := MovieFragRandomAccessOffset{Size: uint32(n + mfroLen)}
	n += mfro.Marshal(b[n:])
	pio.PutU32BE(b[0:], uint32(n))
	return
}

func (self *MovieFragRandomAccess) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	return walk(b, 8, offset, func(tag Tag, box []byte, off int) (err error) {
		switch tag {
		case TFRA:
			var atom *TrackFragRandomAccess
			if atom, err = decode[TrackFragRandomAccess](box, off); err == nil {
				self.Tracks = append(self.Tracks, atom)
			}
		case MFRO:
			self.Offset, err = decode[MovieFragRandomAccessOffset](box, off)
		default:
			self.Unknowns = append(self.Unknowns, unknown(box, off))
		}
		return
	})
}

// TrackFragRandomAccess is the tfra box. The traf, trun and sample numbers are
// stored with the smallest field width that fits the largest value.
type TrackFragRandomAccess struct {
	Version uint8
	Flags   uint32
	TrackID uint32
	Entries []TrackFragRandomAccessEntry
	AtomPos
}

func (self TrackFragRandomAccess) Tag() Tag {
	return TFRA
}

func (self TrackFragRandomAccess) Children() []Atom {
	return nil
}

func numberWidth(v uint32) int {
	switch {
	case v <= 0xFF:
		return 1
	case v <= 0xFFFF:
		return 2
	case v <= 0xFFFFFF:
		return 3
	}
	return 4
}

// widths returns the byte widths of the traf, trun and sample numbers.
func (self TrackFragRandomAccess) widths() (traf, trun, sample int) {
	traf, trun, sample = 1, 1, 1
	for _, e := range self.Entries {
		traf = max(traf, numberWidth(e.TrafNumber))
		trun = max(trun, numberWidth(e.TrunNumber))
		sample = max(sample, numberWidth(e.SampleNumber))
	}
	return
}

func (self TrackFragRandomAccess) entryLen() int {
	traf, trun, sample := self.widths()
	n := traf + trun + sample + 8
	if self.Version == 1 {
		n += 8
	}
	return n
}

func (self TrackFragRandomAccess) Len() int {
	return 24 + len(self.Entries)*self.entryLen()
}

func putNumber(b []byte, width int, v uint32) {
	for i := width - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func getNumber(b []byte, width int) (v uint32) {
	for i := 0; i < width; i++ {
		v = v<<8 | uint32(b[i])
	}
	return
}

func (self TrackFragRandomAccess) Marshal(b []byte) (n int) {
	traf, trun, sample := self.widths()
	pio.PutU32BE(b[4:], uint32(TFRA))
	pio.PutU8(b[8:], self.Version)
	pio.PutU24BE(b[9:], self.Flags)
	pio.PutU32BE(b[12:], self.TrackID)
	pio.PutU32BE(b[16:], uint32((traf-1)<<4|(trun-1)<<2|(sample-1)))
	pio.PutU32BE(b[20:], uint32(len(self.Entries)))
	n = 24
	for _, e := range self.Entries {
		if self.Version == 1 {
			pio.PutU64BE(b[n:], e.Time)
			pio.PutU64BE(b[n+8:], e.MoofOffset)
			n += 16
		} else {
			pio.PutU32BE(b[n:], uint32(e.Time))
			pio.PutU32BE(b[n+4:], uint32(e.MoofOffset))
			n += 8
		}
		putNumber(b[n:], traf, e.TrafNumber)
		n += traf
		putNumber(b[n:], trun, e.TrunNumber)
		n += trun
		putNumber(b[n:], sample, e.SampleNumber)
		n += sample
	}
	pio.PutU32BE(b[0:], uint32(n))
	return
}

func (self *TrackFragRandomAccess) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	if len(b) < 24 {
		return 0, parseErr("EntryCount", offset+len(b), nil)
	}
	self.Version = pio.U8(b[8:])
	self.Flags = pio.U24BE(b[9:])
	self.TrackID = pio.U32BE(b[12:])
	sizes := pio.U32BE(b[16:])
	traf, trun, sample := int(sizes>>4&3)+1, int(sizes>>2&3)+1, int(sizes&3)+1
	count := int(pio.U32BE(b[20:]))
	n = 24
	row := traf + trun + sample + 8
	if self.Version == 1 {
		row += 8
	}
	if len(b) < n+count*row {
		return 0, parseErr("Entries", offset+n, nil)
	}
	self.Entries = make([]TrackFragRandomAccessEntry, count)
	for i := range self.Entries {
		e := &self.Entries[i]
		if self.Version == 1 {
			e.Time = pio.U64BE(b[n:])
			e.MoofOffset = pio.U64BE(b[n+8:])
			n += 16
		} else {
			e.Time = uint64(pio.U32BE(b[n:]))
			e.MoofOffset = uint64(pio.U32BE(b[n+4:]))
			n += 8
		}
		e.TrafNumber = getNumber(b[n:], traf)
		n += traf
		e.TrunNumber = getNumber(b[n:], trun)
		n += trun
		e.SampleNumber = getNumber(b[n:], sample)
		n += sample
	}
	return
}

const mfroLen = 16

// MovieFragRandomAccessOffset is the mfro box closing an mfra.
type MovieFragRandomAccessOffset struct {
	Version uint8
	Flags   uint32
	Size    uint32
	AtomPos
}

func (self MovieFragRandomAccessOffset) Tag() Tag {
	return MFRO
}

func (self MovieFragRandomAccessOffset) Children() []Atom {
	return nil
}

func (self MovieFragRandomAccessOffset) Len() int {
	return mfroLen
}

func (self MovieFragRandomAccessOffset) Marshal(b []byte) int {
	pio.PutU32BE(b[0:], mfroLen)
	pio.PutU32BE(b[4:], uint32(MFRO))
	pio.PutU8(b[8:], self.Version)
	pio.PutU24BE(b[9:], self.Flags)
	pio.PutU32BE(b[12:], self.Size)
	return mfroLen
}

func (self *MovieFragRandomAccessOffset) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	if len(b) < mfroLen {
		return 0, parseErr("Size", offset+len(b), nil)
	}
	self.Version = pio.U8(b[8:])
	self.Flags = pio.U24BE(b[9:])
	self.Size = pio.U32BE(b[12:])
	return mfroLen, nil
}
