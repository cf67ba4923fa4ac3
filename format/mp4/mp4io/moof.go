package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const (
	MOOF = Tag(0x6d6f6f66)
	MFHD = Tag(0x6d666864)
)

func (self MovieFrag) Tag() Tag {
	return MOOF
}

type MovieFrag struct {
	Header   *MovieFragHeader
	Tracks   []*TrackFrag
	Unknowns []Atom
	AtomPos
}

func (self MovieFrag) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(MOOF))
	n += 8
	n += marshalAll(b[n:], self.Children())
	pio.PutU32BE(b[0:], uint32(n))
	return
}

func (self MovieFrag) Len() int {
	return 8 + lenAll(self.Children())
}

func (self *MovieFrag) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	return walk(b, 8, offset, func(tag Tag, box []byte, off int) (err error) {
		switch tag {
		case MFHD:
			self.Header, err = decode[MovieFragHeader](box, off)
		case TRAF:
			var atom *TrackFrag
			if atom, err = decode[TrackFrag](box, off); err == nil {
				self.Tracks = append(self.Tracks, atom)
			}
		default:
			self.Unknowns = append(self.Unknowns, unknown(box, off))
		}
		return
	})
}

func (self MovieFrag) Children() (r []Atom) {
	if self.Header != nil {
		r = append(r, self.Header)
	}
	for _, atom := range self.Tracks {
		r = append(r, atom)
	}
	return append(r, self.Unknowns...)
}

func (self MovieFragHeader) Tag() Tag {
	return MFHD
}

type MovieFragHeader struct {
	Version uint8
	Flags   uint32
	Seqnum  uint32
	AtomPos
}

func (self MovieFragHeader) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[0:], 16)
	pio.PutU32BE(b[4:], uint32(MFHD))
	pio.PutU8(b[8:], self.Version)
	pio.PutU24BE(b[9:], self.Flags)
	pio.PutU32BE(b[12:], self.Seqnum)
	return 16
}
func (self MovieFragHeader) Len() int {
	return 16
}
func (self *MovieFragHeader) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	if len(b) < 16 {
		err = parseErr("Seqnum", offset+len(b), err)
		return
	}
	self.Version = pio.U8(b[8:])
	self.Flags = pio.U24BE(b[9:])
	self.Seqnum = pio.U32BE(b[12:])
	n = 16
	return
}
func (self MovieFragHeader) Children() (r []Atom) {
	return
}
