package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const TRAK = Tag(0x7472616b)

func (self Track) Tag() Tag {
	return TRAK
}

type Track struct {
	Header   *TrackHeader
	Edit     *EditBox
	Media    *Media
	Unknowns []Atom
	AtomPos
}

func (self Track) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(TRAK))
	n += self.marshal(b[8:]) + 8
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self Track) marshal(b []byte) (n int) {
	if self.Header != nil {
		n += self.Header.Marshal(b[n:])
	}
	if self.Edit != nil {
		n += self.Edit.Marshal(b[n:])
	}
	if self.Media != nil {
		n += self.Media.Marshal(b[n:])
	}
	n += marshalAll(b[n:], self.Unknowns)
	return
}
func (self Track) Len() (n int) {
	n += 8
	if self.Header != nil {
		n += self.Header.Len()
	}
	if self.Edit != nil {
		n += self.Edit.Len()
	}
	if self.Media != nil {
		n += self.Media.Len()
	}
	n += lenAll(self.Unknowns)
	return
}
func (self *Track) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	return walk(b, 8, offset, func(tag Tag, box []byte, off int) (err error) {
		switch tag {
		case TKHD:
			self.Header, err = decode[TrackHeader](box, off)
		case EDTS:
			self.Edit, err = decode[EditBox](box, off)
		case MDIA:
			self.Media, err = decode[Media](box, off)
		default:
			self.Unknowns = append(self.Unknowns, unknown(box, off))
		}
		return
	})
}
func (self Track) Children() (r []Atom) {
	if self.Header != nil {
		r = append(r, self.Header)
	}
	if self.Edit != nil {
		r = append(r, self.Edit)
	}
	if self.Media != nil {
		r = append(r, self.Media)
	}
	r = append(r, self.Unknowns...)
	return
}
