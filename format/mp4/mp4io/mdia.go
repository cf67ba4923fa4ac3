package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const MDIA = Tag(0x6d646961)

func (self Media) Tag() Tag {
	return MDIA
}

type Media struct {
	Header   *MediaHeader
	Handler  *HandlerRefer
	Info     *MediaInfo
	Unknowns []Atom
	AtomPos
}

func (self Media) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(MDIA))
	n += self.marshal(b[8:]) + 8
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self Media) marshal(b []byte) (n int) {
	if self.Header != nil {
		n += self.Header.Marshal(b[n:])
	}
	if self.Handler != nil {
		n += self.Handler.Marshal(b[n:])
	}
	if self.Info != nil {
		n += self.Info.Marshal(b[n:])
	}
	n += marshalAll(b[n:], self.Unknowns)
	return
}
func (self Media) Len() (n int) {
	n += 8
	if self.Header != nil {
		n += self.Header.Len()
	}
	if self.Handler != nil {
		n += self.Handler.Len()
	}
	if self.Info != nil {
		n += self.Info.Len()
	}
	n += lenAll(self.Unknowns)
	return
}
func (self *Media) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	return walk(b, 8, offset, func(tag Tag, box []byte, off int) (err error) {
		switch tag {
		case MDHD:
			self.Header, err = decode[MediaHeader](box, off)
		case HDLR:
			self.Handler, err = decode[HandlerRefer](box, off)
		case MINF:
			self.Info, err = decode[MediaInfo](box, off)
		default:
			self.Unknowns = append(self.Unknowns, unknown(box, off))
		}
		return
	})
}
func (self Media) Children() (r []Atom) {
	if self.Header != nil {
		r = append(r, self.Header)
	}
	if self.Handler != nil {
		r = append(r, self.Handler)
	}
	if self.Info != nil {
		r = append(r, self.Info)
	}
	r = append(r, self.Unknowns...)
	return
}
