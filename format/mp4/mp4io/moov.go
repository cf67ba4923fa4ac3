// nolint: all
package mp4io

import (
	"github.com/ugparu/remux/utils/bits/pio"
)

const MOOV = Tag(0x6d6f6f76)

func (m Movie) Tag() Tag {
	return MOOV
}

// Movie is the moov box. UserData is written last.
type Movie struct {
	Header      *MovieHeader
	Tracks      []*Track
	MovieExtend *MovieExtend
	UserData    *UserData
	Unknowns    []Atom
	AtomPos
}

func (m Movie) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(MOOV))
	n += m.marshal(b[8:]) + 8
	pio.PutU32BE(b[0:], uint32(n))
	return
}

func (m Movie) marshal(b []byte) (n int) {
	if m.Header != nil {
		n += m.Header.Marshal(b[n:])
	}
	for _, atom := range m.Tracks {
		n += atom.Marshal(b[n:])
	}
	if m.MovieExtend != nil {
		n += m.MovieExtend.Marshal(b[n:])
	}
	n += marshalAll(b[n:], m.Unknowns)
	if m.UserData != nil {
		n += m.UserData.Marshal(b[n:])
	}
	return
}

func (m Movie) Len() (n int) {
	n += 8
	if m.Header != nil {
		n += m.Header.Len()
	}
	if m.MovieExtend != nil {
		n += m.MovieExtend.Len()
	}
	for _, atom := range m.Tracks {
		n += atom.Len()
	}
	if m.UserData != nil {
		n += m.UserData.Len()
	}
	n += lenAll(m.Unknowns)
	return
}

func (m *Movie) Unmarshal(b []byte, offset int) (n int, err error) {
	(&m.AtomPos).setPos(offset, len(b))
	return walk(b, 8, offset, func(tag Tag, box []byte, off int) (err error) {
		switch tag {
		case MVHD:
			m.Header, err = decode[MovieHeader](box, off)
		case MVEX:
			m.MovieExtend, err = decode[MovieExtend](box, off)
		case UDTA:
			m.UserData, err = decode[UserData](box, off)
		case TRAK:
			var atom *Track
			if atom, err = decode[Track](box, off); err == nil {
				m.Tracks = append(m.Tracks, atom)
			}
		default:
			m.Unknowns = append(m.Unknowns, unknown(box, off))
		}
		return
	})
}

func (m Movie) Children() (r []Atom) {
	if m.Header != nil {
		r = append(r, m.Header)
	}
	for _, atom := range m.Tracks {
		r = append(r, atom)
	}
	if m.MovieExtend != nil {
		r = append(r, m.MovieExtend)
	}
	r = append(r, m.Unknowns...)
	if m.UserData != nil {
		r = append(r, m.UserData)
	}
	return
}
