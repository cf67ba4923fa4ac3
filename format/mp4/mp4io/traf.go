package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const TRAF = Tag(0x74726166)

func (self TrackFrag) Tag() Tag {
	return TRAF
}

type TrackFrag struct {
	Header     *TrackFragHeader
	DecodeTime *TrackFragDecodeTime
	Run        *TrackFragRun
	Unknowns   []Atom
	AtomPos
}

func (self TrackFrag) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(TRAF))
	n += 8
	n += marshalAll(b[n:], self.Children())
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self TrackFrag) Len() int {
	return 8 + lenAll(self.Children())
}
func (self *TrackFrag) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	return walk(b, 8, offset, func(tag Tag, box []byte, off int) (err error) {
		switch tag {
		case TFHD:
			self.Header, err = decode[TrackFragHeader](box, off)
		case TFDT:
			self.DecodeTime, err = decode[TrackFragDecodeTime](box, off)
		case TRUN:
			self.Run, err = decode[TrackFragRun](box, off)
		default:
			self.Unknowns = append(self.Unknowns, unknown(box, off))
		}
		return
	})
}
func (self TrackFrag) Children() (r []Atom) {
	if self.Header != nil {
		r = append(r, self.Header)
	}
	if self.DecodeTime != nil {
		r = append(r, self.DecodeTime)
	}
	if self.Run != nil {
		r = append(r, self.Run)
	}
	return append(r, self.Unknowns...)
}
