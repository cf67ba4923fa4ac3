package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const (
	MVEX = Tag(0x6d766578)
	TREX = Tag(0x74726578)
)

func (self MovieExtend) Tag() Tag {
	return MVEX
}

type MovieExtend struct {
	Tracks   []*TrackExtend
	Unknowns []Atom
	AtomPos
}

func (self MovieExtend) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(MVEX))
	n += 8
	n += marshalAll(b[n:], self.Children())
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self MovieExtend) Len() int {
	return 8 + lenAll(self.Children())
}
func (self *MovieExtend) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	return walk(b, 8, offset, func(tag Tag, box []byte, off int) (err error) {
		if tag != TREX {
			self.Unknowns = append(self.Unknowns, unknown(box, off))
			return
		}
		var atom *TrackExtend
		if atom, err = decode[TrackExtend](box, off); err == nil {
			self.Tracks = append(self.Tracks, atom)
		}
		return
	})
}
func (self MovieExtend) Children() (r []Atom) {
	for _, atom := range self.Tracks {
		r = append(r, atom)
	}
	return append(r, self.Unknowns...)
}

func (self TrackExtend) Tag() Tag {
	return TREX
}

// TrackExtend is the trex box. Fragmented output writes one per track with
// every default zeroed except the description index.
type TrackExtend struct {
	Version               uint8
	Flags                 uint32
	TrackId               uint32
	DefaultSampleDescIdx  uint32
	DefaultSampleDuration uint32
	DefaultSampleSize     uint32
	DefaultSampleFlags    uint32
	AtomPos
}

const trexLen = 32

func (self TrackExtend) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[0:], trexLen)
	pio.PutU32BE(b[4:], uint32(TREX))
	pio.PutU8(b[8:], self.Version)
	pio.PutU24BE(b[9:], self.Flags)
	pio.PutU32BE(b[12:], self.TrackId)
	pio.PutU32BE(b[16:], self.DefaultSampleDescIdx)
	pio.PutU32BE(b[20:], self.DefaultSampleDuration)
	pio.PutU32BE(b[24:], self.DefaultSampleSize)
	pio.PutU32BE(b[28:], self.DefaultSampleFlags)
	return trexLen
}
func (self TrackExtend) Len() int {
	return trexLen
}
func (self *TrackExtend) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	if len(b) < trexLen {
		err = parseErr("trex", offset+len(b), err)
		return
	}
	self.Version = pio.U8(b[8:])
	self.Flags = pio.U24BE(b[9:])
	self.TrackId = pio.U32BE(b[12:])
	self.DefaultSampleDescIdx = pio.U32BE(b[16:])
	self.DefaultSampleDuration = pio.U32BE(b[20:])
	self.DefaultSampleSize = pio.U32BE(b[24:])
	self.DefaultSampleFlags = pio.U32BE(b[28:])
	n = trexLen
	return
}
func (self TrackExtend) Children() (r []Atom) {
	return
}
