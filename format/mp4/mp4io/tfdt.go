package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const TFDT = Tag(0x74666474)

func (self TrackFragDecodeTime) Tag() Tag {
	return TFDT
}

// TrackFragDecodeTime is the tfdt box; version 1 carries a 64-bit time.
type TrackFragDecodeTime struct {
	Version uint8
	Flags   uint32
	Time    uint64
	AtomPos
}

func (self TrackFragDecodeTime) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(TFDT))
	pio.PutU8(b[8:], self.Version)
	pio.PutU24BE(b[9:], self.Flags)
	if self.Version != 0 {
		pio.PutU64BE(b[12:], self.Time)
		n = 20
	} else {
		pio.PutU32BE(b[12:], uint32(self.Time))
		n = 16
	}
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self TrackFragDecodeTime) Len() int {
	if self.Version != 0 {
		return 20
	}
	return 16
}
func (self *TrackFragDecodeTime) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	if len(b) < 12 {
		err = parseErr("Version", offset+len(b), err)
		return
	}
	self.Version = pio.U8(b[8:])
	self.Flags = pio.U24BE(b[9:])
	n = self.Len()
	if len(b) < n {
		err = parseErr("Time", offset+12, err)
		return
	}
	if self.Version != 0 {
		self.Time = pio.U64BE(b[12:])
	} else {
		self.Time = uint64(pio.U32BE(b[12:]))
	}
	return
}
func (self TrackFragDecodeTime) Children() (r []Atom) {
	return
}
