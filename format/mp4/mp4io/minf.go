package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const (
	MINF = Tag(0x6d696e66)
	VMHD = Tag(0x766d6864)
	SMHD = Tag(0x736d6864)
)

func (self MediaInfo) Tag() Tag {
	return MINF
}

type MediaInfo struct {
	Sound    *SoundMediaInfo
	Video    *VideoMediaInfo
	Data     *DataInfo
	Sample   *SampleTable
	Unknowns []Atom
	AtomPos
}

func (self MediaInfo) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(MINF))
	n += self.marshal(b[8:]) + 8
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self MediaInfo) marshal(b []byte) (n int) {
	if self.Sound != nil {
		n += self.Sound.Marshal(b[n:])
	}
	if self.Video != nil {
		n += self.Video.Marshal(b[n:])
	}
	n += marshalAll(b[n:], self.Unknowns)
	if self.Data != nil {
		n += self.Data.Marshal(b[n:])
	}
	if self.Sample != nil {
		n += self.Sample.Marshal(b[n:])
	}
	return
}
func (self MediaInfo) Len() (n int) {
	n += 8
	if self.Sound != nil {
		n += self.Sound.Len()
	}
	if self.Video != nil {
		n += self.Video.Len()
	}
	if self.Data != nil {
		n += self.Data.Len()
	}
	if self.Sample != nil {
		n += self.Sample.Len()
	}
	n += lenAll(self.Unknowns)
	return
}
func (self *MediaInfo) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	return walk(b, 8, offset, func(tag Tag, box []byte, off int) (err error) {
		switch tag {
		case SMHD:
			self.Sound, err = decode[SoundMediaInfo](box, off)
		case VMHD:
			self.Video, err = decode[VideoMediaInfo](box, off)
		case DINF:
			self.Data, err = decode[DataInfo](box, off)
		case STBL:
			self.Sample, err = decode[SampleTable](box, off)
		default:
			self.Unknowns = append(self.Unknowns, unknown(box, off))
		}
		return
	})
}
func (self MediaInfo) Children() (r []Atom) {
	if self.Sound != nil {
		r = append(r, self.Sound)
	}
	if self.Video != nil {
		r = append(r, self.Video)
	}
	r = append(r, self.Unknowns...)
	if self.Data != nil {
		r = append(r, self.Data)
	}
	if self.Sample != nil {
		r = append(r, self.Sample)
	}
	return
}

// VideoMediaInfo is the vmhd box.
type VideoMediaInfo struct {
	Version      uint8
	Flags        uint32
	GraphicsMode int16
	Opcolor      [3]int16
	AtomPos
}

func (self VideoMediaInfo) Tag() Tag {
	return VMHD
}
func (self VideoMediaInfo) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(VMHD))
	n += 8
	pio.PutU8(b[n:], self.Version)
	pio.PutU24BE(b[n+1:], self.Flags)
	n += 4
	pio.PutI16BE(b[n:], self.GraphicsMode)
	n += 2
	for _, entry := range self.Opcolor {
		pio.PutI16BE(b[n:], entry)
		n += 2
	}
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self VideoMediaInfo) Len() int {
	return 8 + 4 + 2 + 2*len(self.Opcolor)
}
func (self *VideoMediaInfo) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	n += 8
	if len(b) < n+12 {
		err = parseErr("GraphicsMode", n+offset, err)
		return
	}
	self.Version = pio.U8(b[n:])
	self.Flags = pio.U24BE(b[n+1:])
	n += 4
	self.GraphicsMode = pio.I16BE(b[n:])
	n += 2
	for i := range self.Opcolor {
		self.Opcolor[i] = pio.I16BE(b[n:])
		n += 2
	}
	return
}
func (self VideoMediaInfo) Children() (r []Atom) {
	return
}

// SoundMediaInfo is the smhd box.
type SoundMediaInfo struct {
	Version uint8
	Flags   uint32
	Balance int16
	AtomPos
}

func (self SoundMediaInfo) Tag() Tag {
	return SMHD
}
func (self SoundMediaInfo) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(SMHD))
	n += 8
	pio.PutU8(b[n:], self.Version)
	pio.PutU24BE(b[n+1:], self.Flags)
	n += 4
	pio.PutI16BE(b[n:], self.Balance)
	pio.PutU16BE(b[n+2:], 0)
	n += 4
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self SoundMediaInfo) Len() int {
	return 16
}
func (self *SoundMediaInfo) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	n += 8
	if len(b) < n+6 {
		err = parseErr("Balance", n+offset, err)
		return
	}
	self.Version = pio.U8(b[n:])
	self.Flags = pio.U24BE(b[n+1:])
	n += 4
	self.Balance = pio.I16BE(b[n:])
	n += 4
	return
}
func (self SoundMediaInfo) Children() (r []Atom) {
	return
}
