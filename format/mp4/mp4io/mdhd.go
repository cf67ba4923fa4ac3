package mp4io

import (
	"time"

	"github.com/ugparu/remux/utils/bits/pio"
)

const MDHD = Tag(0x6d646864)

func (self MediaHeader) Tag() Tag {
	return MDHD
}

// MediaHeader is the mdhd box. Version 1 carries 64 bit times and duration.
type MediaHeader struct {
	Version    uint8
	Flags      uint32
	CreateTime time.Time
	ModifyTime time.Time
	TimeScale  uint32
	Duration   uint64
	Language   int16
	Quality    int16
	AtomPos
}

func (self MediaHeader) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(MDHD))
	n += self.marshal(b[8:]) + 8
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self MediaHeader) marshal(b []byte) (n int) {
	pio.PutU8(b[n:], self.Version)
	n += 1
	pio.PutU24BE(b[n:], self.Flags)
	n += 3
	if self.Version == 1 {
		PutTime64(b[n:], self.CreateTime)
		n += 8
		PutTime64(b[n:], self.ModifyTime)
		n += 8
		pio.PutU32BE(b[n:], self.TimeScale)
		n += 4
		pio.PutU64BE(b[n:], self.Duration)
		n += 8
	} else {
		PutTime32(b[n:], self.CreateTime)
		n += 4
		PutTime32(b[n:], self.ModifyTime)
		n += 4
		pio.PutU32BE(b[n:], self.TimeScale)
		n += 4
		pio.PutU32BE(b[n:], uint32(self.Duration))
		n += 4
	}
	pio.PutI16BE(b[n:], self.Language)
	n += 2
	pio.PutI16BE(b[n:], self.Quality)
	n += 2
	return
}
func (self MediaHeader) Len() (n int) {
	n += 8
	n += 4
	if self.Version == 1 {
		n += 8 + 8 + 4 + 8
	} else {
		n += 4 + 4 + 4 + 4
	}
	n += 2
	n += 2
	return
}
func (self *MediaHeader) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	n += 8
	if len(b) < n+4 {
		err = parseErr("Version", n+offset, err)
		return
	}
	self.Version = pio.U8(b[n:])
	n += 1
	self.Flags = pio.U24BE(b[n:])
	n += 3
	if self.Version == 1 {
		if len(b) < n+28 {
			err = parseErr("Duration", n+offset, err)
			return
		}
		self.CreateTime = GetTime64(b[n:])
		n += 8
		self.ModifyTime = GetTime64(b[n:])
		n += 8
		self.TimeScale = pio.U32BE(b[n:])
		n += 4
		self.Duration = pio.U64BE(b[n:])
		n += 8
	} else {
		if len(b) < n+16 {
			err = parseErr("Duration", n+offset, err)
			return
		}
		self.CreateTime = GetTime32(b[n:])
		n += 4
		self.ModifyTime = GetTime32(b[n:])
		n += 4
		self.TimeScale = pio.U32BE(b[n:])
		n += 4
		self.Duration = uint64(pio.U32BE(b[n:]))
		n += 4
	}
	if len(b) < n+4 {
		err = parseErr("Language", n+offset, err)
		return
	}
	self.Language = pio.I16BE(b[n:])
	n += 2
	self.Quality = pio.I16BE(b[n:])
	n += 2
	return
}
func (self MediaHeader) Children() (r []Atom) {
	return
}
