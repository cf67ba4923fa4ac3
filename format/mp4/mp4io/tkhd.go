package mp4io

import (
	"time"

	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/bits/pio"
)

const TKHD = Tag(0x746b6864)

// Track header flags.
const (
	TrackEnabled   uint32 = 0x01
	TrackInMovie   uint32 = 0x02
	TrackInPreview uint32 = 0x04
)

func (self TrackHeader) Tag() Tag {
	return TKHD
}

// TrackHeader is the tkhd box. Version 1 carries 64 bit times and duration.
type TrackHeader struct {
	Version        uint8
	Flags          uint32
	CreateTime     time.Time
	ModifyTime     time.Time
	TrackId        int32
	Duration       int64
	Layer          int16
	AlternateGroup int16
	Volume         float64
	Matrix         [9]int32
	TrackWidth     float64
	TrackHeight    float64
	AtomPos
}

func (self TrackHeader) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(TKHD))
	n += self.marshal(b[8:]) + 8
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self TrackHeader) marshal(b []byte) (n int) {
	pio.PutU8(b[n:], self.Version)
	n += 1
	pio.PutU24BE(b[n:], self.Flags)
	n += 3
	if self.Version == 1 {
		PutTime64(b[n:], self.CreateTime)
		n += 8
		PutTime64(b[n:], self.ModifyTime)
		n += 8
	} else {
		PutTime32(b[n:], self.CreateTime)
		n += 4
		PutTime32(b[n:], self.ModifyTime)
		n += 4
	}
	pio.PutI32BE(b[n:], self.TrackId)
	n += 4
	pio.PutU32BE(b[n:], 0)
	n += 4
	if self.Version == 1 {
		pio.PutI64BE(b[n:], self.Duration)
		n += 8
	} else {
		pio.PutI32BE(b[n:], int32(self.Duration))
		n += 4
	}
	pio.PutU64BE(b[n:], 0)
	n += 8
	pio.PutI16BE(b[n:], self.Layer)
	n += 2
	pio.PutI16BE(b[n:], self.AlternateGroup)
	n += 2
	PutFixed16(b[n:], self.Volume)
	n += 2
	pio.PutU16BE(b[n:], 0)
	n += 2
	for _, entry := range self.Matrix {
		pio.PutI32BE(b[n:], entry)
		n += 4
	}
	PutFixed32(b[n:], self.TrackWidth)
	n += 4
	PutFixed32(b[n:], self.TrackHeight)
	n += 4
	return
}
func (self TrackHeader) Len() (n int) {
	n += 8
	n += 4
	if self.Version == 1 {
		n += 8 + 8 + 4 + 4 + 8
	} else {
		n += 4 + 4 + 4 + 4 + 4
	}
	n += 8
	n += 2
	n += 2
	n += 2
	n += 2
	n += 4 * len(self.Matrix[:])
	n += 4
	n += 4
	return
}
func (self *TrackHeader) Unmarshal(b []byte, offset int) (n int, err error) {
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
	timeSize := 4
	if self.Version == 1 {
		timeSize = 8
	}
	if len(b) < n+3*timeSize+4+4 {
		err = parseErr("CreateTime", n+offset, err)
		return
	}
	if self.Version == 1 {
		self.CreateTime = GetTime64(b[n:])
		self.ModifyTime = GetTime64(b[n+8:])
	} else {
		self.CreateTime = GetTime32(b[n:])
		self.ModifyTime = GetTime32(b[n+4:])
	}
	n += 2 * timeSize
	self.TrackId = pio.I32BE(b[n:])
	n += 4
	n += 4
	if self.Version == 1 {
		self.Duration = pio.I64BE(b[n:])
	} else {
		self.Duration = int64(pio.U32BE(b[n:]))
	}
	n += timeSize
	n += 8
	if len(b) < n+8 {
		err = parseErr("Layer", n+offset, err)
		return
	}
	self.Layer = pio.I16BE(b[n:])
	n += 2
	self.AlternateGroup = pio.I16BE(b[n:])
	n += 2
	self.Volume = GetFixed16(b[n:])
	n += 2
	n += 2
	if len(b) < n+4*len(self.Matrix) {
		err = &utils.InvalidTrackMatrixError{TrackID: uint32(self.TrackId), Size: len(b) - n}
		return
	}
	for i := range self.Matrix {
		self.Matrix[i] = pio.I32BE(b[n:])
		n += 4
	}
	if len(b) < n+8 {
		err = parseErr("TrackWidth", n+offset, err)
		return
	}
	self.TrackWidth = GetFixed32(b[n:])
	n += 4
	self.TrackHeight = GetFixed32(b[n:])
	n += 4
	return
}
func (self TrackHeader) Children() (r []Atom) {
	return
}
