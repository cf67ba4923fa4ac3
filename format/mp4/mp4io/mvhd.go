package mp4io

import (
	"time"

	"github.com/ugparu/remux/utils/bits/pio"
)

const (
	MVHD = Tag(0x6d766864)
	// MovieTimeScale is the timescale of movie headers built by the writers.
	MovieTimeScale = 1000
)

// identity is the unity transformation matrix of movie and track headers.
var identity = [9]int32{
	0x00010000, 0, 0,
	0, 0x00010000, 0,
	0, 0, 0x40000000,
}

// NewMovieHeader returns a version 1 header with a 1000 Hz timescale.
func NewMovieHeader() *MovieHeader {
	now := time.Now().UTC()
	return &MovieHeader{
		Version:         1,
		CreateTime:      now,
		ModifyTime:      now,
		TimeScale:       MovieTimeScale,
		PreferredRate:   1,
		PreferredVolume: 1,
		Matrix:          identity,
		NextTrackID:     1,
	}
}

// ToMovieTime converts d ticks of timescale to the movie timescale, rounding up.
func ToMovieTime(d int64, timescale uint32) int64 {
	if timescale == 0 || timescale == MovieTimeScale || d <= 0 {
		return d
	}
	ts := int64(timescale)
	return (d*MovieTimeScale + ts - 1) / ts
}

// MovieHeader is the mvhd box. Version 1 widens the times and the duration
// to 64 bits.
type MovieHeader struct {
	Version         byte
	Flags           uint32
	CreateTime      time.Time
	ModifyTime      time.Time
	TimeScale       int32
	Duration        int64
	PreferredRate   float64
	PreferredVolume float64
	Matrix          [9]int32
	NextTrackID     int32
	AtomPos
}

func (mvhd MovieHeader) Tag() Tag {
	return MVHD
}

// timeWidth is the width of each of the two times and the duration.
func (mvhd MovieHeader) timeWidth() int {
	if mvhd.Version == 1 {
		return 8
	}
	return 4
}

// Len is the header, version and flags, the times, the timescale, the
// duration, then rate, volume, 10 reserved bytes, the matrix, 24 bytes of
// pre_defined and the next track id.
func (mvhd MovieHeader) Len() int {
	return HeaderSize + 4 + 3*mvhd.timeWidth() + 4 + 4 + 2 + 10 + 36 + 24 + 4
}

func (mvhd MovieHeader) Marshal(b []byte) int {
	size := mvhd.Len()
	clear(b[:size])
	pio.PutU32BE(b, uint32(size))
	pio.PutU32BE(b[4:], uint32(MVHD))
	b[8] = mvhd.Version
	pio.PutU24BE(b[9:], mvhd.Flags)
	n := 12
	if mvhd.Version == 1 {
		PutTime64(b[n:], mvhd.CreateTime)
		PutTime64(b[n+8:], mvhd.ModifyTime)
		pio.PutI32BE(b[n+16:], mvhd.TimeScale)
		pio.PutI64BE(b[n+20:], mvhd.Duration)
		n += 28
	} else {
		PutTime32(b[n:], mvhd.CreateTime)
		PutTime32(b[n+4:], mvhd.ModifyTime)
		pio.PutI32BE(b[n+8:], mvhd.TimeScale)
		pio.PutI32BE(b[n+12:], int32(mvhd.Duration))
		n += 16
	}
	PutFixed32(b[n:], mvhd.PreferredRate)
	PutFixed16(b[n+4:], mvhd.PreferredVolume)
	n += 16
	for i, v := range mvhd.Matrix {
		pio.PutI32BE(b[n+4*i:], v)
	}
	n += 36 + 24
	pio.PutI32BE(b[n:], mvhd.NextTrackID)
	return size
}

func (mvhd *MovieHeader) Unmarshal(b []byte, offset int) (int, error) {
	mvhd.AtomPos.setPos(offset, len(b))
	if len(b) < HeaderSize+4 {
		return 0, parseErr("Version", offset+HeaderSize, nil)
	}
	mvhd.Version = b[8]
	mvhd.Flags = pio.U24BE(b[9:])
	if len(b) < mvhd.Len() {
		return 0, parseErr("mvhd", offset, nil)
	}
	n := 12
	if mvhd.Version == 1 {
		mvhd.CreateTime = GetTime64(b[n:])
		mvhd.ModifyTime = GetTime64(b[n+8:])
		mvhd.TimeScale = pio.I32BE(b[n+16:])
		mvhd.Duration = pio.I64BE(b[n+20:])
		n += 28
	} else {
		mvhd.CreateTime = GetTime32(b[n:])
		mvhd.ModifyTime = GetTime32(b[n+4:])
		mvhd.TimeScale = pio.I32BE(b[n+8:])
		mvhd.Duration = int64(pio.I32BE(b[n+12:]))
		n += 16
	}
	mvhd.PreferredRate = GetFixed32(b[n:])
	mvhd.PreferredVolume = GetFixed16(b[n+4:])
	n += 16
	for i := range mvhd.Matrix {
		mvhd.Matrix[i] = pio.I32BE(b[n+4*i:])
	}
	n += 36 + 24
	mvhd.NextTrackID = pio.I32BE(b[n:])
	return n + 4, nil
}

func (mvhd MovieHeader) Children() []Atom {
	return nil
}
