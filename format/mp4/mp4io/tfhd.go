package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const (
	TFHD                  = Tag(0x74666864)
	TFHDBaseDataOffset    = uint32(0x01)
	TFHDStsdID            = uint32(0x02)
	TFHDDefaultDuration   = uint32(0x08)
	TFHDDefaultSize       = uint32(0x10)
	TFHDDefaultFlags      = uint32(0x20)
	TFHDDurationIsEmpty   = uint32(0x10000)
	TFHDDefaultBaseIsMOOF = uint32(0x20000)
)

// TrackFragHeader is the tfhd box. Optional fields are present when their
// flag bit is set.
type TrackFragHeader struct {
	Version         uint8
	Flags           uint32
	TrackID         uint32
	BaseDataOffset  uint64
	StsdID          uint32
	DefaultDuration uint32
	DefaultSize     uint32
	DefaultFlags    uint32
	AtomPos
}

func (TrackFragHeader) Tag() Tag {
	return TFHD
}

func (tfhd *TrackFragHeader) fields() []struct {
	flag uint32
	v    *uint32
} {
	return []struct {
		flag uint32
		v    *uint32
	}{
		{TFHDStsdID, &tfhd.StsdID},
		{TFHDDefaultDuration, &tfhd.DefaultDuration},
		{TFHDDefaultSize, &tfhd.DefaultSize},
		{TFHDDefaultFlags, &tfhd.DefaultFlags},
	}
}

func (tfhd TrackFragHeader) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(TFHD))
	pio.PutU8(b[8:], tfhd.Version)
	pio.PutU24BE(b[9:], tfhd.Flags)
	pio.PutU32BE(b[12:], tfhd.TrackID)
	n = 16
	if tfhd.Flags&TFHDBaseDataOffset != 0 {
		pio.PutU64BE(b[n:], tfhd.BaseDataOffset)
		n += 8
	}
	for _, f := range tfhd.fields() {
		if tfhd.Flags&f.flag != 0 {
			pio.PutU32BE(b[n:], *f.v)
			n += 4
		}
	}
	pio.PutU32BE(b[0:], uint32(n))
	return
}

func (tfhd TrackFragHeader) Len() (n int) {
	n = 16
	if tfhd.Flags&TFHDBaseDataOffset != 0 {
		n += 8
	}
	for _, f := range tfhd.fields() {
		if tfhd.Flags&f.flag != 0 {
			n += 4
		}
	}
	return
}

func (tfhd *TrackFragHeader) Unmarshal(b []byte, offset int) (n int, err error) {
	(&tfhd.AtomPos).setPos(offset, len(b))
	if len(b) < 16 {
		err = parseErr("TrackID", offset+len(b), err)
		return
	}
	tfhd.Version = pio.U8(b[8:])
	tfhd.Flags = pio.U24BE(b[9:])
	tfhd.TrackID = pio.U32BE(b[12:])
	n = 16
	if tfhd.Flags&TFHDBaseDataOffset != 0 {
		if len(b) < n+8 {
			err = parseErr("BaseDataOffset", n+offset, err)
			return
		}
		tfhd.BaseDataOffset = pio.U64BE(b[n:])
		n += 8
	}
	for _, f := range tfhd.fields() {
		if tfhd.Flags&f.flag == 0 {
			continue
		}
		if len(b) < n+4 {
			err = parseErr("Defaults", n+offset, err)
			return
		}
		*f.v = pio.U32BE(b[n:])
		n += 4
	}
	return
}

func (tfhd TrackFragHeader) Children() (r []Atom) {
	return
}
